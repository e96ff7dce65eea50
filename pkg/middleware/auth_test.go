package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/hybridsearch/pkg/httputil"
	"github.com/utafrali/hybridsearch/pkg/logger"
)

const testSecret = "test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func authRequest(t *testing.T, configure func(*http.Request)) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seenUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = logger.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/search/simple?q=shoes", nil)
	if configure != nil {
		configure(req)
	}
	rec := httptest.NewRecorder()
	JWTAuth(AuthConfig{Secret: testSecret}, discardLogger())(next).ServeHTTP(rec, req)
	return rec, seenUser
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestJWTAuth_MissingToken_Returns401(t *testing.T) {
	rec, _ := authRequest(t, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
}

func TestJWTAuth_ValidCookie(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"id":  float64(42),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	rec, user := authRequest(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: DefaultTokenCookie, Value: token})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", user)
}

func TestJWTAuth_ValidBearer(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "user-7"})

	rec, user := authRequest(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", user)
}

func TestJWTAuth_WrongSecret_Returns403(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "x"})

	rec, _ := authRequest(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: DefaultTokenCookie, Value: token})
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))
}

func TestJWTAuth_Expired_Returns403(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "x",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	rec, _ := authRequest(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestJWTAuth_WrongAlgorithm_Returns403(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": "x"})

	rec, _ := authRequest(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestJWTAuth_MalformedHeader_Returns401(t *testing.T) {
	rec, _ := authRequest(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuth_OptionsPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	rec := httptest.NewRecorder()
	JWTAuth(AuthConfig{Secret: testSecret}, discardLogger())(next).ServeHTTP(rec,
		httptest.NewRequest(http.MethodOptions, "/api/search/simple", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
