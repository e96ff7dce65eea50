package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/utafrali/hybridsearch/pkg/errors"
	"github.com/utafrali/hybridsearch/pkg/httputil"
	"github.com/utafrali/hybridsearch/pkg/logger"
)

// DefaultTokenCookie is the cookie the storefront stores its session JWT in.
const DefaultTokenCookie = "token"

var errNoToken = errors.New("no token")

// AuthConfig configures JWTAuth.
type AuthConfig struct {
	// Secret is the HS256 signing key shared with the issuing service.
	Secret string
	// CookieName is read before the Authorization header.
	CookieName string
}

// JWTAuth verifies an HS256 token taken from the session cookie or a
// "Bearer" Authorization header. A missing token yields 401, an invalid or
// expired one 403. The subject (user_id, id or sub claim) is stored for
// logging via logger.WithUserID.
func JWTAuth(cfg AuthConfig, l *slog.Logger) func(http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultTokenCookie
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := tokenFromRequest(r, cfg.CookieName)
			if err != nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), l)
				return
			}

			claims := jwt.MapClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
				l.WarnContext(r.Context(), "rejected token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				httputil.WriteError(w, r, apperrors.Forbidden("invalid or expired token"), l)
				return
			}

			ctx := r.Context()
			if sub := subject(claims); sub != "" {
				ctx = logger.WithUserID(ctx, sub)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) (string, error) {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "bearer") && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token), nil
	}
	return "", errNoToken
}

func subject(claims jwt.MapClaims) string {
	for _, key := range []string{"user_id", "id", "sub"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
