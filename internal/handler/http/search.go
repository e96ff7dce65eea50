package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/hybridsearch/internal/domain"
	"github.com/utafrali/hybridsearch/internal/service"
	apperrors "github.com/utafrali/hybridsearch/pkg/errors"
	"github.com/utafrali/hybridsearch/pkg/httputil"
)

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service   *service.SearchService
	reindexer *service.Reindexer
	logger    *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler. reindexer may be nil,
// in which case POST /reindex answers 503.
func NewSearchHandler(svc *service.SearchService, reindexer *service.Reindexer, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service:   svc,
		reindexer: reindexer,
		logger:    logger,
	}
}

// SuggestResponse is the payload of GET /api/search/suggest.
type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// ReindexResponse is the payload of POST /api/search/reindex.
type ReindexResponse struct {
	Status string `json:"status"`
}

// Lexical handles GET /api/search/simple
func (h *SearchHandler) Lexical(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, domain.ModeLexical)
}

// Relevance handles GET /api/search/elastic
func (h *SearchHandler) Relevance(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, domain.ModeRelevance)
}

func (h *SearchHandler) search(w http.ResponseWriter, r *http.Request, mode domain.Mode) {
	q := r.URL.Query()
	req := domain.SearchRequest{
		Query: q.Get("q"),
		Page:  httputil.QueryInt(r, "page", 1),
		Limit: httputil.QueryInt(r, "limit", 0),
		Sort:  q.Get("sort"),
		Mode:  mode,
	}

	page, err := h.service.Search(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, page)
}

// Suggest handles GET /api/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.service.Suggest(r.Context(), r.URL.Query().Get("q"), httputil.QueryInt(r, "limit", 0))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: SuggestResponse{Suggestions: suggestions}})
}

// Reindex handles POST /api/search/reindex
func (h *SearchHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	if h.reindexer == nil {
		httputil.WriteError(w, r, apperrors.Unavailable("reindex is not available for this search engine"), h.logger)
		return
	}

	if err := h.reindexer.Start(r.Context()); err != nil {
		if errors.Is(err, service.ErrReindexRunning) {
			err = apperrors.Conflict("reindex already running")
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: ReindexResponse{Status: "reindex started"}})
}
