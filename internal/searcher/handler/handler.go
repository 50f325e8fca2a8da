// Package handler exposes the search server over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searchserver"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/logger"
)

const maxBatchQueries = 1000

type Handler struct {
	server     *searchserver.Server
	tracker    *analytics.Tracker
	cache      *cache.QueryCache
	maxResults int
	logger     *slog.Logger
}

// New creates a Handler. queryCache may be nil; maxResults caps the number
// of documents returned per search.
func New(server *searchserver.Server, tracker *analytics.Tracker, queryCache *cache.QueryCache, maxResults int) *Handler {
	if maxResults <= 0 || maxResults > ranker.MaxResults {
		maxResults = ranker.MaxResults
	}
	return &Handler{
		server:     server,
		tracker:    tracker,
		cache:      queryCache,
		maxResults: maxResults,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Register adds every search API route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/match", h.Match)
	mux.HandleFunc("POST /api/v1/batch", h.Batch)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.RemoveDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/words", h.WordFrequencies)
	mux.HandleFunc("POST /api/v1/dedup", h.RemoveDuplicates)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type searchResponse struct {
	Query   string                  `json:"query"`
	Filter  string                  `json:"filter"`
	Mode    string                  `json:"mode"`
	Results []ranker.ScoredDocument `json:"results"`
}

// Search handles GET /api/v1/search?q=&status=&mode=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")

	filter := searchserver.Filter{Mode: h.server.DefaultMode()}
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := index.ParseStatus(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = &status
	}
	if m := r.URL.Query().Get("mode"); m != "" {
		mode, err := executor.ParseMode(m)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Mode = mode
	}

	docs, err := h.tracker.AddFindRequest(ctx, query, filter)
	if err != nil {
		logger.FromContext(ctx).Warn("search failed", "component", "search-handler", "query", query, "error", err)
		h.writeAppError(w, err)
		return
	}
	if len(docs) > h.maxResults {
		docs = docs[:h.maxResults]
	}
	if docs == nil {
		docs = []ranker.ScoredDocument{}
	}

	logger.FromContext(ctx).Info("search completed",
		"component", "search-handler",
		"query", query,
		"filter", filter.Describe(),
		"mode", filter.Mode.String(),
		"returned", len(docs),
	)
	h.writeJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Filter:  filter.Describe(),
		Mode:    filter.Mode.String(),
		Results: docs,
	})
}

// Match handles GET /api/v1/match?q=&id=.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	words, status, err := h.server.MatchDocument(r.Context(), r.URL.Query().Get("q"), id)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"words":  words,
		"status": status,
	})
}

type batchRequest struct {
	Queries []string `json:"queries"`
	Joined  bool     `json:"joined"`
}

// Batch handles POST /api/v1/batch. Each query runs with the default
// filter; results are returned per query, or flattened when joined is set.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Queries) > maxBatchQueries {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d queries per batch", maxBatchQueries))
		return
	}
	if req.Joined {
		docs, err := h.server.ProcessQueriesJoined(r.Context(), req.Queries)
		if err != nil {
			h.writeAppError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"results": nonNil(docs)})
		return
	}
	perQuery, err := h.server.ProcessQueries(r.Context(), req.Queries)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	for i := range perQuery {
		perQuery[i] = nonNil(perQuery[i])
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"results": perQuery})
}

type addDocumentRequest struct {
	ID      *int         `json:"id"`
	Text    string       `json:"text"`
	Status  index.Status `json:"status"`
	Ratings []int        `json:"ratings"`
}

// AddDocument handles POST /api/v1/documents.
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if req.ID == nil {
		h.writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := h.server.AddDocument(r.Context(), *req.ID, req.Text, req.Status, req.Ratings); err != nil {
		h.writeAppError(w, err)
		return
	}
	doc, _ := h.server.Document(*req.ID)
	h.writeJSON(w, http.StatusCreated, doc)
}

// RemoveDocument handles DELETE /api/v1/documents/{id}. Removing an
// unknown id succeeds with removed=false.
func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	removed := h.server.RemoveDocument(r.Context(), id)
	h.writeJSON(w, http.StatusOK, map[string]any{"id": id, "removed": removed})
}

// ListDocuments handles GET /api/v1/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ids": h.server.LiveIDs()})
}

// WordFrequencies handles GET /api/v1/documents/{id}/words. Unknown ids
// yield an empty object.
func (h *Handler) WordFrequencies(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.server.WordFrequencies(id))
}

// RemoveDuplicates handles POST /api/v1/dedup.
func (h *Handler) RemoveDuplicates(w http.ResponseWriter, r *http.Request) {
	removed := h.server.RemoveDuplicates(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.server.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":          hits,
		"misses":        misses,
		"total":         total,
		"hit_rate":      fmt.Sprintf("%.1f%%", hitRate),
		"circuit_state": h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}

func nonNil(docs []ranker.ScoredDocument) []ranker.ScoredDocument {
	if docs == nil {
		return []ranker.ScoredDocument{}
	}
	return docs
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps domain errors to their HTTP status. Internal errors
// are logged and not echoed.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		h.writeError(w, status, "internal error")
		return
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.writeError(w, status, appErr.Message)
		return
	}
	h.writeError(w, status, err.Error())
}
