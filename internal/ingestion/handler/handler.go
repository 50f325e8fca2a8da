// Package handler accepts documents over HTTP and queues them for
// asynchronous indexing.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/logger"
)

type Handler struct {
	publisher *publisher.Publisher
	logger    *slog.Logger
}

func New(pub *publisher.Publisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/ingest/documents", h.Ingest)
	mux.HandleFunc("DELETE /api/v1/ingest/documents/{id}", h.Remove)
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req ingestion.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestRequest(&req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	resp, err := h.publisher.Add(ctx, &req)
	if err != nil {
		log.Error("ingestion failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "ingestion failed")
		return
	}
	log.Info("document queued", "doc_id", resp.ID)
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	if err := validator.ValidateID(id); err != nil {
		h.writeValidationError(w, err)
		return
	}

	resp, err := h.publisher.Remove(ctx, id)
	if err != nil {
		logger.FromContext(ctx).Error("removal failed", "doc_id", id, "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "ingestion failed")
		return
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
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
