package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	aggregator *Aggregator
	tracker    *Tracker
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator, tracker *Tracker) *Handler {
	return &Handler{
		aggregator: aggregator,
		tracker:    tracker,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Snapshot combines the aggregated statistics with the no-result count of
// the tracked request window. tracker may be nil.
func Snapshot(agg *Aggregator, tracker *Tracker) AggregatedStats {
	stats := agg.Stats()
	if tracker != nil {
		stats.NoResultRequests = tracker.NoResultRequests()
		stats.TrackedRequests = tracker.Len()
	}
	return stats
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := Snapshot(h.aggregator, h.tracker)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
