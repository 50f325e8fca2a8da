package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searchserver"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/middleware"
)

// DefaultWindow is the number of tracked requests: one per minute of a day.
const DefaultWindow = 1440

// Searcher runs the queries recorded by a Tracker.
type Searcher interface {
	FindTopDocuments(ctx context.Context, rawQuery string, filter searchserver.Filter) ([]ranker.ScoredDocument, error)
}

// Tracker runs searches and remembers, for the most recent window
// requests, which of them returned nothing. It is safe for concurrent use.
type Tracker struct {
	searcher Searcher

	mu       sync.Mutex
	empty    []bool
	head     int
	size     int
	noResult int

	aggregator *Aggregator
	collector  *Collector
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type TrackerOption func(*Tracker)

// WithAggregator feeds every request into agg.
func WithAggregator(agg *Aggregator) TrackerOption {
	return func(t *Tracker) {
		t.aggregator = agg
	}
}

// WithCollector publishes every request as a SearchEvent.
func WithCollector(c *Collector) TrackerOption {
	return func(t *Tracker) {
		t.collector = c
	}
}

func WithMetrics(m *metrics.Metrics) TrackerOption {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// NewTracker tracks the last window requests; window <= 0 means
// DefaultWindow.
func NewTracker(s Searcher, window int, opts ...TrackerOption) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	t := &Tracker{
		searcher: s,
		empty:    make([]bool, window),
		logger:   slog.Default().With("component", "request-tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddFindRequest runs the query, records whether it returned anything and
// returns its results. Failed queries are not part of the window.
func (t *Tracker) AddFindRequest(ctx context.Context, rawQuery string, filter searchserver.Filter) ([]ranker.ScoredDocument, error) {
	start := time.Now()
	docs, err := t.searcher.FindTopDocuments(ctx, rawQuery, filter)
	latency := time.Since(start)

	event := SearchEvent{
		Type:      EventSearch,
		Query:     rawQuery,
		Filter:    filter.Describe(),
		Mode:      filter.Mode.String(),
		Returned:  len(docs),
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	}
	switch {
	case err != nil:
		event.Type = EventSearchError
		event.Error = err.Error()
	case len(docs) == 0:
		event.Type = EventZeroResult
	}
	if err == nil {
		t.record(len(docs) == 0)
	}
	if t.aggregator != nil {
		t.aggregator.RecordSearch(event)
	}
	if t.collector != nil {
		t.collector.Track(event.RequestID, event)
	}
	return docs, err
}

// AddFindRequestByStatus tracks a search restricted to status.
func (t *Tracker) AddFindRequestByStatus(ctx context.Context, rawQuery string, status index.Status, mode executor.Mode) ([]ranker.ScoredDocument, error) {
	return t.AddFindRequest(ctx, rawQuery, searchserver.Filter{Status: &status, Mode: mode})
}

// AddFindRequestDefault tracks a search over ACTUAL documents.
func (t *Tracker) AddFindRequestDefault(ctx context.Context, rawQuery string) ([]ranker.ScoredDocument, error) {
	return t.AddFindRequest(ctx, rawQuery, searchserver.Filter{})
}

func (t *Tracker) record(empty bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.size == len(t.empty) {
		if t.empty[t.head] {
			t.noResult--
		}
	} else {
		t.size++
	}
	t.empty[t.head] = empty
	if empty {
		t.noResult++
	}
	t.head = (t.head + 1) % len(t.empty)
	if t.metrics != nil {
		t.metrics.NoResultRequests.Set(float64(t.noResult))
	}
}

// NoResultRequests returns how many of the tracked requests returned no
// documents.
func (t *Tracker) NoResultRequests() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.noResult
}

// Len returns the number of tracked requests, at most Window.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

func (t *Tracker) Window() int {
	return len(t.empty)
}
