// Package searchserver is the search engine facade. It owns the stop words,
// the inverted index and the query executor, and serializes mutations
// against reads with a readers-writer lock: any number of searches run
// concurrently, while adding or removing documents is exclusive.
package searchserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/dedup"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/batch"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
)

// ChangeOp names the kind of index mutation reported to listeners.
type ChangeOp string

const (
	ChangeAdd    ChangeOp = "add"
	ChangeRemove ChangeOp = "remove"
)

// Change describes a committed index mutation.
type Change struct {
	Op  ChangeOp
	IDs []int
}

// ChangeListener is called after every committed mutation, outside the
// index lock.
type ChangeListener func(ctx context.Context, change Change)

// Filter selects which documents a search may return. Predicate wins over
// Status; with neither set only ACTUAL documents are returned.
type Filter struct {
	Predicate executor.Predicate
	Status    *index.Status
	Mode      executor.Mode
}

func (f Filter) predicate() executor.Predicate {
	switch {
	case f.Predicate != nil:
		return f.Predicate
	case f.Status != nil:
		return executor.StatusPredicate(*f.Status)
	default:
		return executor.DefaultPredicate()
	}
}

// Describe names the document selection of f: a status name, or "custom"
// for a predicate.
func (f Filter) Describe() string {
	switch {
	case f.Predicate != nil:
		return "custom"
	case f.Status != nil:
		return f.Status.String()
	default:
		return index.StatusActual.String()
	}
}

// Stats summarizes the index contents.
type Stats struct {
	Documents int      `json:"documents"`
	Terms     int      `json:"terms"`
	StopWords []string `json:"stop_words"`
	Workers   int      `json:"workers"`
	Mode      string   `json:"default_mode"`
}

type Server struct {
	mu           sync.RWMutex
	index        *index.InvertedIndex
	exec         *executor.Executor
	mode         executor.Mode
	batchWorkers int

	listenersMu sync.RWMutex
	listeners   []ChangeListener

	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Server)

// WithMetrics records operations on m. Without it the server registers its
// collectors on a private registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithChangeListener registers l at construction time.
func WithChangeListener(l ChangeListener) Option {
	return func(s *Server) {
		s.listeners = append(s.listeners, l)
	}
}

// New builds an empty server. Stop words are parsed from cfg.StopWords; an
// invalid stop word fails with ErrInvalidToken.
func New(cfg config.SearchConfig, opts ...Option) (*Server, error) {
	stopWords, err := tokenizer.ParseStopWords(cfg.StopWords)
	if err != nil {
		return nil, fmt.Errorf("parsing stop words: %w", err)
	}
	return newServer(stopWords, cfg, opts...)
}

// NewWithStopWords is New with the stop words given as a list.
func NewWithStopWords(words []string, cfg config.SearchConfig, opts ...Option) (*Server, error) {
	stopWords, err := tokenizer.NewStopWords(words)
	if err != nil {
		return nil, fmt.Errorf("building stop words: %w", err)
	}
	return newServer(stopWords, cfg, opts...)
}

func newServer(stopWords tokenizer.StopWords, cfg config.SearchConfig, opts ...Option) (*Server, error) {
	mode, err := executor.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	ix := index.New(stopWords)
	s := &Server{
		index:        ix,
		exec:         executor.New(ix, executor.WithWorkers(cfg.Workers)),
		mode:         mode,
		batchWorkers: cfg.BatchWorkers,
		logger:       slog.Default().With("component", "search-server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	s.logger.Info("search server created",
		"stop_words", stopWords.Len(),
		"mode", mode.String(),
		"workers", s.exec.Workers(),
	)
	return s, nil
}

// OnChange registers a listener for committed mutations.
func (s *Server) OnChange(l ChangeListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Server) notify(ctx context.Context, change Change) {
	s.listenersMu.RLock()
	listeners := make([]ChangeListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()
	for _, l := range listeners {
		l(ctx, change)
	}
}

// DefaultMode is the execution mode used by FindTopDocumentsDefault.
func (s *Server) DefaultMode() executor.Mode {
	return s.mode
}

func (s *Server) AddDocument(ctx context.Context, id int, text string, status index.Status, ratings []int) error {
	s.mu.Lock()
	err := s.index.AddDocument(id, text, status, ratings)
	s.updateIndexGauges()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.metrics.DocsIndexedTotal.Inc()
	logger.FromContext(ctx).Debug("document added", "component", "search-server", "id", id, "status", status.String())
	s.notify(ctx, Change{Op: ChangeAdd, IDs: []int{id}})
	return nil
}

// RemoveDocument purges id. It reports whether the document was live;
// removing an unknown id is not an error.
func (s *Server) RemoveDocument(ctx context.Context, id int) bool {
	s.mu.Lock()
	_, live := s.index.Document(id)
	s.index.RemoveDocument(id)
	s.updateIndexGauges()
	s.mu.Unlock()
	if !live {
		return false
	}

	s.metrics.DocsRemovedTotal.Inc()
	logger.FromContext(ctx).Debug("document removed", "component", "search-server", "id", id)
	s.notify(ctx, Change{Op: ChangeRemove, IDs: []int{id}})
	return true
}

// RemoveDuplicates removes every document whose term set equals that of a
// document with a smaller id and returns the removed ids in ascending order.
func (s *Server) RemoveDuplicates(ctx context.Context) []int {
	s.mu.Lock()
	removed := dedup.RemoveDuplicates(ctx, s.index)
	s.updateIndexGauges()
	s.mu.Unlock()
	if len(removed) == 0 {
		return removed
	}

	s.metrics.DocsRemovedTotal.Add(float64(len(removed)))
	s.metrics.DuplicatesRemovedTotal.Add(float64(len(removed)))
	s.notify(ctx, Change{Op: ChangeRemove, IDs: removed})
	return removed
}

// updateIndexGauges must be called with mu held.
func (s *Server) updateIndexGauges() {
	s.metrics.LiveDocuments.Set(float64(s.index.DocumentCount()))
	s.metrics.IndexTerms.Set(float64(s.index.TermCount()))
}

// FindTopDocuments returns at most five documents matching rawQuery and
// accepted by filter, ordered by relevance and then rating.
func (s *Server) FindTopDocuments(ctx context.Context, rawQuery string, filter Filter) ([]ranker.ScoredDocument, error) {
	start := time.Now()
	s.mu.RLock()
	docs, err := s.exec.FindTopDocuments(ctx, rawQuery, filter.predicate(), filter.Mode)
	s.mu.RUnlock()

	mode := filter.Mode.String()
	s.metrics.SearchLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		s.metrics.SearchQueriesTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	case len(docs) == 0:
		s.metrics.SearchQueriesTotal.WithLabelValues(mode, "zero_result").Inc()
	default:
		s.metrics.SearchQueriesTotal.WithLabelValues(mode, "hit").Inc()
	}
	s.metrics.SearchResultsCount.Observe(float64(len(docs)))
	return docs, nil
}

// FindTopDocumentsByStatus keeps only documents with the given status.
func (s *Server) FindTopDocumentsByStatus(ctx context.Context, rawQuery string, status index.Status, mode executor.Mode) ([]ranker.ScoredDocument, error) {
	return s.FindTopDocuments(ctx, rawQuery, Filter{Status: &status, Mode: mode})
}

// FindTopDocumentsDefault keeps ACTUAL documents and runs in the configured
// default mode.
func (s *Server) FindTopDocumentsDefault(ctx context.Context, rawQuery string) ([]ranker.ScoredDocument, error) {
	return s.FindTopDocuments(ctx, rawQuery, Filter{Mode: s.mode})
}

// MatchDocument returns the plus words of rawQuery contained in document id
// and its status.
func (s *Server) MatchDocument(ctx context.Context, rawQuery string, id int) ([]string, index.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exec.MatchDocument(ctx, rawQuery, id)
}

// ProcessQueries runs queries concurrently with the default filter.
// Result i belongs to queries[i].
func (s *Server) ProcessQueries(ctx context.Context, queries []string) ([][]ranker.ScoredDocument, error) {
	return batch.ProcessQueries(ctx, s, queries, s.batchWorkers)
}

// ProcessQueriesJoined is ProcessQueries flattened in query order.
func (s *Server) ProcessQueriesJoined(ctx context.Context, queries []string) ([]ranker.ScoredDocument, error) {
	return batch.ProcessQueriesJoined(ctx, s, queries, s.batchWorkers)
}

// WordFrequencies returns a copy of the term frequencies of id. Unknown ids
// yield an empty map.
func (s *Server) WordFrequencies(id int) index.TermFrequencies {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.WordFrequencies(id)
}

// Document returns the metadata of a live document.
func (s *Server) Document(id int) (index.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Document(id)
}

// LiveIDs returns a snapshot of the live ids in ascending order.
func (s *Server) LiveIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.LiveIDs()
}

func (s *Server) DocumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocumentCount()
}

func (s *Server) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Documents: s.index.DocumentCount(),
		Terms:     s.index.TermCount(),
		StopWords: s.index.StopWords().Words(),
		Workers:   s.exec.Workers(),
		Mode:      s.mode.String(),
	}
}
