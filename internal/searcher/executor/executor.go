// Package executor evaluates parsed queries against the inverted index and
// ranks the matching documents. Queries can run sequentially or fan out
// over their plus words on a bounded worker pool; both modes share parsing,
// exclusion and ranking and return identical results.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/accumulator"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/tracing"
)

// Mode selects the execution strategy of a query.
type Mode int

const (
	Sequential Mode = iota
	Parallel
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "sequential"/"seq" and "parallel"/"par".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "seq", "sequential":
		return Sequential, nil
	case "par", "parallel":
		return Parallel, nil
	}
	return 0, fmt.Errorf("unknown execution mode %q", s)
}

// Predicate decides whether a document may appear in the results. In
// Parallel mode it is called from several goroutines at once.
type Predicate func(id int, status index.Status, rating int) bool

// StatusPredicate keeps documents with the given status.
func StatusPredicate(status index.Status) Predicate {
	return func(_ int, s index.Status, _ int) bool {
		return s == status
	}
}

// DefaultPredicate keeps ACTUAL documents.
func DefaultPredicate() Predicate {
	return StatusPredicate(index.StatusActual)
}

type Executor struct {
	index   *index.InvertedIndex
	workers int
	logger  *slog.Logger
}

type Option func(*Executor)

// WithWorkers bounds the number of goroutines used by Parallel mode.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New creates an Executor reading ix. The executor never mutates ix and
// takes no lock on it.
func New(ix *index.InvertedIndex, opts ...Option) *Executor {
	e := &Executor{
		index:   ix,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workers returns the Parallel mode pool size.
func (e *Executor) Workers() int {
	return e.workers
}

// FindTopDocuments returns at most ranker.MaxResults documents matching
// rawQuery and accepted by predicate, best first.
func (e *Executor) FindTopDocuments(ctx context.Context, rawQuery string, predicate Predicate, mode Mode) ([]ranker.ScoredDocument, error) {
	endParse := phase(ctx, "parse")
	query, err := parser.Parse(rawQuery, e.index.StopWords())
	endParse()
	if err != nil {
		return nil, fmt.Errorf("parsing query: %w", err)
	}
	if predicate == nil {
		predicate = DefaultPredicate()
	}
	return e.Evaluate(ctx, query, predicate, mode)
}

// FindTopDocumentsByStatus keeps only documents with the given status.
func (e *Executor) FindTopDocumentsByStatus(ctx context.Context, rawQuery string, status index.Status, mode Mode) ([]ranker.ScoredDocument, error) {
	return e.FindTopDocuments(ctx, rawQuery, StatusPredicate(status), mode)
}

// FindTopDocumentsDefault keeps only ACTUAL documents.
func (e *Executor) FindTopDocumentsDefault(ctx context.Context, rawQuery string, mode Mode) ([]ranker.ScoredDocument, error) {
	return e.FindTopDocuments(ctx, rawQuery, DefaultPredicate(), mode)
}

// Evaluate scores an already parsed query.
func (e *Executor) Evaluate(ctx context.Context, query *parser.Query, predicate Predicate, mode Mode) ([]ranker.ScoredDocument, error) {
	endAccumulate := phase(ctx, "accumulate")
	var (
		scores []accumulator.Entry
		err    error
	)
	switch mode {
	case Parallel:
		scores, err = e.accumulateParallel(query, predicate)
	default:
		scores, err = e.accumulateSequential(query, predicate)
	}
	endAccumulate()
	if err != nil {
		return nil, err
	}

	endExclude := phase(ctx, "exclude")
	candidates := e.excludeMinusWords(scores, query.Minus)
	endExclude()

	endRank := phase(ctx, "rank")
	results := ranker.Rank(candidates, ranker.MaxResults)
	endRank()

	e.logger.Debug("query evaluated",
		"query", query.Raw,
		"mode", mode.String(),
		"plus_terms", len(query.Plus),
		"minus_terms", len(query.Minus),
		"candidates", len(candidates),
		"results", len(results),
	)
	return results, nil
}

func (e *Executor) accumulateSequential(query *parser.Query, predicate Predicate) ([]accumulator.Entry, error) {
	relevance := make(map[int]float64)
	for _, term := range query.Plus {
		if !e.index.HasTerm(term) {
			continue
		}
		idf, err := e.index.InverseDocumentFrequency(term)
		if err != nil {
			return nil, err
		}
		for id, tf := range e.index.Postings(term) {
			if e.accepts(id, predicate) {
				relevance[id] += tf * idf
			}
		}
	}
	out := make([]accumulator.Entry, 0, len(relevance))
	for id, score := range relevance {
		out = append(out, accumulator.Entry{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (e *Executor) accumulateParallel(query *parser.Query, predicate Predicate) ([]accumulator.Entry, error) {
	acc := accumulator.New(e.index.TermCount())
	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, term := range query.Plus {
		if !e.index.HasTerm(term) {
			continue
		}
		g.Go(func() error {
			idf, err := e.index.InverseDocumentFrequency(term)
			if err != nil {
				return err
			}
			for id, tf := range e.index.Postings(term) {
				if e.accepts(id, predicate) {
					acc.Accumulate(id, tf*idf)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return acc.Snapshot(), nil
}

func (e *Executor) accepts(id int, predicate Predicate) bool {
	doc, ok := e.index.Document(id)
	return ok && predicate(id, doc.Status, doc.Rating)
}

// excludeMinusWords drops every document containing a minus word,
// regardless of the predicate, and attaches ratings. scores is in
// ascending id order and so is the result.
func (e *Executor) excludeMinusWords(scores []accumulator.Entry, minus []string) []ranker.ScoredDocument {
	out := make([]ranker.ScoredDocument, 0, len(scores))
	for _, s := range scores {
		if e.containsAny(s.ID, minus) {
			continue
		}
		doc, _ := e.index.Document(s.ID)
		out = append(out, ranker.ScoredDocument{
			ID:        s.ID,
			Relevance: s.Score,
			Rating:    doc.Rating,
		})
	}
	return out
}

func (e *Executor) containsAny(id int, terms []string) bool {
	for _, term := range terms {
		if e.index.Contains(term, id) {
			return true
		}
	}
	return false
}

// MatchDocument returns the plus words of rawQuery present in document id
// and the document status. If any minus word is present the word list is
// empty.
func (e *Executor) MatchDocument(ctx context.Context, rawQuery string, id int) ([]string, index.Status, error) {
	doc, ok := e.index.Document(id)
	if !ok {
		return nil, 0, apperrors.Newf(apperrors.ErrUnknownID, http.StatusNotFound, "document %d is not indexed", id)
	}
	query, err := parser.Parse(rawQuery, e.index.StopWords())
	if err != nil {
		return nil, 0, fmt.Errorf("parsing query: %w", err)
	}
	if e.containsAny(id, query.Minus) {
		return []string{}, doc.Status, nil
	}
	matched := make([]string, 0, len(query.Plus))
	for _, term := range query.Plus {
		if e.index.Contains(term, id) {
			matched = append(matched, term)
		}
	}
	return matched, doc.Status, nil
}

// phase opens a child span when the context carries a trace.
func phase(ctx context.Context, name string) func() {
	if tracing.SpanFromContext(ctx) == nil {
		return func() {}
	}
	_, span := tracing.StartChildSpan(ctx, name)
	return span.End
}
