// Package batch runs many queries against one searcher concurrently.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/ranker"
)

// Searcher is the part of the search server used by batch processing. It
// must be safe for concurrent use.
type Searcher interface {
	FindTopDocumentsDefault(ctx context.Context, rawQuery string) ([]ranker.ScoredDocument, error)
}

// ProcessQueries evaluates every query with at most workers goroutines.
// Result i belongs to queries[i]. The first failing query aborts the batch.
func ProcessQueries(ctx context.Context, s Searcher, queries []string, workers int) ([][]ranker.ScoredDocument, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([][]ranker.ScoredDocument, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, query := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs, err := s.FindTopDocumentsDefault(gctx, query)
			if err != nil {
				return fmt.Errorf("query %d %q: %w", i, query, err)
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Default().With("component", "batch").Debug("batch processed",
		"queries", len(queries),
		"workers", workers,
	)
	return results, nil
}

// ProcessQueriesJoined is ProcessQueries with the per-query results
// concatenated in query order.
func ProcessQueriesJoined(ctx context.Context, s Searcher, queries []string, workers int) ([]ranker.ScoredDocument, error) {
	perQuery, err := ProcessQueries(ctx, s, queries, workers)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, docs := range perQuery {
		total += len(docs)
	}
	joined := make([]ranker.ScoredDocument, 0, total)
	for _, docs := range perQuery {
		joined = append(joined, docs...)
	}
	return joined, nil
}
