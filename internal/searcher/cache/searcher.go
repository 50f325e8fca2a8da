package cache

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searchserver"
)

// Searcher serves status filtered searches through a QueryCache. Searches
// with a custom predicate bypass the cache. A nil cache passes every
// search through.
type Searcher struct {
	server *searchserver.Server
	cache  *QueryCache
}

// NewSearcher wires c to the mutations of server: every committed change
// advances the cache generation.
func NewSearcher(server *searchserver.Server, c *QueryCache) *Searcher {
	if c != nil {
		server.OnChange(func(context.Context, searchserver.Change) {
			c.Advance()
		})
	}
	return &Searcher{server: server, cache: c}
}

func (s *Searcher) FindTopDocuments(ctx context.Context, rawQuery string, filter searchserver.Filter) ([]ranker.ScoredDocument, error) {
	if s.cache == nil || filter.Predicate != nil {
		return s.server.FindTopDocuments(ctx, rawQuery, filter)
	}
	status := index.StatusActual
	if filter.Status != nil {
		status = *filter.Status
	}
	docs, _, err := s.cache.GetOrCompute(ctx, rawQuery, status, func() ([]ranker.ScoredDocument, error) {
		return s.server.FindTopDocuments(ctx, rawQuery, filter)
	})
	return docs, err
}
