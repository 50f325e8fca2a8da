package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searchserver"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
)

func TestSearcherInvalidatesOnMutation(t *testing.T) {
	ctx := context.Background()
	server, err := searchserver.New(config.SearchConfig{})
	require.NoError(t, err)
	require.NoError(t, server.AddDocument(ctx, 1, "white cat", index.StatusActual, nil))
	require.NoError(t, server.AddDocument(ctx, 2, "black dog", index.StatusActual, nil))

	c, _ := newCache(newMemStore())
	s := NewSearcher(server, c)

	docs, err := s.FindTopDocuments(ctx, "cat", searchserver.Filter{})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	docs, err = s.FindTopDocuments(ctx, "cat", searchserver.Filter{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	hits, _ := c.Stats()
	assert.Equal(t, int64(1), hits)

	require.NoError(t, server.AddDocument(ctx, 3, "grey cat", index.StatusActual, nil))
	docs, err = s.FindTopDocuments(ctx, "cat", searchserver.Filter{})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	server.RemoveDocument(ctx, 1)
	docs, err = s.FindTopDocuments(ctx, "cat", searchserver.Filter{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 3, docs[0].ID)
}

func TestSearcherBypassesPredicates(t *testing.T) {
	ctx := context.Background()
	server, err := searchserver.New(config.SearchConfig{})
	require.NoError(t, err)
	require.NoError(t, server.AddDocument(ctx, 1, "cat", index.StatusActual, nil))
	require.NoError(t, server.AddDocument(ctx, 2, "cat dog", index.StatusActual, nil))

	c, _ := newCache(newMemStore())
	s := NewSearcher(server, c)
	even := func(id int, _ index.Status, _ int) bool { return id%2 == 0 }
	for i := 0; i < 2; i++ {
		docs, err := s.FindTopDocuments(ctx, "cat", searchserver.Filter{Predicate: even})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, 2, docs[0].ID)
	}
	hits, misses := c.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)

	plain := NewSearcher(server, nil)
	docs, err := plain.FindTopDocuments(ctx, "cat", searchserver.Filter{})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}
