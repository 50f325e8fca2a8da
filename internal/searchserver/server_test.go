package searchserver

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
)

func newTestServer(t testing.TB, stopWords string, opts ...Option) *Server {
	t.Helper()
	s, err := New(config.SearchConfig{StopWords: stopWords, Mode: "sequential", Workers: 4}, opts...)
	require.NoError(t, err)
	return s
}

func ids(docs []ranker.ScoredDocument) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(config.SearchConfig{StopWords: "and i\x01n"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = NewWithStopWords([]string{"ok", "b\x1fad"}, config.SearchConfig{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = New(config.SearchConfig{Mode: "turbo"})
	assert.Error(t, err)

	s, err := NewWithStopWords([]string{"and", "", "in"}, config.SearchConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"and", "in"}, s.Stats().StopWords)
}

func TestServerScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, "")
	require.NoError(t, s.AddDocument(ctx, 1, "white cat", index.StatusActual, []int{1}))
	require.NoError(t, s.AddDocument(ctx, 2, "black dog", index.StatusActual, []int{2}))

	for _, mode := range []executor.Mode{executor.Sequential, executor.Parallel} {
		docs, err := s.FindTopDocuments(ctx, "white -dog", Filter{Mode: mode})
		require.NoError(t, err)
		assert.Equal(t, []int{1}, ids(docs))
	}

	_, err := s.FindTopDocumentsDefault(ctx, "-")
	assert.ErrorIs(t, err, apperrors.ErrMalformedMinusWord)

	assert.ErrorIs(t, s.AddDocument(ctx, -1, "x", index.StatusActual, nil), apperrors.ErrInvalidID)
	assert.ErrorIs(t, s.AddDocument(ctx, 1, "y", index.StatusActual, nil), apperrors.ErrDuplicateID)
	assert.Equal(t, 2, s.DocumentCount())
}

func TestFilterSelection(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, "")
	require.NoError(t, s.AddDocument(ctx, 1, "cat", index.StatusActual, nil))
	require.NoError(t, s.AddDocument(ctx, 2, "cat dog", index.StatusBanned, nil))
	require.NoError(t, s.AddDocument(ctx, 3, "cat cat fish", index.StatusIrrelevant, nil))
	require.NoError(t, s.AddDocument(ctx, 4, "bird", index.StatusActual, nil))

	docs, err := s.FindTopDocumentsDefault(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids(docs))

	docs, err = s.FindTopDocumentsByStatus(ctx, "cat", index.StatusBanned, executor.Parallel)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids(docs))

	// predicate wins over status
	banned := index.StatusBanned
	odd := func(id int, _ index.Status, _ int) bool { return id%2 == 1 }
	docs, err = s.FindTopDocuments(ctx, "cat", Filter{Predicate: odd, Status: &banned})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, ids(docs))
}

func TestRemoveDocumentAndMatch(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, "the")
	require.NoError(t, s.AddDocument(ctx, 1, "the white cat", index.StatusActual, nil))
	require.NoError(t, s.AddDocument(ctx, 2, "the white dog", index.StatusBanned, nil))

	words, status, err := s.MatchDocument(ctx, "white dog the", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "white"}, words)
	assert.Equal(t, index.StatusBanned, status)

	assert.True(t, s.RemoveDocument(ctx, 2))
	assert.False(t, s.RemoveDocument(ctx, 2))
	assert.Equal(t, []int{1}, s.LiveIDs())
	assert.Empty(t, s.WordFrequencies(2))
	_, ok := s.Document(2)
	assert.False(t, ok)

	_, _, err = s.MatchDocument(ctx, "dog", 2)
	assert.ErrorIs(t, err, apperrors.ErrUnknownID)
}

func TestRemoveDuplicates(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	var changes []Change
	s := newTestServer(t, "", WithMetrics(m), WithChangeListener(func(_ context.Context, c Change) {
		changes = append(changes, c)
	}))
	require.NoError(t, s.AddDocument(ctx, 1, "a b c", index.StatusActual, nil))
	require.NoError(t, s.AddDocument(ctx, 2, "a b c", index.StatusActual, nil))
	require.NoError(t, s.AddDocument(ctx, 3, "a b d", index.StatusActual, nil))

	assert.Equal(t, []int{2}, s.RemoveDuplicates(ctx))
	assert.Equal(t, []int{1, 3}, s.LiveIDs())
	assert.Empty(t, s.RemoveDuplicates(ctx))

	require.Len(t, changes, 4)
	assert.Equal(t, Change{Op: ChangeRemove, IDs: []int{2}}, changes[3])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DuplicatesRemovedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LiveDocuments))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DocsIndexedTotal))
}

func TestListenersSkipFailedMutations(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, "")
	var got []Change
	s.OnChange(func(_ context.Context, c Change) { got = append(got, c) })

	require.NoError(t, s.AddDocument(ctx, 1, "x", index.StatusActual, nil))
	require.Error(t, s.AddDocument(ctx, 1, "x", index.StatusActual, nil))
	s.RemoveDocument(ctx, 99)
	s.RemoveDocument(ctx, 1)

	assert.Equal(t, []Change{{Op: ChangeAdd, IDs: []int{1}}, {Op: ChangeRemove, IDs: []int{1}}}, got)
}

func TestSearchMetrics(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	s := newTestServer(t, "", WithMetrics(m))
	require.NoError(t, s.AddDocument(ctx, 1, "cat", index.StatusActual, nil))
	require.NoError(t, s.AddDocument(ctx, 2, "dog", index.StatusActual, nil))

	_, err := s.FindTopDocuments(ctx, "cat", Filter{Mode: executor.Parallel})
	require.NoError(t, err)
	_, err = s.FindTopDocuments(ctx, "parrot", Filter{})
	require.NoError(t, err)
	_, err = s.FindTopDocuments(ctx, "--", Filter{})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("parallel", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("sequential", "zero_result")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("sequential", "error")))
}

func TestProcessQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, "and")
	require.NoError(t, s.AddDocument(ctx, 1, "funny pet and nasty rat", index.StatusActual, []int{7, 2, 7}))
	require.NoError(t, s.AddDocument(ctx, 2, "funny pet with curly hair", index.StatusActual, []int{1, 2}))
	require.NoError(t, s.AddDocument(ctx, 3, "big cat nasty hair", index.StatusActual, []int{1, 2, 8}))

	queries := []string{"nasty rat -not", "not very funny nasty pet", "curly hair"}
	perQuery, err := s.ProcessQueries(ctx, queries)
	require.NoError(t, err)
	require.Len(t, perQuery, 3)
	for i, q := range queries {
		want, err := s.FindTopDocumentsDefault(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, want, perQuery[i])
	}

	joined, err := s.ProcessQueriesJoined(ctx, queries)
	require.NoError(t, err)
	var flat []ranker.ScoredDocument
	for _, docs := range perQuery {
		flat = append(flat, docs...)
	}
	assert.Equal(t, flat, joined)

	_, err = s.ProcessQueries(ctx, []string{"fine", "bad --word"})
	assert.ErrorIs(t, err, apperrors.ErrMalformedMinusWord)
}

// Run with -race: searches in both modes interleave with writers.
func TestConcurrentReadersAndWriters(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, "")
	for id := 0; id < 50; id++ {
		require.NoError(t, s.AddDocument(ctx, id, fmt.Sprintf("common w%d w%d", id%7, id%11), index.StatusActual, []int{id}))
	}

	var wg sync.WaitGroup
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			mode := executor.Mode(r % 2)
			for i := 0; i < 50; i++ {
				docs, err := s.FindTopDocuments(ctx, fmt.Sprintf("common w%d -w%d", i%7, i%11), Filter{Mode: mode})
				assert.NoError(t, err)
				assert.LessOrEqual(t, len(docs), ranker.MaxResults)
			}
		}(r)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for id := 50; id < 100; id++ {
			assert.NoError(t, s.AddDocument(ctx, id, "common extra", index.StatusActual, nil))
			s.RemoveDocument(ctx, id-50)
		}
	}()
	wg.Wait()

	assert.Equal(t, 50, s.DocumentCount())
}
