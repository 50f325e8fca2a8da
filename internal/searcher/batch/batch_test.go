package batch

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/ranker"
)

// fakeSearcher returns one document per word of the query with the id
// equal to the word length.
type fakeSearcher struct {
	calls atomic.Int32
	fail  string
}

func (f *fakeSearcher) FindTopDocumentsDefault(_ context.Context, rawQuery string) ([]ranker.ScoredDocument, error) {
	f.calls.Add(1)
	if f.fail != "" && rawQuery == f.fail {
		return nil, errors.New("boom")
	}
	var out []ranker.ScoredDocument
	for _, w := range strings.Fields(rawQuery) {
		out = append(out, ranker.ScoredDocument{ID: len(w), Relevance: 1})
	}
	return out, nil
}

func TestProcessQueriesKeepsOrder(t *testing.T) {
	queries := []string{"a", "bb ccc", "", "dddd eeeee ffffff"}
	got, err := ProcessQueries(context.Background(), &fakeSearcher{}, queries, 3)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, []int{1}, idsOf(got[0]))
	assert.Equal(t, []int{2, 3}, idsOf(got[1]))
	assert.Empty(t, got[2])
	assert.Equal(t, []int{4, 5, 6}, idsOf(got[3]))
}

func TestProcessQueriesJoined(t *testing.T) {
	queries := []string{"dddd eeeee", "a", "bb"}
	got, err := ProcessQueriesJoined(context.Background(), &fakeSearcher{}, queries, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 1, 2}, idsOf(got))
}

func TestProcessQueriesEmpty(t *testing.T) {
	got, err := ProcessQueries(context.Background(), &fakeSearcher{}, nil, 4)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProcessQueriesFailure(t *testing.T) {
	s := &fakeSearcher{fail: "bad"}
	_, err := ProcessQueries(context.Background(), s, []string{"ok", "bad", "fine"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `query 1 "bad"`)
}

func TestProcessQueriesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &fakeSearcher{}
	_, err := ProcessQueries(ctx, s, []string{"a", "b"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.calls.Load())
}

func idsOf(docs []ranker.ScoredDocument) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
