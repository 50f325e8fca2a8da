package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(docs []ScoredDocument) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestRankOrdersByRelevance(t *testing.T) {
	docs := []ScoredDocument{
		{ID: 1, Relevance: 0.1, Rating: 9},
		{ID: 2, Relevance: 0.9, Rating: 1},
		{ID: 3, Relevance: 0.5, Rating: 5},
	}
	assert.Equal(t, []int{2, 3, 1}, ids(Rank(docs, 0)))
}

func TestRankBreaksNearTiesByRating(t *testing.T) {
	docs := []ScoredDocument{
		{ID: 1, Relevance: 0.5, Rating: 1},
		{ID: 2, Relevance: 0.5 + 1e-7, Rating: 3},
		{ID: 3, Relevance: 0.5 - 1e-7, Rating: 2},
		{ID: 4, Relevance: 0.6, Rating: -5},
	}
	assert.Equal(t, []int{4, 2, 3, 1}, ids(Rank(docs, 0)))
}

func TestRankEqualTiesKeepIDOrder(t *testing.T) {
	docs := []ScoredDocument{
		{ID: 1, Relevance: 0.3, Rating: 2},
		{ID: 5, Relevance: 0.3, Rating: 2},
		{ID: 9, Relevance: 0.3, Rating: 2},
	}
	assert.Equal(t, []int{1, 5, 9}, ids(Rank(docs, 0)))
}

func TestRankTruncates(t *testing.T) {
	docs := make([]ScoredDocument, 0, 8)
	for i := 0; i < 8; i++ {
		docs = append(docs, ScoredDocument{ID: i, Relevance: float64(i)})
	}
	got := Rank(docs, 0)
	assert.Len(t, got, MaxResults)
	assert.Equal(t, []int{7, 6, 5, 4, 3}, ids(got))

	assert.Len(t, Rank([]ScoredDocument{{ID: 1}, {ID: 2}}, 1), 1)
	assert.Empty(t, Rank(nil, 0))
}
