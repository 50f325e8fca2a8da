// Package ranker orders scored documents and truncates them to the top
// results.
package ranker

import (
	"math"
	"sort"
)

const (
	// MaxResults is the number of documents returned by a query.
	MaxResults = 5
	// Epsilon is the relevance difference under which two documents are
	// ordered by rating instead.
	Epsilon = 1e-6
)

type ScoredDocument struct {
	ID        int     `json:"id"`
	Relevance float64 `json:"relevance"`
	Rating    int     `json:"rating"`
}

// Less reports whether a ranks before b.
func Less(a, b ScoredDocument) bool {
	if math.Abs(a.Relevance-b.Relevance) < Epsilon {
		return a.Rating > b.Rating
	}
	return a.Relevance > b.Relevance
}

// Rank sorts docs best-first and truncates the slice to limit entries
// (MaxResults when limit <= 0). docs must be in ascending id order so that
// ties resolve the same way on every call.
func Rank(docs []ScoredDocument, limit int) []ScoredDocument {
	if limit <= 0 {
		limit = MaxResults
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return Less(docs[i], docs[j])
	})
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}
