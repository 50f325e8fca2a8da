// Package dedup removes documents whose set of distinct terms is identical
// to that of a document with a lower id.
package dedup

import (
	"context"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/logger"
)

// Index is the part of the inverted index the deduplicator needs.
type Index interface {
	LiveIDs() []int
	WordFrequencies(id int) index.TermFrequencies
	RemoveDocument(id int)
}

// FindDuplicates scans live ids in ascending order and returns the ids whose
// term set was already seen for a lower id. Frequencies are ignored.
func FindDuplicates(ix Index) []int {
	seen := make(map[string]struct{})
	var duplicates []int
	for _, id := range ix.LiveIDs() {
		key := termSetKey(ix.WordFrequencies(id))
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, id)
			continue
		}
		seen[key] = struct{}{}
	}
	return duplicates
}

// RemoveDuplicates removes every duplicate found by FindDuplicates and
// returns the removed ids in ascending order.
func RemoveDuplicates(ctx context.Context, ix Index) []int {
	log := logger.FromContext(ctx).With("component", "dedup")
	duplicates := FindDuplicates(ix)
	for _, id := range duplicates {
		log.Info("found duplicate document", "doc_id", id)
		ix.RemoveDocument(id)
	}
	return duplicates
}

// termSetKey joins the sorted terms with NUL, which never occurs inside a
// valid term.
func termSetKey(freqs index.TermFrequencies) string {
	terms := make([]string, 0, len(freqs))
	for term := range freqs {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return strings.Join(terms, "\x00")
}
