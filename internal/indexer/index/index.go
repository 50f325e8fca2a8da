// Package index implements the in-memory inverted index: the document
// store, the term -> (document -> frequency) posting set and its
// per-document mirror.
//
// InvertedIndex has no internal lock. Concurrent reads are safe; mutations
// must be serialized by the caller and must not overlap any read.
package index

import (
	"math"
	"net/http"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
)

type InvertedIndex struct {
	stopWords tokenizer.StopWords
	postings  map[string]Postings
	docTerms  map[int]TermFrequencies
	documents map[int]Document
	ids       []int
}

func New(stopWords tokenizer.StopWords) *InvertedIndex {
	return &InvertedIndex{
		stopWords: stopWords,
		postings:  make(map[string]Postings),
		docTerms:  make(map[int]TermFrequencies),
		documents: make(map[int]Document),
	}
}

// AddDocument tokenizes text, drops stop words and indexes the remaining
// terms with frequency occurrences/tokenCount. Validation happens before
// any mutation, so a failed call leaves the index unchanged.
func (ix *InvertedIndex) AddDocument(id int, text string, status Status, ratings []int) error {
	if id < 0 {
		return apperrors.Newf(apperrors.ErrInvalidID, http.StatusBadRequest, "document id %d is negative", id)
	}
	if _, exists := ix.documents[id]; exists {
		return apperrors.Newf(apperrors.ErrDuplicateID, http.StatusConflict, "document %d is already indexed", id)
	}
	words, err := ix.stopWords.SplitNoStop(text)
	if err != nil {
		return err
	}

	freqs := make(TermFrequencies, len(words))
	if len(words) > 0 {
		inv := 1.0 / float64(len(words))
		for _, w := range words {
			freqs[w] += inv
		}
	}
	ix.applyAdd(Document{
		ID:     id,
		Rating: averageRating(ratings),
		Status: status,
	}, freqs)
	return nil
}

// RemoveDocument purges id from every structure. Unknown ids are ignored.
func (ix *InvertedIndex) RemoveDocument(id int) {
	if _, exists := ix.documents[id]; !exists {
		return
	}
	ix.applyRemove(id)
}

// applyAdd is the only writer that inserts into both posting structures.
func (ix *InvertedIndex) applyAdd(doc Document, freqs TermFrequencies) {
	for term, tf := range freqs {
		docs, ok := ix.postings[term]
		if !ok {
			docs = make(Postings)
			ix.postings[term] = docs
		}
		docs[doc.ID] = tf
	}
	ix.docTerms[doc.ID] = freqs
	ix.documents[doc.ID] = doc

	pos := sort.SearchInts(ix.ids, doc.ID)
	ix.ids = append(ix.ids, 0)
	copy(ix.ids[pos+1:], ix.ids[pos:])
	ix.ids[pos] = doc.ID
}

// applyRemove is the only writer that deletes from both posting
// structures. Terms left without documents are pruned.
func (ix *InvertedIndex) applyRemove(id int) {
	for term := range ix.docTerms[id] {
		docs := ix.postings[term]
		delete(docs, id)
		if len(docs) == 0 {
			delete(ix.postings, term)
		}
	}
	delete(ix.docTerms, id)
	delete(ix.documents, id)

	pos := sort.SearchInts(ix.ids, id)
	if pos < len(ix.ids) && ix.ids[pos] == id {
		ix.ids = append(ix.ids[:pos], ix.ids[pos+1:]...)
	}
}

// WordFrequencies returns a copy of the term frequencies of id, or an empty
// map when id is not live.
func (ix *InvertedIndex) WordFrequencies(id int) TermFrequencies {
	freqs := ix.docTerms[id]
	out := make(TermFrequencies, len(freqs))
	for term, tf := range freqs {
		out[term] = tf
	}
	return out
}

func (ix *InvertedIndex) DocumentCount() int {
	return len(ix.documents)
}

// LiveIDs returns the live document ids in ascending order. The slice is a
// snapshot owned by the caller.
func (ix *InvertedIndex) LiveIDs() []int {
	out := make([]int, len(ix.ids))
	copy(out, ix.ids)
	return out
}

// Document returns the stored metadata of a live document.
func (ix *InvertedIndex) Document(id int) (Document, bool) {
	doc, ok := ix.documents[id]
	return doc, ok
}

// HasTerm reports whether at least one live document contains term.
func (ix *InvertedIndex) HasTerm(term string) bool {
	return len(ix.postings[term]) > 0
}

// Contains reports whether document id contains term.
func (ix *InvertedIndex) Contains(term string, id int) bool {
	_, ok := ix.postings[term][id]
	return ok
}

// Postings returns the posting map of term. The map is owned by the index
// and must not be modified.
func (ix *InvertedIndex) Postings(term string) Postings {
	return ix.postings[term]
}

// TermCount returns the number of distinct terms with at least one posting.
func (ix *InvertedIndex) TermCount() int {
	return len(ix.postings)
}

// StopWords returns the stop-word set the index was built with.
func (ix *InvertedIndex) StopWords() tokenizer.StopWords {
	return ix.stopWords
}

// InverseDocumentFrequency returns ln(documents / documents containing
// term). Callers are expected to check HasTerm first.
func (ix *InvertedIndex) InverseDocumentFrequency(term string) (float64, error) {
	docs := ix.postings[term]
	if len(docs) == 0 {
		return 0, apperrors.Newf(apperrors.ErrUnknownTerm, http.StatusInternalServerError, "term %q has no postings", term)
	}
	return math.Log(float64(len(ix.documents)) / float64(len(docs))), nil
}

func averageRating(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return sum / len(ratings)
}
