// Package tokenizer splits raw text into validated word tokens. Words are
// separated by ASCII spaces only; a word containing any control character
// (bytes 0-31) is rejected. No case folding or stemming is applied.
package tokenizer

import (
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
)

// Split breaks text into space-separated tokens. Runs of spaces never
// produce empty tokens.
func Split(text string) ([]string, error) {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' '
	})
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if !IsValidWord(word) {
			return nil, apperrors.Newf(apperrors.ErrInvalidToken, http.StatusBadRequest,
				"word %q contains control characters", word)
		}
		tokens = append(tokens, word)
	}
	return tokens, nil
}

// IsValidWord reports whether word is free of control characters.
func IsValidWord(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] < ' ' {
			return false
		}
	}
	return true
}

// StopWords is an immutable set of words dropped from documents and
// queries.
type StopWords struct {
	words map[string]struct{}
}

// NewStopWords validates every word and builds the set. Empty strings are
// ignored.
func NewStopWords(words []string) (StopWords, error) {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if !IsValidWord(w) {
			return StopWords{}, apperrors.Newf(apperrors.ErrInvalidToken, http.StatusBadRequest,
				"stop word %q contains control characters", w)
		}
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return StopWords{words: set}, nil
}

// ParseStopWords builds a StopWords set from a space-separated list.
func ParseStopWords(text string) (StopWords, error) {
	words, err := Split(text)
	if err != nil {
		return StopWords{}, err
	}
	return NewStopWords(words)
}

// Contains reports whether word is a stop word.
func (s StopWords) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

// Len returns the number of stop words.
func (s StopWords) Len() int {
	return len(s.words)
}

// Words returns the stop words in lexicographic order.
func (s StopWords) Words() []string {
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// SplitNoStop tokenizes text and drops stop words.
func (s StopWords) SplitNoStop(text string) ([]string, error) {
	tokens, err := Split(text)
	if err != nil {
		return nil, err
	}
	kept := tokens[:0]
	for _, t := range tokens {
		if !s.Contains(t) {
			kept = append(kept, t)
		}
	}
	return kept, nil
}
