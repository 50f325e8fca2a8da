// Package parser turns a raw query string into deduplicated plus and minus
// term sets.
package parser

import (
	"net/http"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
)

// Query is a parsed query. Plus and Minus are sorted and free of
// duplicates and stop words.
type Query struct {
	Raw   string
	Plus  []string
	Minus []string
}

// IsEmpty reports whether the query has no plus words.
func (q *Query) IsEmpty() bool {
	return len(q.Plus) == 0
}

// Normalized renders the query in a canonical form, suitable as a cache key.
func (q *Query) Normalized() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(q.Plus, " "))
	for _, m := range q.Minus {
		sb.WriteString(" -")
		sb.WriteString(m)
	}
	return sb.String()
}

func Parse(text string, stopWords tokenizer.StopWords) (*Query, error) {
	words, err := tokenizer.Split(text)
	if err != nil {
		return nil, err
	}
	plus := make(map[string]struct{})
	minus := make(map[string]struct{})
	for _, word := range words {
		term, isMinus, err := parseWord(word)
		if err != nil {
			return nil, err
		}
		if stopWords.Contains(term) {
			continue
		}
		if isMinus {
			minus[term] = struct{}{}
		} else {
			plus[term] = struct{}{}
		}
	}
	return &Query{
		Raw:   text,
		Plus:  sortedKeys(plus),
		Minus: sortedKeys(minus),
	}, nil
}

func parseWord(word string) (string, bool, error) {
	if !strings.HasPrefix(word, "-") {
		return word, false, nil
	}
	term := word[1:]
	if term == "" || term[0] == '-' {
		return "", false, apperrors.Newf(apperrors.ErrMalformedMinusWord, http.StatusBadRequest,
			"query word %q is not a valid minus word", word)
	}
	return term, true, nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
