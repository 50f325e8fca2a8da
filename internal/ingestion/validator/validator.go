// Package validator checks ingestion requests before they are published.
// Token validity is left to the index, which rejects the event when it is
// applied.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion"
)

const (
	maxTextLength = 1048576
	maxRatings    = 1024
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = fmt.Sprintf("%s:%s", field, e.Fields[field])
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks the id, text size, status and ratings of an
// add request.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	if req.ID == nil {
		errs["id"] = "id is required"
	} else if *req.ID < 0 {
		errs["id"] = "id must not be negative"
	}
	if len(req.Text) > maxTextLength {
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
	}
	if req.Status < index.StatusActual || req.Status > index.StatusRemoved {
		errs["status"] = fmt.Sprintf("unknown status %d", int(req.Status))
	}
	if len(req.Ratings) > maxRatings {
		errs["ratings"] = fmt.Sprintf("at most %d ratings are allowed", maxRatings)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateID checks the id of a remove request.
func ValidateID(id int) error {
	if id < 0 {
		return &ValidationError{Fields: map[string]string{"id": "id must not be negative"}}
	}
	return nil
}
