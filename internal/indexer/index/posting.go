package index

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an indexed document.
type Status int

const (
	StatusActual Status = iota
	StatusIrrelevant
	StatusBanned
	StatusRemoved
)

func (s Status) String() string {
	switch s {
	case StatusActual:
		return "ACTUAL"
	case StatusIrrelevant:
		return "IRRELEVANT"
	case StatusBanned:
		return "BANNED"
	case StatusRemoved:
		return "REMOVED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus converts the upper- or lower-case name of a status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACTUAL":
		return StatusActual, nil
	case "IRRELEVANT":
		return StatusIrrelevant, nil
	case "BANNED":
		return StatusBanned, nil
	case "REMOVED":
		return StatusRemoved, nil
	}
	return 0, fmt.Errorf("unknown document status %q", s)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Document is the stored metadata of a live document.
type Document struct {
	ID     int    `json:"id"`
	Rating int    `json:"rating"`
	Status Status `json:"status"`
}

// TermFrequencies maps a term to its frequency within one document.
type TermFrequencies map[string]float64

// Postings maps a document id to the term frequency of one term.
type Postings map[int]float64
