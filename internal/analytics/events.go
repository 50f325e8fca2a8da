package analytics

import "time"

type EventType string

const (
	EventSearch         EventType = "search"
	EventZeroResult     EventType = "zero_result"
	EventSearchError    EventType = "search_error"
	EventIndexDocument  EventType = "index_document"
	EventRemoveDocument EventType = "remove_document"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Filter    string    `json:"filter"`
	Mode      string    `json:"mode"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type DocumentEvent struct {
	Type       EventType `json:"type"`
	DocumentID int       `json:"document_id"`
	Timestamp  time.Time `json:"timestamp"`
}
