// Package ingestion defines the request/response types and Kafka event schemas
// used by the asynchronous document ingestion pipeline.
package ingestion

import "github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"

type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// IngestRequest is the JSON body accepted by the ingestion HTTP endpoint.
type IngestRequest struct {
	ID      *int         `json:"id"`
	Text    string       `json:"text"`
	Status  index.Status `json:"status"`
	Ratings []int        `json:"ratings"`
}

// IngestResponse is returned once an event has been published. The index
// applies it asynchronously.
type IngestResponse struct {
	ID     int    `json:"id"`
	Op     Op     `json:"op"`
	Status string `json:"status"`
}

// IngestEvent is the JSON payload of the document ingest topic. Status
// defaults to ACTUAL; Text, Status and Ratings are ignored for removals.
type IngestEvent struct {
	Op      Op           `json:"op"`
	ID      int          `json:"id"`
	Text    string       `json:"text,omitempty"`
	Status  index.Status `json:"status,omitempty"`
	Ratings []int        `json:"ratings,omitempty"`
}
