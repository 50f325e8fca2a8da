package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searchserver"
)

type documentRecord struct {
	ID      int          `json:"id"`
	Text    string       `json:"text"`
	Status  index.Status `json:"status"`
	Ratings []int        `json:"ratings"`
}

// loadDocuments indexes a stream of JSON document records from path and
// returns how many were added. It stops at the first invalid record.
func loadDocuments(ctx context.Context, server *searchserver.Server, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening documents: %w", err)
	}
	defer f.Close()
	return readDocuments(ctx, server, f)
}

func readDocuments(ctx context.Context, server *searchserver.Server, r io.Reader) (int, error) {
	dec := json.NewDecoder(r)
	n := 0
	for {
		var rec documentRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, fmt.Errorf("decoding record %d: %w", n+1, err)
		}
		if err := server.AddDocument(ctx, rec.ID, rec.Text, rec.Status, rec.Ratings); err != nil {
			return n, fmt.Errorf("adding document %d: %w", rec.ID, err)
		}
		n++
	}
}
