package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/kafka"
)

const ingestBatchSize = 500

func newIngestCmd(root *rootOptions) *cobra.Command {
	var (
		docsPath  string
		removeIDs []int
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Publish documents to the ingest topic for a running service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if docsPath == "" && len(removeIDs) == 0 {
				return errors.New("nothing to ingest: pass --docs or --remove")
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
			defer producer.Close()
			pub := publisher.New(producer)

			added := 0
			if docsPath != "" {
				f, err := os.Open(docsPath)
				if err != nil {
					return fmt.Errorf("opening documents: %w", err)
				}
				defer f.Close()
				if added, err = publishDocuments(cmd.Context(), pub, f); err != nil {
					return err
				}
			}
			for _, id := range removeIDs {
				if err := validator.ValidateID(id); err != nil {
					return err
				}
			}
			removals := make([]ingestion.IngestEvent, len(removeIDs))
			for i, id := range removeIDs {
				removals[i] = ingestion.IngestEvent{Op: ingestion.OpRemove, ID: id}
			}
			if err := pub.Publish(cmd.Context(), removals...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d additions and %d removals to %s\n",
				added, len(removals), cfg.Kafka.Topics.DocumentIngest)
			return nil
		},
	}
	cmd.Flags().StringVar(&docsPath, "docs", "", "JSON document records to publish")
	cmd.Flags().IntSliceVar(&removeIDs, "remove", nil, "document ids to remove")
	return cmd
}

// publishDocuments validates every record of r and publishes them as add
// events in batches. It returns the number published.
func publishDocuments(ctx context.Context, pub *publisher.Publisher, r io.Reader) (int, error) {
	dec := json.NewDecoder(r)
	batch := make([]ingestion.IngestEvent, 0, ingestBatchSize)
	published := 0
	flush := func() error {
		if err := pub.Publish(ctx, batch...); err != nil {
			return err
		}
		published += len(batch)
		batch = batch[:0]
		return nil
	}
	for n := 1; ; n++ {
		var req ingestion.IngestRequest
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return published, fmt.Errorf("decoding record %d: %w", n, err)
		}
		if err := validator.ValidateIngestRequest(&req); err != nil {
			return published, fmt.Errorf("record %d: %w", n, err)
		}
		batch = append(batch, ingestion.IngestEvent{
			Op:      ingestion.OpAdd,
			ID:      *req.ID,
			Text:    req.Text,
			Status:  req.Status,
			Ratings: req.Ratings,
		})
		if len(batch) == ingestBatchSize {
			if err := flush(); err != nil {
				return published, err
			}
		}
	}
	if err := flush(); err != nil {
		return published, err
	}
	return published, nil
}
