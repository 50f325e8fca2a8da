// Package consumer reads document ingest events from Kafka and applies them
// to the search server. Events are applied one at a time in partition
// order; the server's write lock serializes them with HTTP mutations.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
)

// Indexer is the mutating side of the search server.
type Indexer interface {
	AddDocument(ctx context.Context, id int, text string, status index.Status, ratings []int) error
	RemoveDocument(ctx context.Context, id int) bool
}

// IndexConsumer wraps a Kafka consumer to drive index mutations.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler applying ingest events to
// ix. m may be nil.
func HandleMessage(ix Indexer, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	count := func(op ingestion.Op, status string) {
		if m != nil {
			m.IngestEventsTotal.WithLabelValues(string(op), status).Inc()
		}
	}
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			count("unknown", "invalid")
			return fmt.Errorf("ingest event %q: %w", key, err)
		}

		switch event.Op {
		case ingestion.OpAdd:
			if err := ix.AddDocument(ctx, event.ID, event.Text, event.Status, event.Ratings); err != nil {
				count(event.Op, "rejected")
				return fmt.Errorf("adding document %d: %w", event.ID, err)
			}
			count(event.Op, "applied")
			logger.Info("document indexed", "doc_id", event.ID, "status", event.Status.String())
		case ingestion.OpRemove:
			if !ix.RemoveDocument(ctx, event.ID) {
				count(event.Op, "ignored")
				logger.Debug("remove of unknown document ignored", "doc_id", event.ID)
				return nil
			}
			count(event.Op, "applied")
			logger.Info("document removed", "doc_id", event.ID)
		default:
			count("unknown", "invalid")
			return fmt.Errorf("ingest event %q: unknown op %q", key, event.Op)
		}
		return nil
	}
}
