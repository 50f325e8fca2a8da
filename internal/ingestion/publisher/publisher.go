// Package publisher turns ingestion requests into ingest events on the
// document ingest topic. Events are keyed by document id so that every
// event of one document lands on the same partition, in order.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/kafka"
)

// EventPublisher is the subset of *kafka.Producer used by Publisher.
type EventPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Publisher struct {
	producer EventPublisher
	logger   *slog.Logger
}

func New(producer EventPublisher) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Add publishes an add event. req must already be validated.
func (p *Publisher) Add(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	event := ingestion.IngestEvent{
		Op:      ingestion.OpAdd,
		ID:      *req.ID,
		Text:    req.Text,
		Status:  req.Status,
		Ratings: req.Ratings,
	}
	if err := p.Publish(ctx, event); err != nil {
		return nil, err
	}
	return &ingestion.IngestResponse{ID: event.ID, Op: event.Op, Status: "ACCEPTED"}, nil
}

// Remove publishes a remove event.
func (p *Publisher) Remove(ctx context.Context, id int) (*ingestion.IngestResponse, error) {
	if err := p.Publish(ctx, ingestion.IngestEvent{Op: ingestion.OpRemove, ID: id}); err != nil {
		return nil, err
	}
	return &ingestion.IngestResponse{ID: id, Op: ingestion.OpRemove, Status: "ACCEPTED"}, nil
}

// Publish sends events as one batch, preserving their order.
func (p *Publisher) Publish(ctx context.Context, events ...ingestion.IngestEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := make([]kafka.Event, len(events))
	for i, e := range events {
		batch[i] = kafka.Event{Key: strconv.Itoa(e.ID), Value: e}
	}
	if err := p.producer.PublishBatch(ctx, batch); err != nil {
		p.logger.Error("failed to publish ingest events", "count", len(events), "error", err)
		return fmt.Errorf("publishing %d ingest events: %w", len(events), err)
	}
	p.logger.Debug("ingest events published", "count", len(events))
	return nil
}
