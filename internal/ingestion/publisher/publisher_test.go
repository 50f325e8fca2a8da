package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searchserver"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/kafka"
)

type recordingProducer struct {
	events []kafka.Event
	err    error
}

func (p *recordingProducer) PublishBatch(_ context.Context, events []kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func TestAddAndRemove(t *testing.T) {
	prod := &recordingProducer{}
	p := New(prod)
	id := 7

	resp, err := p.Add(context.Background(), &ingestion.IngestRequest{ID: &id, Text: "grey cat", Status: index.StatusBanned, Ratings: []int{1}})
	require.NoError(t, err)
	assert.Equal(t, &ingestion.IngestResponse{ID: 7, Op: ingestion.OpAdd, Status: "ACCEPTED"}, resp)

	resp, err = p.Remove(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, ingestion.OpRemove, resp.Op)

	require.Len(t, prod.events, 2)
	assert.Equal(t, "7", prod.events[0].Key)
	assert.Equal(t, ingestion.IngestEvent{Op: ingestion.OpAdd, ID: 7, Text: "grey cat", Status: index.StatusBanned, Ratings: []int{1}}, prod.events[0].Value)
	assert.Equal(t, ingestion.IngestEvent{Op: ingestion.OpRemove, ID: 7}, prod.events[1].Value)
}

func TestPublishFailure(t *testing.T) {
	p := New(&recordingProducer{err: errors.New("broker down")})
	_, err := p.Remove(context.Background(), 1)
	assert.ErrorContains(t, err, "broker down")

	assert.NoError(t, p.Publish(context.Background()))
}

func TestPublishedEventsApplyToIndex(t *testing.T) {
	ctx := context.Background()
	prod := &recordingProducer{}
	p := New(prod)
	require.NoError(t, p.Publish(ctx,
		ingestion.IngestEvent{Op: ingestion.OpAdd, ID: 1, Text: "white cat", Ratings: []int{4, 6}},
		ingestion.IngestEvent{Op: ingestion.OpAdd, ID: 2, Text: "black dog", Status: index.StatusIrrelevant},
		ingestion.IngestEvent{Op: ingestion.OpRemove, ID: 1},
	))

	server, err := searchserver.New(config.SearchConfig{})
	require.NoError(t, err)
	handle := consumer.HandleMessage(server, nil)
	for _, e := range prod.events {
		value, err := json.Marshal(e.Value)
		require.NoError(t, err)
		require.NoError(t, handle(ctx, []byte(e.Key), value))
	}

	assert.Equal(t, []int{2}, server.LiveIDs())
	doc, ok := server.Document(2)
	require.True(t, ok)
	assert.Equal(t, index.StatusIrrelevant, doc.Status)
}
