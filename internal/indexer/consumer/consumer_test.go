package consumer

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searchserver"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
)

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()
	s, err := searchserver.New(config.SearchConfig{})
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry())
	handle := HandleMessage(s, m)

	require.NoError(t, handle(ctx, []byte("1"), []byte(`{"op":"add","id":1,"text":"white cat","ratings":[4,6]}`)))
	require.NoError(t, handle(ctx, []byte("2"), []byte(`{"op":"add","id":2,"text":"black dog","status":"BANNED"}`)))

	doc, ok := s.Document(1)
	require.True(t, ok)
	assert.Equal(t, index.Document{ID: 1, Rating: 5, Status: index.StatusActual}, doc)
	doc, ok = s.Document(2)
	require.True(t, ok)
	assert.Equal(t, index.StatusBanned, doc.Status)

	err = handle(ctx, []byte("1"), []byte(`{"op":"add","id":1,"text":"again"}`))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateID)

	require.NoError(t, handle(ctx, []byte("2"), []byte(`{"op":"remove","id":2}`)))
	require.NoError(t, handle(ctx, []byte("2"), []byte(`{"op":"remove","id":2}`)))
	assert.Equal(t, []int{1}, s.LiveIDs())

	assert.Error(t, handle(ctx, nil, []byte(`{"op":"upsert","id":3}`)))
	assert.Error(t, handle(ctx, nil, []byte(`not json`)))
	assert.Error(t, handle(ctx, nil, []byte(`{"op":"add","id":3,"status":"ARCHIVED"}`)))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("add", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("add", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("remove", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("remove", "ignored")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("unknown", "invalid")))
}
