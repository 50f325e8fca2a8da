package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/kafka"
)

type fakeProducer struct {
	events []kafka.Event
	err    error
}

func (p *fakeProducer) PublishBatch(_ context.Context, events []kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func newMux(prod *fakeProducer) *http.ServeMux {
	mux := http.NewServeMux()
	New(publisher.New(prod)).Register(mux)
	return mux
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestIngestAccepted(t *testing.T) {
	prod := &fakeProducer{}
	mux := newMux(prod)

	rec := serve(mux, http.MethodPost, "/api/v1/ingest/documents", `{"id":4,"text":"fluffy cat","status":"ACTUAL","ratings":[2]}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":4,"op":"add","status":"ACCEPTED"}`, rec.Body.String())

	rec = serve(mux, http.MethodDelete, "/api/v1/ingest/documents/4", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"id":4,"op":"remove","status":"ACCEPTED"}`, rec.Body.String())

	require.Len(t, prod.events, 2)
	assert.Equal(t, ingestion.OpRemove, prod.events[1].Value.(ingestion.IngestEvent).Op)
}

func TestIngestValidation(t *testing.T) {
	prod := &fakeProducer{}
	mux := newMux(prod)

	rec := serve(mux, http.MethodPost, "/api/v1/ingest/documents", `{"text":"no id"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fields"`)

	rec = serve(mux, http.MethodPost, "/api/v1/ingest/documents", `{"id":1,"status":"ARCHIVED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(mux, http.MethodDelete, "/api/v1/ingest/documents/-3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(mux, http.MethodDelete, "/api/v1/ingest/documents/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, prod.events)
}

func TestIngestPublishFailure(t *testing.T) {
	mux := newMux(&fakeProducer{err: errors.New("broker down")})
	rec := serve(mux, http.MethodPost, "/api/v1/ingest/documents", `{"id":1,"text":"cat"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
