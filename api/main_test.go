package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/trend-press/backend/internal/config"
	"github.com/DeafMist/trend-press/backend/internal/elasticsearch"
	"github.com/DeafMist/trend-press/backend/internal/logger"
	"github.com/DeafMist/trend-press/backend/internal/models"
)

type stubArchive struct {
	healthErr error
	searchErr error
	params    elasticsearch.SearchParams
	result    *elasticsearch.SearchResult
}

func (s *stubArchive) Health(context.Context) error { return s.healthErr }

func (s *stubArchive) SearchReports(_ context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error) {
	s.params = params
	return s.result, s.searchErr
}

func newTestServer(es *stubArchive) http.Handler {
	srv := &server{
		log: logger.Discard(),
		cfg: &config.API{DefaultPage: 20, MaxPage: 50},
		es:  es,
	}
	return srv.routes()
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(&stubArchive{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	h = newTestServer(&stubArchive{healthErr: errors.New("red")})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "red")
}

func TestHandleSearchParsesParams(t *testing.T) {
	es := &stubArchive{result: &elasticsearch.SearchResult{
		Total: 1,
		Items: []models.ReportDocument{{ID: "a", Topic: "Eclipse"}},
	}}
	h := newTestServer(es)

	req := httptest.NewRequest(http.MethodGet,
		"/reports?q=moon&topic=Eclipse&region=1&keywords=sun,%20moon,&from=5&size=500&sort=timestamp:asc&start=2024-01-01T00:00:00Z&end=bad", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "moon", es.params.Query)
	require.Equal(t, "Eclipse", es.params.Topic)
	require.Equal(t, "1", es.params.Region)
	require.Equal(t, []string{"sun", "moon"}, es.params.Keywords)
	require.Equal(t, 5, es.params.From)
	require.Equal(t, 50, es.params.Size)
	require.Equal(t, "timestamp:asc", es.params.Sort)
	require.NotNil(t, es.params.Start)
	require.Nil(t, es.params.End)

	var body elasticsearch.SearchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, int64(1), body.Total)
	require.Equal(t, "Eclipse", body.Items[0].Topic)
}

func TestHandleSearchDefaults(t *testing.T) {
	es := &stubArchive{result: &elasticsearch.SearchResult{}}
	rec := httptest.NewRecorder()
	newTestServer(es).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports?size=abc", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 20, es.params.Size)
	require.Equal(t, 0, es.params.From)
	require.Nil(t, es.params.Keywords)
}

func TestHandleSearchError(t *testing.T) {
	es := &stubArchive{searchErr: errors.New("search failed")}
	rec := httptest.NewRecorder()
	newTestServer(es).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "search failed")
}
