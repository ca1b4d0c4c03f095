package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/outage-chain-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRuns struct {
	run *domain.AnalysisRun
}

func (m *mockRuns) LastRun() (domain.AnalysisRun, bool) {
	if m.run == nil {
		return domain.AnalysisRun{}, false
	}
	return *m.run, true
}

func sampleRun() *domain.AnalysisRun {
	start := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	return &domain.AnalysisRun{
		ID:          "run-1",
		GeneratedAt: start.Add(time.Hour),
		Stats:       domain.Stats{Events: 4},
		Records: []domain.IncidentRecord{
			{ID: "chain-1", NetworkElement: "E1", Kind: domain.KindSequential, Start: start, Members: "A;B"},
			{ID: "chain-2", NetworkElement: "E2", Kind: domain.KindNested, Start: start, Members: "C;D"},
		},
	}
}

func newTestServer(readyErr error, run *domain.AnalysisRun, requestRun httpadapter.RunRequester) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockRuns{run: run}, requestRun, slog.Default())
}

func serve(srv *httpadapter.Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil, nil, nil), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(newTestServer(nil, nil, nil), http.MethodGet, "/readyz").Code)

	notReady := newTestServer(fmt.Errorf("no analysis run has completed yet"), nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(notReady, http.MethodGet, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, nil, nil), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestChains_NoRunYet(t *testing.T) {
	rec := serve(newTestServer(nil, nil, nil), http.MethodGet, "/api/v1/chains")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChains_LastRun(t *testing.T) {
	srv := newTestServer(nil, sampleRun(), nil)

	tests := []struct {
		name   string
		target string
		ids    []string
	}{
		{"all records", "/api/v1/chains", []string{"chain-1", "chain-2"}},
		{"by kind", "/api/v1/chains?kind=nested", []string{"chain-2"}},
		{"by element", "/api/v1/chains?element=E1", []string{"chain-1"}},
		{"no match", "/api/v1/chains?kind=equipment-recurrence", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, http.MethodGet, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body struct {
				RunID   string                  `json:"run_id"`
				Count   int                     `json:"count"`
				Records []domain.IncidentRecord `json:"records"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "run-1", body.RunID)
			assert.Equal(t, len(tt.ids), body.Count)

			ids := make([]string, 0, len(body.Records))
			for _, r := range body.Records {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestRequestRun(t *testing.T) {
	pending := false
	srv := newTestServer(nil, nil, func() bool {
		if pending {
			return false
		}
		pending = true
		return true
	})

	first := serve(srv, http.MethodPost, "/api/v1/runs")
	assert.Equal(t, http.StatusAccepted, first.Code)
	assert.JSONEq(t, `{"status":"queued"}`, first.Body.String())

	second := serve(srv, http.MethodPost, "/api/v1/runs")
	assert.Equal(t, http.StatusAccepted, second.Code)
	assert.JSONEq(t, `{"status":"already queued"}`, second.Body.String())
}

func TestRequestRun_DisabledWithoutRequester(t *testing.T) {
	rec := serve(newTestServer(nil, nil, nil), http.MethodPost, "/api/v1/runs")
	assert.NotEqual(t, http.StatusAccepted, rec.Code)
}
