package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunStore serves the most recent analysis run.
type RunStore interface {
	LastRun() (domain.AnalysisRun, bool)
}

// RunRequester queues a re-run. It reports false when one is already pending.
type RunRequester func() bool

// Server exposes health, readiness, metrics and the chain API.
type Server struct {
	httpServer *http.Server
	runs       RunStore
	requestRun RunRequester
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/v1 routes. A nil requestRun leaves POST /api/v1/runs unregistered.
func NewServer(addr string, ready sharedobs.ReadinessChecker, runs RunStore, requestRun RunRequester, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runs:       runs,
		requestRun: requestRun,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/chains", s.handleChains)
	if requestRun != nil {
		mux.HandleFunc("POST /api/v1/runs", s.handleRequestRun)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type chainsResponse struct {
	RunID       string                  `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Stats       domain.Stats            `json:"stats"`
	Count       int                     `json:"count"`
	Records     []domain.IncidentRecord `json:"records"`
}

// handleChains returns the last run's records, optionally filtered by
// ?kind= and ?element=.
func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.LastRun()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no analysis run has completed yet"})
		return
	}

	kind := domain.ChainKind(r.URL.Query().Get("kind"))
	element := r.URL.Query().Get("element")

	records := make([]domain.IncidentRecord, 0, len(run.Records))
	for _, rec := range run.Records {
		if kind != "" && rec.Kind != kind {
			continue
		}
		if element != "" && rec.NetworkElement != element {
			continue
		}
		records = append(records, rec)
	}

	writeJSON(w, http.StatusOK, chainsResponse{
		RunID:       run.ID,
		GeneratedAt: run.GeneratedAt,
		Stats:       run.Stats,
		Count:       len(records),
		Records:     records,
	})
}

func (s *Server) handleRequestRun(w http.ResponseWriter, _ *http.Request) {
	status := "queued"
	if !s.requestRun() {
		status = "already queued"
	}
	s.logger.Info("analysis run requested", "status", status)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client gone
}
