package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	"github.com/couchcryptid/outage-chain-etl/internal/observability"
	"github.com/google/uuid"
)

// Source reads the complete input of one analysis run.
type Source interface {
	Extract(ctx context.Context) (domain.Dataset, error)
}

// Analyzer chains a dataset into incident records.
type Analyzer interface {
	Analyze(ds domain.Dataset) domain.Analysis
	Settings() domain.Settings
}

// Sink publishes a finished run.
type Sink interface {
	Name() string
	Publish(ctx context.Context, run domain.AnalysisRun) error
}

// Retry bounds the attempts made for each extract and publish.
type Retry struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetry starts at 200ms, doubles each retry and caps at 5s.
func DefaultRetry() Retry {
	return Retry{Attempts: 5, InitialBackoff: 200 * time.Millisecond, MaxBackoff: 5 * time.Second}
}

// Pipeline orchestrates the extract-analyze-load cycle.
type Pipeline struct {
	source   Source
	analyzer Analyzer
	sinks    []Sink
	logger   *slog.Logger
	metrics  *observability.Metrics
	retry    Retry

	mu    sync.Mutex // one run at a time
	ready atomic.Bool
	last  atomic.Pointer[domain.AnalysisRun]
}

// New creates a Pipeline with the given stages and observability.
func New(src Source, analyzer Analyzer, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics, retry Retry) *Pipeline {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &Pipeline{
		source:   src,
		analyzer: analyzer,
		sinks:    sinks,
		logger:   logger,
		metrics:  metrics,
		retry:    retry,
	}
}

// CheckReadiness returns nil once a run has completed its analysis, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no analysis run has completed yet")
	}
	return nil
}

// LastRun returns the most recent analyzed run.
func (p *Pipeline) LastRun() (domain.AnalysisRun, bool) {
	run := p.last.Load()
	if run == nil {
		return domain.AnalysisRun{}, false
	}
	return *run, true
}

// Run executes one analysis immediately and another for every trigger
// received, until the context is cancelled. Failed runs are logged and the
// loop carries on.
func (p *Pipeline) Run(ctx context.Context, triggers <-chan struct{}) error {
	p.logger.Info("pipeline started", "sinks", len(p.sinks))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("analysis run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case _, ok := <-triggers:
			if !ok {
				p.logger.Info("pipeline stopping", "reason", "trigger channel closed")
				return nil
			}
		}
	}
}

// RunOnce extracts the input, analyzes it and publishes the result to every
// sink. The returned run is complete even when a sink failed; the error then
// joins the sink failures.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.AnalysisRun, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	run := domain.AnalysisRun{
		ID:        uuid.NewString(),
		StartedAt: clock.Now(),
		Settings:  p.analyzer.Settings(),
	}
	logger := p.logger.With("run_id", run.ID)

	var ds domain.Dataset
	err := p.withRetry(ctx, func() error {
		var err error
		ds, err = p.source.Extract(ctx)
		return err
	}, func(attempt int, err error) {
		logger.Warn("extract failed", "error", err, "attempt", attempt)
	})
	if err != nil {
		p.metrics.Runs.WithLabelValues("extract_error").Inc()
		return domain.AnalysisRun{}, fmt.Errorf("extract: %w", err)
	}
	p.metrics.RowsLoaded.WithLabelValues("events").Add(float64(len(ds.Events)))
	p.metrics.RowsLoaded.WithLabelValues("tickets").Add(float64(len(ds.Tickets)))
	p.metrics.RowsDropped.Add(float64(ds.DroppedRows))
	if !ds.TicketsLoaded {
		logger.Warn("ticket dataset unavailable, cross-references disabled")
	}

	analysis := p.analyzer.Analyze(ds)
	run.Records = analysis.Records
	run.Stats = analysis.Stats
	run.DroppedRows = ds.DroppedRows
	run.GeneratedAt = clock.Now()

	for kind, n := range analysis.Stats.Chains {
		p.metrics.Chains.WithLabelValues(string(kind)).Add(float64(n))
	}
	p.metrics.SingletonsDropped.Add(float64(analysis.Stats.SingletonsDropped))
	p.metrics.LastRunRecords.Set(float64(len(run.Records)))

	p.last.Store(&run)
	p.ready.Store(true)

	var sinkErrs []error
	for _, sink := range p.sinks {
		err := p.withRetry(ctx, func() error {
			return sink.Publish(ctx, run)
		}, func(attempt int, err error) {
			p.metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
			logger.Warn("publish failed", "sink", sink.Name(), "error", err, "attempt", attempt)
		})
		if err != nil {
			sinkErrs = append(sinkErrs, fmt.Errorf("sink %s: %w", sink.Name(), err))
		}
	}

	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	if len(sinkErrs) > 0 {
		p.metrics.Runs.WithLabelValues("load_error").Inc()
		return run, errors.Join(sinkErrs...)
	}
	p.metrics.Runs.WithLabelValues("success").Inc()

	logger.Info("analysis run complete",
		"events", analysis.Stats.Events,
		"records", len(run.Records),
		"dropped_rows", ds.DroppedRows,
		"duration", time.Since(start),
	)
	return run, nil
}

// withRetry calls fn until it succeeds, the attempts are used up or the
// context is cancelled, sleeping with exponential backoff in between.
func (p *Pipeline) withRetry(ctx context.Context, fn func() error, onErr func(attempt int, err error)) error {
	backoff := p.retry.InitialBackoff
	var err error
	for attempt := 1; attempt <= p.retry.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onErr(attempt, err)
		if attempt == p.retry.Attempts {
			break
		}
		if !sleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, p.retry.MaxBackoff)
	}
	return err
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
