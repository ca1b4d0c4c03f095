package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists analysis runs and their incident records in PostgreSQL.
// It implements pipeline.Sink.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore connects to the database and creates the tables if needed.
func NewStore(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	config.MaxConns = 4
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "postgres" }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Publish writes the run and all of its records in one transaction.
func (s *Store) Publish(ctx context.Context, run domain.AnalysisRun) (err error) {
	args, err := runArgs(run)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Warn("rollback failed", "run_id", run.ID, "error", rbErr)
			}
		}
	}()

	if _, err = tx.Exec(ctx, insertRunSQL, args...); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	if len(run.Records) > 0 {
		batch := &pgx.Batch{}
		for _, r := range run.Records {
			batch.Queue(insertChainSQL, chainArgs(run.ID, r)...)
		}
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert chains for run %s: %w", run.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

const insertRunSQL = `
	INSERT INTO outage_runs (run_id, started_at, generated_at, settings, stats, dropped_rows, record_count)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

const insertChainSQL = `
	INSERT INTO outage_chains (
		run_id, chain_id, network_element, direction, start_at, end_at, duration,
		kind, call_timing, chain_type, gaps, members, member_times, scada_ratio,
		call_counts, severities, call_tickets, shared_tickets, equipment_scan
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
`

func runArgs(run domain.AnalysisRun) ([]any, error) {
	settings, err := json.Marshal(run.Settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return nil, fmt.Errorf("marshal stats: %w", err)
	}
	return []any{
		run.ID,
		run.StartedAt,
		run.GeneratedAt,
		settings,
		stats,
		run.DroppedRows,
		len(run.Records),
	}, nil
}

func chainArgs(runID string, r domain.IncidentRecord) []any {
	gaps := r.Gaps
	if gaps == nil {
		gaps = []float64{}
	}
	return []any{
		runID,
		r.ID,
		r.NetworkElement,
		r.Direction,
		r.Start,
		r.End,
		r.Duration,
		string(r.Kind),
		string(r.CallTiming),
		r.Type,
		gaps,
		r.Members,
		r.MemberTimes,
		r.SCADARatio,
		r.CallCounts,
		r.Severities,
		r.CallTickets,
		r.SharedTickets,
		r.EquipmentScan,
	}
}
