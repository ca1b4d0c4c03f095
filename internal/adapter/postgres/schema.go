package postgres

import "context"

// migrate creates the run and chain tables.
func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS outage_runs (
		run_id TEXT PRIMARY KEY,
		started_at TIMESTAMPTZ NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL,
		settings JSONB NOT NULL,
		stats JSONB NOT NULL,
		dropped_rows INTEGER NOT NULL,
		record_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS outage_chains (
		run_id TEXT NOT NULL REFERENCES outage_runs(run_id) ON DELETE CASCADE,
		chain_id TEXT NOT NULL,
		network_element TEXT NOT NULL,
		direction TEXT NOT NULL,
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ NOT NULL,
		duration TEXT NOT NULL,
		kind TEXT NOT NULL,
		call_timing TEXT NOT NULL,
		chain_type TEXT NOT NULL,
		gaps DOUBLE PRECISION[] NOT NULL,
		members TEXT NOT NULL,
		member_times TEXT NOT NULL,
		scada_ratio TEXT NOT NULL,
		call_counts TEXT NOT NULL,
		severities TEXT NOT NULL,
		call_tickets TEXT NOT NULL,
		shared_tickets TEXT NOT NULL,
		equipment_scan TEXT NOT NULL,
		PRIMARY KEY (run_id, chain_id)
	);

	CREATE INDEX IF NOT EXISTS idx_outage_chains_chain_id ON outage_chains(chain_id);
	CREATE INDEX IF NOT EXISTS idx_outage_chains_element ON outage_chains(network_element, start_at);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}
