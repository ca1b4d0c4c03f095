package domain

import "time"

// AnalysisRun is one completed analysis with the metadata sinks publish
// alongside its records.
type AnalysisRun struct {
	ID          string           `json:"run_id" yaml:"run_id"`
	StartedAt   time.Time        `json:"started_at" yaml:"started_at"`
	GeneratedAt time.Time        `json:"generated_at" yaml:"generated_at"`
	Settings    Settings         `json:"settings" yaml:"settings"`
	Stats       Stats            `json:"stats" yaml:"stats"`
	DroppedRows int              `json:"dropped_rows" yaml:"dropped_rows"`
	Records     []IncidentRecord `json:"records" yaml:"records"`
}
