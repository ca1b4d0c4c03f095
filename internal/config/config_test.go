package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/outages.csv", cfg.EventsPath)
	assert.Equal(t, "data/tickets.csv", cfg.TicketsPath)
	assert.Equal(t, 3, cfg.EventsHeaderRow)
	assert.True(t, cfg.WatchEnabled)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "outage-chains", cfg.KafkaSinkTopic)
	assert.Empty(t, cfg.PostgresDSN)
	assert.Empty(t, cfg.OutputPath)
	assert.Equal(t, FormatJSON, cfg.OutputFormat)
	assert.Equal(t, DefaultAnalysis(), cfg.Analysis)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("EVENTS_PATH", "/drop/kesinti.csv")
	t.Setenv("TICKETS_PATH", "/drop/cm.csv")
	t.Setenv("EVENTS_HEADER_ROW", "1")
	t.Setenv("WATCH_ENABLED", "false")
	t.Setenv("WATCH_DEBOUNCE", "500ms")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/outages")
	t.Setenv("OUTPUT_PATH", "/reports/chains.yaml")
	t.Setenv("OUTPUT_FORMAT", "YAML")
	t.Setenv("CRITICAL_HOURS", "6")
	t.Setenv("TOLERANCE_ABOVE_MINUTES", "45")
	t.Setenv("TOLERANCE_BELOW_MINUTES", "10")
	t.Setenv("EQUIPMENT_SCAN_HOURS", "24")
	t.Setenv("DISTRIBUTION_LABEL", "Dağıtım-OG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/drop/kesinti.csv", cfg.EventsPath)
	assert.Equal(t, "/drop/cm.csv", cfg.TicketsPath)
	assert.Equal(t, 1, cfg.EventsHeaderRow)
	assert.False(t, cfg.WatchEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "postgres://localhost/outages", cfg.PostgresDSN)
	assert.Equal(t, "/reports/chains.yaml", cfg.OutputPath)
	assert.Equal(t, FormatYAML, cfg.OutputFormat)
	assert.Equal(t, domain.Settings{
		CriticalHours:         6,
		ToleranceAboveMinutes: 45,
		ToleranceBelowMinutes: 10,
		EquipmentScanHours:    24,
		DistributionLabel:     "Dağıtım-OG",
	}, cfg.Analysis.Settings)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"EVENTS_HEADER_ROW", "0", "EVENTS_HEADER_ROW"},
		{"WATCH_DEBOUNCE", "soon", "WATCH_DEBOUNCE"},
		{"WATCH_ENABLED", "maybe", "WATCH_ENABLED"},
		{"KAFKA_ENABLED", "yes please", "KAFKA_ENABLED"},
		{"OUTPUT_FORMAT", "xlsx", "OUTPUT_FORMAT"},
		{"CRITICAL_HOURS", "nine", "CRITICAL_HOURS"},
		{"CRITICAL_HOURS", "0", "CriticalHours"},
		{"TOLERANCE_BELOW_MINUTES", "-1", "ToleranceBelowMinutes"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_AnalysisFile(t *testing.T) {
	path := writeAnalysisFile(t, `
settings:
  critical_hours: 4
  tolerance_below_minutes: 20
event_columns:
  id: "Outage ID"
ticket_columns:
  outage_id: 3
`)
	t.Setenv("ANALYSIS_CONFIG_FILE", path)
	t.Setenv("TOLERANCE_BELOW_MINUTES", "25")

	cfg, err := Load()
	require.NoError(t, err)

	s := cfg.Analysis.Settings
	assert.Equal(t, 4, s.CriticalHours)
	assert.Equal(t, 25, s.ToleranceBelowMinutes, "env overrides the file")
	assert.Equal(t, domain.DefaultToleranceAboveMinutes, s.ToleranceAboveMinutes)
	assert.Equal(t, domain.DefaultDistributionLabel, s.DistributionLabel)
	assert.Equal(t, "Outage ID", cfg.Analysis.EventColumns.ID)
	assert.Equal(t, domain.DefaultEventColumns().Start, cfg.Analysis.EventColumns.Start)
	assert.Equal(t, 3, cfg.Analysis.TicketColumns.OutageID)
	assert.Equal(t, domain.DefaultTicketColumns().TicketID, cfg.Analysis.TicketColumns.TicketID)
}

func TestLoad_AnalysisFileMissing(t *testing.T) {
	t.Setenv("ANALYSIS_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestLoadAnalysisFile_InvalidYAML(t *testing.T) {
	path := writeAnalysisFile(t, "settings: [unterminated")
	_, err := LoadAnalysisFile(path)
	require.Error(t, err)
}

func writeAnalysisFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
