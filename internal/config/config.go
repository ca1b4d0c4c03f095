package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Output formats supported by the file sink.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Config holds all service settings, populated from environment variables
// and the optional analysis file.
type Config struct {
	EventsPath      string
	TicketsPath     string
	EventsHeaderRow int
	WatchEnabled    bool
	WatchDebounce   time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	// Sinks below are disabled when empty.
	PostgresDSN  string
	OutputPath   string
	OutputFormat string

	AnalysisFile string
	Analysis     Analysis
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	headerRow, err := parsePositiveInt("EVENTS_HEADER_ROW", 3)
	if err != nil {
		return nil, err
	}

	debounce, err := time.ParseDuration(sharedcfg.EnvOrDefault("WATCH_DEBOUNCE", "2s"))
	if err != nil || debounce <= 0 {
		return nil, errors.New("invalid WATCH_DEBOUNCE")
	}

	watchEnabled, err := parseBool("WATCH_ENABLED", true)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		EventsPath:      sharedcfg.EnvOrDefault("EVENTS_PATH", "data/outages.csv"),
		TicketsPath:     sharedcfg.EnvOrDefault("TICKETS_PATH", "data/tickets.csv"),
		EventsHeaderRow: headerRow,
		WatchEnabled:    watchEnabled,
		WatchDebounce:   debounce,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:  sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "outage-chains"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		OutputPath:      os.Getenv("OUTPUT_PATH"),
		OutputFormat:    strings.ToLower(sharedcfg.EnvOrDefault("OUTPUT_FORMAT", FormatJSON)),
		AnalysisFile:    os.Getenv("ANALYSIS_CONFIG_FILE"),
	}

	if cfg.EventsPath == "" {
		return nil, errors.New("EVENTS_PATH is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	switch cfg.OutputFormat {
	case FormatJSON, FormatYAML, FormatCSV:
	default:
		return nil, fmt.Errorf("invalid OUTPUT_FORMAT %q (want json, yaml or csv)", cfg.OutputFormat)
	}

	analysis := DefaultAnalysis()
	if cfg.AnalysisFile != "" {
		analysis, err = LoadAnalysisFile(cfg.AnalysisFile)
		if err != nil {
			return nil, err
		}
	}
	if err := applySettingsEnv(&analysis.Settings); err != nil {
		return nil, err
	}
	if err := analysis.Settings.Validate(); err != nil {
		return nil, err
	}
	cfg.Analysis = analysis

	return cfg, nil
}

// applySettingsEnv overrides chaining settings with any of the settings
// variables that are set.
func applySettingsEnv(s *domain.Settings) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"CRITICAL_HOURS", &s.CriticalHours},
		{"TOLERANCE_ABOVE_MINUTES", &s.ToleranceAboveMinutes},
		{"TOLERANCE_BELOW_MINUTES", &s.ToleranceBelowMinutes},
		{"EQUIPMENT_SCAN_HOURS", &s.EquipmentScanHours},
	}
	for _, v := range ints {
		raw := os.Getenv(v.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", v.key, err)
		}
		*v.dst = n
	}
	if label := os.Getenv("DISTRIBUTION_LABEL"); label != "" {
		s.DistributionLabel = label
	}
	return nil
}

func parsePositiveInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
