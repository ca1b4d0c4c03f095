package config

import (
	"fmt"

	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Analysis is the content of the analysis file: chaining settings and the
// column layout of both exports. Keys missing from the file keep their
// defaults.
type Analysis struct {
	Settings      domain.Settings      `yaml:"settings"`
	EventColumns  domain.EventColumns  `yaml:"event_columns"`
	TicketColumns domain.TicketColumns `yaml:"ticket_columns"`
}

// DefaultAnalysis returns the layout of the OMS and CM exports with the
// default chaining settings.
func DefaultAnalysis() Analysis {
	return Analysis{
		Settings:      domain.DefaultSettings(),
		EventColumns:  domain.DefaultEventColumns(),
		TicketColumns: domain.DefaultTicketColumns(),
	}
}

// LoadAnalysisFile reads a YAML analysis file on top of DefaultAnalysis.
// Settings are not validated here; env overrides are applied first by Load.
func LoadAnalysisFile(path string) (Analysis, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Analysis{}, fmt.Errorf("load analysis config from %q: %w", path, err)
	}

	a := DefaultAnalysis()
	if err := k.UnmarshalWithConf("", &a, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return Analysis{}, fmt.Errorf("parse analysis config from %q: %w", path, err)
	}
	return a, nil
}
