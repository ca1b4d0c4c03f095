package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults used when a setting is not supplied.
const (
	DefaultCriticalHours         = 9
	DefaultToleranceAboveMinutes = 60
	DefaultToleranceBelowMinutes = 15
	DefaultEquipmentScanHours    = 12
	DefaultDistributionLabel     = "Dağıtım-AG"
)

var validate = validator.New()

// Settings tunes the chaining rules of one analysis run.
type Settings struct {
	CriticalHours         int    `json:"critical_hours" yaml:"critical_hours" validate:"gt=0"`
	ToleranceAboveMinutes int    `json:"tolerance_above_minutes" yaml:"tolerance_above_minutes" validate:"gte=0"`
	ToleranceBelowMinutes int    `json:"tolerance_below_minutes" yaml:"tolerance_below_minutes" validate:"gte=0"`
	EquipmentScanHours    int    `json:"equipment_scan_hours" yaml:"equipment_scan_hours" validate:"gte=0"`
	DistributionLabel     string `json:"distribution_label" yaml:"distribution_label" validate:"required"`
}

// DefaultSettings returns the settings used by the field teams.
func DefaultSettings() Settings {
	return Settings{
		CriticalHours:         DefaultCriticalHours,
		ToleranceAboveMinutes: DefaultToleranceAboveMinutes,
		ToleranceBelowMinutes: DefaultToleranceBelowMinutes,
		EquipmentScanHours:    DefaultEquipmentScanHours,
		DistributionLabel:     DefaultDistributionLabel,
	}
}

// Validate rejects settings the analyzer cannot work with.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate settings: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
	}
	return nil
}
