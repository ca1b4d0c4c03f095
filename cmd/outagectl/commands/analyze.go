package commands

import (
	"fmt"
	"time"

	"github.com/couchcryptid/outage-chain-etl/internal/adapter/filesink"
	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type analyzeFlags struct {
	format            string
	output            string
	criticalHours     int
	toleranceAbove    int
	toleranceBelow    int
	equipmentScan     int
	distributionLabel string
}

func newAnalyzeCmd(in *inputFlags) *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Chain the outage export and print the incident records",
		Long: `Runs one analysis against the exports and writes the incident records.
Settings flags override the values from --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, in, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.format, "format", "f", filesink.FormatCSV, "Output format: json, yaml or csv")
	fl.StringVarP(&f.output, "output", "o", "", "Write the report to this file instead of stdout")
	fl.IntVar(&f.criticalHours, "critical-hours", domain.DefaultCriticalHours, "Outages at least this long use the upper tolerance")
	fl.IntVar(&f.toleranceAbove, "tolerance-above", domain.DefaultToleranceAboveMinutes, "Gap tolerance in minutes for long outages")
	fl.IntVar(&f.toleranceBelow, "tolerance-below", domain.DefaultToleranceBelowMinutes, "Gap tolerance in minutes for short outages")
	fl.IntVar(&f.equipmentScan, "equipment-scan-hours", domain.DefaultEquipmentScanHours, "Window in hours for the nearby equipment scan")
	fl.StringVar(&f.distributionLabel, "distribution-label", domain.DefaultDistributionLabel, "Source class that enables the equipment pass")
	return cmd
}

// settings applies the flags the user set on top of base.
func (f *analyzeFlags) settings(cmd *cobra.Command, base domain.Settings) domain.Settings {
	fl := cmd.Flags()
	if fl.Changed("critical-hours") {
		base.CriticalHours = f.criticalHours
	}
	if fl.Changed("tolerance-above") {
		base.ToleranceAboveMinutes = f.toleranceAbove
	}
	if fl.Changed("tolerance-below") {
		base.ToleranceBelowMinutes = f.toleranceBelow
	}
	if fl.Changed("equipment-scan-hours") {
		base.EquipmentScanHours = f.equipmentScan
	}
	if fl.Changed("distribution-label") {
		base.DistributionLabel = f.distributionLabel
	}
	return base
}

func runAnalyze(cmd *cobra.Command, in *inputFlags, f *analyzeFlags) error {
	logger := in.logger(cmd.ErrOrStderr())

	a, err := in.analysis()
	if err != nil {
		return err
	}
	settings := f.settings(cmd, a.Settings)
	if err := settings.Validate(); err != nil {
		return err
	}

	var sink *filesink.Writer
	if f.output != "" {
		if sink, err = filesink.NewWriter(f.output, f.format, logger); err != nil {
			return err
		}
	}

	started := time.Now()
	ds, err := in.source(a, logger).Extract(cmd.Context())
	if err != nil {
		return fmt.Errorf("load exports: %w", err)
	}
	result := domain.NewAnalyzer(settings).Analyze(ds)

	run := domain.AnalysisRun{
		ID:          uuid.NewString(),
		StartedAt:   started,
		GeneratedAt: time.Now(),
		Settings:    settings,
		Stats:       result.Stats,
		DroppedRows: ds.DroppedRows,
		Records:     result.Records,
	}

	if sink == nil {
		return filesink.Encode(cmd.OutOrStdout(), f.format, run)
	}
	if err := sink.Publish(cmd.Context(), run); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(run.Records), f.output)
	return nil
}
