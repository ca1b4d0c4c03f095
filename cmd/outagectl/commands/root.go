// Package commands implements the outagectl command line.
package commands

import (
	"io"
	"log/slog"

	"github.com/couchcryptid/outage-chain-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/outage-chain-etl/internal/config"
	"github.com/couchcryptid/outage-chain-etl/internal/observability"
	"github.com/spf13/cobra"
)

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// inputFlags are shared by every command that reads the exports.
type inputFlags struct {
	events       string
	tickets      string
	headerRow    int
	analysisFile string
	logLevel     string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	in := &inputFlags{}
	root := &cobra.Command{
		Use:   "outagectl",
		Short: "Chain outage exports into incidents",
		Long: `outagectl runs the outage chaining analysis once against local exports.
It reads the OMS outage export and the optional CM ticket export, and writes
the incident records as JSON, YAML or CSV.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&in.events, "events", "data/outages.csv", "Path to the outage export")
	pf.StringVar(&in.tickets, "tickets", "", "Path to the ticket export (optional)")
	pf.IntVar(&in.headerRow, "header-row", 3, "1-based row holding the outage column headers")
	pf.StringVar(&in.analysisFile, "config", "", "Analysis YAML file with settings and column layout")
	pf.StringVar(&in.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(newAnalyzeCmd(in))
	root.AddCommand(newValidateCmd(in))
	root.AddCommand(newTicketsCmd(in))
	return root
}

func (in *inputFlags) logger(w io.Writer) *slog.Logger {
	return observability.NewLogger(w, in.logLevel, "text")
}

func (in *inputFlags) analysis() (config.Analysis, error) {
	if in.analysisFile == "" {
		return config.DefaultAnalysis(), nil
	}
	return config.LoadAnalysisFile(in.analysisFile)
}

func (in *inputFlags) source(a config.Analysis, logger *slog.Logger) *csvfile.Source {
	return csvfile.NewSource(csvfile.Options{
		EventsPath:    in.events,
		TicketsPath:   in.tickets,
		HeaderRow:     in.headerRow,
		EventColumns:  a.EventColumns,
		TicketColumns: a.TicketColumns,
	}, logger)
}
