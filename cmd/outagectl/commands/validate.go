package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newValidateCmd(in *inputFlags) *cobra.Command {
	var (
		asJSON bool
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that the exports load and list rejected rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := in.logger(cmd.ErrOrStderr())
			a, err := in.analysis()
			if err != nil {
				return err
			}
			_, report, err := in.source(a, logger).Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load exports: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "events:  %d rows\n", report.EventRows)
				if report.TicketsLoaded {
					fmt.Fprintf(out, "tickets: %d rows\n", report.TicketRows)
				} else {
					fmt.Fprintln(out, "tickets: not loaded")
				}
				fmt.Fprintf(out, "dropped: %d rows\n", len(report.Dropped))
				if len(report.Dropped) > 0 {
					tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "TABLE\tROW\tERROR")
					for _, d := range report.Dropped {
						fmt.Fprintf(tw, "%s\t%d\t%s\n", d.Table, d.Row, d.Err)
					}
					if err := tw.Flush(); err != nil {
						return err
					}
				}
			}

			if strict && len(report.Dropped) > 0 {
				return fmt.Errorf("%d rows rejected", len(report.Dropped))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the load report as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any row is rejected")
	return cmd
}
