package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	"github.com/spf13/cobra"
)

func newTicketsCmd(in *inputFlags) *cobra.Command {
	var chainID string
	cmd := &cobra.Command{
		Use:   "tickets [OUTAGE_ID...]",
		Short: "List the customer tickets of outages or of one chain",
		Long: `Lists the ticket rows recorded for the given outage IDs. With --chain the
analysis is run with the settings from --config and the chain's members are
used instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (chainID == "") == (len(args) == 0) {
				return errors.New("pass either outage IDs or --chain")
			}
			if in.tickets == "" {
				return errors.New("--tickets is required")
			}

			logger := in.logger(cmd.ErrOrStderr())
			a, err := in.analysis()
			if err != nil {
				return err
			}
			ds, err := in.source(a, logger).Extract(cmd.Context())
			if err != nil {
				return fmt.Errorf("load exports: %w", err)
			}
			if !ds.TicketsLoaded {
				return fmt.Errorf("ticket export %s could not be loaded", in.tickets)
			}

			ids := make([]string, 0, len(args))
			for _, arg := range args {
				ids = append(ids, domain.NormalizeID(arg))
			}
			if chainID != "" {
				ids, err = chainMembers(ds, a.Settings, chainID)
				if err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "OUTAGE\tTICKET\tCUSTOMER\tCREATED")
			for _, t := range domain.NewTicketIndex(ds.Tickets).Tickets(ids) {
				created := ""
				if t.CreatedAt != nil {
					created = domain.FormatTimestamp(*t.CreatedAt)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.OutageID, t.TicketID, t.CustomerKey, created)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&chainID, "chain", "", "Incident record ID whose members to look up")
	return cmd
}

func chainMembers(ds domain.Dataset, settings domain.Settings, chainID string) ([]string, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	for _, r := range domain.NewAnalyzer(settings).Analyze(ds).Records {
		if r.ID == chainID {
			return r.MemberIDs(), nil
		}
	}
	return nil, fmt.Errorf("chain %s not found", chainID)
}
