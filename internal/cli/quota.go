package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show today's remaining runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := a.session()
			if err != nil {
				return err
			}

			usage, err := a.client(creds.Token).Usage(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch usage: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderUsage(usage, a.now(), newStyles()))
			return nil
		},
	}
}
