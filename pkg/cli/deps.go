package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newDepsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Print the resolved dependencies of the active plugins as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			e, err := a.engine(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(e.Dependencies(ctx, cfg)); err != nil {
				return err
			}
			return a.finish(e)
		},
	}
}
