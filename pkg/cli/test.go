package cli

import (
	"github.com/spf13/cobra"

	"github.com/platinummonkey/flint/pkg/engine"
)

func newTestCommand(a *app) *cobra.Command {
	var opts engine.TestOptions

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the active lint and test plugins and report their results",
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

			if err := a.wait(ctx, e.StartTest(ctx, cfg, opts)); err != nil {
				return err
			}
			return a.finish(e)
		},
	}

	cmd.Flags().BoolVar(&opts.Lint, "lint", false, "Only run lint plugins")
	cmd.Flags().BoolVar(&opts.Test, "test", false, "Only run test plugins")

	return cmd
}
