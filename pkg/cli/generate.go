package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/flint/pkg/engine"
	"github.com/platinummonkey/flint/pkg/watch"
)

func newGenerateCommand(a *app) *cobra.Command {
	var (
		dryRun   bool
		watching bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate config files from the active plugins",
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

			opts := engine.GenerateOptions{DryRun: dryRun}
			if err := a.wait(ctx, e.StartGenerate(ctx, cfg, opts)); err != nil {
				return err
			}
			if !watching {
				return a.finish(e)
			}

			a.log.Infof("Watching %s for changes (Ctrl+C to stop)", a.settings.ConfigPath)
			return watch.File(ctx, a.settings.ConfigPath, watch.DefaultDelay, a.log, func(ctx context.Context) error {
				cfg, err := a.loadConfig()
				if err != nil {
					return err
				}
				return a.wait(ctx, e.StartGenerate(ctx, cfg, opts))
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the files that would be written without writing them")
	cmd.Flags().BoolVarP(&watching, "watch", "w", false, "Regenerate whenever the config file changes")

	return cmd
}
