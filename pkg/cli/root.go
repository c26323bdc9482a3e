package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/flint/pkg/config"
	"github.com/platinummonkey/flint/pkg/engine"
	"github.com/platinummonkey/flint/pkg/logs"
	"github.com/platinummonkey/flint/pkg/observability"
	"github.com/platinummonkey/flint/pkg/scheduler"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
)

// ErrPluginsFailed is returned when any job logged an error
var ErrPluginsFailed = errors.New("one or more plugins failed")

// pollInterval is how often interactive runs refresh their progress line
const pollInterval = 100 * time.Millisecond

// app carries state shared by all commands of one invocation
type app struct {
	settings *config.Settings
	log      *logrus.Logger
	sink     *logs.Sink
	stderr   io.Writer
}

// NewRootCommand creates the flint command tree
func NewRootCommand() *cobra.Command {
	a := &app{stderr: os.Stderr}

	root := &cobra.Command{
		Use:           "flint",
		Short:         "Flint - plugin driven linting, testing and CI config generation",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.sink != nil {
				return a.sink.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("plugins-dir", "", "Plugins root directory (env FLINT_PLUGINS_DIR)")
	flags.StringP("config", "c", "", "Project config file (env FLINT_CONFIG)")
	flags.StringP("output-dir", "o", "", "Directory generated files are written to (env FLINT_OUTPUT_DIR)")
	flags.String("reports-dir", "", "Directory report files are written to (env FLINT_REPORTS_DIR)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (env FLINT_LOG_LEVEL)")
	flags.IntP("workers", "j", 0, "Number of parallel jobs (env FLINT_WORKERS)")
	flags.Bool("non-interactive", false, "Block until all jobs finish without progress output (env FLINT_NON_INTERACTIVE)")
	flags.Duration("job-timeout", 0, "Deadline for each job, 0 for none (env FLINT_JOB_TIMEOUT)")

	root.AddCommand(
		newGenerateCommand(a),
		newTestCommand(a),
		newPluginsCommand(a),
		newDepsCommand(a),
		newInitCommand(a),
	)

	return root
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// setup loads settings from the environment, applies flag overrides and
// creates the logger
func (a *app) setup(cmd *cobra.Command) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	overrides := map[string]*string{
		"plugins-dir": &settings.PluginsDir,
		"config":      &settings.ConfigPath,
		"output-dir":  &settings.OutputDir,
		"reports-dir": &settings.ReportsDir,
		"log-level":   &settings.LogLevel,
	}
	for name, dst := range overrides {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	if flags.Changed("workers") {
		settings.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("non-interactive") {
		settings.NonInteractive, _ = flags.GetBool("non-interactive")
	}
	if flags.Changed("job-timeout") {
		settings.JobTimeout, _ = flags.GetDuration("job-timeout")
	}

	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	a.settings = settings
	a.log = observability.NewLogger(settings.LogLevel, a.stderr)
	return nil
}

// engine discovers plugins and opens the persisted event log
func (a *app) engine(ctx context.Context) (*engine.Engine, error) {
	a.sink = logs.NewFileSink(a.settings.LogFile, a.log)
	return engine.New(ctx, *a.settings, a.sink, a.log)
}

// loadConfig reads the project config; a missing or invalid file stops the
// run before any job is scheduled
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.settings.ConfigPath)
	if errors.Is(err, config.ErrNotFound) {
		return nil, fmt.Errorf("%w (run 'flint init' to create one)", err)
	}
	return cfg, err
}

// wait blocks until s has finished. Interactive runs show how many jobs are
// still pending while they wait.
func (a *app) wait(ctx context.Context, s *scheduler.Scheduler) error {
	defer observability.RecoverPanic(a.log, "wait for jobs")

	if a.settings.NonInteractive {
		return s.Close()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	last := -1
	for !s.Done() {
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.stderr)
			return s.Close()
		case <-ticker.C:
		}
		if n := s.Pending(); n != last {
			fmt.Fprintf(a.stderr, "\r%d job(s) running...", n)
			last = n
		}
	}
	if last >= 0 {
		fmt.Fprintln(a.stderr)
	}
	return s.Close()
}

// finish writes metrics and turns logged errors into a failing exit code
func (a *app) finish(e *engine.Engine) error {
	if err := e.WriteMetrics(); err != nil {
		a.log.Warnf("Failed to write metrics: %v", err)
	}
	if e.Sink().HasErrors() {
		return ErrPluginsFailed
	}
	return nil
}
