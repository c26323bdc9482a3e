package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/flint/pkg/async"
	"github.com/platinummonkey/flint/pkg/config"
	"github.com/platinummonkey/flint/pkg/logs"
	"github.com/platinummonkey/flint/pkg/observability"
	"github.com/platinummonkey/flint/pkg/pipeline"
	"github.com/platinummonkey/flint/pkg/plugins"
)

var (
	// ErrWriteFailed is returned when a generated or report file cannot be written
	ErrWriteFailed = errors.New("failed to write output")

	// ErrChecksFailed is returned when a run job reports lint errors or
	// failing tests
	ErrChecksFailed = errors.New("checks failed")

	// ErrNotDispatched is returned for jobs the worker pool refused
	ErrNotDispatched = errors.New("job not dispatched")
)

// Job outcomes recorded in metrics
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Options configures a Scheduler
type Options struct {
	// Workers bounds the number of jobs running at once
	Workers int

	// OutputDir receives generated files and is the working directory of
	// spawned commands
	OutputDir string

	// ReportsDir receives files written by report plugins
	ReportsDir string

	// DryRun logs generated files instead of writing them
	DryRun bool

	// JobTimeout bounds each job. Zero means no deadline.
	JobTimeout time.Duration

	// Reporters are the report plugins run after each evaluated run job
	Reporters []*plugins.Plugin

	// CI is handed to Generate of CI plugins
	CI *pipeline.CIInputs

	Metrics *observability.Metrics
}

// DefaultOptions returns scheduler options for the current directory
func DefaultOptions() Options {
	return Options{
		Workers:    config.DefaultWorkers,
		OutputDir:  ".",
		ReportsDir: filepath.Join(".flint", "reports"),
	}
}

// Scheduler runs plugin jobs on a bounded worker pool. Every dispatched job
// ends with exactly one terminal event in the sink: Success or Error, tagged
// with the plugin id. A failing job never affects its siblings.
type Scheduler struct {
	ctx      context.Context
	pipeline *pipeline.Pipeline
	cfg      *config.Config
	sink     *logs.Sink
	opts     Options
	pool     *async.WorkerPool
	log      *logrus.Logger

	pending atomic.Int64
	wg      sync.WaitGroup
}

// New creates a scheduler. cfg is shared read-only by all jobs.
func New(ctx context.Context, pl *pipeline.Pipeline, cfg *config.Config, sink *logs.Sink, log *logrus.Logger, opts Options) *Scheduler {
	if log == nil {
		log = logrus.New()
	}
	if sink == nil {
		sink = logs.NewSink(nil, log)
	}
	if opts.Workers <= 0 {
		opts.Workers = config.DefaultWorkers
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}

	return &Scheduler{
		ctx:      ctx,
		pipeline: pl,
		cfg:      cfg,
		sink:     sink,
		opts:     opts,
		pool:     async.NewWorkerPool(ctx, opts.Workers, "plugin jobs", opts.JobTimeout, log),
		log:      log,
	}
}

// Dispatch queues jobs and returns without waiting for them. Jobs are
// counted as pending before Dispatch returns.
func (s *Scheduler) Dispatch(jobs ...Job) {
	if len(jobs) == 0 {
		return
	}
	s.pending.Add(int64(len(jobs)))
	s.wg.Add(len(jobs))

	async.SafeGo(s.ctx, s.log, 0, "dispatch jobs", func(ctx context.Context) error {
		for _, job := range jobs {
			err := s.pool.Submit(func(ctx context.Context) error {
				s.execute(ctx, job)
				return nil
			})
			if err != nil {
				s.finish(job, time.Now(), plugins.NewError(job.Plugin, stageOf(job), ErrNotDispatched, err))
			}
		}
		return nil
	})
}

// Join blocks until every dispatched job has finished
func (s *Scheduler) Join() {
	s.wg.Wait()
}

// Pending returns the number of dispatched jobs that have not finished
func (s *Scheduler) Pending() int {
	return int(s.pending.Load())
}

// Done reports whether every dispatched job has finished. It never blocks.
func (s *Scheduler) Done() bool {
	return s.Pending() == 0
}

// Close waits for running jobs and stops the workers
func (s *Scheduler) Close() error {
	s.Join()
	return s.pool.Shutdown(5 * time.Second)
}

func (s *Scheduler) execute(ctx context.Context, job Job) {
	start := time.Now()

	ctx, span := observability.StartSpan(ctx, "scheduler."+job.Kind.String(),
		attribute.String("job.id", job.ID.String()),
		attribute.String("plugin.id", job.Plugin.ID()),
		attribute.String("plugin.kind", job.Plugin.Kind.String()),
	)

	var (
		message string
		err     error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = plugins.NewError(job.Plugin, stageOf(job), plugins.ErrScript, observability.MustRecover(r))
			}
		}()

		switch job.Kind {
		case JobGenerate:
			message, err = s.generate(ctx, job.Plugin)
		case JobRun:
			message, err = s.run(ctx, job.Plugin)
		default:
			err = fmt.Errorf("unknown job kind %s", job.Kind)
		}
	}()

	observability.EndSpan(span, err)

	if err != nil {
		s.finish(job, start, err)
		return
	}
	s.succeed(job, start, message)
}

func (s *Scheduler) generate(ctx context.Context, p *plugins.Plugin) (string, error) {
	var ci *pipeline.CIInputs
	if p.Kind == plugins.KindCI {
		ci = s.opts.CI
	}

	files, err := s.pipeline.Generate(ctx, p, s.cfg, ci)
	if err != nil {
		return "", err
	}

	for _, name := range sortedNames(files) {
		path := filepath.Join(s.opts.OutputDir, name)
		if s.opts.DryRun {
			s.info(p, plugins.StageWrite, "would write %s", path)
			continue
		}
		if err := writeFile(path, files[name]); err != nil {
			return "", plugins.NewError(p, plugins.StageWrite, ErrWriteFailed, err)
		}
		s.opts.Metrics.RecordFileWritten(p.Kind.String())
		s.info(p, plugins.StageWrite, "wrote %s", path)
	}

	return fmt.Sprintf("Generated %s config successfully", p.ID()), nil
}

func (s *Scheduler) run(ctx context.Context, p *plugins.Plugin) (string, error) {
	argv, err := s.pipeline.Run(ctx, p, s.cfg)
	if err != nil {
		return "", err
	}

	s.info(p, plugins.StageSpawn, "Running command: %s", strings.Join(argv, " "))
	out, err := spawn(ctx, s.opts.OutputDir, argv)
	if err != nil {
		return "", plugins.Errorf(p, plugins.StageSpawn, plugins.ErrProcessSpawn,
			"failed to execute command %q: %w", argv[0], err)
	}

	result, err := s.pipeline.Eval(ctx, p, out)
	if err != nil {
		return "", err
	}

	for _, reporter := range s.opts.Reporters {
		s.report(ctx, reporter, p, result)
	}

	if !result.Passed() {
		return "", plugins.NewError(p, plugins.StageEval, ErrChecksFailed, errors.New(result.Summary()))
	}
	return result.Summary(), nil
}

// report runs one report plugin. Its failures are logged against the report
// plugin and do not fail the job.
func (s *Scheduler) report(ctx context.Context, reporter, origin *plugins.Plugin, result pipeline.EvalOutput) {
	files, err := s.pipeline.Report(ctx, reporter, s.cfg, result, origin.ID())
	if err != nil {
		s.sink.AppendEntry(logs.Entry{
			Kind:     logs.Error,
			Message:  fmt.Sprintf("Report plugin error: %v", err),
			PluginID: reporter.ID(),
			Stage:    string(plugins.StageReport),
		})
		return
	}

	for _, name := range sortedNames(files) {
		path := filepath.Join(s.opts.ReportsDir, name)
		if err := writeFile(path, files[name]); err != nil {
			s.sink.AppendEntry(logs.Entry{
				Kind:     logs.Error,
				Message:  fmt.Sprintf("Failed to write report file %s: %v", name, err),
				PluginID: reporter.ID(),
				Stage:    string(plugins.StageWrite),
			})
			continue
		}
		s.opts.Metrics.RecordFileWritten(reporter.Kind.String())
		s.sink.AppendEntry(logs.Entry{
			Kind:     logs.Info,
			Message:  fmt.Sprintf("Reported %s to %s", origin.ID(), path),
			PluginID: reporter.ID(),
			Stage:    string(plugins.StageReport),
		})
	}
}

func (s *Scheduler) succeed(job Job, start time.Time, message string) {
	s.sink.AppendEntry(logs.Entry{
		Kind:     logs.Success,
		Message:  message,
		PluginID: job.Plugin.ID(),
		Stage:    job.Kind.String(),
	})
	s.done(job, StatusSuccess, start)
}

func (s *Scheduler) finish(job Job, start time.Time, err error) {
	entry := logs.Entry{
		Kind:     logs.Error,
		Message:  err.Error(),
		PluginID: job.Plugin.ID(),
		Stage:    job.Kind.String(),
	}
	if perr, ok := plugins.AsError(err); ok {
		entry.Stage = string(perr.Stage)
		entry.Message = perr.Err.Error()
		if perr.Cause != nil {
			entry.Message += ": " + perr.Cause.Error()
		}
	}
	s.sink.AppendEntry(entry)
	s.done(job, StatusFailed, start)
}

func (s *Scheduler) done(job Job, status string, start time.Time) {
	s.opts.Metrics.RecordJob(job.Kind.String(), status, time.Since(start))
	s.pending.Add(-1)
	s.wg.Done()
}

func (s *Scheduler) info(p *plugins.Plugin, stage plugins.Stage, format string, args ...interface{}) {
	s.sink.AppendEntry(logs.Entry{
		Kind:     logs.Info,
		Message:  fmt.Sprintf(format, args...),
		PluginID: p.ID(),
		Stage:    string(stage),
	})
}

func stageOf(job Job) plugins.Stage {
	if job.Kind == JobRun {
		return plugins.StageRun
	}
	return plugins.StageGenerate
}

// writeFile overwrites path, creating parent directories
func writeFile(path, contents string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(contents), 0644)
}

func sortedNames(files map[string]string) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
