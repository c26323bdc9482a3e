package scheduler

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/platinummonkey/flint/pkg/plugins"
)

// JobKind selects what a job does with its plugin
type JobKind int

const (
	// JobGenerate writes the files returned by Generate
	JobGenerate JobKind = iota
	// JobRun runs the plugin's command, evaluates it and reports the result
	JobRun
)

func (k JobKind) String() string {
	switch k {
	case JobGenerate:
		return "generate"
	case JobRun:
		return "run"
	default:
		return fmt.Sprintf("JobKind(%d)", int(k))
	}
}

// Job is one plugin driven through one flow
type Job struct {
	ID     uuid.UUID
	Plugin *plugins.Plugin
	Kind   JobKind
}

// NewJob creates a job with a fresh id
func NewJob(p *plugins.Plugin, kind JobKind) Job {
	return Job{ID: uuid.New(), Plugin: p, Kind: kind}
}

// Jobs creates one job of kind per plugin
func Jobs(kind JobKind, ps ...*plugins.Plugin) []Job {
	jobs := make([]Job, len(ps))
	for i, p := range ps {
		jobs[i] = NewJob(p, kind)
	}
	return jobs
}

func (j Job) String() string {
	return fmt.Sprintf("%s %s (%s)", j.Kind, j.Plugin, j.ID)
}
