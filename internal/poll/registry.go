package poll

import (
	"context"
	"time"
)

// Job is one unit of periodic work (a grid refresh, a bill refresh, a session check).
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

// Func adapts a function into a Job.
func Func(name string, fn func(ctx context.Context) error) Job {
	return funcJob{name: name, fn: fn}
}

// Entry pairs a job with its interval.
type Entry struct {
	Job      Job
	Interval time.Duration
}

// Registry tracks the jobs started together by Service.Run.
type Registry struct {
	entries []Entry
}

func NewRegistry(entries ...Entry) *Registry {
	registry := &Registry{}
	for _, entry := range entries {
		registry.Register(entry.Job, entry.Interval)
	}
	return registry
}

// Register adds a job; nil jobs are ignored.
func (r *Registry) Register(job Job, interval time.Duration) {
	if job == nil {
		return
	}
	r.entries = append(r.entries, Entry{Job: job, Interval: interval})
}

// Entries returns the registered jobs in the order they were added.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}
