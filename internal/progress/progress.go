// Package progress tracks review jobs for status polling. Records are
// bounded: once the cap is reached the oldest finished job is evicted, so
// long-running processes never accumulate unbounded state.
package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goombaio/namegenerator"
	"github.com/tildaslashalef/revline/internal/pipeline"
	"github.com/tildaslashalef/revline/internal/ulid"
)

// JobStatus is the lifecycle of a tracked job
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is a snapshot of one tracked review run
type Job struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Status    JobStatus             `json:"status"`
	Step      string                `json:"step"`
	Percent   int                   `json:"percent"`
	Steps     []string              `json:"steps"`
	Error     string                `json:"error,omitempty"`
	State     *pipeline.ReviewState `json:"state,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Tracker is a bounded, concurrency-safe registry of review jobs
type Tracker struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	order   []string
	maxJobs int
	names   namegenerator.Generator
}

// NewTracker creates a tracker that retains at most maxJobs records
func NewTracker(maxJobs int) *Tracker {
	if maxJobs <= 0 {
		maxJobs = 100
	}
	return &Tracker{
		jobs:    make(map[string]*Job),
		maxJobs: maxJobs,
		names:   namegenerator.NewNameGenerator(time.Now().UTC().UnixNano()),
	}
}

// Start registers a new job and returns its ID
func (t *Tracker) Start() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := ulid.JobID()
	name := strings.ReplaceAll(t.names.Generate(), "_", "-")

	now := time.Now().UTC()
	t.jobs[id] = &Job{
		ID:        id,
		Name:      name,
		Status:    JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.order = append(t.order, id)
	t.evictLocked()

	return id
}

// Reporter returns a progress callback bound to the given job, suitable
// for wiring into a pipeline run
func (t *Tracker) Reporter(id string) pipeline.ProgressFunc {
	return func(step string, percent int) {
		t.mu.Lock()
		defer t.mu.Unlock()

		job, ok := t.jobs[id]
		if !ok {
			return
		}
		job.Status = JobRunning
		job.Step = step
		if percent > job.Percent {
			job.Percent = percent
		}
		job.Steps = append(job.Steps, fmt.Sprintf("%s (%d%%)", step, percent))
		job.UpdatedAt = time.Now().UTC()
	}
}

// Complete marks a job finished and attaches the terminal state
func (t *Tracker) Complete(id string, state *pipeline.ReviewState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.Status = JobCompleted
	job.Percent = 100
	job.State = state
	job.UpdatedAt = time.Now().UTC()
}

// Fail marks a job failed with an error message
func (t *Tracker) Fail(id, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.Status = JobFailed
	job.Error = message
	job.UpdatedAt = time.Now().UTC()
}

// Get returns a copy of the job record
func (t *Tracker) Get(id string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[id]
	if !ok {
		return Job{}, false
	}
	return snapshot(job), true
}

// List returns copies of all tracked jobs, oldest first
func (t *Tracker) List() []Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Job, 0, len(t.order))
	for _, id := range t.order {
		if job, ok := t.jobs[id]; ok {
			out = append(out, snapshot(job))
		}
	}
	return out
}

// evictLocked drops the oldest finished jobs while over capacity; running
// jobs are only evicted when nothing finished remains
func (t *Tracker) evictLocked() {
	for len(t.order) > t.maxJobs {
		victim := ""
		for _, id := range t.order {
			job := t.jobs[id]
			if job.Status == JobCompleted || job.Status == JobFailed {
				victim = id
				break
			}
		}
		if victim == "" {
			victim = t.order[0]
		}
		t.removeLocked(victim)
	}
}

func (t *Tracker) removeLocked(id string) {
	delete(t.jobs, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func snapshot(job *Job) Job {
	copied := *job
	copied.Steps = append([]string(nil), job.Steps...)
	return copied
}
