package progress

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/revline/internal/pipeline"
)

func TestTrackerLifecycle(t *testing.T) {
	tracker := NewTracker(10)

	id := tracker.Start()
	job, ok := tracker.Get(id)
	require.True(t, ok)
	assert.Equal(t, JobPending, job.Status)
	assert.NotEmpty(t, job.Name)

	report := tracker.Reporter(id)
	report("Fetching change details", 10)
	report("Cloning repository", 20)

	job, _ = tracker.Get(id)
	assert.Equal(t, JobRunning, job.Status)
	assert.Equal(t, "Cloning repository", job.Step)
	assert.Equal(t, 20, job.Percent)
	assert.Len(t, job.Steps, 2)

	state := &pipeline.ReviewState{StatusMessage: "Review completed successfully"}
	tracker.Complete(id, state)

	job, _ = tracker.Get(id)
	assert.Equal(t, JobCompleted, job.Status)
	assert.Equal(t, 100, job.Percent)
	require.NotNil(t, job.State)
	assert.True(t, job.State.Succeeded())
}

func TestTrackerFail(t *testing.T) {
	tracker := NewTracker(10)
	id := tracker.Start()

	tracker.Fail(id, "worker crashed")

	job, ok := tracker.Get(id)
	require.True(t, ok)
	assert.Equal(t, JobFailed, job.Status)
	assert.Equal(t, "worker crashed", job.Error)
}

func TestTrackerPercentNeverDecreases(t *testing.T) {
	tracker := NewTracker(10)
	id := tracker.Start()
	report := tracker.Reporter(id)

	report("step one", 40)
	report("step one retry", 10)

	job, _ := tracker.Get(id)
	assert.Equal(t, 40, job.Percent)
}

func TestTrackerEviction(t *testing.T) {
	tracker := NewTracker(3)

	first := tracker.Start()
	tracker.Complete(first, nil)

	var rest []string
	for i := 0; i < 3; i++ {
		rest = append(rest, tracker.Start())
	}

	// The finished job was evicted; the running ones survive
	_, ok := tracker.Get(first)
	assert.False(t, ok)
	for _, id := range rest {
		_, ok := tracker.Get(id)
		assert.True(t, ok, fmt.Sprintf("job %s should survive eviction", id))
	}
	assert.Len(t, tracker.List(), 3)
}

func TestTrackerEvictsOldestRunningWhenNothingFinished(t *testing.T) {
	tracker := NewTracker(2)

	first := tracker.Start()
	second := tracker.Start()
	third := tracker.Start()

	_, ok := tracker.Get(first)
	assert.False(t, ok)
	_, ok = tracker.Get(second)
	assert.True(t, ok)
	_, ok = tracker.Get(third)
	assert.True(t, ok)
}

func TestTrackerReporterUnknownJob(t *testing.T) {
	tracker := NewTracker(2)
	report := tracker.Reporter("job-missing")

	assert.NotPanics(t, func() {
		report("step", 50)
	})
}
