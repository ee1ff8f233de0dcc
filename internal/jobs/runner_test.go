package jobs

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingJob struct {
	runs    atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingJob) Name() string     { return "blocking" }
func (b *blockingJob) Schedule() string { return "@every 1h" }

func (b *blockingJob) Run() {
	b.runs.Add(1)
	b.started <- struct{}{}
	<-b.release
}

func TestTaskExecutor_SkipsRunningJob(t *testing.T) {
	job := &blockingJob{started: make(chan struct{}), release: make(chan struct{})}
	executor := NewTaskExecutor(job)
	run := executor.guard(job)

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	<-job.started

	// the second run returns at once
	run()
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.release)
	<-done

	go func() { <-job.started }()
	run()
	assert.Equal(t, int32(2), job.runs.Load())
}

type countingJob struct {
	runs int
}

func (c *countingJob) Name() string     { return "counting" }
func (c *countingJob) Schedule() string { return "@every 1h" }
func (c *countingJob) Run()             { c.runs++ }

func TestTaskExecutor_Run(t *testing.T) {
	job := &countingJob{}
	executor := NewTaskExecutor(job)
	require.NoError(t, executor.Run())
	executor.Stop()

	executor.RunNow()
	assert.Equal(t, 1, job.runs)
}

type badScheduleJob struct {
	countingJob
}

func (b *badScheduleJob) Schedule() string { return "not a schedule" }

func TestTaskExecutor_InvalidSchedule(t *testing.T) {
	executor := NewTaskExecutor(&badScheduleJob{})
	assert.Error(t, executor.Run())
}
