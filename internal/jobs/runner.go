package jobs

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

type Job interface {
	Name() string
	Run()
}

type CronJob interface {
	Schedule() string
	Job
}

// TaskExecutor runs cron jobs. A job whose previous run has not finished is skipped.
type TaskExecutor struct {
	cron     *cron.Cron
	cronJobs []CronJob
	running  mapset.Set[string]
	mu       sync.Mutex
}

func NewTaskExecutor(cronJobs ...CronJob) *TaskExecutor {
	return &TaskExecutor{
		cron:     cron.New(),
		cronJobs: cronJobs,
		running:  mapset.NewThreadUnsafeSet[string](),
	}
}

// Run the jobs in its own goroutine inside the cron.
func (t *TaskExecutor) Run() error {
	for _, job := range t.cronJobs {
		if err := t.cron.AddFunc(job.Schedule(), t.guard(job)); err != nil {
			logrus.Errorf("failed to add task %s to cron: %v", job.Name(), err)
			return err
		}
		logrus.Infof("scheduled task %s (%s)", job.Name(), job.Schedule())
	}

	t.cron.Start()

	return nil
}

// RunNow runs every job once in the calling goroutine.
func (t *TaskExecutor) RunNow() {
	for _, job := range t.cronJobs {
		t.guard(job)()
	}
}

func (t *TaskExecutor) guard(job Job) func() {
	return func() {
		t.mu.Lock()
		if t.running.Contains(job.Name()) {
			t.mu.Unlock()
			logrus.Warnf("task %s is already running", job.Name())
			return
		}
		t.running.Add(job.Name())
		t.mu.Unlock()

		defer func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.running.Remove(job.Name())
		}()

		job.Run()
	}
}

func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
}
