package jobs

import (
	"context"
	"time"

	"github.com/emrgen/servicecatalog/internal/metrics"
	"github.com/emrgen/servicecatalog/internal/service"
	"github.com/sirupsen/logrus"
)

// jobTimeout bounds a single run of a transition job.
const jobTimeout = 10 * time.Minute

// TransitionRunner performs the time driven transitions of the catalog.
type TransitionRunner interface {
	ExecuteScheduledTransitions(ctx context.Context) ([]service.ItemResult, error)
	GetExpirationTasks(ctx context.Context, now time.Time) ([]service.ItemResult, error)
}

// ScheduleTask performs the scheduled publishes and archives that are due.
type ScheduleTask struct {
	runner  TransitionRunner
	metrics *metrics.Metrics
	cron    string
}

func NewScheduleTask(cron string, runner TransitionRunner, m *metrics.Metrics) *ScheduleTask {
	return &ScheduleTask{
		runner:  runner,
		metrics: m,
		cron:    cron,
	}
}

func (s *ScheduleTask) Name() string {
	return "schedule"
}

func (s *ScheduleTask) Schedule() string {
	return s.cron
}

func (s *ScheduleTask) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	results, err := s.runner.ExecuteScheduledTransitions(ctx)
	report(s.Name(), s.metrics, results, err)
}

// ExpirationTask archives and removes versions whose expiration date has passed.
type ExpirationTask struct {
	runner  TransitionRunner
	metrics *metrics.Metrics
	cron    string
	now     func() time.Time
}

func NewExpirationTask(cron string, runner TransitionRunner, m *metrics.Metrics) *ExpirationTask {
	return &ExpirationTask{
		runner:  runner,
		metrics: m,
		cron:    cron,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (e *ExpirationTask) Name() string {
	return "expire"
}

func (e *ExpirationTask) Schedule() string {
	return e.cron
}

func (e *ExpirationTask) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	results, err := e.runner.GetExpirationTasks(ctx, e.now())
	report(e.Name(), e.metrics, results, err)
}

func report(job string, m *metrics.Metrics, results []service.ItemResult, err error) {
	if err != nil {
		logrus.Errorf("task %s failed: %v", job, err)
		m.ObserveJobRun(job, "error")
		return
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logrus.Warnf("task %s: version %s of root %s: %s", job, r.VersionID, r.RootID, r.Reason)
		}
	}

	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	m.ObserveJobRun(job, outcome)
	logrus.Infof("task %s processed %d versions, %d failed", job, len(results), failed)
}
