package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emrgen/servicecatalog/internal/metrics"
	"github.com/emrgen/servicecatalog/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type fakeRunner struct {
	results []service.ItemResult
	err     error
	now     time.Time
}

func (f *fakeRunner) ExecuteScheduledTransitions(ctx context.Context) ([]service.ItemResult, error) {
	return f.results, f.err
}

func (f *fakeRunner) GetExpirationTasks(ctx context.Context, now time.Time) ([]service.ItemResult, error) {
	f.now = now
	return f.results, f.err
}

func TestScheduleTask_Run(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())

	runner := &fakeRunner{results: []service.ItemResult{
		{RootID: "a", VersionID: "a1", Status: "Published"},
		{RootID: "b", VersionID: "b1", Err: errors.New("stale"), Reason: service.ReasonStaleState},
	}}
	task := NewScheduleTask("@every 1m", runner, m)
	assert.Equal(t, "@every 1m", task.Schedule())

	task.Run()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("schedule", "partial")))

	runner.results = nil
	task.Run()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("schedule", "ok")))

	runner.err = errors.New("database is gone")
	task.Run()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("schedule", "error")))
}

func TestExpirationTask_Run(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	runner := &fakeRunner{}
	task := NewExpirationTask("@daily", runner, m)
	task.now = func() time.Time { return now }

	task.Run()
	assert.Equal(t, now, runner.now)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("expire", "ok")))

	// metrics are optional
	NewExpirationTask("@daily", runner, nil).Run()
}

type fakeReloader struct {
	calls chan struct{}
}

func (f *fakeReloader) Reload(ctx context.Context) error {
	select {
	case f.calls <- struct{}{}:
	default:
	}
	return nil
}

func TestLanguageReloader(t *testing.T) {
	reloader := &fakeReloader{calls: make(chan struct{}, 1)}
	job := NewLanguageReloader(reloader, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		job.Run()
		close(done)
	}()

	select {
	case <-reloader.calls:
	case <-time.After(time.Second):
		t.Fatal("languages were not reloaded")
	}

	job.Stop()
	<-done
}
