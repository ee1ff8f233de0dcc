package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveTransition(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveTransition("service", "Publish", "ok", time.Now())
	m.ObserveTransition("service", "Publish", "ok", time.Now())
	m.ObserveTransition("service", "Publish", "INVALID_STATE_TRANSITION", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("service", "Publish", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("service", "Publish", "INVALID_STATE_TRANSITION")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TransitionDuration))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTransition("service", "Publish", "ok", time.Now())
		m.ObserveBatchItem("archive", "ok")
		m.ObserveJobRun("expire", "ok")
	})
}
