package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.Posted("actions")
	m.Posted("actions")
	m.Delivered("actions")
	m.Dropped("actions", ReasonNoObservers)
	m.ActionRejected("UNKNOWN_ACTION_KIND")
	m.StoreError("todo")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.posted.WithLabelValues("actions")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.delivered.WithLabelValues("actions")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("actions", ReasonNoObservers)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("UNKNOWN_ACTION_KIND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeErrors.WithLabelValues("todo")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Posted("x")
		m.Delivered("x")
		m.Dropped("x", ReasonOverflow)
		m.ActionRejected("x")
		m.StoreError("x")
		assert.NoError(t, m.RegisterQueue("x", fixedDepth(1)))
	})
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

type fixedDepth int

func (d fixedDepth) Len() int { return int(d) }

func TestRegisterQueue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	require.NoError(t, m.RegisterQueue("senders", fixedDepth(3)))

	expected := `
# HELP flux_pool_queue_depth Tasks waiting in a worker pool.
# TYPE flux_pool_queue_depth gauge
flux_pool_queue_depth{pool="senders"} 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "flux_pool_queue_depth"))
}
