package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/demo"
	"github.com/roach88/flux/internal/journal"
	"github.com/roach88/flux/internal/metrics"
)

func loadFixture(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestScenarios_Golden(t *testing.T) {
	for _, name := range []string{
		"todo_lifecycle",
		"buffered_bus",
		"cache_reuse",
		"concurrent_posters",
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, loadFixture(t, name)))
		})
	}
}

func TestRun_StateSnapshot(t *testing.T) {
	result, err := Run(context.Background(), loadFixture(t, "todo_lifecycle"), Options{})
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	todos := result.State["todos"]
	require.Len(t, todos, 8)
	assert.Equal(t, demo.Todo{ID: 2, Title: "Go to bank", DueDate: "2016/2/2", Closed: true}, todos[1])
	assert.Equal(t, demo.Todo{ID: 100, Title: "Water plants"}, todos[7])
	assert.Len(t, result.State["users"], 3)
}

func TestRun_DeterministicTrace(t *testing.T) {
	first, err := Run(context.Background(), loadFixture(t, "buffered_bus"), Options{})
	require.NoError(t, err)
	second, err := Run(context.Background(), loadFixture(t, "buffered_bus"), Options{Workers: 1})
	require.NoError(t, err)

	a, err := MarshalTrace("buffered_bus", first)
	require.NoError(t, err)
	b, err := MarshalTrace("buffered_bus", second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_FailingAssertion(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_count
description: expects the wrong number of to-dos
stores:
  - name: todos
    kind: todo
steps:
  - send: todo.load
    payload: 0
assertions:
  - type: count
    store: todos
    count: 3
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s, Options{})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Expected: 3 entities")
	assert.Contains(t, result.Errors[0], "Actual: 8 entities")
}

func TestRun_UnexpectedSuccess(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: unexpected_success
description: a known kind marked as failing
steps:
  - send: todo.load
    payload: 0
    expect_error: UNKNOWN_ACTION_KIND
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s, Options{})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "got success")
}

func TestRun_WrongErrorCode(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_code
description: the helper rejects the payload, not the kind
steps:
  - send: todo.close
    payload: "bogus"
    expect_error: UNKNOWN_ACTION_KIND
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s, Options{})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ACTION_CONSTRUCTION_FAILED")
}

func TestRun_UnknownStoreKind(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: unknown_kind
description: resolves a store kind with no constructor
stores:
  - name: notes
    kind: note
steps:
  - send: todo.load
`))
	require.NoError(t, err)

	_, err = Run(context.Background(), s, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `resolve store "notes"`)
}

func TestRun_UnknownBusStrategy(t *testing.T) {
	s := loadFixture(t, "cache_reuse")
	s.Bus = "carrier-pigeon"

	_, err := Run(context.Background(), s, Options{})
	require.Error(t, err)
}

func TestRun_Journal(t *testing.T) {
	js, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer js.Close()

	result, err := Run(context.Background(), loadFixture(t, "todo_lifecycle"), Options{Journal: js})
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	ctx := context.Background()
	actions, err := js.ReadActions(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 4)
	for i, rec := range actions {
		assert.Equal(t, int64(i+1), rec.Seq)
		assert.True(t, strings.HasPrefix(rec.ID, "act-"), rec.ID)
	}
	assert.Equal(t, "todo.close", actions[2].Kind)

	changes, err := js.ReadChanges(ctx, "todos")
	require.NoError(t, err)
	require.Len(t, changes, 3)
	assert.Equal(t, "item_changed", changes[1].EventType)
	assert.Equal(t, `{"position":1,"type":"item_changed"}`, changes[1].Fields)

	users, err := js.ReadChanges(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestRun_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	result, err := Run(context.Background(), loadFixture(t, "todo_lifecycle"), Options{Metrics: m})
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	families, err := reg.Gather()
	require.NoError(t, err)
	var posted, rejected float64
	var depthGauge bool
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch mf.GetName() {
			case "flux_pool_queue_depth":
				depthGauge = hasLabel(metric.GetLabel(), "pool", "workers")
			case "flux_bus_posted_total":
				if hasLabel(metric.GetLabel(), "bus", "actions") {
					posted += metric.GetCounter().GetValue()
				}
			case "flux_actions_rejected_total":
				rejected += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(4), posted)
	assert.Equal(t, float64(1), rejected)
	assert.True(t, depthGauge)
}

func hasLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, l := range labels {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}
