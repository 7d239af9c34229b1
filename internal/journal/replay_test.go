package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/action"
	"github.com/roach88/flux/internal/bus"
	"github.com/roach88/flux/internal/demo"
	"github.com/roach88/flux/internal/store"
	"github.com/roach88/flux/internal/worker"
)

func TestReplay_RebuildsStoreState(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	helper := demo.NewHelper(nil)

	live := bus.NewDirect()
	rec := NewRecorder(s, WithExecutor(worker.Inline))
	require.NoError(t, live.Register(rec))
	original := demo.NewTodoStore(store.WithExecutor(worker.Inline))
	require.NoError(t, live.Register(original))

	creator := action.NewCreator(newFactory(), live)
	require.NoError(t, creator.Send(ctx, demo.TodoLoad, 1))
	require.NoError(t, creator.Send(ctx, demo.TodoAdd, demo.Todo{ID: 50, Title: "Call mom"}))
	require.NoError(t, creator.Send(ctx, demo.TodoClose, demo.Todo{ID: 2, Title: "Go to bank", DueDate: "2016/2/2", Closed: true}))

	replayBus := bus.NewDirect()
	rebuilt := demo.NewTodoStore(store.WithExecutor(worker.Inline))
	require.NoError(t, replayBus.Register(rebuilt))

	n, err := s.Replay(ctx, helper, replayBus)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, original.Items(), rebuilt.Items())
}

func TestReplay_UnknownKind(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteAction(ctx, ActionRecord{ID: "a", Seq: 1, Kind: "todo.delete", Payload: "[]"}))

	n, err := s.Replay(ctx, demo.NewHelper(nil), bus.NewDirect())
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}

func TestReplay_EmptyPayload(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteAction(ctx, ActionRecord{ID: "a", Seq: 1, Kind: "todo.load", Shape: "todo", Payload: "{}"}))

	b := bus.NewDirect()
	todos := demo.NewTodoStore(store.WithExecutor(worker.Inline))
	require.NoError(t, b.Register(todos))
	todos.ReplaceAll([]demo.Todo{{ID: 1}})

	n, err := s.Replay(ctx, demo.NewHelper(nil), b)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, todos.Count())
}
