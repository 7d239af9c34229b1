package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActionRequiresKind(t *testing.T) {
	_, err := NewAction("todo", "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingKind)
}

func TestNewAction(t *testing.T) {
	a, err := NewAction("todo", "todo.load", []int{1})
	require.NoError(t, err)
	assert.Equal(t, ActionKind("todo.load"), a.Kind)
	assert.Equal(t, ActionShape("todo"), a.Shape)
	assert.True(t, a.Is("todo.load"))
	assert.Equal(t, "todo/todo.load", a.String())
}

func TestEventFields(t *testing.T) {
	assert.Equal(t, map[string]any{"type": "list_changed"}, EventFields(ListChanged{}))
	assert.Equal(t, map[string]any{"type": "item_changed", "position": int64(4)}, EventFields(ItemChanged{Position: 4}))

	cause := errors.New("boom")
	fields := EventFields(DataError{Err: cause})
	assert.Equal(t, "data_error", fields["type"])
	assert.Equal(t, "boom", fields["error"])
	assert.ErrorIs(t, DataError{Err: cause}, cause)
}
