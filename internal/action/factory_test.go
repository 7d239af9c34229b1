package action

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/testutil"
)

type note struct {
	Text string
}

func newTestFactory(t *testing.T, wrap WrapFunc) *Factory {
	t.Helper()
	table := NewTable(wrap)
	require.NoError(t, Define[[]note](table, "note", "note.load", "note.add"))
	require.NoError(t, Define[string](table, "ping", "ping"))
	return NewFactory(table,
		WithIDGenerator(testutil.NewFixedIDGenerator("act")),
		WithClock(testutil.NewDeterministicClock()),
	)
}

func TestFactory_Create(t *testing.T) {
	f := newTestFactory(t, nil)

	a, err := f.Create("note.add", []note{{Text: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, ir.ActionKind("note.add"), a.Kind)
	assert.Equal(t, ir.ActionShape("note"), a.Shape)
	assert.Equal(t, []note{{Text: "hi"}}, a.Payload)
	assert.Equal(t, "act-1", a.ID)
	assert.Equal(t, int64(1), a.Seq)

	b, err := f.Create("ping", "pong")
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.Seq, "seq increases per action")
	assert.Equal(t, "act-2", b.ID)
}

func TestFactory_NilPayloadBecomesZeroValue(t *testing.T) {
	f := newTestFactory(t, nil)
	a, err := f.Create("note.load", nil)
	require.NoError(t, err)
	assert.Equal(t, []note(nil), a.Payload)
}

func TestFactory_UnknownKind(t *testing.T) {
	f := newTestFactory(t, nil)

	_, err := f.Create("nope", nil)
	require.Error(t, err)
	assert.True(t, IsUnknownActionKind(err))
	assert.Equal(t, "UNKNOWN_ACTION_KIND", CodeOf(err))

	_, err = f.Create("", nil)
	assert.True(t, IsUnknownActionKind(err))
	assert.ErrorIs(t, err, ir.ErrMissingKind)
}

func TestFactory_MalformedShape(t *testing.T) {
	table := NewTable(nil)
	require.NoError(t, table.Bind(Shape{Name: "broken"}, "broken"))
	require.NoError(t, table.Bind(Shape{Payload: reflect.TypeFor[string](), New: Typed[string]("x")}, "nameless"))
	f := NewFactory(table)

	_, err := f.Create("broken", nil)
	assert.True(t, IsMalformedActionShape(err))

	_, err = f.Create("nameless", "x")
	assert.True(t, IsMalformedActionShape(err))
}

func TestFactory_ConstructionFailures(t *testing.T) {
	wrapErr := errors.New("remote unavailable")
	f := newTestFactory(t, func(kind ir.ActionKind, raw any) (any, error) {
		switch raw {
		case "fail":
			return nil, wrapErr
		case "panic":
			panic("wrap exploded")
		}
		return raw, nil
	})

	tests := []struct {
		name string
		kind ir.ActionKind
		raw  any
	}{
		{"wrap error", "note.add", "fail"},
		{"wrap panic", "note.add", "panic"},
		{"wrong payload type", "note.add", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Create(tt.kind, tt.raw)
			require.Error(t, err)
			assert.True(t, IsActionConstructionFailed(err), "got %v", err)
			assert.True(t, IsConstructionError(err))
		})
	}

	_, err := f.Create("note.add", "fail")
	assert.ErrorIs(t, err, wrapErr)
}

func TestFactory_ConstructorErrorAndPanic(t *testing.T) {
	table := NewTable(nil)
	require.NoError(t, table.Bind(Shape{
		Name:    "bad",
		Payload: reflect.TypeFor[int](),
		New: func(ir.ActionKind, any) (ir.Action, error) {
			return ir.Action{}, errors.New("refused")
		},
	}, "bad.error"))
	require.NoError(t, table.Bind(Shape{
		Name:    "bad",
		Payload: reflect.TypeFor[int](),
		New:     func(ir.ActionKind, any) (ir.Action, error) { panic("ctor") },
	}, "bad.panic"))
	require.NoError(t, table.Bind(Shape{
		Name:    "bad",
		Payload: reflect.TypeFor[int](),
		New: func(_ ir.ActionKind, p any) (ir.Action, error) {
			return ir.NewAction("bad", "other", p)
		},
	}, "bad.kind"))
	f := NewFactory(table)

	for _, kind := range []ir.ActionKind{"bad.error", "bad.panic", "bad.kind"} {
		_, err := f.Create(kind, 1)
		assert.True(t, IsActionConstructionFailed(err), "kind %s: %v", kind, err)
	}
}

func TestTable_Bind(t *testing.T) {
	table := NewTable(nil)
	require.NoError(t, Define[int](table, "n", "a", "b"))
	assert.Error(t, Define[int](table, "m", "b"), "a kind binds once")
	assert.ErrorIs(t, Define[int](table, "m", ""), ir.ErrMissingKind)
	assert.Error(t, table.Bind(Shape{Name: "x"}))
	assert.Equal(t, []ir.ActionKind{"a", "b"}, table.Kinds())

	raw, err := table.WrapData("a", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, raw, "nil wrap passes input through")
}

func TestLogicalClock(t *testing.T) {
	c := NewLogicalClockAt(10)
	assert.Equal(t, int64(11), c.Next())
	assert.Equal(t, int64(11), c.Current())
	assert.Len(t, UUIDv7Generator{}.Generate(), 36)
}
