package store

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/bus"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/testutil"
	"github.com/roach88/flux/internal/worker"
)

type item struct {
	ID   int
	Name string
	Tags []string
}

var itemKinds = Kinds{Load: "item.load", Append: "item.add", Update: "item.update"}

func newItemStore(opts ...Option) *List[item] {
	return NewList(Config[item]{
		Name:     "items",
		Shapes:   []ir.ActionShape{"item"},
		Kinds:    itemKinds,
		Identity: func(i item) any { return i.ID },
		Clone: func(i item) item {
			i.Tags = slices.Clone(i.Tags)
			return i
		},
	}, append([]Option{WithExecutor(worker.Inline)}, opts...)...)
}

func act(kind ir.ActionKind, payload any) ir.Action {
	return ir.Action{Kind: kind, Shape: "item", Payload: payload}
}

func TestList_Load(t *testing.T) {
	s := newItemStore()
	obs := testutil.NewRecordingObserver()
	require.NoError(t, s.Register(obs))

	require.NoError(t, s.OnAction(act("item.load", []item{{ID: 1}, {ID: 2}})))
	require.NoError(t, s.OnAction(act("item.load", []item{{ID: 3}})))

	assert.Equal(t, 1, s.Count())
	assert.Equal(t, []ir.ChangeEvent{ir.ListChanged{}, ir.ListChanged{}}, obs.Changes())
}

func TestList_Append(t *testing.T) {
	s := newItemStore()
	obs := testutil.NewRecordingObserver()
	require.NoError(t, s.Register(obs))

	require.NoError(t, s.OnAction(act("item.load", []item{{ID: 1}})))
	require.NoError(t, s.OnAction(act("item.add", []item{{ID: 2}, {ID: 3}})))

	assert.Equal(t, 3, s.Count())
	last, err := s.GetItem(2)
	require.NoError(t, err)
	assert.Equal(t, 3, last.ID)
	assert.Len(t, obs.Changes(), 2, "one ListChanged per load or append")
}

func TestList_UpdateEmitsPerMatch(t *testing.T) {
	s := newItemStore()
	require.NoError(t, s.OnAction(act("item.load", []item{{ID: 1}, {ID: 2}, {ID: 3}})))

	obs := testutil.NewRecordingObserver()
	require.NoError(t, s.Register(obs))
	require.NoError(t, s.OnAction(act("item.update", []item{
		{ID: 3, Name: "three"},
		{ID: 9, Name: "missing"},
		{ID: 1, Name: "one"},
	})))

	assert.Equal(t, []ir.ChangeEvent{ir.ItemChanged{Position: 2}, ir.ItemChanged{Position: 0}}, obs.Changes())
	first, _ := s.GetItem(0)
	assert.Equal(t, "one", first.Name)
	assert.Equal(t, 3, s.Count(), "unmatched entities are not added")
}

func TestList_UpdateReplacesFirstMatchOnly(t *testing.T) {
	s := newItemStore()
	require.NoError(t, s.OnAction(act("item.load", []item{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}})))
	require.NoError(t, s.OnAction(act("item.update", []item{{ID: 1, Name: "c"}})))

	names := []string{}
	for _, it := range s.Items() {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"c", "b"}, names)
}

func TestList_SinglePayloadEntity(t *testing.T) {
	s := newItemStore()
	require.NoError(t, s.OnAction(act("item.add", item{ID: 5})))
	assert.Equal(t, 1, s.Count())
}

func TestList_GetItemReturnsCopy(t *testing.T) {
	s := newItemStore()
	require.NoError(t, s.OnAction(act("item.load", []item{{ID: 1, Name: "orig", Tags: []string{"x"}}})))

	got, err := s.GetItem(0)
	require.NoError(t, err)
	got.Name = "mutated"
	got.Tags[0] = "mutated"

	again, err := s.GetItem(0)
	require.NoError(t, err)
	assert.Equal(t, "orig", again.Name)
	assert.Equal(t, []string{"x"}, again.Tags)
}

func TestList_GetItemOutOfRange(t *testing.T) {
	s := newItemStore()
	_, err := s.GetItem(0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = s.GetItem(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestList_FindItem(t *testing.T) {
	s := newItemStore()
	require.NoError(t, s.OnAction(act("item.load", []item{{ID: 4}, {ID: 7}})))
	assert.Equal(t, 1, s.FindItem(item{ID: 7}))
	assert.Equal(t, -1, s.FindItem(item{ID: 8}))
}

func TestList_PayloadTypeErrorReachesObserver(t *testing.T) {
	s := newItemStore()
	b := bus.NewDirect()
	require.NoError(t, b.Register(s))
	obs := testutil.NewRecordingObserver()
	require.NoError(t, s.Register(obs))

	b.Post(act("item.load", "not a list"))

	errs := obs.WaitForErrors(t, 1)
	assert.ErrorIs(t, errs[0], ErrPayloadType)
	assert.Equal(t, 0, s.Count())
}

func TestList_CustomErrorHandler(t *testing.T) {
	var got []error
	s := NewList(Config[item]{
		Name:  "items",
		Kinds: itemKinds,
		Reduce: func(*List[item], ir.Action) (bool, error) {
			panic("reducer exploded")
		},
	}, WithExecutor(worker.Inline), WithErrorHandler(func(err error) { got = append(got, err) }))
	b := bus.NewDirect()
	require.NoError(t, b.Register(s))

	b.Post(act("item.other", nil))

	require.Len(t, got, 1)
	assert.True(t, worker.IsPanic(got[0]))
}

func TestList_ReduceHandlesExtraKinds(t *testing.T) {
	s := NewList(Config[item]{
		Kinds: itemKinds,
		Reduce: func(s *List[item], a ir.Action) (bool, error) {
			if a.Kind != "item.clear" {
				return false, nil
			}
			s.ReplaceAll(nil)
			return true, nil
		},
	}, WithExecutor(worker.Inline))
	require.NoError(t, s.OnAction(act("item.load", []item{{ID: 1}})))
	require.NoError(t, s.OnAction(act("item.clear", nil)))
	assert.Equal(t, 0, s.Count())
	require.NoError(t, s.OnAction(act("item.unknown", nil)), "unhandled kinds are ignored")
}

func TestList_UpdateWithoutIdentity(t *testing.T) {
	s := NewList(Config[item]{Kinds: itemKinds}, WithExecutor(worker.Inline))
	err := s.OnAction(act("item.update", []item{{ID: 1}}))
	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.Equal(t, -1, s.FindItem(item{ID: 1}))
}

func TestList_ShapeFiltering(t *testing.T) {
	s := newItemStore()
	b := bus.NewDirect()
	require.NoError(t, b.Register(s))

	b.Post(ir.Action{Kind: "item.load", Shape: "other", Payload: []item{{ID: 1}}})
	assert.Equal(t, 0, s.Count(), "actions of other shapes are filtered out")

	b.Post(act("item.load", []item{{ID: 1}}))
	assert.Equal(t, 1, s.Count())
}

func TestList_PostDoesNotWaitForProcessing(t *testing.T) {
	release := make(chan struct{})
	s := NewList(Config[item]{
		Kinds: itemKinds,
		Reduce: func(*List[item], ir.Action) (bool, error) {
			<-release
			return true, nil
		},
	})
	b := bus.NewDirect()
	require.NoError(t, b.Register(s))

	done := make(chan struct{})
	go func() {
		b.Post(act("item.slow", nil))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Post blocked on store processing")
	}

	close(release)
	require.NoError(t, s.Wait(context.Background()))
}

func TestList_OrderedOnPool(t *testing.T) {
	pool := worker.NewPool(worker.WithPoolSize(4))
	require.NoError(t, pool.Start())
	defer pool.Stop(context.Background())

	s := NewList(Config[item]{Name: "items", Kinds: itemKinds}, WithExecutor(pool))
	b := bus.NewDirect()
	require.NoError(t, b.Register(s))

	for i := 0; i < 100; i++ {
		b.Post(ir.Action{Kind: "item.add", Payload: []item{{ID: i}}})
	}
	require.NoError(t, s.Wait(context.Background()))

	items := s.Items()
	require.Len(t, items, 100)
	for i, it := range items {
		assert.Equal(t, i, it.ID, "a single sender's actions apply in post order")
	}
}

func TestList_Tag(t *testing.T) {
	s := newItemStore()
	assert.Nil(t, s.Tag())

	s.SetTag(nil)
	s.SetTag([]string{"uncomparable"})
	assert.Nil(t, s.Tag())

	s.SetTag("first")
	s.SetTag("second")
	assert.Equal(t, "first", s.Tag(), "only the first assignment sticks")
	assert.True(t, s.MatchTag("first"))
	assert.False(t, s.MatchTag("second"))
}

func TestList_RegisterViews(t *testing.T) {
	s := newItemStore()
	assert.ErrorIs(t, s.Register(42), ErrUnsupportedObserver)

	var tapped []any
	tap := bus.NewTap(bus.ChangeEvents, func(ev any) { tapped = append(tapped, ev) })
	require.NoError(t, s.Register(tap))
	obs := testutil.NewRecordingObserver()
	require.NoError(t, s.Register(obs))

	s.ReplaceAll([]item{{ID: 1}})
	s.Unregister(obs)
	s.Unregister(tap)
	s.Unregister("never registered")
	s.ReplaceAll(nil)

	assert.Len(t, tapped, 1)
	assert.Len(t, obs.Changes(), 1)
}

func TestList_ChangeBusesAreIsolated(t *testing.T) {
	a, b := newItemStore(), newItemStore()
	obsA, obsB := testutil.NewRecordingObserver(), testutil.NewRecordingObserver()
	require.NoError(t, a.Register(obsA))
	require.NoError(t, b.Register(obsB))

	a.ReplaceAll([]item{{ID: 1}})

	assert.Len(t, obsA.Changes(), 1)
	assert.Empty(t, obsB.Changes(), "one store's changes never reach another's observers")
}

func TestList_ExtraKeys(t *testing.T) {
	var seen []any
	s := NewList(Config[item]{
		Keys: []any{"audit"},
		OnKey: func(key any, src bus.Source) bus.Subscription {
			seen = append(seen, key)
			return src.Subscribe(bus.All, func(any) {})
		},
	})
	b := bus.NewDirect()
	require.NoError(t, b.Register(s))

	assert.Equal(t, []any{"audit"}, seen)
	assert.True(t, b.Registered("audit"))
	b.Unregister(s)
	assert.False(t, b.Registered("audit"))
}

func TestList_Snapshot(t *testing.T) {
	s := newItemStore()
	s.ReplaceAll([]item{{ID: 1}, {ID: 2}})
	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, item{ID: 2}, snap[1])
}
