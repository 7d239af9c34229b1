package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saturate fills a one-worker pool: the worker is parked on release and
// the queue holds one more task.
func saturate(t *testing.T, p *Pool, release <-chan struct{}) {
	t.Helper()
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, p.Submit(context.Background(), func() {}))
}

func TestPool_RunsTasks(t *testing.T) {
	p := NewPool(WithPoolSize(3))
	require.NoError(t, p.Start())

	var n atomic.Int64
	for i := 0; i < 50; i++ {
		require.NoError(t, p.Submit(context.Background(), func() { n.Add(1) }))
	}
	require.NoError(t, p.Stop(context.Background()))

	assert.Equal(t, int64(50), n.Load())
	stats := p.Stats()
	assert.Equal(t, uint64(50), stats.Submitted)
	assert.Equal(t, uint64(50), stats.Completed)
}

func TestPool_RejectWhenFull(t *testing.T) {
	p := NewPool(WithPoolSize(1), WithQueueSize(1))
	require.NoError(t, p.Start())

	release := make(chan struct{})
	saturate(t, p, release)

	err := p.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, uint64(1), p.Stats().Rejected)

	close(release)
	require.NoError(t, p.Stop(context.Background()))
}

func TestPool_BlockWaitsForContext(t *testing.T) {
	p := NewPool(WithPoolSize(1), WithQueueSize(1), WithPolicy(PolicyBlock))
	require.NoError(t, p.Start())

	release := make(chan struct{})
	saturate(t, p, release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Submit(ctx, func() {}), context.DeadlineExceeded)

	// Once the worker frees up, a blocked submit goes through.
	done := make(chan error, 1)
	go func() { done <- p.Submit(context.Background(), func() {}) }()
	close(release)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocked submit never completed")
	}
	require.NoError(t, p.Stop(context.Background()))
}

func TestPool_Lifecycle(t *testing.T) {
	p := NewPool()
	assert.ErrorIs(t, p.Submit(context.Background(), func() {}), ErrPoolStopped)
	assert.ErrorIs(t, p.Stop(context.Background()), ErrPoolStopped)

	require.NoError(t, p.Start())
	assert.ErrorIs(t, p.Start(), ErrAlreadyRunning)
	assert.True(t, p.Running())

	require.NoError(t, p.Stop(context.Background()))
	assert.False(t, p.Running())
	assert.ErrorIs(t, p.Execute(func() {}), ErrPoolStopped)
}

func TestPool_RecoversPanics(t *testing.T) {
	var seen atomic.Int64
	p := NewPool(WithPoolSize(1), WithPoolPanicHandler(func(*PanicError) { seen.Add(1) }))
	require.NoError(t, p.Start())

	require.NoError(t, p.Execute(func() { panic("bad task") }))
	var after atomic.Bool
	require.NoError(t, p.Execute(func() { after.Store(true) }))
	require.NoError(t, p.Stop(context.Background()))

	assert.Equal(t, int64(1), seen.Load())
	assert.Equal(t, uint64(1), p.Stats().Panicked)
	assert.True(t, after.Load(), "worker must survive a panic")
}

func TestParsePolicy(t *testing.T) {
	got, err := ParsePolicy("block")
	require.NoError(t, err)
	assert.Equal(t, PolicyBlock, got)

	got, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyReject, got)

	_, err = ParsePolicy("spill")
	assert.Error(t, err)
}
