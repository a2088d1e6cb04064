package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherKeepsOrderAndFlushes(t *testing.T) {
	d := NewDispatcher(WithQueueSize(8))
	require.NoError(t, d.Start())

	var got []int
	for i := 0; i < 100; i++ {
		require.NoError(t, d.Enqueue(context.Background(), func() { got = append(got, i) }))
	}
	require.NoError(t, d.Stop(context.Background()))

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
	assert.Equal(t, uint64(100), d.Processed())
}

func TestDispatcherBackpressure(t *testing.T) {
	d := NewDispatcher(WithQueueSize(1))
	require.NoError(t, d.Start())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), func() {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), func() {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Enqueue(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, uint64(2), d.Processed())
}

func TestDispatcherLifecycleErrors(t *testing.T) {
	d := NewDispatcher()
	assert.ErrorIs(t, d.Enqueue(context.Background(), func() {}), ErrDispatcherStopped)
	assert.ErrorIs(t, d.Stop(context.Background()), ErrDispatcherStopped)

	require.NoError(t, d.Start())
	assert.True(t, d.Running())
	assert.ErrorIs(t, d.Start(), ErrAlreadyRunning)
	require.NoError(t, d.Stop(context.Background()))
	assert.False(t, d.Running())
}

func TestDispatcherStopTimesOut(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Start())
	release := make(chan struct{})
	defer close(release)
	require.NoError(t, d.Enqueue(context.Background(), func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Stop(ctx), context.DeadlineExceeded)
}

func TestDispatcherSurvivesPanics(t *testing.T) {
	d := NewDispatcher(WithWorkers(4))
	require.NoError(t, d.Start())

	var mu sync.Mutex
	ran := 0
	require.NoError(t, d.Enqueue(context.Background(), func() { panic("bad job") }))
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Enqueue(context.Background(), func() {
			mu.Lock()
			ran++
			mu.Unlock()
		}))
	}
	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, 10, ran)
	assert.Equal(t, uint64(1), d.Panicked())
}
