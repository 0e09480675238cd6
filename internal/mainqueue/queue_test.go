package mainqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueRunsWorkInOrder(t *testing.T) {
	t.Parallel()

	q := New(8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		q.Dispatch(func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
		})
	}
	require.NoError(t, q.Sync(ctx, func() {}))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSyncWaitsForCompletion(t *testing.T) {
	t.Parallel()

	q := New(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	ran := false
	require.NoError(t, q.Sync(ctx, func() { ran = true }))
	require.True(t, ran)
}

func TestSyncHonorsContext(t *testing.T) {
	t.Parallel()

	q := New(1, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// No Run loop: the work is buffered but never executed.
	err := q.Sync(ctx, func() {})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueRecoversFromPanics(t *testing.T) {
	t.Parallel()

	q := New(2, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Dispatch(func() { panic("boom") })
	ran := false
	require.NoError(t, q.Sync(ctx, func() { ran = true }))
	require.True(t, ran)
}

func TestCloseDrainsAndRejects(t *testing.T) {
	t.Parallel()

	q := New(4, nil)
	ran := make(chan struct{}, 1)
	q.Dispatch(func() { ran <- struct{}{} })
	q.Close()
	q.Close()

	require.ErrorIs(t, q.Sync(context.Background(), func() {}), ErrClosed)

	finished := make(chan struct{})
	go func() {
		q.Run(context.Background())
		close(finished)
	}()
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("pending work did not run after Close")
	}
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after Close")
	}
}
