package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapVisitsEveryIndex(t *testing.T) {
	out := make([]int, 100)
	err := Map(context.Background(), 4, len(out), func(_ context.Context, i int) error {
		out[i] = i * i
		return nil
	})
	require.NoError(t, err)
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestMapBoundsConcurrency(t *testing.T) {
	var running, peak int32
	err := Map(context.Background(), 3, 30, func(context.Context, int) error {
		cur := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestMapStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var calls int32
	err := Map(context.Background(), 1, 50, func(ctx context.Context, i int) error {
		atomic.AddInt32(&calls, 1)
		if i == 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	assert.Less(t, atomic.LoadInt32(&calls), int32(50))
}

func TestMapCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Map(ctx, 2, 10, func(context.Context, int) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(0)
	assert.Positive(t, pool.Workers())
	pool.Shutdown()
	pool.Shutdown()
	require.ErrorIs(t, pool.Submit(context.Background(), func() {}), ErrPoolShutdown)
}
