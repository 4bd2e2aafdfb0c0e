package buffer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type regionValue struct {
	id datastructure.RegionID
}

func countingLoader(calls *atomic.Int32) Loader[*regionValue] {
	return func(ctx context.Context, id datastructure.RegionID) (*regionValue, error) {
		calls.Add(1)
		return &regionValue{id: id}, nil
	}
}

func TestPinLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	pool := NewPool(countingLoader(&calls), 0, nil)
	ctx := context.Background()

	h1, err := pool.Pin(ctx, 1)
	require.NoError(t, err)
	h2, err := pool.Pin(ctx, 1)
	require.NoError(t, err)

	assert.Same(t, h1.Value(), h2.Value())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 2, pool.Pins(1))

	require.NoError(t, h1.Release())
	assert.ErrorIs(t, h1.Release(), ErrHandleReleased)
	require.NoError(t, h2.Release())
	assert.Equal(t, 0, pool.Pins(1))
	assert.True(t, pool.IsResident(1))

	st := pool.Stats()
	assert.Equal(t, uint64(1), st.Loads)
	assert.Equal(t, uint64(1), st.Hits)
}

func TestConcurrentPinsShareOneLoad(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	pool := NewPool(func(ctx context.Context, id datastructure.RegionID) (*regionValue, error) {
		calls.Add(1)
		<-release
		return &regionValue{id: id}, nil
	}, 0, nil)

	var wg sync.WaitGroup
	handles := make([]*Handle[*regionValue], 8)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := pool.Pin(context.Background(), 4)
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(2))
	assert.Equal(t, 8, pool.Pins(4))
	for _, h := range handles {
		require.NoError(t, h.Release())
	}
	assert.Equal(t, 0, pool.Pins(4))
}

func TestEvictOnlyUnpinned(t *testing.T) {
	var calls atomic.Int32
	pool := NewPool(countingLoader(&calls), 2, nil)
	ctx := context.Background()

	a, _ := pool.Pin(ctx, 1)
	b, _ := pool.Pin(ctx, 2)
	c, _ := pool.Pin(ctx, 3)
	// everything pinned, nothing can go
	assert.Equal(t, 3, pool.Len())

	require.NoError(t, b.Release())
	assert.Equal(t, 2, pool.Len())
	assert.False(t, pool.IsResident(2))
	assert.True(t, pool.IsResident(1))

	require.NoError(t, a.Release())
	require.NoError(t, c.Release())
	assert.Equal(t, 2, pool.Len())
}

func TestEvictKeepsHandleUsable(t *testing.T) {
	var calls atomic.Int32
	pool := NewPool(countingLoader(&calls), 0, nil)
	ctx := context.Background()

	h, err := pool.Pin(ctx, 9)
	require.NoError(t, err)
	assert.True(t, pool.Evict(9))
	assert.False(t, pool.IsResident(9))
	assert.Equal(t, datastructure.RegionID(9), h.Value().id)
	require.NoError(t, h.Release())

	h, err = pool.Pin(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.NoError(t, h.Release())
}

func TestCancelledPinDoesNotAbortSharedLoad(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	pool := NewPool(func(ctx context.Context, id datastructure.RegionID) (*regionValue, error) {
		calls.Add(1)
		<-release
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &regionValue{id: id}, nil
	}, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := pool.Pin(ctx, 5)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	h, err := pool.Pin(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, datastructure.RegionID(5), h.Value().id)
	assert.Equal(t, int32(1), calls.Load())
	require.NoError(t, h.Release())
	assert.Equal(t, 0, pool.Pins(5))
}

func TestLoadFailureIsNotCached(t *testing.T) {
	errMissing := errors.New("missing")
	var fail atomic.Bool
	fail.Store(true)
	pool := NewPool(func(ctx context.Context, id datastructure.RegionID) (*regionValue, error) {
		if fail.Load() {
			return nil, errMissing
		}
		return &regionValue{id: id}, nil
	}, 0, nil)

	_, err := pool.Pin(context.Background(), 1)
	assert.ErrorIs(t, err, errMissing)
	assert.False(t, pool.IsResident(1))

	fail.Store(false)
	h, err := pool.Pin(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, h.Release())
	assert.Equal(t, uint64(1), pool.Stats().Failures)
}
