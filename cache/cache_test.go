package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mutex  sync.Mutex
	hits   int
	misses int
	loads  int
	errs   int
}

func (o *recordingObserver) CacheHit(key string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.hits++
}

func (o *recordingObserver) CacheMiss(key string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.misses++
}

func (o *recordingObserver) CacheLoad(key string, took time.Duration, err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.loads++
	if err != nil {
		o.errs++
	}
}

func TestCacheSingleFlight(t *testing.T) {
	c := New[string](0)

	var loads int32
	release := make(chan struct{})
	loader := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return "catalog", nil
	}

	const callers = 64
	results := make([]string, callers)
	errs := make([]error, callers)

	wg := sync.WaitGroup{}
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrLoad(context.Background(), "k", time.Hour, loader)
		}(i)
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&loads) == 1
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "catalog", results[i])
	}
}

func TestCacheHitDoesNotReload(t *testing.T) {
	obs := &recordingObserver{}
	c := New[int](0)
	c.Observer = obs

	loads := 0
	loader := func(ctx context.Context) (int, error) {
		loads++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad(context.Background(), "k", time.Hour, loader)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}

	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, obs.misses)
	assert.Equal(t, 2, obs.hits)
	assert.Equal(t, 1, obs.loads)
}

func TestCacheDistinctKeysLoadIndependently(t *testing.T) {
	c := New[string](0)

	v, err := c.GetOrLoad(context.Background(), "a", time.Hour, func(ctx context.Context) (string, error) {
		return "A", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "A", v)

	v, err = c.GetOrLoad(context.Background(), "b", time.Hour, func(ctx context.Context) (string, error) {
		return "B", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "B", v)
}

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New[int](0)
	c.TimeNow = func() time.Time { return now }

	loads := 0
	loader := func(ctx context.Context) (int, error) {
		loads++
		return loads, nil
	}

	v, err := c.GetOrLoad(context.Background(), "k", 24*time.Hour, loader)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// Just before expiry: hit
	now = now.Add(24*time.Hour - time.Second)
	v, err = c.GetOrLoad(context.Background(), "k", 24*time.Hour, loader)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// At expiry the entry is absent, and is replaced in place
	now = now.Add(time.Second)
	_, ok := c.Get("k")
	assert.False(t, ok)
	v, err = c.GetOrLoad(context.Background(), "k", 24*time.Hour, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, loads)
}

func TestCacheFailureIsSharedAndNotCached(t *testing.T) {
	obs := &recordingObserver{}
	c := New[string](0)
	c.Observer = obs

	boom := errors.New("archive unreachable")

	var loads int32
	release := make(chan struct{})
	failing := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return "", boom
	}

	const callers = 8
	errs := make([]error, callers)
	wg := sync.WaitGroup{}
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetOrLoad(context.Background(), "k", time.Hour, failing)
		}(i)
	}
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&loads) == 1
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}

	_, ok := c.Get("k")
	assert.False(t, ok)

	// Next call makes a fresh attempt
	v, err := c.GetOrLoad(context.Background(), "k", time.Hour, func(ctx context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
	assert.Equal(t, 1, obs.errs)
}

func TestCacheCallerCancellationDoesNotAbortLoad(t *testing.T) {
	c := New[string](0)

	release := make(chan struct{})
	done := make(chan struct{})
	loader := func(ctx context.Context) (string, error) {
		defer close(done)
		<-release
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "loaded", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(ctx, "k", time.Hour, loader)
		errCh <- err
	}()

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	<-done

	require.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return ok
	}, time.Second, time.Millisecond)

	v, err := c.GetOrLoad(context.Background(), "k", time.Hour, func(ctx context.Context) (string, error) {
		t.Fatal("unexpected reload")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)
}

func TestCacheLoadTimeoutReleasesSlot(t *testing.T) {
	c := New[string](20 * time.Millisecond)

	hung := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	_, err := c.GetOrLoad(context.Background(), "k", time.Hour, hung)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	v, err := c.GetOrLoad(context.Background(), "k", time.Hour, func(ctx context.Context) (string, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
}
