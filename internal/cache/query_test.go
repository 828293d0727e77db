package cache

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestQuery(t *testing.T, clock *fakeClock, fetch FetchFunc[string, string]) *Query[string, string] {
	t.Helper()
	return New(Config[string]{
		Name:      "test",
		StaleTime: 5 * time.Minute,
		Enabled:   func(k string) bool { return k != "" },
		Now:       clock.Now,
		Logger:    log.New(io.Discard),
	}, fetch)
}

func TestQueryCoalescesConcurrentGets(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	var calls atomic.Int32
	release := make(chan struct{})

	q := newTestQuery(t, clock, func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		<-release
		return "value:" + key, nil
	})

	var wg sync.WaitGroup
	results := make([]string, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := q.Get(context.Background(), "paris")
		assert.NoError(t, err)
		results[0] = v
	}()

	require.Eventually(t, func() bool {
		return q.Peek("paris").Status == StatusPending
	}, time.Second, time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := q.Get(context.Background(), "paris")
		assert.NoError(t, err)
		results[1] = v
	}()

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"value:paris", "value:paris"}, results)
}

func TestQueryServesFreshEntriesAndRefetchesStale(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	var calls atomic.Int32
	q := newTestQuery(t, clock, func(ctx context.Context, key string) (string, error) {
		n := calls.Add(1)
		return key + "#" + string(rune('0'+n)), nil
	})

	ctx := context.Background()
	v, err := q.Get(ctx, "london")
	require.NoError(t, err)
	assert.Equal(t, "london#1", v)

	clock.Advance(4 * time.Minute)
	v, err = q.Get(ctx, "london")
	require.NoError(t, err)
	assert.Equal(t, "london#1", v)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(2 * time.Minute)
	v, err = q.Get(ctx, "london")
	require.NoError(t, err)
	assert.Equal(t, "london#2", v)
	assert.Equal(t, int32(2), calls.Load())

	hits, misses := q.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 2, misses)
}

func TestQueryDisabledKeyNeverDispatches(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	var calls atomic.Int32
	q := newTestQuery(t, clock, func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		return "x", nil
	})

	v, err := q.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, ok := q.Trigger("")
	assert.False(t, ok)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, StatusIdle, q.Peek("").Status)
}

func TestQueryFailureIsRecordedWithoutRetry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	var calls atomic.Int32
	boom := errors.New("boom")
	q := newTestQuery(t, clock, func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		return "", boom
	})

	_, err := q.Get(context.Background(), "rome")
	require.ErrorIs(t, err, boom)

	e := q.Peek("rome")
	assert.True(t, e.IsError())
	assert.Empty(t, e.Data)
	assert.ErrorIs(t, e.Err, boom)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueryRefetchBypassesStaleness(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	var calls atomic.Int32
	q := newTestQuery(t, clock, func(ctx context.Context, key string) (string, error) {
		n := calls.Add(1)
		return key + "#" + string(rune('0'+n)), nil
	})

	ctx := context.Background()
	_, err := q.Get(ctx, "oslo")
	require.NoError(t, err)

	v, err := q.Refetch(ctx, "oslo")
	require.NoError(t, err)
	assert.Equal(t, "oslo#2", v)

	v, err = q.Get(ctx, "oslo")
	require.NoError(t, err)
	assert.Equal(t, "oslo#2", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueryForcedDispatchesCoalesce(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	var calls atomic.Int32
	release := make(chan struct{})
	q := newTestQuery(t, clock, func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		<-release
		return "fresh:" + key, nil
	})

	first, ok := q.Trigger("paris")
	require.True(t, ok)
	second, ok := q.Trigger("paris")
	require.True(t, ok)
	assert.Equal(t, first, second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Refetch(ctx, "paris")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	<-first
	assert.Equal(t, "fresh:paris", q.Peek("paris").Data)

	v, err := q.Refetch(context.Background(), "paris")
	require.NoError(t, err)
	assert.Equal(t, "fresh:paris", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQuerySupersededDispatchDoesNotOverwrite(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	first := make(chan struct{})
	var calls atomic.Int32
	q := newTestQuery(t, clock, func(ctx context.Context, key string) (string, error) {
		if calls.Add(1) == 1 {
			<-first
			return "old", nil
		}
		return "new", nil
	})

	oldDone := make(chan string)
	go func() {
		v, _ := q.Get(context.Background(), "kyiv")
		oldDone <- v
	}()
	require.Eventually(t, func() bool {
		return q.Peek("kyiv").Status == StatusPending
	}, time.Second, time.Millisecond)

	v, err := q.Refetch(context.Background(), "kyiv")
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	close(first)
	assert.Equal(t, "old", <-oldDone)

	assert.Equal(t, "new", q.Peek("kyiv").Data)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueryFailedRevalidationKeepsLastValue(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	boom := errors.New("boom")
	var fail atomic.Bool
	q := newTestQuery(t, clock, func(ctx context.Context, key string) (string, error) {
		if fail.Load() {
			return "", boom
		}
		return "sunny", nil
	})

	ctx := context.Background()
	_, err := q.Get(ctx, "paris")
	require.NoError(t, err)
	resolvedAt := q.Peek("paris").UpdatedAt

	clock.Advance(6 * time.Minute)
	fail.Store(true)
	_, err = q.Get(ctx, "paris")
	require.ErrorIs(t, err, boom)

	e := q.Peek("paris")
	assert.True(t, e.IsError())
	assert.Equal(t, "sunny", e.Data)
	assert.Equal(t, resolvedAt, e.UpdatedAt)

	// stale data is not served as fresh
	_, err = q.Get(ctx, "paris")
	require.ErrorIs(t, err, boom)
}

func TestQueryWaiterHonoursContext(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	release := make(chan struct{})
	defer close(release)
	q := newTestQuery(t, clock, func(ctx context.Context, key string) (string, error) {
		<-release
		return "late", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Get(ctx, "lima")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, q.Peek("lima").Loading())
}

func TestQueryTimeoutBoundsDispatch(t *testing.T) {
	q := New(Config[string]{
		Name:      "timeout",
		StaleTime: time.Minute,
		Timeout:   20 * time.Millisecond,
		Logger:    log.New(io.Discard),
	}, func(ctx context.Context, key string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	_, err := q.Get(context.Background(), "hung")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusFailed, q.Peek("hung").Status)
}

func TestQueryInvalidateAndSweep(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	var calls atomic.Int32
	q := newTestQuery(t, clock, func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		return key, nil
	})

	ctx := context.Background()
	_, _ = q.Get(ctx, "a")
	_, _ = q.Get(ctx, "b")

	q.Invalidate("a")
	assert.Equal(t, StatusIdle, q.Peek("a").Status)
	_, _ = q.Get(ctx, "a")
	assert.Equal(t, int32(3), calls.Load())

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 2, q.Sweep())
	assert.Equal(t, StatusIdle, q.Peek("b").Status)
}
