// Package cache provides keyed query caches with a staleness window and
// coalescing of identical in-flight requests.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Status is the lifecycle state of one cache key.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusResolved
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// FetchFunc performs the remote lookup for one key.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Entry is an immutable view of one key's state.
type Entry[V any] struct {
	Status    Status
	Data      V
	Err       error
	UpdatedAt time.Time
}

// Loading reports whether a dispatch is outstanding for the key.
func (e Entry[V]) Loading() bool { return e.Status == StatusPending }

// IsError reports whether the last dispatch failed.
func (e Entry[V]) IsError() bool { return e.Status == StatusFailed }

// Config configures a Query.
type Config[K comparable] struct {
	// Name is used in log lines.
	Name string
	// StaleTime is how long a resolved entry is served without a new dispatch.
	StaleTime time.Duration
	// Timeout bounds each dispatch; zero means no bound.
	Timeout time.Duration
	// Enabled gates keys; a disabled key never dispatches. Nil enables every key.
	Enabled func(K) bool
	// Now overrides the clock.
	Now    func() time.Time
	Logger *log.Logger
}

type call[V any] struct {
	done chan struct{}
	// forced calls bypass staleness; a later forced request joins them.
	forced bool
	val    V
	err    error
}

// Query caches the results of a FetchFunc per key.
type Query[K comparable, V any] struct {
	name      string
	fetch     FetchFunc[K, V]
	staleTime time.Duration
	timeout   time.Duration
	enabled   func(K) bool
	now       func() time.Time
	logger    *log.Logger

	mu       sync.Mutex
	entries  map[K]Entry[V]
	inflight map[K]*call[V]
	hits     int
	misses   int
}

// New creates a Query around fetch.
func New[K comparable, V any](cfg Config[K], fetch FetchFunc[K, V]) *Query[K, V] {
	q := &Query[K, V]{
		name:      cfg.Name,
		fetch:     fetch,
		staleTime: cfg.StaleTime,
		timeout:   cfg.Timeout,
		enabled:   cfg.Enabled,
		now:       cfg.Now,
		logger:    cfg.Logger,
		entries:   make(map[K]Entry[V]),
		inflight:  make(map[K]*call[V]),
	}
	if q.enabled == nil {
		q.enabled = func(K) bool { return true }
	}
	if q.now == nil {
		q.now = time.Now
	}
	if q.logger == nil {
		q.logger = log.Default()
	}
	if q.name == "" {
		q.name = "query"
	}
	return q
}

// Get returns the cached value for key while it is fresh, otherwise it joins
// or starts a dispatch and waits for it. Disabled keys return the zero value.
func (q *Query[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	if !q.enabled(key) {
		return zero, nil
	}

	q.mu.Lock()
	if e, ok := q.entries[key]; ok && e.Status == StatusResolved && q.fresh(e) {
		q.hits++
		q.mu.Unlock()
		q.logger.Debug("cache hit", "cache", q.name, "key", key, "age", q.now().Sub(e.UpdatedAt).Round(time.Second))
		return e.Data, nil
	}
	c, ok := q.inflight[key]
	if !ok {
		q.misses++
		q.logger.Debug("cache miss", "cache", q.name, "key", key)
		c = q.dispatchLocked(key, false)
	}
	q.mu.Unlock()

	return wait(ctx, c)
}

// Refetch ignores staleness and issues a fresh dispatch for key, waiting for
// its outcome. The cache entry is updated with the result.
func (q *Query[K, V]) Refetch(ctx context.Context, key K) (V, error) {
	if !q.enabled(key) {
		var zero V
		return zero, nil
	}
	q.mu.Lock()
	c := q.forceLocked(key)
	q.mu.Unlock()
	return wait(ctx, c)
}

// Trigger starts a fresh dispatch for key without waiting. The returned
// channel closes when the dispatch settles. It reports false for disabled keys.
func (q *Query[K, V]) Trigger(key K) (<-chan struct{}, bool) {
	if !q.enabled(key) {
		return nil, false
	}
	q.mu.Lock()
	c := q.forceLocked(key)
	q.mu.Unlock()
	return c.done, true
}

// forceLocked supersedes an ordinary in-flight call for key but joins one
// that is already forced, so at most one forced call is outstanding.
func (q *Query[K, V]) forceLocked(key K) *call[V] {
	if c, ok := q.inflight[key]; ok && c.forced {
		return c
	}
	return q.dispatchLocked(key, true)
}

// Invalidate marks key stale so the next Get dispatches. An outstanding
// dispatch is left alone and still records its result.
func (q *Query[K, V]) Invalidate(key K) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e, ok := q.entries[key]; ok && e.Status != StatusPending {
		delete(q.entries, key)
	}
}

// Peek returns the current state of key without dispatching.
func (q *Query[K, V]) Peek(key K) Entry[V] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.entries[key]
}

// Sweep drops settled entries that are past the staleness window and reports how many were removed.
func (q *Query[K, V]) Sweep() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for k, e := range q.entries {
		if e.Status == StatusPending || q.fresh(e) {
			continue
		}
		delete(q.entries, k)
		removed++
	}
	return removed
}

// Stats returns hit and miss counters.
func (q *Query[K, V]) Stats() (hits, misses int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hits, q.misses
}

func (q *Query[K, V]) fresh(e Entry[V]) bool {
	return e.Status == StatusResolved && q.now().Sub(e.UpdatedAt) < q.staleTime
}

// dispatchLocked registers a new in-flight call for key. A newer call
// supersedes an older one: only the newest call writes the entry.
func (q *Query[K, V]) dispatchLocked(key K, forced bool) *call[V] {
	c := &call[V]{done: make(chan struct{}), forced: forced}
	q.inflight[key] = c

	prev := q.entries[key]
	q.entries[key] = Entry[V]{
		Status:    StatusPending,
		Data:      prev.Data,
		UpdatedAt: prev.UpdatedAt,
	}

	go q.run(key, c)
	return c
}

func (q *Query[K, V]) run(key K, c *call[V]) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if q.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	v, err := q.fetch(ctx, key)

	q.mu.Lock()
	if q.inflight[key] == c {
		delete(q.inflight, key)
		if err != nil {
			q.logger.Warn("dispatch failed", "cache", q.name, "key", key, "err", err)
			// the last good value stays readable but is never served as fresh
			prev := q.entries[key]
			q.entries[key] = Entry[V]{Status: StatusFailed, Data: prev.Data, Err: err, UpdatedAt: prev.UpdatedAt}
		} else {
			q.entries[key] = Entry[V]{Status: StatusResolved, Data: v, UpdatedAt: q.now()}
		}
	}
	c.val, c.err = v, err
	q.mu.Unlock()

	close(c.done)
}

func wait[V any](ctx context.Context, c *call[V]) (V, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}
