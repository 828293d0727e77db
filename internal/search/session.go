package search

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/weather-widgets/internal/cache"
	"github.com/i474232898/weather-widgets/internal/weather"
)

// SessionState is what a search box renders.
type SessionState struct {
	// Input is the raw text as typed.
	Input string
	// Query is the settled, normalized text the results belong to.
	Query   string
	Status  cache.Status
	Results []weather.GeoCandidate
	Err     error
}

func (s SessionState) Loading() bool { return s.Status == cache.StatusPending }
func (s SessionState) IsError() bool { return s.Status == cache.StatusFailed }

// Session debounces keystrokes into searches. Only the results of the most
// recently settled query are ever surfaced.
type Session struct {
	svc       *Service
	debouncer *Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   SessionState
	updates chan SessionState
	closed  bool
}

// NewSession starts a typing session. A nil scheduler uses SystemScheduler.
func (s *Service) NewSession(delay time.Duration, sched Scheduler) *Session {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		svc:       s,
		debouncer: NewDebouncer(delay, sched),
		ctx:       ctx,
		cancel:    cancel,
		state:     SessionState{Status: cache.StatusIdle, Results: []weather.GeoCandidate{}},
		updates:   make(chan SessionState, 1),
	}
}

// Type records new input and restarts the quiet interval.
func (ss *Session) Type(text string) {
	ss.mu.Lock()
	ss.state.Input = text
	ss.mu.Unlock()

	ss.debouncer.Trigger(func() { ss.settle(text) })
}

// State returns a snapshot of the session.
func (ss *Session) State() SessionState {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.snapshotLocked()
}

// Updates delivers the latest state after each settle and each answer. Only
// the newest undelivered state is buffered. The channel is closed by Close.
func (ss *Session) Updates() <-chan SessionState {
	return ss.updates
}

// Select returns the i-th suggestion and clears the session.
func (ss *Session) Select(i int) (weather.GeoCandidate, bool) {
	ss.mu.Lock()
	if i < 0 || i >= len(ss.state.Results) {
		ss.mu.Unlock()
		return weather.GeoCandidate{}, false
	}
	c := ss.state.Results[i]
	ss.mu.Unlock()

	ss.Reset()
	return c, true
}

// Reset drops the input, any pending keystroke and the shown results.
func (ss *Session) Reset() {
	ss.debouncer.Stop()

	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.state = SessionState{Status: cache.StatusIdle, Results: []weather.GeoCandidate{}}
	ss.publishLocked()
}

// Close stops the session and closes Updates. Lookups already dispatched
// finish in the cache but are not reported. Close is idempotent.
func (ss *Session) Close() {
	ss.debouncer.Stop()
	ss.cancel()

	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		return
	}
	ss.closed = true
	close(ss.updates)
}

func (ss *Session) settle(text string) {
	key := Normalize(text)

	ss.mu.Lock()
	ss.state.Query = key
	ss.state.Err = nil
	ss.state.Results = []weather.GeoCandidate{}
	if !Eligible(key) {
		ss.state.Status = cache.StatusIdle
		ss.publishLocked()
		ss.mu.Unlock()
		return
	}
	ss.state.Status = cache.StatusPending
	ss.publishLocked()
	ss.mu.Unlock()

	go func() {
		res, err := ss.svc.Search(ss.ctx, key)
		ss.answer(key, res, err)
	}()
}

func (ss *Session) answer(key string, res []weather.GeoCandidate, err error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ctx.Err() != nil || ss.state.Query != key {
		return
	}
	if err != nil {
		ss.state.Status = cache.StatusFailed
		ss.state.Err = err
		ss.state.Results = []weather.GeoCandidate{}
	} else {
		ss.state.Status = cache.StatusResolved
		ss.state.Err = nil
		ss.state.Results = res
	}
	ss.publishLocked()
}

func (ss *Session) snapshotLocked() SessionState {
	st := ss.state
	st.Results = append([]weather.GeoCandidate(nil), ss.state.Results...)
	if st.Results == nil {
		st.Results = []weather.GeoCandidate{}
	}
	return st
}

// publishLocked replaces any undelivered update with the current state.
func (ss *Session) publishLocked() {
	if ss.closed {
		return
	}
	select {
	case <-ss.updates:
	default:
	}
	ss.updates <- ss.snapshotLocked()
}
