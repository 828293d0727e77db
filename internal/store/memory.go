package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/i474232898/weather-widgets/internal/common"
	"github.com/i474232898/weather-widgets/internal/weather"
)

var (
	// ErrNotFound is returned when no widget exists for a given id.
	ErrNotFound = errors.New("widget not found")
	// ErrDuplicateID is returned when adding a widget whose id is already stored.
	ErrDuplicateID = errors.New("widget id already exists")
)

// Persister saves and restores the full widget list. Implementations always
// write the whole list so a reader never sees a partial update.
type Persister interface {
	Load() ([]weather.Widget, error)
	Save(widgets []weather.Widget) error
	Clear() error
}

// MemoryStore is a concurrency-safe, ordered in-memory widget store. When a
// Persister is attached, every mutation is written through to it and rolled
// back in memory if the write fails.
type MemoryStore struct {
	mu sync.RWMutex

	// insertion order is display order
	order []string
	data  map[string]weather.Widget

	persister Persister
	logger    *log.Logger
}

// NewMemoryStore creates a store. If p is non-nil the saved widgets are loaded
// from it; unreadable state is logged and the store starts empty.
func NewMemoryStore(p Persister, logger *log.Logger) *MemoryStore {
	if logger == nil {
		logger = common.DiscardLogger()
	}
	s := &MemoryStore{
		data:      make(map[string]weather.Widget),
		persister: p,
		logger:    logger,
	}

	if p == nil {
		return s
	}

	widgets, err := p.Load()
	if err != nil {
		logger.Error("error loading saved widgets", "err", err)
		return s
	}
	for _, w := range widgets {
		if _, exists := s.data[w.ID]; exists {
			continue
		}
		s.order = append(s.order, w.ID)
		s.data[w.ID] = w
	}
	logger.Debug("widgets restored", "count", len(s.order))
	return s
}

// Add appends a widget.
func (s *MemoryStore) Add(w weather.Widget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[w.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, w.ID)
	}
	s.order = append(s.order, w.ID)
	s.data[w.ID] = w
	if err := s.persistLocked(); err != nil {
		s.order = s.order[:len(s.order)-1]
		delete(s.data, w.ID)
		return err
	}
	return nil
}

// Get returns the widget with the given id.
func (s *MemoryStore) Get(id string) (weather.Widget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.data[id]
	if !ok {
		return weather.Widget{}, ErrNotFound
	}
	return w, nil
}

// List returns all widgets in insertion order.
func (s *MemoryStore) List() []weather.Widget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

// Update applies fn to the current widget with the given id under the write
// lock and stores the result. The id is kept even if fn changes it.
func (s *MemoryStore) Update(id string, fn func(weather.Widget) weather.Widget) (weather.Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.data[id]
	if !ok {
		return weather.Widget{}, ErrNotFound
	}
	next := fn(prev)
	next.ID = id
	s.data[id] = next
	if err := s.persistLocked(); err != nil {
		s.data[id] = prev
		return weather.Widget{}, err
	}
	return next, nil
}

// Delete removes a widget. Removing the last widget clears persisted state.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.data[id]
	if !ok {
		return ErrNotFound
	}
	prevOrder := slices.Clone(s.order)

	delete(s.data, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	if err := s.persistLocked(); err != nil {
		s.data[id] = prev
		s.order = prevOrder
		return err
	}
	return nil
}

func (s *MemoryStore) listLocked() []weather.Widget {
	out := make([]weather.Widget, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.data[id])
	}
	return out
}

func (s *MemoryStore) persistLocked() error {
	if s.persister == nil {
		return nil
	}
	if len(s.order) == 0 {
		if err := s.persister.Clear(); err != nil {
			return fmt.Errorf("clear saved widgets: %w", err)
		}
		return nil
	}
	if err := s.persister.Save(s.listLocked()); err != nil {
		return fmt.Errorf("save widgets: %w", err)
	}
	return nil
}

var _ weather.Store = (*MemoryStore)(nil)
