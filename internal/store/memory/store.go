// Package memory provides an in-process host.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cronhelper/internal/host"
	"cronhelper/internal/shared"
)

// Store keeps occurrences in a map. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	events map[string]host.Event // by ID
	byKey  map[string]string     // hook+key -> ID
}

var _ host.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		events: make(map[string]host.Event),
		byKey:  make(map[string]string),
	}
}

func compositeKey(hook, key string) string {
	return hook + "\x00" + key
}

// Pending implements host.Store.
func (s *Store) Pending(_ context.Context, hook, key string) (host.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[compositeKey(hook, key)]
	if !ok {
		return host.Event{}, fmt.Errorf("%w: event %s", shared.ErrNotFound, hook)
	}
	return s.events[id], nil
}

// Insert implements host.Store.
func (s *Store) Insert(_ context.Context, ev host.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ck := compositeKey(ev.Hook, ev.Key)
	if _, exists := s.byKey[ck]; exists {
		return fmt.Errorf("%w: event %s already pending", shared.ErrConflict, ev.Hook)
	}
	s.events[ev.ID] = ev
	s.byKey[ck] = ev.ID
	return nil
}

// Due implements host.Store.
func (s *Store) Due(_ context.Context, now time.Time, limit int) ([]host.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []host.Event
	for _, ev := range s.events {
		if !ev.Timestamp.After(now) {
			due = append(due, ev)
		}
	}
	sortEvents(due)
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// Reschedule implements host.Store.
func (s *Store) Reschedule(_ context.Context, id string, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return fmt.Errorf("%w: event id %s", shared.ErrNotFound, id)
	}
	ev.Timestamp = next
	s.events[id] = ev
	return nil
}

// Delete implements host.Store.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return fmt.Errorf("%w: event id %s", shared.ErrNotFound, id)
	}
	delete(s.events, id)
	delete(s.byKey, compositeKey(ev.Hook, ev.Key))
	return nil
}

// List implements host.Store.
func (s *Store) List(_ context.Context) ([]host.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]host.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sortEvents(out)
	return out, nil
}

func sortEvents(events []host.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Hook < events[j].Hook
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}
