package host

import (
	"context"
	"sync"

	"cronhelper/internal/recurrence"
)

// ActionFunc runs on every dispatch pass.
type ActionFunc func(ctx context.Context) error

// EventFunc handles a fired occurrence.
type EventFunc func(ctx context.Context, ev Event) error

type hooks struct {
	mu       sync.RWMutex
	dispatch []ActionFunc
	filters  []recurrence.Filter
	events   map[string][]EventFunc
}

func (r *hooks) addDispatch(fn ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatch = append(r.dispatch, fn)
}

func (r *hooks) addFilter(fn recurrence.Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = append(r.filters, fn)
}

func (r *hooks) addEvent(hook string, fn EventFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[string][]EventFunc)
	}
	r.events[hook] = append(r.events[hook], fn)
}

// The getters return copies so handlers may register more hooks while running.

func (r *hooks) dispatchActions() []ActionFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ActionFunc(nil), r.dispatch...)
}

func (r *hooks) scheduleFilters() []recurrence.Filter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]recurrence.Filter(nil), r.filters...)
}

func (r *hooks) eventHandlers(hook string) []EventFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventFunc(nil), r.events[hook]...)
}
