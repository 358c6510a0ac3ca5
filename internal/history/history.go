// Package history provides a bounded undo stack around a current value.
package history

import (
	"sync"
	"time"
)

// DefaultLimit is the number of snapshots kept when WithLimit is not used.
const DefaultLimit = 10

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithLimit bounds the number of retained snapshots.
func WithLimit[T any](n int) Option[T] {
	return func(s *Store[T]) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithSerialize sets the function applied to the current value before it is
// pushed onto the history.
func WithSerialize[T any](fn func(T) T) Option[T] {
	return func(s *Store[T]) { s.serialize = fn }
}

// WithDeserialize sets the function applied to a snapshot when it is
// restored.
func WithDeserialize[T any](fn func(T) T) Option[T] {
	return func(s *Store[T]) { s.deserialize = fn }
}

// WithRelease registers a hook called with values leaving the store and the
// values that remain reachable.
func WithRelease[T any](fn func(remove, keep []T)) Option[T] {
	return func(s *Store[T]) { s.release = fn }
}

// WithDebounce coalesces snapshots taken less than d after the previous one
// into that earlier snapshot. Zero disables coalescing.
func WithDebounce[T any](d time.Duration) Option[T] {
	return func(s *Store[T]) { s.debounce = d }
}

// WithClock replaces time.Now.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(s *Store[T]) { s.now = now }
}

// Store holds a current value and the snapshots that undo restores.
type Store[T any] struct {
	mu          sync.Mutex
	current     T
	history     []T
	limit       int
	serialize   func(T) T
	deserialize func(T) T
	release     func(remove, keep []T)
	debounce    time.Duration
	now         func() time.Time
	last        time.Time

	listeners        map[int]func(T)
	historyListeners map[int]func([]T)
	nextID           int
}

// New returns a store holding initial.
func New[T any](initial T, opts ...Option[T]) *Store[T] {
	identity := func(v T) T { return v }
	s := &Store[T]{
		current:          initial,
		limit:            DefaultLimit,
		serialize:        identity,
		deserialize:      identity,
		now:              time.Now,
		listeners:        map[int]func(T){},
		historyListeners: map[int]func([]T){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the current value.
func (s *Store[T]) Current() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Len returns the number of snapshots available to Undo.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// History returns a copy of the retained snapshots, oldest first.
func (s *Store[T]) History() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.history...)
}

// Snapshot pushes the serialized current value. Snapshots beyond the limit
// are evicted oldest first and handed to the release hook.
func (s *Store[T]) Snapshot() {
	s.mu.Lock()
	now := s.now()
	if s.debounce > 0 && len(s.history) > 0 && now.Sub(s.last) < s.debounce {
		s.last = now
		s.mu.Unlock()
		return
	}
	s.last = now
	s.history = append(s.history, s.serialize(s.current))
	var evicted []T
	if n := len(s.history) - s.limit; n > 0 {
		evicted = append(evicted, s.history[:n]...)
		s.history = append([]T(nil), s.history[n:]...)
	}
	keep := s.reachable()
	hist := append([]T(nil), s.history...)
	s.mu.Unlock()

	if len(evicted) > 0 && s.release != nil {
		s.release(evicted, keep)
	}
	s.notifyHistory(hist)
}

// Undo restores the most recent snapshot. It reports false when there is
// nothing to undo.
func (s *Store[T]) Undo() bool {
	s.mu.Lock()
	if len(s.history) == 0 {
		s.mu.Unlock()
		return false
	}
	last := len(s.history) - 1
	prev := s.current
	s.current = s.deserialize(s.history[last])
	s.history = s.history[:last]
	s.last = time.Time{}
	current := s.current
	keep := s.reachable()
	hist := append([]T(nil), s.history...)
	s.mu.Unlock()

	if s.release != nil {
		s.release([]T{prev}, keep)
	}
	s.notify(current)
	s.notifyHistory(hist)
	return true
}

// Set replaces the current value without touching the history. The replaced
// value is offered to the release hook.
func (s *Store[T]) Set(v T) {
	s.mu.Lock()
	prev := s.current
	s.current = v
	keep := s.reachable()
	s.mu.Unlock()

	if s.release != nil {
		s.release([]T{prev}, keep)
	}
	s.notify(v)
}

// Reset clears the history and installs v.
func (s *Store[T]) Reset(v T) {
	s.mu.Lock()
	removed := append(append([]T(nil), s.history...), s.current)
	s.history = nil
	s.current = v
	s.last = time.Time{}
	s.mu.Unlock()

	if s.release != nil {
		s.release(removed, []T{v})
	}
	s.notify(v)
	s.notifyHistory(nil)
}

// Subscribe registers fn to receive the current value after every change.
// fn is called once immediately.
func (s *Store[T]) Subscribe(fn func(T)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(current)
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SubscribeHistory registers fn to receive the snapshot list after every
// change to it. fn is called once immediately.
func (s *Store[T]) SubscribeHistory(fn func([]T)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.historyListeners[id] = fn
	hist := append([]T(nil), s.history...)
	s.mu.Unlock()

	fn(hist)
	return func() {
		s.mu.Lock()
		delete(s.historyListeners, id)
		s.mu.Unlock()
	}
}

// reachable returns the retained history plus the current value. Callers
// hold s.mu.
func (s *Store[T]) reachable() []T {
	out := make([]T, 0, len(s.history)+1)
	out = append(out, s.history...)
	return append(out, s.current)
}

func (s *Store[T]) notify(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.listeners))
	for _, id := range sortedIDs(s.listeners) {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (s *Store[T]) notifyHistory(hist []T) {
	s.mu.Lock()
	fns := make([]func([]T), 0, len(s.historyListeners))
	for _, id := range sortedIDs(s.historyListeners) {
		fns = append(fns, s.historyListeners[id])
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(hist)
	}
}
