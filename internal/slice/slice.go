// Package slice persists independently named pieces of application state.
//
// A Slice never returns an error to its caller. Unreadable contents are
// treated as absent and failed writes are logged and dropped, so callers can
// always render something.
package slice

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/myassistant/internal/storage"
)

// KeyPrefix namespaces every slice key in the backend.
const KeyPrefix = "myassistant_"

// Backend is the durable key-value store behind slices.
// Implemented by storage.Store.
type Backend interface {
	GetSlice(key string) (string, error)
	SetSlice(key, value string) error
	DeleteSlice(key string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Updater produces the next value from the previous one. It must not
// mutate prev.
type Updater[T any] func(prev T) T

// Replace returns an Updater that ignores the previous value.
func Replace[T any](v T) Updater[T] {
	return func(T) T { return v }
}

// Slice is one named value with a default.
type Slice[T any] struct {
	backend  Backend
	name     string
	defaults func() T
	clock    Clock

	mu        sync.Mutex
	lastSaved time.Time
}

// New binds name to backend. defaults is called for every read that finds
// nothing usable, so it must return a fresh value each time.
func New[T any](backend Backend, name string, defaults func() T) *Slice[T] {
	return &Slice[T]{backend: backend, name: name, defaults: defaults, clock: realClock{}}
}

// NewWithClock is New with a custom clock (for testing).
func NewWithClock[T any](backend Backend, name string, defaults func() T, clock Clock) *Slice[T] {
	s := New(backend, name, defaults)
	s.clock = clock
	return s
}

func (s *Slice[T]) Name() string { return s.name }

// Key is the backend key, including KeyPrefix.
func (s *Slice[T]) Key() string { return KeyPrefix + s.name }

// Read returns the stored value, or the default when nothing is stored or the
// stored contents cannot be decoded.
func (s *Slice[T]) Read() T {
	raw, err := s.backend.GetSlice(s.Key())
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("reading slice failed, using default", "key", s.Key(), "error", err)
		}
		return s.defaults()
	}
	if raw == "" || raw == "null" {
		return s.defaults()
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		slog.Warn("malformed slice, using default", "key", s.Key(), "error", err)
		return s.defaults()
	}
	return v
}

// Write persists v and reports whether it landed. Failures are logged, not
// returned.
func (s *Slice[T]) Write(v T) bool {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Warn("serializing slice failed, write dropped", "key", s.Key(), "error", err)
		return false
	}
	if err := s.backend.SetSlice(s.Key(), string(b)); err != nil {
		slog.Warn("saving slice failed, write dropped", "key", s.Key(), "error", err)
		return false
	}

	s.mu.Lock()
	s.lastSaved = s.clock.Now()
	s.mu.Unlock()
	return true
}

// Update applies fn to the current value, persists the result and returns it.
func (s *Slice[T]) Update(fn Updater[T]) (T, bool) {
	next := fn(s.Read())
	return next, s.Write(next)
}

// Delete removes the stored value; the next Read returns the default.
func (s *Slice[T]) Delete() bool {
	if err := s.backend.DeleteSlice(s.Key()); err != nil {
		slog.Warn("deleting slice failed", "key", s.Key(), "error", err)
		return false
	}
	s.mu.Lock()
	s.lastSaved = time.Time{}
	s.mu.Unlock()
	return true
}

// LastSaved is the time of the last successful write in this process, or the
// zero time.
func (s *Slice[T]) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}
