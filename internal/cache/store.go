package cache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value for a key from the remote source.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Store is the client-side query cache. It is the only shared mutable
// resource in the client: reads go through Get, writes to server state go
// through the feature services, which invalidate the affected keys here.
// All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
}

type entry struct {
	value   interface{}
	fresh   bool
	version uint64
}

// NewStore creates an empty query cache.
func NewStore() *Store {
	return &Store{entries: make(map[Key]*entry)}
}

// Get returns the cached value for key if it is fresh, otherwise fetches it.
// Concurrent Gets for the same key share a single fetch.
func (s *Store) Get(ctx context.Context, key Key, fetch FetchFunc) (interface{}, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok && e.fresh {
		value := e.value
		s.mu.Unlock()
		return value, nil
	}
	var version uint64
	if ok {
		version = e.version
	}
	s.mu.Unlock()

	value, err, _ := s.group.Do(string(key), func() (interface{}, error) {
		// Another waiter may have completed the fetch while we queued.
		s.mu.Lock()
		if e, ok := s.entries[key]; ok && e.fresh {
			value := e.value
			s.mu.Unlock()
			return value, nil
		}
		s.mu.Unlock()

		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.store(key, value, version)
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Refetch bypasses any cached value and reloads key from the remote source.
// Used by the manual reload affordance and by post-mutation refreshes.
func (s *Store) Refetch(ctx context.Context, key Key, fetch FetchFunc) (interface{}, error) {
	s.Invalidate(key)
	return s.Get(ctx, key, fetch)
}

// Invalidate marks the given keys stale so the next read goes to the remote
// source. Unknown keys are recorded as stale so a later Get still fetches.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if e, ok := s.entries[key]; ok {
			e.fresh = false
			e.version++
		} else {
			s.entries[key] = &entry{version: 1}
		}
	}
}

// InvalidateAll marks every cached entry stale.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.fresh = false
		e.version++
	}
}

// Clear drops all cached data. Called on logout; nothing read for one session
// may leak into the next.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[Key]*entry)
}

// Peek returns the cached value for key without fetching, fresh or not.
// Views use it to keep showing the last known data while a refresh runs.
func (s *Store) Peek(key Key) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.value == nil {
		return nil, false
	}
	return e.value, true
}

// store records a fetched value. If the key was invalidated while the fetch
// was in flight the value is kept but left stale, so the next read fetches
// again instead of trusting a racing result.
func (s *Store) store(key Key, value interface{}, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		s.entries[key] = &entry{value: value, fresh: true}
		return
	}
	e.value = value
	e.fresh = e.version == version
}

// Fetch is a typed wrapper around Store.Get. A cached value of the wrong
// type means two callers share a key; that is a bug worth hearing about, not
// an empty view.
func Fetch[T any](ctx context.Context, s *Store, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	value, err := s.Get(ctx, key, func(ctx context.Context) (interface{}, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("cache: value for %q is %T, want %T", key, value, zero)
	}
	return typed, nil
}
