package cache

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads a fresh value from the upstream source.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Store is a stale-while-revalidate cache fronting one upstream data source
// for one session. A hit is returned immediately and, when requested, a
// background refresh is scheduled for future reads. A miss fetches
// synchronously and fails fast.
//
// Concurrent fetches for the same key are coalesced through singleflight,
// so a second cold miss joins the in-flight fetch instead of racing it, and
// repeated warm hits schedule at most one refresh at a time.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
	group   singleflight.Group

	// baseCtx bounds background refreshes; cancelled on shutdown.
	baseCtx context.Context

	// isAuthFailure classifies an upstream error as a credential rejection.
	isAuthFailure func(error) bool
	// onAuthFailure is invoked after the store evicted itself because a
	// background refresh observed an authentication failure. The owner uses
	// it to drop the rest of the session state.
	onAuthFailure func()
}

func NewStore[T any](ctx context.Context, isAuthFailure func(error) bool, onAuthFailure func()) *Store[T] {
	if isAuthFailure == nil {
		isAuthFailure = func(error) bool { return false }
	}
	if onAuthFailure == nil {
		onAuthFailure = func() {}
	}
	return &Store[T]{
		entries:       make(map[string]T),
		baseCtx:       ctx,
		isAuthFailure: isAuthFailure,
		onAuthFailure: onAuthFailure,
	}
}

// Get returns the value for key. On a cold key the fetcher runs
// synchronously and its error propagates to the caller. On a warm key the
// cached value is returned without blocking; if revalidate is set, the
// fetcher is additionally scheduled in the background to refresh the stored
// value for future reads.
func (s *Store[T]) Get(ctx context.Context, key string, fetch Fetcher[T], revalidate bool) (T, error) {
	s.mu.RLock()
	value, ok := s.entries[key]
	s.mu.RUnlock()

	if ok {
		if revalidate {
			go s.refresh(key, fetch)
		}
		return value, nil
	}

	fetched, err, _ := s.group.Do(key, func() (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}

	value = fetched.(T)
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
	return value, nil
}

// refresh runs the fetcher in the background. Success overwrites the stored
// value. An authentication failure evicts the whole store and notifies the
// owner; any other error is logged and dropped, the original caller already
// has a response.
func (s *Store[T]) refresh(key string, fetch Fetcher[T]) {
	if s.baseCtx.Err() != nil {
		return
	}

	fetched, err, _ := s.group.Do(key, func() (any, error) {
		return fetch(s.baseCtx)
	})
	if err != nil {
		if s.isAuthFailure(err) {
			log.Warnf("background refresh of %q rejected credentials, evicting session cache", key)
			s.Invalidate()
			s.onAuthFailure()
			return
		}
		log.Errorf("background refresh of %q failed: %v", key, err)
		return
	}

	s.mu.Lock()
	s.entries[key] = fetched.(T)
	s.mu.Unlock()
}

// Invalidate drops every cached value.
func (s *Store[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]T)
}

// Peek returns the cached value for key without fetching or revalidating.
func (s *Store[T]) Peek(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[key]
	return value, ok
}
