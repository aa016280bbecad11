package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBadCredentials = errors.New("bad credentials")

func authFailure(err error) bool {
	return errors.Is(err, errBadCredentials)
}

func fetcherReturning(value string, calls *atomic.Int32) Fetcher[string] {
	return func(ctx context.Context) (string, error) {
		if calls != nil {
			calls.Add(1)
		}
		return value, nil
	}
}

func TestStore_ColdKey(t *testing.T) {
	t.Run("fetches synchronously exactly once and returns the result", func(t *testing.T) {
		// given
		store := NewStore[string](context.Background(), authFailure, nil)
		var calls atomic.Int32

		// when
		value, err := store.Get(context.Background(), "k", fetcherReturning("A", &calls), true)

		// then
		assert.NoError(t, err)
		assert.Equal(t, "A", value)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("propagates the fetch error", func(t *testing.T) {
		store := NewStore[string](context.Background(), authFailure, nil)

		_, err := store.Get(context.Background(), "k", func(ctx context.Context) (string, error) {
			return "", fmt.Errorf("upstream down")
		}, true)

		assert.EqualError(t, err, "upstream down")
		_, ok := store.Peek("k")
		assert.False(t, ok)
	})

	t.Run("concurrent misses on the same key are coalesced", func(t *testing.T) {
		store := NewStore[string](context.Background(), authFailure, nil)
		var calls atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})
		slowFetch := func(ctx context.Context) (string, error) {
			calls.Add(1)
			close(started)
			<-release
			return "A", nil
		}

		var wg sync.WaitGroup
		wg.Add(2)
		results := make([]string, 2)
		go func() {
			defer wg.Done()
			results[0], _ = store.Get(context.Background(), "k", slowFetch, false)
		}()
		<-started
		go func() {
			defer wg.Done()
			results[1], _ = store.Get(context.Background(), "k", fetcherReturning("B", &calls), false)
		}()
		// give the second Get a moment to join the in-flight call
		time.Sleep(10 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, []string{"A", "A"}, results)
	})
}

func TestStore_WarmKey(t *testing.T) {
	t.Run("returns the stale value and refreshes in the background", func(t *testing.T) {
		// given
		store := NewStore[string](context.Background(), authFailure, nil)
		_, err := store.Get(context.Background(), "k", fetcherReturning("A", nil), true)
		assert.NoError(t, err)

		// when
		value, err := store.Get(context.Background(), "k", fetcherReturning("B", nil), true)

		// then: the second call returns the cached value synchronously
		assert.NoError(t, err)
		assert.Equal(t, "A", value)

		// and the stored value reflects the refresh once it settles
		assert.Eventually(t, func() bool {
			v, ok := store.Peek("k")
			return ok && v == "B"
		}, time.Second, 5*time.Millisecond)

		value, err = store.Get(context.Background(), "k", fetcherReturning("C", nil), false)
		assert.NoError(t, err)
		assert.Equal(t, "B", value)
	})

	t.Run("does not revalidate when not asked to", func(t *testing.T) {
		store := NewStore[string](context.Background(), authFailure, nil)
		var calls atomic.Int32
		_, err := store.Get(context.Background(), "k", fetcherReturning("A", &calls), false)
		assert.NoError(t, err)

		value, err := store.Get(context.Background(), "k", fetcherReturning("B", &calls), false)

		assert.NoError(t, err)
		assert.Equal(t, "A", value)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("background fetch errors are swallowed", func(t *testing.T) {
		store := NewStore[string](context.Background(), authFailure, nil)
		_, err := store.Get(context.Background(), "k", fetcherReturning("A", nil), true)
		assert.NoError(t, err)

		failed := make(chan struct{})
		value, err := store.Get(context.Background(), "k", func(ctx context.Context) (string, error) {
			defer close(failed)
			return "", fmt.Errorf("upstream down")
		}, true)
		assert.NoError(t, err)
		assert.Equal(t, "A", value)

		<-failed
		// the stored value survives the failed refresh
		v, ok := store.Peek("k")
		assert.True(t, ok)
		assert.Equal(t, "A", v)
	})
}

func TestStore_AuthFailureEviction(t *testing.T) {
	// given a warm store with two keys
	var evicted atomic.Int32
	store := NewStore[string](context.Background(), authFailure, func() {
		evicted.Add(1)
	})
	_, err := store.Get(context.Background(), "k1", fetcherReturning("A", nil), false)
	assert.NoError(t, err)
	_, err = store.Get(context.Background(), "k2", fetcherReturning("B", nil), false)
	assert.NoError(t, err)

	// when a background refresh observes rejected credentials
	_, err = store.Get(context.Background(), "k1", func(ctx context.Context) (string, error) {
		return "", fmt.Errorf("troi: %w", errBadCredentials)
	}, true)
	assert.NoError(t, err)

	// then the whole store is evicted, not just the refreshed key
	assert.Eventually(t, func() bool {
		return evicted.Load() == 1
	}, time.Second, 5*time.Millisecond)
	_, ok := store.Peek("k1")
	assert.False(t, ok)
	_, ok = store.Peek("k2")
	assert.False(t, ok)
}

func TestStore_ShutdownStopsRefreshes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewStore[string](ctx, authFailure, nil)
	_, err := store.Get(context.Background(), "k", fetcherReturning("A", nil), false)
	assert.NoError(t, err)

	cancel()
	var calls atomic.Int32
	value, err := store.Get(context.Background(), "k", fetcherReturning("B", &calls), true)

	assert.NoError(t, err)
	assert.Equal(t, "A", value)
	// no refresh runs after shutdown
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	v, _ := store.Peek("k")
	assert.Equal(t, "A", v)
}
