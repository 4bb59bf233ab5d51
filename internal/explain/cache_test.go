package explain

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/coalesce/internal/api"
	"github.com/joshsymonds/coalesce/internal/model"
)

// mockFetcher is a test implementation of Fetcher that counts calls and
// can block until released.
type mockFetcher struct {
	explanation *model.Explanation
	err         error
	gate        chan struct{}
	calls       atomic.Int64
}

func (f *mockFetcher) GetExplanation(_ context.Context, _ int64) (*model.Explanation, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.explanation, nil
}

func TestCacheStates(t *testing.T) {
	t.Run("starts idle and hidden", func(t *testing.T) {
		cache := NewCache(42, &mockFetcher{})
		assert.Equal(t, StateIdle, cache.State())
		assert.False(t, cache.Visible())
		assert.Empty(t, cache.Text())
	})

	t.Run("loads explanation text", func(t *testing.T) {
		fetcher := &mockFetcher{explanation: &model.Explanation{LLMRationale: "recurring vendor"}}
		cache := NewCache(42, fetcher)

		cache.EnsureFetched(context.Background())

		assert.Equal(t, StateLoaded, cache.State())
		assert.Equal(t, "recurring vendor", cache.Text())
	})

	t.Run("text field priority", func(t *testing.T) {
		fetcher := &mockFetcher{explanation: &model.Explanation{
			Rationale: "plain rationale",
			Reply:     "fallback reply",
		}}
		cache := NewCache(42, fetcher)

		cache.EnsureFetched(context.Background())

		assert.Equal(t, "plain rationale", cache.Text())
	})

	t.Run("empty response uses fallback text", func(t *testing.T) {
		fetcher := &mockFetcher{explanation: &model.Explanation{}}
		cache := NewCache(42, fetcher)

		cache.EnsureFetched(context.Background())

		assert.Equal(t, StateLoaded, cache.State())
		assert.Equal(t, TextNoExplanation, cache.Text())
	})
}

func TestCacheFailureClassification(t *testing.T) {
	t.Run("404 means unavailable, not error", func(t *testing.T) {
		fetcher := &mockFetcher{err: &api.Error{Status: 404}}
		cache := NewCache(42, fetcher)

		cache.EnsureFetched(context.Background())

		assert.Equal(t, StateUnavailable, cache.State())
		assert.Equal(t, TextUnavailable, cache.Text())
	})

	t.Run("404 in the error string also means unavailable", func(t *testing.T) {
		fetcher := &mockFetcher{err: errors.New("upstream said 404 not found")}
		cache := NewCache(42, fetcher)

		cache.EnsureFetched(context.Background())

		assert.Equal(t, StateUnavailable, cache.State())
	})

	t.Run("500 is a generic error", func(t *testing.T) {
		fetcher := &mockFetcher{err: &api.Error{Status: 500, Message: "internal"}}
		cache := NewCache(42, fetcher)

		cache.EnsureFetched(context.Background())

		assert.Equal(t, StateError, cache.State())
		assert.Equal(t, TextLoadFailed, cache.Text())
		assert.Equal(t, int64(1), fetcher.calls.Load(), "must not retry automatically")
	})
}

func TestCacheSingleFlight(t *testing.T) {
	t.Run("concurrent fetches collapse to one call", func(t *testing.T) {
		gate := make(chan struct{})
		fetcher := &mockFetcher{
			explanation: &model.Explanation{Reply: "hi"},
			gate:        gate,
		}
		cache := NewCache(42, fetcher)

		var wg sync.WaitGroup
		for range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				cache.EnsureFetched(context.Background())
			}()
		}

		// All three callers have either won the fetch or bailed out.
		require.Eventually(t, func() bool {
			return cache.State() == StateLoading
		}, 2*time.Second, 5*time.Millisecond)

		close(gate)
		wg.Wait()

		assert.Equal(t, int64(1), fetcher.calls.Load())
		assert.Equal(t, StateLoaded, cache.State())
	})

	t.Run("toggling does not refetch once loaded", func(t *testing.T) {
		fetcher := &mockFetcher{explanation: &model.Explanation{Reply: "hi"}}
		cache := NewCache(42, fetcher)

		for range 3 {
			if cache.ToggleVisible() {
				cache.EnsureFetched(context.Background())
			}
		}

		assert.Equal(t, int64(1), fetcher.calls.Load())
	})

	t.Run("unavailable is terminal", func(t *testing.T) {
		fetcher := &mockFetcher{err: &api.Error{Status: 404}}
		cache := NewCache(42, fetcher)

		cache.EnsureFetched(context.Background())
		cache.EnsureFetched(context.Background())

		assert.Equal(t, int64(1), fetcher.calls.Load())
		assert.Equal(t, StateUnavailable, cache.State())
	})

	t.Run("error permits a later user-initiated refetch", func(t *testing.T) {
		fetcher := &mockFetcher{err: &api.Error{Status: 500}}
		cache := NewCache(42, fetcher)

		cache.EnsureFetched(context.Background())
		assert.Equal(t, StateError, cache.State())

		fetcher.err = nil
		fetcher.explanation = &model.Explanation{Reply: "recovered"}
		cache.EnsureFetched(context.Background())

		assert.Equal(t, StateLoaded, cache.State())
		assert.Equal(t, "recovered", cache.Text())
		assert.Equal(t, int64(2), fetcher.calls.Load())
	})
}

// mockStore records persisted explanation texts.
type mockStore struct {
	saved map[int64]string
	mu    sync.Mutex
}

func (s *mockStore) SaveExplanation(_ context.Context, id int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[int64]string)
	}
	s.saved[id] = text
	return nil
}

func TestCachePersistsLoadedText(t *testing.T) {
	store := &mockStore{}
	fetcher := &mockFetcher{explanation: &model.Explanation{LLMRationale: "seen before"}}
	cache := NewCache(42, fetcher, WithStore(store))

	cache.EnsureFetched(context.Background())

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "seen before", store.saved[42])
}
