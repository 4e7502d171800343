package twitch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/overlay/domain"
)

type fakeFetcher struct {
	calls atomic.Int32
	ttl   time.Duration
	fail  atomic.Bool
	delay time.Duration
}

func (f *fakeFetcher) FetchAppToken(ctx context.Context) (string, time.Duration, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail.Load() {
		return "", 0, errors.New("token endpoint down")
	}
	return fmt.Sprintf("tok-%d", n), f.ttl, nil
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func TestCredentialCacheFreshness(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	clock := &manualClock{now: t0}
	fetcher := &fakeFetcher{ttl: 3600 * time.Second}
	cache := NewCredentialCache(fetcher, nil, WithCacheClock(clock.Now))
	ctx := context.Background()

	first, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", first)

	clock.Set(t0.Add(1000 * time.Second))
	again, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", again)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	clock.Set(t0.Add(3600*time.Second - 59*time.Second))
	refreshed, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", refreshed)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestCredentialCacheForceRefreshIsUnconditional(t *testing.T) {
	fetcher := &fakeFetcher{ttl: time.Hour}
	cache := NewCredentialCache(fetcher, nil)
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.NoError(t, err)

	forced, err := cache.ForceRefresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", forced)

	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", cached)
}

func TestCredentialCacheFetchFailureKeepsPreviousValue(t *testing.T) {
	fetcher := &fakeFetcher{ttl: time.Hour}
	cache := NewCredentialCache(fetcher, nil)
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.NoError(t, err)

	fetcher.fail.Store(true)
	_, err = cache.ForceRefresh(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUpstream))

	cached, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", cached)
}

func TestCredentialCacheInitialFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{ttl: time.Hour}
	fetcher.fail.Store(true)
	cache := NewCredentialCache(fetcher, nil)

	_, err := cache.Get(context.Background())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUpstream))
}

func TestCredentialCacheConcurrentGet(t *testing.T) {
	fetcher := &fakeFetcher{ttl: time.Hour, delay: 5 * time.Millisecond}
	cache := NewCredentialCache(fetcher, nil)

	const workers = 32
	var (
		wg      sync.WaitGroup
		results = make([]string, workers)
		errs    = make([]error, workers)
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Get(context.Background())
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := range results {
		require.NoError(t, errs[i])
		assert.NotEmpty(t, results[i])
		seen[results[i]] = true
	}

	final, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, seen[final], "cached value must be one that was handed out")
	assert.LessOrEqual(t, fetcher.calls.Load(), int32(workers))
}

func TestClientCredentialsFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"app-token","expires_in":3600,"token_type":"bearer"}`))
	}))
	defer srv.Close()

	fetcher := NewClientCredentialsFetcher("client-id", "client-secret", srv.URL, srv.Client())
	token, ttl, err := fetcher.FetchAppToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "app-token", token)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)
}

func TestClientCredentialsFetcherRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":400,"message":"invalid client secret"}`))
	}))
	defer srv.Close()

	cache := NewCredentialCache(NewClientCredentialsFetcher("id", "bad", srv.URL, srv.Client()), nil)
	_, err := cache.Get(context.Background())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUpstream))
}
