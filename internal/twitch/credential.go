package twitch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/fastygo/overlay/domain"
)

const (
	// staleMargin treats a credential as stale shortly before it actually expires.
	staleMargin = time.Minute
	defaultTTL  = time.Hour
)

var errEmptyAppToken = errors.New("empty app access token")

// CredentialFetcher obtains a fresh application credential.
type CredentialFetcher interface {
	FetchAppToken(ctx context.Context) (token string, ttl time.Duration, err error)
}

// ClientCredentialsFetcher runs the OAuth client-credentials grant against the token endpoint.
type ClientCredentialsFetcher struct {
	conf       *clientcredentials.Config
	httpClient *http.Client
	now        func() time.Time
}

func NewClientCredentialsFetcher(clientID, clientSecret, tokenURL string, httpClient *http.Client) *ClientCredentialsFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ClientCredentialsFetcher{
		conf: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (f *ClientCredentialsFetcher) FetchAppToken(ctx context.Context) (string, time.Duration, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)

	tok, err := f.conf.Token(ctx)
	if err != nil {
		return "", 0, err
	}

	ttl := defaultTTL
	if !tok.Expiry.IsZero() {
		ttl = tok.Expiry.Sub(f.now())
	}
	return tok.AccessToken, ttl, nil
}

// CredentialCache shares one application credential across all requests.
// Reads take the read lock only; a refresh fetches without holding any lock and
// then swaps the value under the write lock. Concurrent refreshes of a stale
// credential may each fetch, the last one stored wins.
type CredentialCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	fetcher CredentialFetcher
	now     func() time.Time
	logger  *zap.Logger
}

// CacheOption configures a CredentialCache.
type CacheOption func(*CredentialCache)

// WithCacheClock replaces time.Now.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *CredentialCache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCredentialCache(fetcher CredentialFetcher, logger *zap.Logger, opts ...CacheOption) *CredentialCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CredentialCache{
		fetcher: fetcher,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached credential, fetching a new one when absent or stale.
func (c *CredentialCache) Get(ctx context.Context) (string, error) {
	c.mu.RLock()
	token, expiresAt := c.token, c.expiresAt
	c.mu.RUnlock()

	if token != "" && c.now().Before(expiresAt.Add(-staleMargin)) {
		return token, nil
	}
	return c.ForceRefresh(ctx)
}

// ForceRefresh fetches and stores a new credential regardless of the cached one.
// On failure the cache is left untouched.
func (c *CredentialCache) ForceRefresh(ctx context.Context) (string, error) {
	token, ttl, err := c.fetcher.FetchAppToken(ctx)
	if err == nil && token == "" {
		err = errEmptyAppToken
	}
	if err != nil {
		c.logger.Error("fail get app access token", zap.Error(err))
		return "", domain.Upstream("fail get app access token", err)
	}

	expiresAt := c.now().Add(ttl)

	c.mu.Lock()
	c.token = token
	c.expiresAt = expiresAt
	c.mu.Unlock()

	c.logger.Debug("app access token refreshed", zap.Time("expires_at", expiresAt))
	return token, nil
}
