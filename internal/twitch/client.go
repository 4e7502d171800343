// Package twitch talks to the streaming platform: OAuth code exchange, the shared
// application credential and the Helix chat endpoints.
package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/internal/config"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBody       = 512
)

// NewHTTPClient returns the outbound client shared by the OAuth and Helix calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Client calls Helix with the shared application credential.
type Client struct {
	httpClient  *http.Client
	helixURL    string
	clientID    string
	credentials *CredentialCache
	logger      *zap.Logger
}

func NewClient(cfg config.TwitchConfig, credentials *CredentialCache, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient:  httpClient,
		helixURL:    strings.TrimRight(cfg.HelixURL, "/"),
		clientID:    cfg.ClientID,
		credentials: credentials,
		logger:      logger,
	}
}

// GetUserInfo looks a user up by login.
func (c *Client) GetUserInfo(ctx context.Context, login string) (domain.UserInfo, error) {
	var resp usersResponse
	if err := c.getJSON(ctx, "/users", url.Values{"login": {login}}, &resp); err != nil {
		return domain.UserInfo{}, err
	}
	if len(resp.Data) == 0 {
		return domain.UserInfo{}, domain.ErrUserInfoNotFound
	}
	return resp.Data[0].toDomain(), nil
}

func (c *Client) GetGlobalEmotes(ctx context.Context) ([]domain.Emote, error) {
	return c.emotes(ctx, "/chat/emotes/global", nil)
}

func (c *Client) GetChannelEmotes(ctx context.Context, channelID string) ([]domain.Emote, error) {
	return c.emotes(ctx, "/chat/emotes", url.Values{"broadcaster_id": {channelID}})
}

func (c *Client) GetGlobalBadges(ctx context.Context) ([]domain.Badge, error) {
	return c.badges(ctx, "/chat/badges/global", nil)
}

func (c *Client) GetChannelBadges(ctx context.Context, channelID string) ([]domain.Badge, error) {
	return c.badges(ctx, "/chat/badges", url.Values{"broadcaster_id": {channelID}})
}

func (c *Client) emotes(ctx context.Context, path string, query url.Values) ([]domain.Emote, error) {
	var resp emotesResponse
	if err := c.getJSON(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (c *Client) badges(ctx context.Context, path string, query url.Values) ([]domain.Badge, error) {
	var resp badgesResponse
	if err := c.getJSON(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.helixURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := c.doWithRetryOnUnauthorized(ctx, func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Client-Id", c.clientID)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(fmt.Sprintf("fail request %s", path), resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.Upstream("fail parse json of response", err)
	}
	return nil
}

// doWithRetryOnUnauthorized sends the request built for the cached credential.
// A 401 forces one credential refresh and one retry with a freshly built request;
// a second 401 is reported as an upstream failure. The caller closes the body.
func (c *Client) doWithRetryOnUnauthorized(ctx context.Context, build func(token string) (*http.Request, error)) (*http.Response, error) {
	token, err := c.credentials.Get(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(build, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	discard(resp)

	c.logger.Info("helix rejected app token, refreshing")
	token, err = c.credentials.ForceRefresh(ctx)
	if err != nil {
		return nil, err
	}

	resp, err = c.send(build, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		defer discard(resp)
		return nil, statusError("unauthorized after credential refresh", resp)
	}
	return resp, nil
}

func (c *Client) send(build func(token string) (*http.Request, error), token string) (*http.Response, error) {
	req, err := build(token)
	if err != nil {
		return nil, domain.Internal("fail build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.Upstream("fail send request", err)
	}
	return resp, nil
}

func statusError(message string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return domain.Upstream(message, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
