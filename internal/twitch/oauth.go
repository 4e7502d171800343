package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/internal/config"
)

// OAuth runs the authorization-code flow for end users.
type OAuth struct {
	conf       *oauth2.Config
	httpClient *http.Client
	helixURL   string
	logger     *zap.Logger
}

func NewOAuth(cfg config.TwitchConfig, httpClient *http.Client, logger *zap.Logger) *OAuth {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(cfg.AuthBaseURL, "/")
	return &OAuth{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/authorize",
				TokenURL:  base + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		helixURL:   strings.TrimRight(cfg.HelixURL, "/"),
		logger:     logger,
	}
}

// TokenURL is the endpoint shared with the client-credentials grant.
func (o *OAuth) TokenURL() string {
	return o.conf.Endpoint.TokenURL
}

// AuthorizeURL builds the consent URL. Verification is always forced so a user can switch accounts.
func (o *OAuth) AuthorizeURL() string {
	return o.conf.AuthCodeURL("", oauth2.SetAuthURLParam("force_verify", "true"))
}

// ExchangeCode trades an authorization code for user tokens and resolves the identity behind them.
func (o *OAuth) ExchangeCode(ctx context.Context, code string) (domain.ProviderTokens, domain.UserInfo, error) {
	tok, err := o.conf.Exchange(context.WithValue(ctx, oauth2.HTTPClient, o.httpClient), code)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			o.logger.Warn("code exchange rejected", zap.Int("status", rErr.Response.StatusCode), zap.String("error_code", rErr.ErrorCode))
		}
		return domain.ProviderTokens{}, domain.UserInfo{}, domain.Upstream("fail get user token", err)
	}

	tokens := domain.ProviderTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}

	info, err := o.identity(ctx, tok.AccessToken)
	if err != nil {
		return domain.ProviderTokens{}, domain.UserInfo{}, err
	}
	return tokens, info, nil
}

func (o *OAuth) identity(ctx context.Context, accessToken string) (domain.UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.helixURL+"/users", nil)
	if err != nil {
		return domain.UserInfo{}, domain.Internal("fail build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Client-Id", o.conf.ClientID)
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return domain.UserInfo{}, domain.Upstream("fail get user info", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.UserInfo{}, statusError("fail get user info by access token", resp)
	}

	var users usersResponse
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return domain.UserInfo{}, domain.Upstream("fail parse json of response", err)
	}
	if len(users.Data) == 0 {
		return domain.UserInfo{}, domain.ErrUserInfoNotFound
	}
	return users.Data[0].toDomain(), nil
}
