package twitch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/internal/config"
)

func newHelixForTest(t *testing.T, handler http.HandlerFunc) (*Client, *fakeFetcher, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "client-id", r.Header.Get("Client-Id"))
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	fetcher := &fakeFetcher{ttl: time.Hour}
	cfg := config.TwitchConfig{ClientID: "client-id", HelixURL: srv.URL}
	client := NewClient(cfg, NewCredentialCache(fetcher, nil), srv.Client(), nil)
	return client, fetcher, &hits
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClientRetriesOnceAfterUnauthorized(t *testing.T) {
	client, fetcher, hits := newHelixForTest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-2" {
			writeJSON(w, http.StatusUnauthorized, `{"error":"Unauthorized"}`)
			return
		}
		assert.Equal(t, "foo", r.URL.Query().Get("login"))
		writeJSON(w, http.StatusOK, `{"data":[{"id":"42","login":"foo","display_name":"Foo"}]}`)
	})

	info, err := client.GetUserInfo(context.Background(), "foo")
	require.NoError(t, err)
	assert.Equal(t, domain.UserInfo{ID: "42", Login: "foo", DisplayName: "Foo"}, info)
	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, int32(2), hits.Load())
}

func TestClientSecondUnauthorizedIsUpstream(t *testing.T) {
	client, fetcher, hits := newHelixForTest(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"Unauthorized"}`)
	})

	_, err := client.GetGlobalEmotes(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUpstream))
	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, int32(2), hits.Load())
}

func TestClientDoesNotRetryOtherFailures(t *testing.T) {
	client, fetcher, hits := newHelixForTest(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"error":"boom"}`)
	})

	_, err := client.GetGlobalBadges(context.Background())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUpstream))
	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.Equal(t, int32(1), hits.Load())
}

func TestClientReusesCachedCredential(t *testing.T) {
	client, fetcher, _ := newHelixForTest(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[],"template":""}`)
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.GetGlobalEmotes(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestClientUserInfoNotFound(t *testing.T) {
	client, _, _ := newHelixForTest(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[]}`)
	})

	_, err := client.GetUserInfo(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserInfoNotFound)
}

func TestClientChannelEmotesRenderTemplate(t *testing.T) {
	client, _, _ := newHelixForTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/emotes", r.URL.Path)
		assert.Equal(t, "1234", r.URL.Query().Get("broadcaster_id"))
		writeJSON(w, http.StatusOK, `{
			"data":[{"id":"25","name":"Kappa","format":["static"],"scale":["1.0","2.0","3.0"],"theme_mode":["light","dark"]}],
			"template":"https://static-cdn.jtvnw.net/emoticons/v2/{{id}}/{{format}}/{{theme_mode}}/{{scale}}"
		}`)
	})

	emotes, err := client.GetChannelEmotes(context.Background(), "1234")
	require.NoError(t, err)
	require.Len(t, emotes, 1)
	assert.Equal(t, domain.Emote{
		ID:    "25",
		Name:  "Kappa",
		Image: "https://static-cdn.jtvnw.net/emoticons/v2/25/default/light/3.0",
	}, emotes[0])
}

func TestClientBadgesAreFlattened(t *testing.T) {
	client, _, _ := newHelixForTest(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/badges":
			assert.Equal(t, "99", r.URL.Query().Get("broadcaster_id"))
		case "/chat/badges/global":
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, `{"data":[
			{"set_id":"subscriber","versions":[{"id":"0","image_url_4x":"https://cdn/sub0"},{"id":"3","image_url_4x":"https://cdn/sub3"}]},
			{"set_id":"vip","versions":[{"id":"1","image_url_4x":"https://cdn/vip"}]}
		]}`)
	})

	expected := []domain.Badge{
		{ID: "0", Set: "subscriber", Image: "https://cdn/sub0"},
		{ID: "3", Set: "subscriber", Image: "https://cdn/sub3"},
		{ID: "1", Set: "vip", Image: "https://cdn/vip"},
	}

	channel, err := client.GetChannelBadges(context.Background(), "99")
	require.NoError(t, err)
	assert.Equal(t, expected, channel)

	global, err := client.GetGlobalBadges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, expected, global)
}

func TestClientMalformedBody(t *testing.T) {
	client, _, _ := newHelixForTest(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":`)
	})

	_, err := client.GetGlobalBadges(context.Background())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUpstream))
}
