package httpcontext

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/overlay/pkg/logger"
)

func newCtx(remote string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Init(&fasthttp.Request{}, &net.TCPAddr{IP: net.ParseIP(remote), Port: 5555}, nil)
	return &ctx
}

func TestClientIPPrefersLeftmostForwardedFor(t *testing.T) {
	ctx := newCtx("10.0.0.9")
	ctx.Request.Header.Set(HeaderForwardedFor, " 1.2.3.4 , 10.0.0.1, 10.0.0.2")

	assert.Equal(t, "1.2.3.4", ClientIP(ctx))
}

func TestClientIPFallsBackToSocket(t *testing.T) {
	ctx := newCtx("10.0.0.9")
	assert.Equal(t, "10.0.0.9", ClientIP(ctx))

	ctx.Request.Header.Set(HeaderForwardedFor, " , 1.1.1.1")
	assert.Equal(t, "10.0.0.9", ClientIP(ctx))
}

func TestAttachCarriesRequestMetadata(t *testing.T) {
	ctx := newCtx("10.0.0.9")
	ctx.Request.Header.Set(HeaderRequestID, "req-1")
	ctx.Request.Header.SetUserAgent("firefox")

	stdCtx, cancel := NewAdapter(time.Second).Attach(ctx)
	defer cancel()

	deadline, ok := stdCtx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 200*time.Millisecond)

	assert.Equal(t, "10.0.0.9", stdCtx.Value(KeyClientIP))
	assert.Equal(t, "firefox", stdCtx.Value(KeyUserAgent))
	assert.Equal(t, "req-1", string(ctx.Response.Header.Peek(HeaderRequestID)))
	assert.Equal(t, "req-1", appLogger.RequestID(stdCtx))
}

func TestAttachGeneratesRequestID(t *testing.T) {
	ctx := newCtx("10.0.0.9")

	stdCtx, cancel := NewAdapter(0).Attach(ctx)
	defer cancel()

	id := string(ctx.Response.Header.Peek(HeaderRequestID))
	assert.NotEmpty(t, id)
	assert.Equal(t, id, appLogger.RequestID(stdCtx))
}
