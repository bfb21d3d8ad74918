package httpx

import (
	"testing"

	"github.com/stretchr/testify/require"

	axctx "github.com/free-web-movement/aex/internal/context"
)

func TestRouterStaticMatch(t *testing.T) {
	r := NewRouter()
	r.Handle("GET", "/hello", func(c *axctx.Context, meta *axctx.HttpMetadata) bool {
		meta.SetBody([]byte("world"))
		return true
	})

	meta := axctx.NewHttpMetadata()
	meta.Method = "GET"
	meta.Path = "/hello"
	found, autoSend := r.Dispatch(nil, meta)
	require.True(t, found)
	require.True(t, autoSend)
	require.Equal(t, "world", string(meta.ResponseBody))
}

func TestRouterParamCapture(t *testing.T) {
	r := NewRouter()
	var captured string
	r.Handle("GET", "/user/:id", func(c *axctx.Context, meta *axctx.HttpMetadata) bool {
		captured = meta.Params.Path["id"]
		return true
	})

	meta := axctx.NewHttpMetadata()
	meta.Method = "GET"
	meta.Path = "/user/42"
	found, _ := r.Dispatch(nil, meta)
	require.True(t, found)
	require.Equal(t, "42", captured)
}

func TestRouterWildcardCapturesTail(t *testing.T) {
	r := NewRouter()
	var tail string
	r.Handle("GET", "/assets/*", func(c *axctx.Context, meta *axctx.HttpMetadata) bool {
		tail = meta.Params.Path["*"]
		return true
	})

	meta := axctx.NewHttpMetadata()
	meta.Method = "GET"
	meta.Path = "/assets/css/main.css"
	found, _ := r.Dispatch(nil, meta)
	require.True(t, found)
	require.Equal(t, "css/main.css", tail)
}

func TestRouterMiddlewareShortCircuit(t *testing.T) {
	r := NewRouter()
	handlerCalled := false
	r.Handle("GET", "/admin", func(c *axctx.Context, meta *axctx.HttpMetadata) bool {
		handlerCalled = true
		meta.SetBody([]byte("ok"))
		return true
	}, func(c *axctx.Context, meta *axctx.HttpMetadata) bool {
		meta.SetStatus(403, "Forbidden")
		meta.SetBody([]byte("Blocked"))
		return false
	})

	meta := axctx.NewHttpMetadata()
	meta.Method = "GET"
	meta.Path = "/admin"
	found, autoSend := r.Dispatch(nil, meta)
	require.True(t, found)
	require.True(t, autoSend)
	require.False(t, handlerCalled)
	require.Equal(t, 403, meta.ResponseStatus)
	require.Equal(t, "Blocked", string(meta.ResponseBody))
}

func TestRouterUnmatchedPathNotFound(t *testing.T) {
	r := NewRouter()
	r.Handle("GET", "/hello", func(c *axctx.Context, meta *axctx.HttpMetadata) bool { return true })

	meta := axctx.NewHttpMetadata()
	meta.Method = "GET"
	meta.Path = "/missing"
	found, _ := r.Dispatch(nil, meta)
	require.False(t, found)
}

func TestRouterStaticBeatsParamPriority(t *testing.T) {
	r := NewRouter()
	var which string
	r.Handle("GET", "/user/me", func(c *axctx.Context, meta *axctx.HttpMetadata) bool {
		which = "static"
		return true
	})
	r.Handle("GET", "/user/:id", func(c *axctx.Context, meta *axctx.HttpMetadata) bool {
		which = "param"
		return true
	})

	meta := axctx.NewHttpMetadata()
	meta.Method = "GET"
	meta.Path = "/user/me"
	r.Dispatch(nil, meta)
	require.Equal(t, "static", which)
}

func TestRouterHandlerFalseMeansAutoSendFalse(t *testing.T) {
	r := NewRouter()
	r.Handle("GET", "/custom", func(c *axctx.Context, meta *axctx.HttpMetadata) bool {
		return false
	})

	meta := axctx.NewHttpMetadata()
	meta.Method = "GET"
	meta.Path = "/custom"
	found, autoSend := r.Dispatch(nil, meta)
	require.True(t, found)
	require.False(t, autoSend)
}
