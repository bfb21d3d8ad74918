package context

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/free-web-movement/aex/internal/connmgr"
)

func TestGlobalContextWiring(t *testing.T) {
	gctx := NewGlobalContext("0.0.0.0:8080", "aex", nil, connmgr.New(context.Background()), nil)
	require.NotNil(t, gctx.Pipes)
	require.NotNil(t, gctx.Spreads)
	require.NotNil(t, gctx.Events)
	require.NotNil(t, gctx.Extensions)
	require.Nil(t, gctx.SessionKeys)
}

func TestContextMetadataRoundtrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	gctx := NewGlobalContext("0.0.0.0:8080", "aex", nil, connmgr.New(context.Background()), nil)
	c := New(gctx, server)

	c.SetIncoming("x-trace", "abc")
	v, ok := c.Incoming("x-trace")
	require.True(t, ok)
	require.Equal(t, "abc", v)

	_, ok = c.Incoming("missing")
	require.False(t, ok)
}

func TestHeaderKeyNormalization(t *testing.T) {
	require.Equal(t, HeaderKey("content-type"), NewHeaderKey("Content-Type"))
	require.Equal(t, HeaderKey("content-type"), NewHeaderKey("  Content-Type  "))
}

func TestHttpMetadataDefaults(t *testing.T) {
	m := NewHttpMetadata()
	require.Equal(t, 200, m.ResponseStatus)
	require.Equal(t, "OK", m.ResponseReason)
	require.Empty(t, m.ResponseBody)
}

func TestParamsOrderedMultiValue(t *testing.T) {
	p := NewParams("/search?tag=a&tag=b")
	p.AddQuery("tag", "a")
	p.AddQuery("tag", "b")
	require.Equal(t, []string{"a", "b"}, p.Query("tag"))

	first, ok := p.QueryFirst("tag")
	require.True(t, ok)
	require.Equal(t, "a", first)

	_, ok = p.QueryFirst("missing")
	require.False(t, ok)
}
