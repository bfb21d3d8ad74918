package websocket

import (
	"testing"

	"github.com/stretchr/testify/require"

	axctx "github.com/free-web-movement/aex/internal/context"
)

func TestAcceptMatchesRFC6455Example(t *testing.T) {
	// The canonical example from RFC 6455 section 1.3.
	require.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", Accept("dGhlIHNhbXBsZSBub25jZQ=="))
}

func TestIsUpgradeReflectsFlag(t *testing.T) {
	meta := axctx.NewHttpMetadata()
	require.False(t, IsUpgrade(meta))
	meta.WebSocketHandshake = true
	require.True(t, IsUpgrade(meta))
}

func TestHandshakeBuildsSwitchingProtocolsResponse(t *testing.T) {
	meta := axctx.NewHttpMetadata()
	meta.Method = "GET"
	meta.SetHeader("sec-websocket-key", "dGhlIHNhbXBsZSBub25jZQ==")

	resp, err := Handshake(meta)
	require.NoError(t, err)
	require.Contains(t, string(resp), "HTTP/1.1 101 Switching Protocols\r\n")
	require.Contains(t, string(resp), "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n")
}

func TestHandshakeRejectsNonGET(t *testing.T) {
	meta := axctx.NewHttpMetadata()
	meta.Method = "POST"
	meta.SetHeader("sec-websocket-key", "dGhlIHNhbXBsZSBub25jZQ==")

	_, err := Handshake(meta)
	require.Error(t, err)
}

func TestHandshakeRejectsMissingKey(t *testing.T) {
	meta := axctx.NewHttpMetadata()
	meta.Method = "GET"

	_, err := Handshake(meta)
	require.Error(t, err)
}
