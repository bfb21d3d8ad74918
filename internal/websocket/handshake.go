// Package websocket implements spec.md §4.5's RFC 6455 upgrade handshake
// and frame loop: hand-rolled, not gorilla/websocket (that library is
// used only by this package's test suite as an independent compliance
// client — see frame_test.go).
//
// Grounded on the handshake/connection shape of the teacher's
// transport/internet/websocket package (accept-key derivation, a
// connection wrapper around the raw socket), generalized to the
// AEX frame-loop semantics in spec.md §4.5.
package websocket

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"

	axctx "github.com/free-web-movement/aex/internal/context"
	"github.com/free-web-movement/aex/internal/errs"
)

// acceptMagic is the RFC 6455 section 1.3 magic GUID.
const acceptMagic = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// IsUpgrade reports whether meta describes a WebSocket upgrade request.
// This mirrors the flag ParseRequest already computed, exposed here so
// callers that build HttpMetadata another way can still ask the question.
func IsUpgrade(meta *axctx.HttpMetadata) bool {
	return meta.WebSocketHandshake
}

// Accept computes the Sec-WebSocket-Accept value for the client-supplied
// Sec-WebSocket-Key.
func Accept(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(acceptMagic))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// BuildUpgradeResponse returns the raw bytes of the 101 Switching
// Protocols response for a handshake whose key is key.
func BuildUpgradeResponse(key string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 101 Switching Protocols\r\n")
	fmt.Fprintf(&b, "Upgrade: websocket\r\n")
	fmt.Fprintf(&b, "Connection: Upgrade\r\n")
	fmt.Fprintf(&b, "Sec-WebSocket-Accept: %s\r\n\r\n", Accept(key))
	return []byte(b.String())
}

// Handshake validates meta as an upgrade request and returns the raw
// bytes of the 101 response, or an error if Sec-WebSocket-Key is absent.
func Handshake(meta *axctx.HttpMetadata) ([]byte, error) {
	if !strings.EqualFold(meta.Method, "GET") {
		return nil, errs.New("websocket upgrade requires GET").AtWarning()
	}
	key, ok := meta.Header("sec-websocket-key")
	if !ok || strings.TrimSpace(key) == "" {
		return nil, errs.New("missing Sec-WebSocket-Key").AtWarning()
	}
	return BuildUpgradeResponse(key), nil
}
