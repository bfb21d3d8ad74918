package websocket

import (
	"bufio"
	"bytes"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// serverHandshake reads a real HTTP upgrade request off conn (written by
// the gorilla client below) and replies with our own handshake response,
// proving Accept/BuildUpgradeResponse interoperate with an independent
// RFC 6455 implementation rather than only with themselves.
func serverHandshake(t *testing.T, conn net.Conn) {
	t.Helper()
	req, err := http.ReadRequest(bufio.NewReader(conn))
	require.NoError(t, err)
	key := req.Header.Get("Sec-WebSocket-Key")
	require.NotEmpty(t, key)
	_, err = conn.Write(BuildUpgradeResponse(key))
	require.NoError(t, err)
}

func dialOverPipe(t *testing.T, clientConn net.Conn) *gorilla.Conn {
	t.Helper()
	u, err := url.Parse("ws://example.test/ws")
	require.NoError(t, err)
	wsConn, _, err := gorilla.NewClient(clientConn, u, http.Header{}, 1024, 1024)
	require.NoError(t, err)
	return wsConn
}

func TestFrameLoopInteropWithGorillaClientTextThenClose(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	clientConn.SetDeadline(time.Now().Add(5 * time.Second))
	serverConn.SetDeadline(time.Now().Add(5 * time.Second))

	done := make(chan struct{})
	received := make(chan []byte, 1)
	go func() {
		defer close(done)
		serverHandshake(t, serverConn)
		_ = RunLoop(serverConn, Handlers{
			OnText: func(payload []byte) bool {
				received <- append([]byte(nil), payload...)
				return false
			},
		})
	}()

	wsConn := dialOverPipe(t, clientConn)
	require.NoError(t, wsConn.WriteMessage(gorilla.TextMessage, []byte("hello aex")))

	select {
	case payload := <-received:
		require.Equal(t, "hello aex", string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server to observe text frame")
	}

	_, _, err := wsConn.ReadMessage()
	require.Error(t, err) // server sent a close frame after OnText returned false

	<-done
}

func TestFrameLoopAutoRepliesPong(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	clientConn.SetDeadline(time.Now().Add(5 * time.Second))
	serverConn.SetDeadline(time.Now().Add(5 * time.Second))

	go func() {
		serverHandshake(t, serverConn)
		_ = RunLoop(serverConn, Handlers{})
	}()

	wsConn := dialOverPipe(t, clientConn)
	pongCh := make(chan string, 1)
	wsConn.SetPongHandler(func(appData string) error {
		pongCh <- appData
		return nil
	})
	require.NoError(t, wsConn.WriteControl(gorilla.PingMessage, []byte("ping-data"), time.Now().Add(time.Second)))

	// gorilla delivers control frames only while a Read is in flight.
	go func() { _, _, _ = wsConn.ReadMessage() }()

	select {
	case data := <-pongCh:
		require.Equal(t, "ping-data", data)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pong")
	}
}

func TestReadFrameRejectsUnmaskedFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x81, 0x05, 'h', 'e', 'l', 'l', 'o'}) // FIN+text, MASK=0
	_, err := ReadFrame(&buf)
	require.Error(t, err)
	require.Equal(t, CloseProtocolError, CloseCodeOf(err))
}

func TestReadFrameRejectsOversizeControlFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x89)        // FIN + ping
	buf.WriteByte(0x80 | 126)  // masked, extended 16-bit length
	buf.Write([]byte{0x00, 200}) // length 200 > 125
	buf.Write([]byte{0, 0, 0, 0}) // mask key
	buf.Write(make([]byte, 200))
	_, err := ReadFrame(&buf)
	require.Error(t, err)
	require.Equal(t, CloseProtocolError, CloseCodeOf(err))
}

func TestWriteFrameUsesDirectLengthForSmallPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, OpText, []byte("hi")))
	out := buf.Bytes()
	require.Equal(t, byte(0x81), out[0])
	require.Equal(t, byte(2), out[1])
}

func TestParseClosePayloadRejectsSingleByte(t *testing.T) {
	_, _, err := ParseClosePayload([]byte{0x01})
	require.Error(t, err)
}

func TestParseClosePayloadAcceptsEmptyAsNormal(t *testing.T) {
	code, reason, err := ParseClosePayload(nil)
	require.NoError(t, err)
	require.Equal(t, CloseNormal, code)
	require.Empty(t, reason)
}
