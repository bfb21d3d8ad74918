package httpx

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	axctx "github.com/free-web-movement/aex/internal/context"
)

func TestSendAutoInsertsContentLength(t *testing.T) {
	meta := axctx.NewHttpMetadata()
	meta.Version = "HTTP/1.1"
	meta.SetBody([]byte("Hello world!"))

	var buf bytes.Buffer
	require.NoError(t, Send(&buf, meta))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	require.Contains(t, out, "Content-Length: "+strconv.Itoa(len("Hello world!")))
	require.True(t, strings.HasSuffix(out, "Hello world!"))
}

func TestSendRespectsExplicitContentLength(t *testing.T) {
	meta := axctx.NewHttpMetadata()
	meta.SetBody([]byte("abc"))
	meta.SetResponseHeader("Content-Length", "999")

	var buf bytes.Buffer
	require.NoError(t, Send(&buf, meta))
	require.Contains(t, buf.String(), "Content-Length: 999")
}

func TestSendEchoesHTTP10Version(t *testing.T) {
	meta := axctx.NewHttpMetadata()
	meta.Version = "HTTP/1.0"
	var buf bytes.Buffer
	require.NoError(t, Send(&buf, meta))
	require.True(t, strings.HasPrefix(buf.String(), "HTTP/1.0 200 OK\r\n"))
}

func TestSendBadRequestWritesMinimal400(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SendBadRequest(&buf))
	require.Contains(t, buf.String(), "400 Bad Request")
}
