package httpx

import (
	"bufio"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequestBasic(t *testing.T) {
	raw := "GET /hello HTTP/1.1\r\nHost: example.com\r\nContent-Type: text/plain\r\n\r\n"
	meta, err := ParseRequest(nil, bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	require.Equal(t, "GET", meta.Method)
	require.Equal(t, "/hello", meta.Path)
	require.Equal(t, "HTTP/1.1", meta.Version)
	host, ok := meta.Header("host")
	require.True(t, ok)
	require.Equal(t, "example.com", host)
}

func TestParseRequestMalformedLineFails(t *testing.T) {
	raw := "GARBAGE\r\n\r\n"
	_, err := ParseRequest(nil, bufio.NewReader(strings.NewReader(raw)))
	require.Error(t, err)
}

func TestParseRequestUnknownVersionFails(t *testing.T) {
	raw := "GET /hello BOGUS\r\n\r\n"
	_, err := ParseRequest(nil, bufio.NewReader(strings.NewReader(raw)))
	require.Error(t, err)
}

func TestParseRequestCookies(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nCookie: a=1; b=2;c=3=x\r\n\r\n"
	meta, err := ParseRequest(nil, bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	require.Equal(t, "1", meta.Cookies["a"])
	require.Equal(t, "2", meta.Cookies["b"])
	require.Equal(t, "3=x", meta.Cookies["c"])
}

func TestParseRequestMultipartBoundary(t *testing.T) {
	raw := "POST /upload HTTP/1.1\r\nContent-Type: multipart/form-data; boundary=XYZ\r\n\r\n"
	meta, err := ParseRequest(nil, bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	require.Equal(t, "XYZ", meta.MultipartBoundary)
}

func TestParseRequestWebSocketHandshakeFlag(t *testing.T) {
	raw := "GET /ws HTTP/1.1\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n"
	meta, err := ParseRequest(nil, bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	require.True(t, meta.WebSocketHandshake)
}

func TestParseParamsQueryOrderedMultiValue(t *testing.T) {
	raw := "GET /search?tag=a&tag=b&name=x HTTP/1.1\r\n\r\n"
	meta, err := ParseRequest(nil, bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	params := ParseParams(meta)
	require.Equal(t, []string{"a", "b"}, params.Query("tag"))
	name, ok := params.QueryFirst("name")
	require.True(t, ok)
	require.Equal(t, "x", name)
}

func TestReadLineExceedingLimitFails(t *testing.T) {
	longLine := strings.Repeat("a", MaxLineBytes+10) + "\r\n"
	r := bufio.NewReader(strings.NewReader(longLine))
	_, err := readLineWithLimit(nil, r)
	require.Error(t, err)
}

func TestReadFormParsesURLEncodedBody(t *testing.T) {
	body := "name=jane+doe&tag=a&tag=b"
	raw := "POST /submit HTTP/1.1\r\nContent-Type: application/x-www-form-urlencoded\r\nContent-Length: " +
		strconv.Itoa(len(body)) + "\r\n\r\n" + body
	r := bufio.NewReader(strings.NewReader(raw))
	meta, err := ParseRequest(nil, r)
	require.NoError(t, err)

	params := ParseParams(meta)
	require.NoError(t, ReadForm(r, meta, params))
	require.Equal(t, []string{"a", "b"}, params.Form("tag"))
	name, ok := params.FormFirst("name")
	require.True(t, ok)
	require.Equal(t, "jane doe", name)
}
