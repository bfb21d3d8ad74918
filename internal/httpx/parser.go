// Package httpx implements spec.md §4.3/§4.4's HTTP/1.1 request engine:
// an incremental line-oriented parser, a trie router over path segments,
// query/form/path Params, and response assembly.
//
// Grounded on original_source/src/http/req.rs for the parser's exact
// constants and field extraction order, and on the teacher's
// proxy/http/server.go for the bufio.Reader + per-read deadline idiom
// (here applied per line rather than to the whole handshake).
package httpx

import (
	"bufio"
	"net/url"
	"strconv"
	"strings"
	"time"

	axctx "github.com/free-web-movement/aex/internal/context"
	"github.com/free-web-movement/aex/internal/errs"
)

// MaxLineBytes bounds a single request-line or header-line read.
const MaxLineBytes = 1024

// LineTimeout bounds how long a single line read may block.
const LineTimeout = 500 * time.Millisecond

// Conn is the subset of net.Conn the parser needs to set a per-line read
// deadline.
type Conn interface {
	SetReadDeadline(t time.Time) error
}

// ParseRequest reads one HTTP/1.1 request from r (backed by conn for
// deadlines) and returns a populated HttpMetadata. Any failure before the
// request line and headers are fully read is reported as an error; the
// caller is expected to respond 400 and close.
func ParseRequest(conn Conn, r *bufio.Reader) (*axctx.HttpMetadata, error) {
	meta := axctx.NewHttpMetadata()

	line, err := readLineWithLimit(conn, r)
	if err != nil {
		return nil, err
	}
	method, path, version, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}
	meta.Method = method
	meta.Path = path
	meta.Version = version

	if err := parseHeaders(conn, r, meta); err != nil {
		return nil, err
	}

	applyDerivedFields(meta)
	return meta, nil
}

func parseRequestLine(line string) (method, path, version string, err error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return "", "", "", errs.New("malformed request line: ", line).AtWarning()
	}
	method, path, version = fields[0], fields[1], fields[2]
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(version, "HTTP/") {
		return "", "", "", errs.New("unknown HTTP version: ", version).AtWarning()
	}
	return method, path, version, nil
}

func parseHeaders(conn Conn, r *bufio.Reader, meta *axctx.HttpMetadata) error {
	for {
		line, err := readLineWithLimit(conn, r)
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue // malformed header line, skip rather than fail the whole request
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		meta.SetHeader(name, value)
	}
}

// readLineWithLimit reads one CRLF- or LF-terminated line, failing once
// more than MaxLineBytes have been read without finding a newline (a true
// hard cap, unlike the preallocated-but-unbounded Vec the original source
// used for the same constant).
func readLineWithLimit(conn Conn, r *bufio.Reader) (string, error) {
	if conn != nil {
		if err := conn.SetReadDeadline(time.Now().Add(LineTimeout)); err != nil {
			return "", errs.New("set read deadline").Base(err).AtWarning()
		}
	}
	buf := make([]byte, 0, MaxLineBytes)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", errs.New("read line").Base(err).AtWarning()
		}
		if b == '\n' {
			break
		}
		if len(buf) >= MaxLineBytes {
			return "", errs.New("line exceeds ", MaxLineBytes, " bytes").AtWarning()
		}
		buf = append(buf, b)
	}
	return strings.TrimRight(string(buf), "\r"), nil
}

func applyDerivedFields(meta *axctx.HttpMetadata) {
	if ct, ok := meta.Header("content-type"); ok {
		meta.ContentType = ct
	}
	if cl, ok := meta.Header("content-length"); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64); err == nil {
			meta.ContentLength = n
		}
	}

	top, sub, params := parseContentType(meta.ContentType)
	if strings.EqualFold(top, "multipart") && strings.EqualFold(sub, "form-data") {
		if b, ok := params["boundary"]; ok {
			meta.MultipartBoundary = b
		}
	}

	if te, ok := meta.Header("transfer-encoding"); ok {
		meta.Chunked = strings.Contains(strings.ToLower(te), "chunked")
	}

	if cookieHeader, ok := meta.Header("cookie"); ok {
		meta.Cookies = parseCookies(cookieHeader)
	}

	meta.WebSocketHandshake = isWebSocketHandshake(meta)
}

func parseContentType(value string) (top, sub string, params map[string]string) {
	params = make(map[string]string)
	parts := strings.Split(value, ";")
	if len(parts) == 0 {
		return "", "", params
	}
	mediaType := strings.TrimSpace(parts[0])
	if i := strings.IndexByte(mediaType, '/'); i >= 0 {
		top, sub = mediaType[:i], mediaType[i+1:]
	} else {
		top = mediaType
	}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if i := strings.IndexByte(p, '='); i >= 0 {
			key := strings.ToLower(strings.TrimSpace(p[:i]))
			val := strings.Trim(strings.TrimSpace(p[i+1:]), `"`)
			params[key] = val
		}
	}
	return top, sub, params
}

// parseCookies splits on ';', trims whitespace, and keeps the first '='
// as the separator so values may themselves contain '='.
func parseCookies(header string) map[string]string {
	cookies := make(map[string]string)
	for _, pair := range strings.Split(header, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idx := strings.IndexByte(pair, '=')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(pair[:idx])
		value := strings.TrimSpace(pair[idx+1:])
		cookies[key] = value
	}
	return cookies
}

func isWebSocketHandshake(meta *axctx.HttpMetadata) bool {
	if !strings.EqualFold(meta.Method, "GET") {
		return false
	}
	upgrade, ok := meta.Header("upgrade")
	if !ok || !strings.Contains(strings.ToLower(upgrade), "websocket") {
		return false
	}
	connection, ok := meta.Header("connection")
	if !ok || !strings.Contains(strings.ToLower(connection), "upgrade") {
		return false
	}
	_, hasKey := meta.Header("sec-websocket-key")
	return hasKey
}

// ParseParams splits path into path+query and decodes the query string
// into meta.Params, tolerating '+' as space and preserving repeated-key
// order.
func ParseParams(meta *axctx.HttpMetadata) *axctx.Params {
	rawPath := meta.Path
	queryString := ""
	if i := strings.IndexByte(rawPath, '?'); i >= 0 {
		queryString = rawPath[i+1:]
		rawPath = rawPath[:i]
	}

	params := axctx.NewParams(meta.Path)
	for _, kv := range strings.Split(queryString, "&") {
		if kv == "" {
			continue
		}
		var key, value string
		if i := strings.IndexByte(kv, '='); i >= 0 {
			key, value = kv[:i], kv[i+1:]
		} else {
			key = kv
		}
		params.AddQuery(queryUnescape(key), queryUnescape(value))
	}
	return params
}

func queryUnescape(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// ReadForm reads exactly ContentLength bytes and parses them as
// application/x-www-form-urlencoded into params.form, per spec.md §4.3:
// only this content type is ingested synchronously before middleware runs.
func ReadForm(r *bufio.Reader, meta *axctx.HttpMetadata, params *axctx.Params) error {
	if !strings.HasPrefix(strings.ToLower(meta.ContentType), "application/x-www-form-urlencoded") {
		return nil
	}
	if meta.ContentLength <= 0 {
		return nil
	}
	buf := make([]byte, meta.ContentLength)
	if _, err := readFull(r, buf); err != nil {
		return errs.New("read form body").Base(err).AtWarning()
	}
	for _, kv := range strings.Split(string(buf), "&") {
		if kv == "" {
			continue
		}
		var key, value string
		if i := strings.IndexByte(kv, '='); i >= 0 {
			key, value = kv[:i], kv[i+1:]
		} else {
			key = kv
		}
		params.AddForm(queryUnescape(key), queryUnescape(value))
	}
	return nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
