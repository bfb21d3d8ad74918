package httpx

import (
	"fmt"
	"io"
	"net/textproto"
	"sort"
	"strconv"

	axctx "github.com/free-web-movement/aex/internal/context"
)

// Send assembles and writes meta's response over w: status line, headers
// in sorted key order with canonical casing (e.g. "Content-Length"), a
// Content-Length auto-inserted from the body if
// not already set, a blank line, then the body. The HTTP/1.0 request
// echoes its own version on the response line.
func Send(w io.Writer, meta *axctx.HttpMetadata) error {
	version := "HTTP/1.1"
	if meta.Version == "HTTP/1.0" {
		version = "HTTP/1.0"
	}

	if _, ok := meta.ResponseHeaders[axctx.NewHeaderKey("Content-Length")]; !ok {
		meta.SetResponseHeader("Content-Length", strconv.Itoa(len(meta.ResponseBody)))
	}

	status := meta.ResponseStatus
	reason := meta.ResponseReason
	if reason == "" {
		reason = statusReason(status)
	}

	if _, err := fmt.Fprintf(w, "%s %d %s\r\n", version, status, reason); err != nil {
		return err
	}

	keys := make([]string, 0, len(meta.ResponseHeaders))
	for k := range meta.ResponseHeaders {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", textproto.CanonicalMIMEHeaderKey(k), meta.ResponseHeaders[axctx.NewHeaderKey(k)]); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	if len(meta.ResponseBody) > 0 {
		if _, err := w.Write(meta.ResponseBody); err != nil {
			return err
		}
	}
	return nil
}

// SendBadRequest writes a minimal 400 response, used whenever parsing
// fails before the Responding state is reached.
func SendBadRequest(w io.Writer) error {
	meta := axctx.NewHttpMetadata()
	meta.SetStatus(400, "Bad Request")
	meta.SetBody([]byte("Bad Request"))
	return Send(w, meta)
}

func statusReason(code int) string {
	if r, ok := commonReasons[code]; ok {
		return r
	}
	return "Unknown"
}

var commonReasons = map[int]string{
	200: "OK",
	101: "Switching Protocols",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	500: "Internal Server Error",
}
