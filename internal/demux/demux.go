// Package demux implements spec.md §4.2's protocol demultiplexer: on
// acceptance of a new TCP socket, peek a small prefix and decide whether
// it looks like an HTTP/1.1 request line or should fall through to the
// binary TCP engine.
//
// Grounded on original_source/src/req.rs's Request::is_http_connection /
// HttpMethod::is_prefixed (peek N bytes, case-insensitive method-prefix
// match, empty peek = silently drop) and on the teacher's
// common/protocol/http/sniff.go beginWithHTTPMethod idiom (fixed method
// table, prefix-plus-space match rather than a full parse).
package demux

import (
	"bufio"
	"strings"
)

// httpMethods are the method prefixes the demux recognizes, matching
// original_source/src/http/protocol/method.rs's HttpMethod set.
var httpMethods = [...]string{
	"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS", "CONNECT", "TRACE",
}

// PeekBytes is the most bytes inspected to decide HTTP vs binary: the
// longest recognized method ("OPTIONS"/"CONNECT", 7 bytes) plus the space
// that must follow it. Unlike original_source/src/req.rs's single-shot,
// non-looping peek, bufio.Reader.Peek(n) keeps issuing blocking Reads on
// the underlying conn until n bytes are buffered or an error occurs — so
// Peek(PeekBytes) would hang the calling goroutine on a client whose first
// message is shorter than that, since the client is waiting on a response
// and never sends more. Classify therefore waits only for the first Read
// and inspects at most PeekBytes of what that Read buffered.
const PeekBytes = 8

// Kind is the demux's verdict for a freshly accepted socket.
type Kind int

const (
	// KindEmpty means the peek returned zero bytes; the caller should
	// close the connection silently.
	KindEmpty Kind = iota
	KindHTTP
	KindBinary
)

// Classify peeks up to PeekBytes from r (without consuming them — r must
// be a *bufio.Reader so the bytes remain available to whichever engine
// handles the connection next) and returns the demux's verdict.
func Classify(r *bufio.Reader) Kind {
	// Peek(1) blocks for at most the first Read; its error only means no
	// byte arrived at all (typically EOF).
	if _, err := r.Peek(1); err != nil {
		return KindEmpty
	}
	n := r.Buffered()
	if n > PeekBytes {
		n = PeekBytes
	}
	peek, _ := r.Peek(n)
	if isHTTPPrefix(peek) {
		return KindHTTP
	}
	return KindBinary
}

// isHTTPPrefix reports whether buf begins with one of the recognized
// HTTP methods followed immediately by a space, case-insensitively.
func isHTTPPrefix(buf []byte) bool {
	for _, m := range &httpMethods {
		if len(buf) > len(m) && buf[len(m)] == ' ' && strings.EqualFold(string(buf[:len(m)]), m) {
			return true
		}
	}
	return false
}
