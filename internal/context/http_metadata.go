package context

import "strings"

// HeaderKey is a case-insensitive HTTP header name: normalized to lower
// case everywhere it is used as a map key, matching spec.md §8's
// invariant `from_str(s).to_string().to_ascii_lowercase() == s.trim().to_ascii_lowercase()`.
type HeaderKey string

// NewHeaderKey trims and lower-cases s.
func NewHeaderKey(s string) HeaderKey {
	return HeaderKey(strings.ToLower(strings.TrimSpace(s)))
}

func (k HeaderKey) String() string { return string(k) }

// HttpMetadata is the per-request layer: everything the HTTP engine
// parses from the request line and headers, plus whatever a handler
// stages for the response.
type HttpMetadata struct {
	Method  string
	Path    string
	Version string

	Headers map[HeaderKey]string

	ContentType      string
	ContentLength    int64
	MultipartBoundary string
	Chunked           bool
	Cookies           map[string]string

	WebSocketHandshake bool

	Params *Params

	ResponseStatus  int
	ResponseReason  string
	ResponseBody    []byte
	ResponseHeaders map[HeaderKey]string
}

// NewHttpMetadata returns an HttpMetadata with default response fields
// (200 OK, empty body) and empty maps ready for the parser to fill.
func NewHttpMetadata() *HttpMetadata {
	return &HttpMetadata{
		Headers:         make(map[HeaderKey]string),
		ContentType:     "text/plain",
		Cookies:         make(map[string]string),
		ResponseStatus:  200,
		ResponseReason:  "OK",
		ResponseHeaders: make(map[HeaderKey]string),
	}
}

// Header looks up a header by case-insensitive name.
func (m *HttpMetadata) Header(name string) (string, bool) {
	v, ok := m.Headers[NewHeaderKey(name)]
	return v, ok
}

// SetHeader stores a header under its case-insensitive key.
func (m *HttpMetadata) SetHeader(name, value string) {
	m.Headers[NewHeaderKey(name)] = value
}

// SetResponseHeader stages an outbound header.
func (m *HttpMetadata) SetResponseHeader(name, value string) {
	m.ResponseHeaders[NewHeaderKey(name)] = value
}

// SetStatus stages the outbound status line.
func (m *HttpMetadata) SetStatus(code int, reason string) {
	m.ResponseStatus = code
	m.ResponseReason = reason
}

// SetBody stages the outbound body.
func (m *HttpMetadata) SetBody(body []byte) {
	m.ResponseBody = body
}
