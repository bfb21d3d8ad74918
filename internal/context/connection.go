package context

import (
	"bufio"
	"io"
	"net"
	"sync"

	"github.com/free-web-movement/aex/internal/typemap"
	"github.com/free-web-movement/aex/internal/xtime"
)

// Context is the per-connection layer: remote address, accept time, a
// lock-guarded shared writer, a buffered reader, a back-reference to the
// process-wide GlobalContext, a local TypeMap for ad-hoc per-connection
// extension data, and protocol-agnostic incoming/outgoing metadata (e.g.
// binary-protocol routing hints that aren't HTTP headers).
type Context struct {
	Global *GlobalContext

	RemoteAddr net.Addr
	AcceptedAt int64

	Reader *bufio.Reader

	writerMu sync.Mutex
	writer   io.Writer

	Local *typemap.TypeMap

	metaMu           sync.RWMutex
	IncomingMetadata map[string]string
	OutgoingMetadata map[string]string
}

// New returns a Context wrapping conn, backed by global.
func New(global *GlobalContext, conn net.Conn) *Context {
	return &Context{
		Global:           global,
		RemoteAddr:       conn.RemoteAddr(),
		AcceptedAt:       xtime.NowSeconds(),
		Reader:           bufio.NewReader(conn),
		writer:           conn,
		Local:            typemap.New(),
		IncomingMetadata: make(map[string]string),
		OutgoingMetadata: make(map[string]string),
	}
}

// Write serializes concurrent writers onto the connection's single
// writer half (e.g. a handler write racing a ping keepalive).
func (c *Context) Write(p []byte) (int, error) {
	c.writerMu.Lock()
	defer c.writerMu.Unlock()
	return c.writer.Write(p)
}

// SetIncoming records a protocol-agnostic metadata value observed on the
// wire.
func (c *Context) SetIncoming(key, value string) {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	c.IncomingMetadata[key] = value
}

// Incoming looks up a previously recorded incoming metadata value.
func (c *Context) Incoming(key string) (string, bool) {
	c.metaMu.RLock()
	defer c.metaMu.RUnlock()
	v, ok := c.IncomingMetadata[key]
	return v, ok
}

// SetOutgoing records a value a handler wants attached to the outbound
// side of this connection.
func (c *Context) SetOutgoing(key, value string) {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	c.OutgoingMetadata[key] = value
}
