// Package tcp implements spec.md §4.6's binary Frame/Command router: a
// transport Frame wraps an opaque payload, a business Command is decoded
// from that payload, and a routing key extracted from the Command selects
// a handler which then takes ownership of the connection's IO halves.
//
// Grounded on original_source/src/tcp/router.rs's Router<F,C,K>, adapted
// from tokio's OwnedReadHalf/OwnedWriteHalf + Box<dyn Fn> to Go's
// io.Reader/io.Writer held behind bool "taken" guards and a func value.
package tcp

import (
	"context"
	"io"

	"github.com/free-web-movement/aex/internal/codec"
	"github.com/free-web-movement/aex/internal/errs"
)

// Handler is invoked once a Command's routing key matches a registered
// entry. It receives ownership of the reader and writer halves; no other
// handler on this connection will be invoked afterward. Return true to
// keep driving the connection on the caller's behalf semantics are
// handler-defined, false to indicate the connection should now be closed.
type Handler[C codec.Command] func(ctx context.Context, cmd C, r io.Reader, w io.Writer) (bool, error)

// Extractor maps a decoded Command to its routing key.
type Extractor[C codec.Command, K comparable] func(cmd C) K

// Router dispatches decoded Commands of type C to Handlers keyed by K.
type Router[C codec.Command, K comparable] struct {
	handlers  map[K]Handler[C]
	extractor Extractor[C, K]
	decode    codec.CommandDecoder
}

// New returns a Router that extracts routing keys via extractor and
// decodes Command payloads via decode.
func New[C codec.Command, K comparable](extractor Extractor[C, K], decode codec.CommandDecoder) *Router[C, K] {
	return &Router[C, K]{
		handlers:  make(map[K]Handler[C]),
		extractor: extractor,
		decode:    decode,
	}
}

// On registers handler under key.
func (r *Router[C, K]) On(key K, handler Handler[C]) {
	r.handlers[key] = handler
}

// ioHandles tracks a connection's read/write halves and whether each has
// already been handed to a handler, mirroring the Rust Router's
// independent Option<OwnedReadHalf>/Option<OwnedWriteHalf> "take"
// semantics.
type ioHandles struct {
	reader      io.Reader
	writer      io.Writer
	readerTaken bool
	writerTaken bool
}

// NewIOHandles wraps a connection's reader/writer for a single
// HandleFrame call sequence. The same ioHandles must be reused across
// calls on one connection so "already taken" is detected correctly.
func NewIOHandles(r io.Reader, w io.Writer) *ioHandles {
	return &ioHandles{reader: r, writer: w}
}

func (h *ioHandles) take() (io.Reader, io.Writer, error) {
	if h.readerTaken {
		return nil, nil, errs.New("reader already taken").AtWarning()
	}
	if h.writerTaken {
		return nil, nil, errs.New("writer already taken").AtWarning()
	}
	h.readerTaken = true
	h.writerTaken = true
	return h.reader, h.writer, nil
}

// HandleFrame runs one dispatch cycle: validate frame, extract payload,
// decode Command, validate Command, extract key, look up handler. If a
// handler is found, io is handed to it and its (bool, error) result is
// returned. If no handler exists, or any validation step fails, the
// caller should continue its read loop — (true, nil) signals exactly
// that.
func (r *Router[C, K]) HandleFrame(ctx context.Context, frame codec.Frame, io_ *ioHandles) (bool, error) {
	if !frame.Validate() {
		return true, nil
	}
	data, ok := frame.Payload()
	if !ok {
		return true, nil
	}
	decoded, err := r.decode(data)
	if err != nil {
		return true, nil
	}
	cmd, ok := decoded.(C)
	if !ok {
		return true, nil
	}
	if !cmd.Validate() {
		return true, nil
	}

	key := r.extractor(cmd)
	handler, ok := r.handlers[key]
	if !ok {
		return true, nil
	}

	reader, writer, err := io_.take()
	if err != nil {
		return false, err
	}
	return handler(ctx, cmd, reader, writer)
}
