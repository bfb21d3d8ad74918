// Package udp implements spec.md §4.7's UDP router: a single shared
// UdpSocket reads datagrams, decodes Frame then Command, and dispatches
// by routing key to a handler that may reply on the same socket.
// Unmatched keys are dropped silently — UDP is lossy by nature.
//
// Grounded on original_source/src/udp/router.rs's Router<F,C,K>, adapted
// from tokio's Arc<UdpSocket> to Go's *net.UDPConn shared by reference.
package udp

import (
	"context"
	"net"

	"github.com/free-web-movement/aex/internal/codec"
)

// Handler receives a decoded Command, the datagram's source address, and
// the shared socket so it may reply in place.
type Handler[C codec.Command] func(ctx context.Context, cmd C, src *net.UDPAddr, conn *net.UDPConn) (bool, error)

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

// Dispatch decodes a Frame from data and routes its Command to a
// registered handler. It never errors on a malformed or unmatched
// datagram — per spec, UDP has no error path; the datagram is simply
// dropped.
func (r *Router[C, K]) Dispatch(ctx context.Context, data []byte, src *net.UDPAddr, conn *net.UDPConn, decodeFrame codec.FrameDecoder) error {
	frame, err := decodeFrame(data)
	if err != nil {
		return nil
	}
	if !frame.Validate() {
		return nil
	}
	payload, ok := frame.Payload()
	if !ok {
		return nil
	}
	decoded, err := r.decode(payload)
	if err != nil {
		return nil
	}
	cmd, ok := decoded.(C)
	if !ok {
		return nil
	}
	if !cmd.Validate() {
		return nil
	}

	key := r.extractor(cmd)
	handler, ok := r.handlers[key]
	if !ok {
		return nil
	}
	_, err = handler(ctx, cmd, src, conn)
	return err
}
