package udp

import (
	"context"
	"net"

	"github.com/free-web-movement/aex/internal/codec"
	"github.com/free-web-movement/aex/internal/errs"
)

const maxDatagramSize = 65535

// Serve binds addr and runs the receive loop until ctx is canceled or the
// socket errors, dispatching each datagram through router. The socket is
// shared (not cloned) across every dispatched handler invocation, mirroring
// the Rust Arc<UdpSocket>.
func Serve[C codec.Command, K comparable](ctx context.Context, addr string, router *Router[C, K], decodeFrame codec.FrameDecoder) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return errs.New("resolve udp address ", addr).Base(err).AtError()
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return errs.New("listen udp ", addr).Base(err).AtError()
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errs.New("udp read").Base(err).AtWarning()
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		go func(data []byte, src *net.UDPAddr) {
			if err := router.Dispatch(ctx, data, src, conn, decodeFrame); err != nil {
				errs.LogWarningInner(ctx, err, "udp dispatch failed")
			}
		}(data, src)
	}
}
