package main

import (
	"bufio"
	"context"
	"io"

	"github.com/free-web-movement/aex/internal/codec"
	axctx "github.com/free-web-movement/aex/internal/context"
	"github.com/free-web-movement/aex/internal/server"
	"github.com/free-web-movement/aex/internal/tcp"
)

// newEchoBinaryDriver returns a server.BinaryDriver exercising the
// reference wire codec (codec.ReadLengthPrefixed/WriteLengthPrefixed)
// through an internal/tcp.Router: every frame decodes as a RawCommand
// keyed by its fixed id 0, routed to a handler that echoes the payload
// back length-prefixed. It is the minimal concrete example of wiring a
// generic tcp.Router into the non-generic server.BinaryDriver closure.
func newEchoBinaryDriver() server.BinaryDriver {
	router := tcp.New[codec.RawCommand, uint32](
		func(cmd codec.RawCommand) uint32 { return cmd.ID() },
		func(data []byte) (codec.Command, error) { return codec.DecodeRawCommand(data) },
	)
	router.On(0, func(ctx context.Context, cmd codec.RawCommand, r io.Reader, w io.Writer) (bool, error) {
		return true, codec.WriteLengthPrefixed(w, cmd.Encode())
	})

	return func(ctx context.Context, c *axctx.Context, r *bufio.Reader) {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			payload, err := codec.ReadLengthPrefixed(r, codec.DefaultMaxFrameSize)
			if err != nil {
				return
			}
			frame, err := codec.DecodeRawFrame(payload)
			if err != nil {
				return
			}
			// A fresh ioHandles per frame: this echo driver hands the
			// connection's halves to the matched handler once per
			// message rather than once for the connection's lifetime.
			io_ := tcp.NewIOHandles(r, writerFunc(c.Write))
			if keepGoing, err := router.HandleFrame(ctx, frame, io_); err != nil || !keepGoing {
				return
			}
		}
	}
}

// writerFunc adapts a Write method value to io.Writer.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
