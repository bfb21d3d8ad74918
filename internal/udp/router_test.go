package udp

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/free-web-movement/aex/internal/codec"
)

func TestDispatchInvokesMatchedHandler(t *testing.T) {
	r := New[codec.RawCommand, uint32](
		func(cmd codec.RawCommand) uint32 { return cmd.ID() },
		codec.DecodeRawCommand,
	)

	invoked := false
	r.On(0, func(ctx context.Context, cmd codec.RawCommand, src *net.UDPAddr, conn *net.UDPConn) (bool, error) {
		invoked = true
		require.Equal(t, "ping", string(cmd.Data))
		return true, nil
	})

	err := r.Dispatch(context.Background(), []byte("ping"), &net.UDPAddr{}, nil, codec.DecodeRawFrame)
	require.NoError(t, err)
	require.True(t, invoked)
}

func TestDispatchUnmatchedKeyIsSilentlyDropped(t *testing.T) {
	r := New[codec.RawCommand, uint32](
		func(cmd codec.RawCommand) uint32 { return 42 },
		codec.DecodeRawCommand,
	)
	err := r.Dispatch(context.Background(), []byte("x"), &net.UDPAddr{}, nil, codec.DecodeRawFrame)
	require.NoError(t, err)
}
