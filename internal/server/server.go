// Package server implements the top-level Server that wires together
// spec.md §4's components: accept a TCP socket, demux it, run the HTTP
// engine or hand off to a binary driver, register and evict it through
// the Connection Manager.
//
// Grounded on the accept-loop/handoff shape of original_source/src/server.rs
// (HTTPServer::run / handle_connection: one request parsed per accepted
// socket, no HTTP keep-alive loop — AEX keeps that single-request-per-
// connection model rather than inventing a pipelining scheme the original
// never had) and on the teacher's transport/internet/system_listener.go
// for the optional PROXY protocol wrap (github.com/pires/go-proxyproto).
package server

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/pires/go-proxyproto"

	axctx "github.com/free-web-movement/aex/internal/context"
	"github.com/free-web-movement/aex/internal/demux"
	"github.com/free-web-movement/aex/internal/errs"
	"github.com/free-web-movement/aex/internal/httpx"
)

// BinaryDriver takes full ownership of a freshly demuxed non-HTTP
// connection (plus its per-connection Context) and runs until the
// connection closes. Embedders wire this to a concrete
// tcp.Router[C,K]-backed dispatch loop; the Server stays unparameterized
// over the business Command/key types.
type BinaryDriver func(ctx context.Context, c *axctx.Context, r *bufio.Reader)

// Config configures one Server.
type Config struct {
	ListenAddr string

	// HTTPRouter dispatches demuxed HTTP connections. Required.
	HTTPRouter *httpx.Router

	// BinaryDriver handles demuxed non-HTTP connections. If nil, such
	// connections are closed immediately after the demux peek.
	BinaryDriver BinaryDriver

	// AcceptProxyProtocol wraps the listener in a proxyproto.Listener
	// requiring a PROXY protocol v1/v2 header on every accepted
	// connection, mirroring transport/internet/system_listener.go's
	// SocketConfig.AcceptProxyProtocol handling.
	AcceptProxyProtocol bool

	// IdleTimeout and MaxLifetime feed the periodic
	// ConnectionManager.Deactivate sweep, which runs every ReapInterval.
	// A zero ReapInterval disables the sweep.
	IdleTimeout  time.Duration
	MaxLifetime  time.Duration
	ReapInterval time.Duration
}

// Server owns one TCP listener and dispatches accepted connections
// through the demux into the HTTP engine or a caller-supplied binary
// driver, registering each with the GlobalContext's Connection Manager.
type Server struct {
	global *axctx.GlobalContext
	cfg    Config

	listener net.Listener
}

// New returns a Server bound to global. Call ListenAndServe to run it.
func New(global *axctx.GlobalContext, cfg Config) *Server {
	return &Server{global: global, cfg: cfg}
}

// Addr returns the listener's bound address. Only meaningful after
// ListenAndServe has started (e.g. from another goroutine, or polled
// after a short delay in tests using ":0").
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe binds cfg.ListenAddr, optionally wraps it with a PROXY
// protocol listener, and accepts connections until ctx is canceled or a
// fatal accept error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return errs.New("listen on ", s.cfg.ListenAddr).Base(err).AtError()
	}
	if s.cfg.AcceptProxyProtocol {
		l = &proxyproto.Listener{
			Listener: l,
			Policy: func(upstream net.Addr) (proxyproto.Policy, error) {
				return proxyproto.REQUIRE, nil
			},
		}
	}
	s.listener = l

	if s.cfg.ReapInterval > 0 {
		go s.reapLoop(ctx)
	}

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return errs.New("accept on ", s.cfg.ListenAddr).Base(err).AtError()
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.global.Conns.Deactivate(int64(s.cfg.IdleTimeout.Seconds()), int64(s.cfg.MaxLifetime.Seconds()))
		}
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	entry := s.global.Conns.AddClient(conn.RemoteAddr(), conn, func() { _ = conn.Close() })
	if entry == nil {
		// Admission rejected: loopback source, banned IP, or a remote
		// address without a parseable IP.
		_ = conn.Close()
		return
	}
	defer s.global.Conns.Remove(conn.RemoteAddr(), true)
	defer conn.Close()

	// entry.Context() (not ctx, the accept-loop's context) is what a
	// driver loop must select on: it is the context Manager.CancelToken /
	// CancelGracefully and Shutdown actually cancel for this connection.
	connCtx := entry.Context()

	r := bufio.NewReader(conn)
	switch demux.Classify(r) {
	case demux.KindEmpty:
		return
	case demux.KindHTTP:
		s.serveHTTP(connCtx, conn, r, entry)
	case demux.KindBinary:
		if s.cfg.BinaryDriver == nil {
			return
		}
		c := axctx.New(s.global, conn)
		s.cfg.BinaryDriver(connCtx, c, r)
	}
}

func (s *Server) serveHTTP(ctx context.Context, conn net.Conn, r *bufio.Reader, entry interface{ Touch() }) {
	c := axctx.New(s.global, conn)

	meta, err := httpx.ParseRequest(nil, r)
	if err != nil {
		_ = httpx.SendBadRequest(conn)
		return
	}
	entry.Touch()

	if meta.Params == nil {
		meta.Params = httpx.ParseParams(meta)
	}
	if err := httpx.ReadForm(r, meta, meta.Params); err != nil {
		_ = httpx.SendBadRequest(conn)
		return
	}

	found, autoSend := s.cfg.HTTPRouter.Dispatch(c, meta)
	if !found {
		meta.SetStatus(404, "Not Found")
		meta.SetBody(nil)
		_ = httpx.Send(conn, meta)
		return
	}
	if !autoSend {
		// The handler took ownership of the writer itself — most
		// commonly a WebSocket upgrade (see websocket.Handshake /
		// websocket.RunLoop), which it is expected to have already
		// driven to completion by the time it returns.
		return
	}
	_ = httpx.Send(conn, meta)
}
