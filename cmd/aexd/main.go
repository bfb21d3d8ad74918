// Command aexd is a minimal embeddable-runtime host: it binds one AEX
// Server and blocks until an interrupt, matching spec.md §6's "minimal"
// CLI surface (--ip, --port, nothing else).
//
// Signal handling mirrors the teacher's main/run.go: register
// os.Interrupt and syscall.SIGTERM on a buffered channel and block on it
// rather than catching signals piecemeal.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	axctx "github.com/free-web-movement/aex/internal/context"
	"github.com/free-web-movement/aex/internal/connmgr"
	"github.com/free-web-movement/aex/internal/httpx"
	"github.com/free-web-movement/aex/internal/node"
	"github.com/free-web-movement/aex/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	ip := flag.String("ip", "0.0.0.0", "bind address")
	port := flag.Uint("port", 8080, "bind port")
	flag.Parse()

	listenAddr := net.JoinHostPort(*ip, fmt.Sprint(*port))

	router := httpx.NewRouter()
	router.Handle("GET", "/healthz", func(c *axctx.Context, meta *axctx.HttpMetadata) bool {
		meta.SetBody([]byte("ok"))
		return true
	})

	local := node.FromSystem(uint16(*port), nil, 1, node.ProtocolHTTP, node.ProtocolTCP, node.ProtocolUDP, node.ProtocolWS)
	conns := connmgr.New(context.Background())
	global := axctx.NewGlobalContext(listenAddr, "aexd", local, conns, nil)

	srv := server.New(global, server.Config{
		ListenAddr:   listenAddr,
		HTTPRouter:   router,
		BinaryDriver: newEchoBinaryDriver(),
		IdleTimeout:  5 * time.Minute,
		MaxLifetime:  24 * time.Hour,
		ReapInterval: 30 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	// Give ListenAndServe a moment to either bind or fail before we
	// commit to waiting on signals; a bind failure should exit non-zero
	// immediately rather than hang until interrupted.
	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintln(os.Stderr, "aexd: ", err)
			cancel()
			return 1
		}
	case <-time.After(100 * time.Millisecond):
	}

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)

	select {
	case <-osSignals:
	case err := <-errCh:
		if err != nil {
			fmt.Fprintln(os.Stderr, "aexd: ", err)
			cancel()
			return 1
		}
	}

	cancel()
	global.Conns.Shutdown()
	return 0
}
