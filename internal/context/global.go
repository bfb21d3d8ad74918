// Package context implements spec.md §3's three-layer Context: GlobalContext
// is process-wide, Context is per-connection, HttpMetadata is per-request.
// The package name collides with the standard library's context package by
// design — see spec.md §3's naming — so importers conventionally alias it
// (e.g. `axctx "github.com/free-web-movement/aex/internal/context"`).
package context

import (
	"github.com/free-web-movement/aex/internal/communicators"
	"github.com/free-web-movement/aex/internal/connmgr"
	"github.com/free-web-movement/aex/internal/crypto"
	"github.com/free-web-movement/aex/internal/node"
	"github.com/free-web-movement/aex/internal/typemap"
)

// GlobalContext is the process-wide state shared by every connection:
// listen address, local Node identity, the Connection Manager, the three
// communicator registries, a server name, an optional session-key
// manager, and an open-ended extensions TypeMap.
type GlobalContext struct {
	ListenAddr string
	ServerName string

	Local *node.Node
	Conns *connmgr.Manager

	Pipes   *communicators.PipeManager
	Spreads *communicators.SpreadManager
	Events  *communicators.EventManager

	SessionKeys *crypto.SessionKeyManager // nil if the embedder opted out

	Extensions *typemap.TypeMap
}

// NewGlobalContext wires up the shared registries. sessionKeys may be nil
// when the embedder does not need the optional crypto layer.
func NewGlobalContext(listenAddr, serverName string, local *node.Node, conns *connmgr.Manager, sessionKeys *crypto.SessionKeyManager) *GlobalContext {
	return &GlobalContext{
		ListenAddr:  listenAddr,
		ServerName:  serverName,
		Local:       local,
		Conns:       conns,
		Pipes:       communicators.NewPipeManager(),
		Spreads:     communicators.NewSpreadManager(),
		Events:      communicators.NewEventManager(),
		SessionKeys: sessionKeys,
		Extensions:  typemap.New(),
	}
}
