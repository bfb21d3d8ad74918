// Package node implements the AEX peer identity (spec.md §3 Node):
// opaque id, protocol version, listen port, observed (scope, ip) pairs,
// and the set of protocols this process serves.
//
// Grounded on original_source/src/connection/node.rs, adapted to Go's
// net.Interfaces() instead of get_if_addrs (spec.md §6: "Implementers may
// observe the process's network interfaces to populate Node.ips; failure
// to enumerate is non-fatal").
package node

import (
	"crypto/rand"
	"net"
	"sync"

	"lukechampine.com/blake3"

	"github.com/free-web-movement/aex/internal/ipscope"
	"github.com/free-web-movement/aex/internal/xtime"
)

// Protocol names a sub-protocol this node serves.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
	ProtocolHTTP Protocol = "http"
	ProtocolWS   Protocol = "ws"
)

// Custom returns a Protocol value for a name not among the built-ins.
func Custom(name string) Protocol { return Protocol(name) }

type observedIP struct {
	scope ipscope.Scope
	ip    net.IP
}

// Node is a peer identity. Immutable after construction except for
// AddObservedIP, which is idempotent.
type Node struct {
	id        []byte
	version   uint32
	startedAt int64
	port      uint16
	protocols map[Protocol]struct{}

	mu  sync.RWMutex
	ips []observedIP
}

// New constructs a Node with the given port, id, version and protocol set.
// If id is nil, 32 random bytes are generated.
func New(port uint16, id []byte, version uint32, protocols ...Protocol) *Node {
	if id == nil {
		id = make([]byte, 32)
		_, _ = rand.Read(id)
	}
	protoSet := make(map[Protocol]struct{}, len(protocols))
	for _, p := range protocols {
		protoSet[p] = struct{}{}
	}
	return &Node{
		id:        id,
		version:   version,
		port:      port,
		startedAt: xtime.NowSeconds(),
		protocols: protoSet,
	}
}

// DeriveID produces a stable 32-byte node id from seed under key, for
// embedders that want Node.id to survive a process restart rather than
// be re-rolled from crypto/rand every time (e.g. a fixed listen address
// as seed). Grounded on the teacher's common/xudp.GetGlobalID, which
// derives its per-source globalID the same way: blake3.New(size, key)
// keyed on a process-wide base key, fed the value to be identified.
func DeriveID(seed, key []byte) []byte {
	h := blake3.New(32, key)
	h.Write(seed)
	return h.Sum(nil)
}

// FromSystem builds a Node and populates Ips by enumerating local network
// interfaces. Enumeration failures are swallowed: the Node is still usable
// with an empty ip list.
func FromSystem(port uint16, id []byte, version uint32, protocols ...Protocol) *Node {
	n := New(port, id, version, protocols...)
	ifaces, err := net.Interfaces()
	if err != nil {
		return n
	}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ip := extractIP(a)
			if ip == nil || ip.IsLoopback() {
				continue
			}
			n.AddObservedIP(ipscope.Classify(ip), ip)
		}
	}
	return n
}

func extractIP(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	default:
		return nil
	}
}

// ID returns the node's opaque identity bytes.
func (n *Node) ID() []byte { return n.id }

// Version returns the protocol version this node runs.
func (n *Node) Version() uint32 { return n.version }

// StartedAt returns the Unix-seconds timestamp this node was constructed at.
func (n *Node) StartedAt() int64 { return n.startedAt }

// Port returns the node's listening port.
func (n *Node) Port() uint16 { return n.port }

// Protocols returns the protocols the node serves, in no particular order.
func (n *Node) Protocols() []Protocol {
	out := make([]Protocol, 0, len(n.protocols))
	for p := range n.protocols {
		out = append(out, p)
	}
	return out
}

// Serves reports whether the node serves p.
func (n *Node) Serves(p Protocol) bool {
	_, ok := n.protocols[p]
	return ok
}

// AddObservedIP idempotently records a (scope, ip) pair.
func (n *Node) AddObservedIP(scope ipscope.Scope, ip net.IP) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, o := range n.ips {
		if o.scope == scope && o.ip.Equal(ip) {
			return
		}
	}
	n.ips = append(n.ips, observedIP{scope: scope, ip: ip})
}

// GetAll returns every observed ip regardless of scope.
func (n *Node) GetAll() []net.IP {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]net.IP, len(n.ips))
	for i, o := range n.ips {
		out[i] = o.ip
	}
	return out
}

// GetIPs returns observed ips matching scope, optionally filtered to the
// same address family as version (pass nil for no version filter).
func (n *Node) GetIPs(scope ipscope.Scope, version net.IP) []net.IP {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var out []net.IP
	for _, o := range n.ips {
		if o.scope != scope {
			continue
		}
		if version != nil {
			wantV4 := version.To4() != nil
			haveV4 := o.ip.To4() != nil
			if wantV4 != haveV4 {
				continue
			}
		}
		out = append(out, o.ip)
	}
	return out
}

func (n *Node) GetExtranetIPs() []net.IP { return n.GetIPs(ipscope.Extranet, nil) }
func (n *Node) GetIntranetIPs() []net.IP { return n.GetIPs(ipscope.Intranet, nil) }
