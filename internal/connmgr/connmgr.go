// Package connmgr implements spec.md §4.1's Connection Manager: the fleet
// registry of live sockets, bucketed by (ip, NetworkScope), each bucket
// split into a client (inbound) side and a server (outbound) side.
//
// Grounded on original_source/src/connection/{manager,node}.rs. The
// DashMap-backed Rust map becomes a Go map guarded by its own mutex, with
// one extra mutex per bucket so bucket-local operations (add/remove,
// direction lookups) don't contend with bucket creation/removal.
package connmgr

import (
	"context"
	"hash/fnv"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/riobard/go-bloom"

	"github.com/free-web-movement/aex/internal/ipscope"
	"github.com/free-web-movement/aex/internal/node"
	"github.com/free-web-movement/aex/internal/xtime"
)

// denylistCapacity and denylistFPR size the admission-denylist bloom
// filter; a false positive only causes an occasional unwanted rejection
// of a not-actually-banned IP, never an unwanted admission, the same
// asymmetry common/antireplay.BloomRing accepts.
const (
	denylistCapacity = 1 << 16
	denylistFPR      = 1e-6
)

func denylistDoubleFNV(b []byte) (uint64, uint64) {
	hx := fnv.New64()
	hx.Write(b)
	x := hx.Sum64()
	hy := fnv.New64a()
	hy.Write(b)
	y := hy.Sum64()
	return x, y
}

// Entry is one live socket tracked by the Manager.
type Entry struct {
	Addr net.Addr

	nodeMu sync.RWMutex
	node   *node.Node

	writerMu sync.Mutex
	Writer   io.Writer

	ctx    context.Context
	cancel context.CancelFunc
	abort  func()

	connectedAt int64
	lastSeen    atomic.Int64
}

func newEntry(addr net.Addr, writer io.Writer, ctx context.Context, cancel context.CancelFunc, abort func()) *Entry {
	e := &Entry{
		Addr:        addr,
		Writer:      writer,
		ctx:         ctx,
		cancel:      cancel,
		abort:       abort,
		connectedAt: xtime.NowSeconds(),
	}
	e.lastSeen.Store(e.connectedAt)
	return e
}

// Context returns this entry's cooperative-cancellation context, a child
// of the Manager's root context. A driver loop handling this connection
// should select on Context().Done() (or pass it to blocking calls that
// accept a context.Context) so that CancelToken/CancelGracefully and
// Manager.Shutdown actually stop it, rather than merely flipping a cancel
// func nothing observes.
func (e *Entry) Context() context.Context {
	return e.ctx
}

// Node returns the entry's peer identity, if a handshake has populated it.
func (e *Entry) Node() *node.Node {
	e.nodeMu.RLock()
	defer e.nodeMu.RUnlock()
	return e.node
}

// SetNode records the entry's peer identity, typically after a handshake.
func (e *Entry) SetNode(n *node.Node) {
	e.nodeMu.Lock()
	defer e.nodeMu.Unlock()
	e.node = n
}

// Touch records a successful read, resetting the idle clock.
func (e *Entry) Touch() {
	e.lastSeen.Store(xtime.NowSeconds())
}

// Write serializes writes to the shared writer half.
func (e *Entry) Write(p []byte) (int, error) {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()
	return e.Writer.Write(p)
}

// CancelToken cancels this entry's cooperative cancellation signal without
// aborting the driver task.
func (e *Entry) CancelToken() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Entry) hardAbort() {
	if e.abort != nil {
		e.abort()
	}
}

type direction int

const (
	directionClient direction = iota
	directionServer
)

type bucketKey struct {
	ip    string
	scope ipscope.Scope
}

type bucket struct {
	mu      sync.RWMutex
	clients map[string]*Entry
	servers map[string]*Entry
}

func newBucket() *bucket {
	return &bucket{clients: make(map[string]*Entry), servers: make(map[string]*Entry)}
}

func (b *bucket) empty() bool {
	return len(b.clients) == 0 && len(b.servers) == 0
}

func (b *bucket) side(dir direction) map[string]*Entry {
	if dir == directionClient {
		return b.clients
	}
	return b.servers
}

// Manager is the fleet registry described by spec.md §4.1.
type Manager struct {
	mu      sync.RWMutex
	buckets map[bucketKey]*bucket

	denylistMu sync.Mutex
	denylist   bloom.Filter

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// New returns an empty Manager whose root cancellation token is derived
// from parent.
func New(parent context.Context) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		buckets:    make(map[bucketKey]*bucket),
		denylist:   bloom.New(denylistCapacity, denylistFPR, denylistDoubleFNV),
		rootCtx:    ctx,
		rootCancel: cancel,
	}
}

// Ban adds ip to the admission denylist: future AddClient/AddServer
// calls for this address are rejected at the door, before a bucket or
// Entry is ever created.
func (m *Manager) Ban(ip net.IP) {
	m.denylistMu.Lock()
	defer m.denylistMu.Unlock()
	m.denylist.Add([]byte(ip.String()))
}

// IsBanned reports whether ip has been banned. False positives are
// possible (bloom filter); false negatives are not.
func (m *Manager) IsBanned(ip net.IP) bool {
	m.denylistMu.Lock()
	defer m.denylistMu.Unlock()
	return m.denylist.Test([]byte(ip.String()))
}

func addrIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			return nil
		}
		return net.ParseIP(host)
	}
}

func (m *Manager) getOrCreateBucket(key bucketKey) *bucket {
	m.mu.RLock()
	b, ok := m.buckets[key]
	m.mu.RUnlock()
	if ok {
		return b
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok = m.buckets[key]
	if !ok {
		b = newBucket()
		m.buckets[key] = b
	}
	return b
}

// add is shared by Add/AddClient/AddServer. Loopback addresses are
// rejected silently, matching the Rust admission check.
func (m *Manager) add(addr net.Addr, writer io.Writer, abort func(), dir direction) *Entry {
	ip := addrIP(addr)
	if ip == nil || ipscope.IsLoopback(ip) || m.IsBanned(ip) {
		return nil
	}
	scope := ipscope.Classify(ip)
	key := bucketKey{ip: ip.String(), scope: scope}
	b := m.getOrCreateBucket(key)

	childCtx, cancel := context.WithCancel(m.rootCtx)
	entry := newEntry(addr, writer, childCtx, cancel, abort)

	b.mu.Lock()
	side := b.side(dir)
	if old, exists := side[addr.String()]; exists {
		old.hardAbort()
	}
	side[addr.String()] = entry
	b.mu.Unlock()
	return entry
}

// AddClient registers an inbound connection.
func (m *Manager) AddClient(addr net.Addr, writer io.Writer, abort func()) *Entry {
	return m.add(addr, writer, abort, directionClient)
}

// AddServer registers an outbound connection.
func (m *Manager) AddServer(addr net.Addr, writer io.Writer, abort func()) *Entry {
	return m.add(addr, writer, abort, directionServer)
}

func (m *Manager) bucketKeyFor(addr net.Addr) (bucketKey, bool) {
	ip := addrIP(addr)
	if ip == nil {
		return bucketKey{}, false
	}
	return bucketKey{ip: ip.String(), scope: ipscope.Classify(ip)}, true
}

// checkAndCleanupBucket removes key's bucket if it has become empty. The
// bucket's own lock must already be released before this is called, to
// avoid deadlocking on the outer map lock while still holding the shard
// lock (the same ordering invariant the original manager.rs enforces via
// `drop(bi_conn)` before `self.connections.remove(&key)`).
func (m *Manager) checkAndCleanupBucket(key bucketKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	if !ok {
		return
	}
	b.mu.RLock()
	empty := b.empty()
	b.mu.RUnlock()
	if empty {
		delete(m.buckets, key)
	}
}

// Remove deletes addr's entry for the given direction, removing the
// bucket if it is left empty.
func (m *Manager) Remove(addr net.Addr, client bool) {
	key, ok := m.bucketKeyFor(addr)
	if !ok {
		return
	}
	m.mu.RLock()
	b, ok := m.buckets[key]
	m.mu.RUnlock()
	if !ok {
		return
	}
	dir := directionServer
	if client {
		dir = directionClient
	}
	b.mu.Lock()
	delete(b.side(dir), addr.String())
	b.mu.Unlock()
	m.checkAndCleanupBucket(key)
}

// CancelByAddr hard-cancels: removes the entry (checking client side then
// server side) and aborts its task. Reports whether an entry was found.
func (m *Manager) CancelByAddr(addr net.Addr) bool {
	key, ok := m.bucketKeyFor(addr)
	if !ok {
		return false
	}
	m.mu.RLock()
	b, ok := m.buckets[key]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	var found *Entry
	b.mu.Lock()
	if e, exists := b.clients[addr.String()]; exists {
		found = e
		delete(b.clients, addr.String())
	} else if e, exists := b.servers[addr.String()]; exists {
		found = e
		delete(b.servers, addr.String())
	}
	b.mu.Unlock()

	if found == nil {
		return false
	}
	found.hardAbort()
	m.checkAndCleanupBucket(key)
	return true
}

// CancelGracefully triggers addr's entry's cancel token without removing
// it or aborting it; the driver task is expected to notice and exit on
// its own. Reports whether an entry was found.
func (m *Manager) CancelGracefully(addr net.Addr) bool {
	key, ok := m.bucketKeyFor(addr)
	if !ok {
		return false
	}
	m.mu.RLock()
	b, ok := m.buckets[key]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	b.mu.RLock()
	e, exists := b.clients[addr.String()]
	if !exists {
		e, exists = b.servers[addr.String()]
	}
	b.mu.RUnlock()
	if !exists {
		return false
	}
	e.CancelToken()
	return true
}

// CancelAllByIP removes and aborts every entry, in both directions, for
// every scope bucket of ip.
func (m *Manager) CancelAllByIP(ip net.IP) {
	ipStr := ip.String()
	var keys []bucketKey
	var entries []*Entry

	m.mu.Lock()
	for key, b := range m.buckets {
		if key.ip != ipStr {
			continue
		}
		b.mu.Lock()
		for _, e := range b.clients {
			entries = append(entries, e)
		}
		for _, e := range b.servers {
			entries = append(entries, e)
		}
		b.mu.Unlock()
		keys = append(keys, key)
	}
	for _, key := range keys {
		delete(m.buckets, key)
	}
	m.mu.Unlock()

	for _, e := range entries {
		e.hardAbort()
	}
}

// Deactivate sweeps every entry, aborting and removing any whose idle
// time exceeds idleSeconds or whose total lifetime exceeds
// maxLifetimeSeconds.
func (m *Manager) Deactivate(idleSeconds, maxLifetimeSeconds int64) {
	now := xtime.NowSeconds()

	m.mu.RLock()
	keys := make([]bucketKey, 0, len(m.buckets))
	for key := range m.buckets {
		keys = append(keys, key)
	}
	m.mu.RUnlock()

	for _, key := range keys {
		m.mu.RLock()
		b, ok := m.buckets[key]
		m.mu.RUnlock()
		if !ok {
			continue
		}

		var dead []*Entry
		b.mu.Lock()
		for addrStr, e := range b.clients {
			if isDeactivated(e, now, idleSeconds, maxLifetimeSeconds) {
				dead = append(dead, e)
				delete(b.clients, addrStr)
			}
		}
		for addrStr, e := range b.servers {
			if isDeactivated(e, now, idleSeconds, maxLifetimeSeconds) {
				dead = append(dead, e)
				delete(b.servers, addrStr)
			}
		}
		b.mu.Unlock()

		for _, e := range dead {
			e.hardAbort()
		}
		m.checkAndCleanupBucket(key)
	}
}

func isDeactivated(e *Entry, now, idleSeconds, maxLifetimeSeconds int64) bool {
	idle := now - e.lastSeen.Load()
	if idle < 0 {
		idle = 0
	}
	lifetime := now - e.connectedAt
	if lifetime < 0 {
		lifetime = 0
	}
	return idle > idleSeconds || lifetime > maxLifetimeSeconds
}

// Status is the derived snapshot returned by Manager.Status.
type Status struct {
	TotalIPs      int
	TotalClients  int
	TotalServers  int
	IntranetConns int
	ExtranetConns int
	OldestUptime  int64
	AverageUptime int64
}

// Status computes totals, direction counts, intranet/extranet split, and
// oldest/average uptime across every tracked entry. Counters are always
// derived fresh, never cached.
func (m *Manager) Status() Status {
	now := xtime.NowSeconds()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var st Status
	st.TotalIPs = len(m.buckets)

	var totalUptime, count int64
	visit := func(key bucketKey, e *Entry) {
		uptime := now - e.connectedAt
		if uptime < 0 {
			uptime = 0
		}
		totalUptime += uptime
		count++
		if count == 1 || uptime > st.OldestUptime {
			st.OldestUptime = uptime
		}
		if key.scope == ipscope.Intranet {
			st.IntranetConns++
		} else {
			st.ExtranetConns++
		}
	}

	for key, b := range m.buckets {
		b.mu.RLock()
		st.TotalClients += len(b.clients)
		st.TotalServers += len(b.servers)
		for _, e := range b.clients {
			visit(key, e)
		}
		for _, e := range b.servers {
			visit(key, e)
		}
		b.mu.RUnlock()
	}

	if count > 0 {
		st.AverageUptime = totalUptime / count
	}
	return st
}

// Shutdown cancels the root context (cascading to every entry's child
// token), then aborts every entry and clears the map.
func (m *Manager) Shutdown() {
	m.rootCancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.buckets {
		b.mu.Lock()
		for _, e := range b.clients {
			e.hardAbort()
		}
		for _, e := range b.servers {
			e.hardAbort()
		}
		b.mu.Unlock()
	}
	m.buckets = make(map[bucketKey]*bucket)
}
