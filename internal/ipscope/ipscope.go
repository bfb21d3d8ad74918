// Package ipscope classifies an IP address as Intranet or Extranet per
// RFC1918 (IPv4 private ranges), IPv4 link-local, and IPv6 link-local/ULA.
//
// Grounded on the teacher's app/router GeoIPXSet: a netipx.IPSetBuilder is
// populated once with the private/reserved prefixes and queried with
// netipx.IPSet.Contains, the same shape as the teacher's GeoIP matcher
// built over CIDR prefixes.
package ipscope

import (
	"net"
	"net/netip"

	"go4.org/netipx"
)

// Scope is an IP's Intranet/Extranet classification; paired with the ip it
// forms the Manager's bucket key.
type Scope int

const (
	Extranet Scope = iota
	Intranet
)

func (s Scope) String() string {
	if s == Intranet {
		return "intranet"
	}
	return "extranet"
}

var privateSet *netipx.IPSet

func init() {
	var b netipx.IPSetBuilder
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16", // IPv4 link-local
		"127.0.0.0/8",    // loopback, classified intranet but rejected at admission
		"fc00::/7",       // unique local address
		"fe80::/10",      // IPv6 link-local
		"::1/128",        // loopback
	} {
		prefix := netip.MustParsePrefix(cidr)
		b.AddPrefix(prefix)
	}
	set, err := b.IPSet()
	if err != nil {
		panic(err) // static prefix list; only fails on programmer error
	}
	privateSet = set
}

// Classify returns the NetworkScope of ip. The function is pure and total:
// it never errors and every IP maps to exactly one scope.
func Classify(ip net.IP) Scope {
	addr, ok := netipx.FromStdIP(ip)
	if !ok {
		return Extranet
	}
	addr = addr.Unmap()
	if privateSet.Contains(addr) {
		return Intranet
	}
	return Extranet
}

// IsLoopback reports whether ip is a loopback address, used by the
// connection manager to reject admission per spec.
func IsLoopback(ip net.IP) bool {
	return ip.IsLoopback()
}
