package registry

import (
	"fmt"
	"net"
	"strings"
)

// IDBaseFunc derives the address half of a logical client id from a raw
// peer address string (e.g. "192.168.0.42:51002"). The default,
// defaultIDBase, is overridable: the production rule (last two IPv4
// octets) folds distinct devices sharing those octets into one logical
// client, which is intentional but makes deterministic testing with
// loopback addresses awkward, since every connection shares 127.0.0.1.
type IDBaseFunc func(addr string) string

// defaultIDBase takes octets 3 and 4 of an IPv4 peer, joined by "x"
// (e.g. "192.168.0.42" -> "0x42").
func defaultIDBase(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	ip := net.ParseIP(host)
	if ip4 := ip.To4(); ip4 != nil {
		return fmt.Sprintf("%dx%d", ip4[2], ip4[3])
	}

	// Non-IPv4 peers (IPv6, including ::1 loopback) fall back to the raw host so
	// id derivation stays deterministic instead of silently colliding.
	return strings.ReplaceAll(host, ":", "x")
}
