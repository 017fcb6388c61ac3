package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPExtractor resolves the real client address of a request,
// walking X-Forwarded-For only when the direct peer is a trusted proxy.
// With no trusted proxies configured only RemoteAddr is used, so a
// client cannot spoof its address through headers.
type ClientIPExtractor struct {
	trusted []netip.Prefix
}

// NewClientIPExtractor creates a ClientIPExtractor. Entries may be CIDRs
// or single addresses; invalid entries are skipped.
func NewClientIPExtractor(trustedProxies []string) *ClientIPExtractor {
	prefixes := make([]netip.Prefix, 0, len(trustedProxies))
	for _, proxy := range trustedProxies {
		if p, err := netip.ParsePrefix(strings.TrimSpace(proxy)); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(strings.TrimSpace(proxy)); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
		}
	}
	return &ClientIPExtractor{trusted: prefixes}
}

// Extract returns the client address of r. The boolean is false when no
// valid address could be determined.
func (e *ClientIPExtractor) Extract(r *http.Request) (netip.Addr, bool) {
	remote, ok := parseAddr(stripPort(r.RemoteAddr))
	if !ok {
		return netip.Addr{}, false
	}

	if len(e.trusted) == 0 || !e.isTrusted(remote) {
		return remote, true
	}

	return e.extractFromXFF(r, remote), true
}

// extractFromXFF walks X-Forwarded-For right-to-left and returns the first
// address that is not a trusted proxy. Unparsable hops end the walk, since
// anything left of them is client controlled.
func (e *ClientIPExtractor) extractFromXFF(r *http.Request, fallback netip.Addr) netip.Addr {
	values := r.Header.Values(HeaderXForwardedFor)
	if len(values) == 0 {
		return fallback
	}

	hops := strings.Split(strings.Join(values, ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		addr, ok := parseAddr(hop)
		if !ok {
			return fallback
		}
		if !e.isTrusted(addr) {
			return addr
		}
		fallback = addr
	}

	return fallback
}

func (e *ClientIPExtractor) isTrusted(addr netip.Addr) bool {
	for _, p := range e.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// parseAddr parses an address and unmaps IPv4-in-IPv6 forms so that
// IPv4 prefixes match them.
func parseAddr(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// stripPort removes the port from an address string.
// Handles both IPv4 ("192.168.1.1:8080") and IPv6 ("[::1]:8080") formats.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.Trim(addr, "[]")
	}
	return host
}
