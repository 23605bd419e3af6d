package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// UnknownIP is returned when no client address can be resolved.
// It matches the value the lockout tracker treats as untrackable.
const UnknownIP = "unknown"

// IPConfig holds configuration for IP extraction and validation
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// ExtractClientIP resolves the client address used for rate limiting and lockout keys.
//
// Forwarding headers are read only when the direct peer is a trusted proxy.
// X-Forwarded-For is walked right to left and the first hop that is not itself
// a trusted proxy wins, so a client cannot prepend addresses to pick its own key.
// Returned addresses are canonical (IPv4-mapped IPv6 is unmapped, zones dropped).
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remote, ok := remoteAddr(r)
	if !ok {
		return UnknownIP
	}

	var trusted []netip.Prefix
	if config != nil {
		trusted = parsePrefixes(config.TrustedProxies)
	}
	if !contains(trusted, remote) {
		return remote.String()
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, ok := parseAddr(hops[i])
			if !ok {
				// a malformed hop means the chain cannot be trusted beyond this point
				break
			}
			if !contains(trusted, hop) {
				return hop.String()
			}
		}
	}

	if hop, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
		return hop.String()
	}

	return remote.String()
}

// remoteAddr parses RemoteAddr with or without a port
func remoteAddr(r *http.Request) (netip.Addr, bool) {
	if r.RemoteAddr == "" {
		return netip.Addr{}, false
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	return parseAddr(host)
}

func parseAddr(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap().WithZone(""), true
}

// parsePrefixes skips invalid CIDR ranges
func parsePrefixes(cidrs []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes
}

func contains(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
