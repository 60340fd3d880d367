package net

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// ParseTrustedProxies reads the [network] trusted_proxies entries. Each is a
// CIDR ("10.0.0.0/8") or a bare address, which trusts that host only.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

func trusted(a netip.Addr, proxies []netip.Prefix) bool {
	a = a.Unmap()
	for _, p := range proxies {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// peerAddr returns the address a WebSocket session is keyed by. The
// connecting socket's address is used unless it belongs to a trusted proxy;
// then X-Forwarded-For is walked from the right and the first hop that is
// not itself a trusted proxy wins. Unparsable hops stop the walk.
func peerAddr(remoteAddr string, forwarded []string, proxies []netip.Prefix) string {
	if len(proxies) == 0 || len(forwarded) == 0 {
		return remoteAddr
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || !trusted(ip, proxies) {
		return remoteAddr
	}

	var hops []string
	for _, v := range forwarded {
		hops = append(hops, strings.Split(v, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return remoteAddr
		}
		if !trusted(hop, proxies) {
			return hop.Unmap().String()
		}
	}
	return remoteAddr
}
