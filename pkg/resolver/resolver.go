// Package resolver adapts net.Resolver to engine.Resolver. The proxy's
// SOCKS4a/SOCKS5h handling only needs a domain's first IPv4 address;
// anything else (IPv6-only results, NXDOMAIN, timeouts) is reported as
// not-found and left to the engine to turn into the protocol-appropriate
// reject reply.
package resolver

import (
	"context"
	"net"
)

// Resolver resolves domain names to their first IPv4 address.
type Resolver struct {
	r *net.Resolver
}

// New wraps r. A nil r uses net.DefaultResolver.
func New(r *net.Resolver) *Resolver {
	if r == nil {
		r = net.DefaultResolver
	}
	return &Resolver{r: r}
}

// Resolve implements engine.Resolver.
func (res *Resolver) Resolve(ctx context.Context, domain string) (net.IP, bool) {
	addrs, err := res.r.LookupIPAddr(ctx, domain)
	if err != nil {
		return nil, false
	}
	for _, addr := range addrs {
		if v4 := addr.IP.To4(); v4 != nil {
			return v4, true
		}
	}
	return nil, false
}
