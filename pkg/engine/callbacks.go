// Package engine drives the SOCKS4/SOCKS4a and SOCKS5 handshake/auth/connect
// state machines described in spec.md §4.B: it reads exactly one message at
// each step, calls pkg/socks to parse it, invokes the optional authenticator
// and resolver, and returns the destination to the transport driver. It
// never performs I/O beyond its transport.Conn argument and never dials a
// remote connection itself.
package engine

import (
	"context"
	"net"
)

// Authenticator validates credentials presented by the client. Password is
// empty for SOCKS4 (identd-style username-only check). Implementations
// SHOULD be safe for concurrent use — the proxy invokes one per client
// goroutine.
type Authenticator func(ctx context.Context, username, password string) bool

// Resolver maps a domain name to an IPv4 address, or reports it could not
// be resolved.
type Resolver func(ctx context.Context, domain string) (net.IP, bool)

// SafeAuthenticator wraps an Authenticator so that a panic inside it is
// recovered and treated as a rejected authentication, matching spec.md
// §4.B's "exceptions are caught and treated as false". A nil Authenticator
// wraps to a nil Authenticator (meaning "no authenticator configured"),
// which callers must check for explicitly — SafeAuthenticator only protects
// against a configured-but-misbehaving callback.
func SafeAuthenticator(a Authenticator) Authenticator {
	if a == nil {
		return nil
	}
	return func(ctx context.Context, username, password string) (ok bool) {
		defer func() {
			if recover() != nil {
				ok = false
			}
		}()
		return a(ctx, username, password)
	}
}

// SafeResolver wraps a Resolver the same way SafeAuthenticator wraps an
// Authenticator: a panicking resolver is treated as "not resolved".
func SafeResolver(r Resolver) Resolver {
	if r == nil {
		return nil
	}
	return func(ctx context.Context, domain string) (ip net.IP, ok bool) {
		defer func() {
			if recover() != nil {
				ip, ok = nil, false
			}
		}()
		return r(ctx, domain)
	}
}
