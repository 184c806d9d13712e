package engine

import (
	"context"

	"github.com/shpaker/soxyproxy/pkg/socks"
	"github.com/shpaker/soxyproxy/pkg/transport"
)

// Engine is the common post-decision interface shared by the SOCKS4 and
// SOCKS5 state machines (spec.md §9: represented as a sum type with
// explicit match, not an open-ended type hierarchy — the only two
// implementations are socks4Engine and socks5Engine below).
type Engine interface {
	// Handshake drives the protocol-specific handshake/auth/connect
	// sequence and returns the requested destination plus, when the
	// client named a domain instead of an address, that domain name for
	// the ruleset to evaluate. It never dials the destination and never
	// sends the success reply — that, and the policy/unreachable replies,
	// are deferred to the transport driver's post-dial decision via
	// Success/RulesetReject/TargetUnreachable. When Handshake itself refuses
	// the request (unsupported command or address type, failed
	// authentication, unresolved domain), it writes the matching reply
	// before returning the error.
	Handshake(ctx context.Context, conn transport.Conn) (dst socks.Address, domain string, err error)

	// Success sends the terminal success reply. actual is the remote
	// address the transport driver actually connected to.
	Success(ctx context.Context, conn transport.Conn, actual socks.Address) error

	// RulesetReject sends the terminal policy-rejection reply.
	RulesetReject(ctx context.Context, conn transport.Conn, dst socks.Address) error

	// TargetUnreachable sends the terminal unreachable reply (dial to dst
	// failed).
	TargetUnreachable(ctx context.Context, conn transport.Conn, dst socks.Address) error
}

// Protocol selects which engine a listener drives, derived from the
// transport.protocol key in configuration (see pkg/config); no
// proxy.protocol key is read.
type Protocol int

const (
	ProtocolSocks4 Protocol = iota
	ProtocolSocks4a
	ProtocolSocks5
	ProtocolSocks5h
)

// RequiresResolver reports whether this protocol variant must be
// constructed with a non-nil Resolver (the *a/*h variants of spec.md §6).
func (p Protocol) RequiresResolver() bool {
	return p == ProtocolSocks4a || p == ProtocolSocks5h
}

// New builds the engine matching protocol, wiring the authenticator and
// resolver through Safe* so the engine never has to guard against a
// misbehaving callback itself.
func New(protocol Protocol, auther Authenticator, resolver Resolver) Engine {
	auther = SafeAuthenticator(auther)
	resolver = SafeResolver(resolver)
	switch protocol {
	case ProtocolSocks4, ProtocolSocks4a:
		return &socks4Engine{auther: auther, resolver: resolver}
	default:
		return &socks5Engine{auther: auther, resolver: resolver}
	}
}
