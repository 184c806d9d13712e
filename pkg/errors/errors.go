// Package errors implements the error taxonomy that drives reply selection
// across the protocol engine, ruleset, and relay session.
package errors

import "fmt"

// PackageError signals that a received buffer could not be parsed as a
// SOCKS message. The offending bytes are kept for diagnostics. No reply is
// ever sent for a PackageError: the client is simply closed.
type PackageError struct {
	Raw     []byte
	Message string
}

func NewPackageError(message string, raw []byte) *PackageError {
	return &PackageError{Raw: raw, Message: message}
}

func (e *PackageError) Error() string {
	return fmt.Sprintf("package error: %s (%d bytes)", e.Message, len(e.Raw))
}

// ProtocolError is a generic engine-level failure that occurs before the
// engine has committed to a terminal reply. The client is closed; the only
// reply that may precede it is the SOCKS5 NO_ACCEPTABLE greeting response
// when the client did not offer the advertised auth method.
type ProtocolError struct {
	Message    string
	Underlying error
}

func NewProtocolError(message string, underlying error) *ProtocolError {
	return &ProtocolError{Message: message, Underlying: underlying}
}

func (e *ProtocolError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Message, e.Underlying)
	}
	return fmt.Sprintf("protocol error: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error { return e.Underlying }

// ResolveDomainError is raised on the resolver path of the engine. The
// engine has already sent the protocol-appropriate reply; the caller only
// closes the client.
type ResolveDomainError struct {
	Domain string
}

func NewResolveDomainError(domain string) *ResolveDomainError {
	return &ResolveDomainError{Domain: domain}
}

func (e *ResolveDomainError) Error() string {
	return fmt.Sprintf("could not resolve domain %q", e.Domain)
}

// AuthorizationError is raised on the auth path of the engine. The engine
// has already sent the sub-negotiation/ident failure reply; the caller only
// closes the client.
type AuthorizationError struct {
	Username string
}

func NewAuthorizationError(username string) *AuthorizationError {
	return &AuthorizationError{Username: username}
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed for user %q", e.Username)
}

// RejectError is raised by the engine when it refuses a request during the
// handshake (unsupported command or address type, missing username, no
// resolver configured). The engine has already sent the protocol-appropriate
// reject reply; the caller only closes the client. Ruleset denials are
// handled by the transport driver and do not produce a RejectError.
type RejectError struct {
	Reason string
}

func NewRejectError(reason string) *RejectError {
	return &RejectError{Reason: reason}
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("request rejected: %s", e.Reason)
}

// RemoteUnreachableError is raised by the transport driver when dialing the
// destination fails. The caller must send the protocol-appropriate
// unreachable reply, then close.
type RemoteUnreachableError struct {
	Underlying error
}

func NewRemoteUnreachableError(underlying error) *RemoteUnreachableError {
	return &RemoteUnreachableError{Underlying: underlying}
}

func (e *RemoteUnreachableError) Error() string {
	return fmt.Sprintf("remote unreachable: %v", e.Underlying)
}

func (e *RemoteUnreachableError) Unwrap() error { return e.Underlying }

// RelayError wraps a failure inside the relay session. It is logged, not
// replied to — by the time the relay runs, the terminal reply has already
// been sent.
type RelayError struct {
	Underlying error
}

func NewRelayError(underlying error) *RelayError {
	return &RelayError{Underlying: underlying}
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay error: %v", e.Underlying)
}

func (e *RelayError) Unwrap() error { return e.Underlying }
