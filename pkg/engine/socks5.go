package engine

import (
	"context"

	soxyerrors "github.com/shpaker/soxyproxy/pkg/errors"
	"github.com/shpaker/soxyproxy/pkg/socks"
	"github.com/shpaker/soxyproxy/pkg/transport"
)

const (
	socks5MaxGreeting = 257 // VER+NMETHODS+255 methods
	socks5MaxAuth     = 513 // VER+ULEN+255+PLEN+255
	socks5MaxConnect  = 262 // VER+CMD+RSV+ATYP+1+255+2
)

type socks5Engine struct {
	auther   Authenticator
	resolver Resolver
}

func (e *socks5Engine) Handshake(ctx context.Context, conn transport.Conn) (socks.Address, string, error) {
	method, err := e.greet(ctx, conn)
	if err != nil {
		return socks.Address{}, "", err
	}

	if method == socks.Socks5AuthUsername {
		if err := e.authenticate(ctx, conn); err != nil {
			return socks.Address{}, "", err
		}
	}

	return e.connect(ctx, conn)
}

func (e *socks5Engine) greet(ctx context.Context, conn transport.Conn) (socks.Socks5AuthMethod, error) {
	raw, err := conn.Read(ctx, socks5MaxGreeting)
	if err != nil {
		return 0, soxyerrors.NewProtocolError("reading SOCKS5 greeting", err)
	}
	greeting, err := socks.ParseSocks5GreetingRequest(raw)
	if err != nil {
		return 0, err
	}

	advertised := socks.Socks5AuthNoAuth
	if e.auther != nil {
		advertised = socks.Socks5AuthUsername
	}

	offered := false
	for _, m := range greeting.Methods {
		if m == advertised {
			offered = true
			break
		}
	}

	if !offered {
		_ = conn.Write(ctx, socks.SerializeSocks5GreetingResponse(socks.Socks5GreetingResponse{Method: socks.Socks5AuthNoAcceptable}))
		return 0, soxyerrors.NewProtocolError("client did not offer the advertised auth method", nil)
	}

	if err := conn.Write(ctx, socks.SerializeSocks5GreetingResponse(socks.Socks5GreetingResponse{Method: advertised})); err != nil {
		return 0, soxyerrors.NewProtocolError("writing SOCKS5 greeting response", err)
	}
	return advertised, nil
}

func (e *socks5Engine) authenticate(ctx context.Context, conn transport.Conn) error {
	raw, err := conn.Read(ctx, socks5MaxAuth)
	if err != nil {
		return soxyerrors.NewProtocolError("reading SOCKS5 auth request", err)
	}
	authReq, err := socks.ParseSocks5UsernameAuthRequest(raw)
	if err != nil {
		return err
	}

	ok := e.auther(ctx, authReq.Username, authReq.Password)
	status := socks.Socks5AuthReplySuccess
	if !ok {
		status = socks.Socks5AuthReplyFail
	}
	writeErr := conn.Write(ctx, socks.SerializeSocks5UsernameAuthResponse(socks.Socks5UsernameAuthResponse{Status: status}))
	if !ok {
		return soxyerrors.NewAuthorizationError(authReq.Username)
	}
	if writeErr != nil {
		return soxyerrors.NewProtocolError("writing SOCKS5 auth response", writeErr)
	}
	return nil
}

func (e *socks5Engine) connect(ctx context.Context, conn transport.Conn) (socks.Address, string, error) {
	raw, err := conn.Read(ctx, socks5MaxConnect)
	if err != nil {
		return socks.Address{}, "", soxyerrors.NewProtocolError("reading SOCKS5 connect request", err)
	}

	req, err := socks.ParseSocks5ConnectRequest(raw)
	if err != nil {
		if unsupported, ok := err.(*socks.UnsupportedAddressTypeError); ok {
			_ = e.reply(ctx, conn, socks.Socks5ReplyAddrTypeNotSupported, socks.UnknownSocks5Destination, socks.Socks5AddrIPv4, "")
			return socks.Address{}, "", soxyerrors.NewRejectError("unsupported address type " + unsupported.Type.String())
		}
		return socks.Address{}, "", err
	}

	if req.Command != socks.Socks5CommandConnect {
		_ = e.reply(ctx, conn, socks.Socks5ReplyCmdNotSupported, socks.UnknownSocks5Destination, socks.Socks5AddrIPv4, "")
		return socks.Address{}, "", soxyerrors.NewRejectError("command " + req.Command.String() + " not supported")
	}

	if req.AddressType != socks.Socks5AddrDomain {
		return req.Address, "", nil
	}

	if e.resolver == nil {
		_ = e.reply(ctx, conn, socks.Socks5ReplyAddrTypeNotSupported, socks.UnknownSocks5Destination, socks.Socks5AddrIPv4, "")
		return socks.Address{}, "", soxyerrors.NewRejectError("domain destination given but no resolver configured")
	}
	ip, ok := e.resolver(ctx, req.Domain)
	if !ok {
		_ = e.reply(ctx, conn, socks.Socks5ReplyHostUnreachable, socks.UnknownSocks5Destination, socks.Socks5AddrIPv4, "")
		return socks.Address{}, "", soxyerrors.NewResolveDomainError(req.Domain)
	}
	return socks.Address{IP: ip, Port: req.Address.Port}, req.Domain, nil
}

func (e *socks5Engine) Success(ctx context.Context, conn transport.Conn, actual socks.Address) error {
	atyp := socks.Socks5AddrIPv4
	if actual.IP.To4() == nil {
		atyp = socks.Socks5AddrIPv6
	}
	return e.reply(ctx, conn, socks.Socks5ReplySucceeded, actual, atyp, "")
}

func (e *socks5Engine) RulesetReject(ctx context.Context, conn transport.Conn, dst socks.Address) error {
	return e.reply(ctx, conn, socks.Socks5ReplyNotAllowed, socks.UnknownSocks5Destination, socks.Socks5AddrIPv4, "")
}

func (e *socks5Engine) TargetUnreachable(ctx context.Context, conn transport.Conn, dst socks.Address) error {
	return e.reply(ctx, conn, socks.Socks5ReplyHostUnreachable, socks.UnknownSocks5Destination, socks.Socks5AddrIPv4, "")
}

func (e *socks5Engine) reply(ctx context.Context, conn transport.Conn, reply socks.Socks5ConnectReply, dst socks.Address, atyp socks.Socks5AddressType, domain string) error {
	raw := socks.SerializeSocks5ConnectResponse(socks.Socks5ConnectResponse{
		Reply:       reply,
		AddressType: atyp,
		Address:     dst,
		Domain:      domain,
	})
	return conn.Write(ctx, raw)
}
