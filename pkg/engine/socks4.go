package engine

import (
	"context"

	soxyerrors "github.com/shpaker/soxyproxy/pkg/errors"
	"github.com/shpaker/soxyproxy/pkg/socks"
	"github.com/shpaker/soxyproxy/pkg/transport"
)

const socks4MaxRequest = 512

type socks4Engine struct {
	auther   Authenticator
	resolver Resolver
}

func (e *socks4Engine) Handshake(ctx context.Context, conn transport.Conn) (socks.Address, string, error) {
	raw, err := conn.Read(ctx, socks4MaxRequest)
	if err != nil {
		return socks.Address{}, "", soxyerrors.NewProtocolError("reading SOCKS4 request", err)
	}

	req, err := socks.ParseSocks4Request(raw)
	if err != nil {
		return socks.Address{}, "", err
	}

	// Until a SOCKS4a domain is resolved, there is no real destination to
	// echo on a reject reply — only the client's 0.0.0.x signal address,
	// which the spec's unknown-destination convention supersedes.
	echoAddr := req.Address
	if req.IsSocks4a {
		echoAddr = socks.UnknownSocks4Destination
	}

	if req.Command != socks.Socks4CommandConnect {
		_ = e.reply(ctx, conn, socks.Socks4ReplyRejected, req.Address)
		return socks.Address{}, "", soxyerrors.NewRejectError("command " + req.Command.String() + " not supported")
	}

	if req.Username == "" && req.Domain == "" && e.auther != nil {
		// No tail data at all and an authenticator is configured: the
		// client offered no username to check.
		_ = e.reply(ctx, conn, socks.Socks4ReplyRejected, echoAddr)
		return socks.Address{}, "", soxyerrors.NewRejectError("username required but absent")
	}

	if e.auther != nil {
		if req.Username == "" {
			_ = e.reply(ctx, conn, socks.Socks4ReplyIdentdRejected, echoAddr)
			return socks.Address{}, "", soxyerrors.NewAuthorizationError("")
		}
		if !e.auther(ctx, req.Username, "") {
			_ = e.reply(ctx, conn, socks.Socks4ReplyIdentdRejected, echoAddr)
			return socks.Address{}, "", soxyerrors.NewAuthorizationError(req.Username)
		}
	} else if req.Username != "" {
		_ = e.reply(ctx, conn, socks.Socks4ReplyIdentdNotReachable, echoAddr)
		return socks.Address{}, "", soxyerrors.NewAuthorizationError(req.Username)
	}

	if !req.IsSocks4a {
		return req.Address, "", nil
	}

	if e.resolver == nil {
		_ = e.reply(ctx, conn, socks.Socks4ReplyRejected, echoAddr)
		return socks.Address{}, "", soxyerrors.NewRejectError("SOCKS4a domain given but no resolver configured")
	}
	ip, ok := e.resolver(ctx, req.Domain)
	if !ok {
		_ = e.reply(ctx, conn, socks.Socks4ReplyRejected, echoAddr)
		return socks.Address{}, "", soxyerrors.NewResolveDomainError(req.Domain)
	}
	return socks.Address{IP: ip, Port: req.Address.Port}, req.Domain, nil
}

func (e *socks4Engine) Success(ctx context.Context, conn transport.Conn, actual socks.Address) error {
	return e.reply(ctx, conn, socks.Socks4ReplyGranted, actual)
}

func (e *socks4Engine) RulesetReject(ctx context.Context, conn transport.Conn, dst socks.Address) error {
	return e.reply(ctx, conn, socks.Socks4ReplyRejected, dst)
}

func (e *socks4Engine) TargetUnreachable(ctx context.Context, conn transport.Conn, dst socks.Address) error {
	return e.reply(ctx, conn, socks.Socks4ReplyRejected, dst)
}

func (e *socks4Engine) reply(ctx context.Context, conn transport.Conn, reply socks.Socks4Reply, dst socks.Address) error {
	raw := socks.SerializeSocks4Response(socks.Socks4Response{Reply: reply, Address: dst})
	return conn.Write(ctx, raw)
}
