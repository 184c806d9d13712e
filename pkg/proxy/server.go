// Package proxy is the transport driver: it owns the listener, accepts
// clients, and sequences connecting-ruleset check, engine handshake,
// proxying-ruleset check, dial, and relay for each one. It knows nothing
// about SOCKS4 vs SOCKS5 — every protocol-specific decision is made by the
// engine.Engine it is constructed with — matching spec.md §4.E's
// requirement that the transport driver only see callback interfaces.
// Grounded on the teacher's pkg/proxy/socks5.go accept loop
// (listener.Accept + per-connection goroutine + deferred Close), adapted
// to transport.Conn, context cancellation, and the engine/ruleset split.
package proxy

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/shpaker/soxyproxy/pkg/engine"
	soxyerrors "github.com/shpaker/soxyproxy/pkg/errors"
	"github.com/shpaker/soxyproxy/pkg/logger"
	"github.com/shpaker/soxyproxy/pkg/metrics"
	"github.com/shpaker/soxyproxy/pkg/relay"
	"github.com/shpaker/soxyproxy/pkg/ruleset"
	"github.com/shpaker/soxyproxy/pkg/socks"
	"github.com/shpaker/soxyproxy/pkg/transport"
)

// defaultDialTimeout bounds the dial to a client's requested destination.
const defaultDialTimeout = 10 * time.Second

// Server is a single protocol listener: one Server drives exactly one
// engine.Engine and one ruleset.Ruleset, matching one [transport] section
// of configuration.
type Server struct {
	ListenAddr  string
	Protocol    string // label used for logging/metrics, e.g. "socks5"
	Engine      engine.Engine
	Ruleset     *ruleset.Ruleset
	Dialer      transport.Dialer
	Recorder    metrics.Recorder
	Logger      *logger.Logger
	DialTimeout time.Duration
}

// ListenAndServe opens the listener and runs the accept loop until ctx is
// cancelled or the listener fails to accept. Each client is handled on its
// own goroutine; one client's panic or error never stops the loop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.ListenAddr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.logger().Info("listening", "protocol", s.Protocol, "address", s.ListenAddr)

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger().Warn("accept failed", "error", err)
			continue
		}
		go s.handleClient(ctx, nc)
	}
}

func (s *Server) logger() *logger.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logger.NewDefault()
}

func (s *Server) recorder() metrics.Recorder {
	if s.Recorder != nil {
		return s.Recorder
	}
	return metrics.NoOp
}

// handleClient sequences one client's lifetime from accept to relay
// teardown. It recovers from any panic raised by the engine, ruleset, or
// dial so that a single misbehaving client cannot take down the listener.
func (s *Server) handleClient(ctx context.Context, nc net.Conn) {
	log := s.logger().WithConnectionID(uuid.New())
	defer func() {
		if r := recover(); r != nil {
			log.LogPanic(r)
		}
	}()
	defer nc.Close()

	conn := transport.NewTCPConn(nc)
	clientIP := hostIP(nc.RemoteAddr())
	log = log.WithField("client", clientIP.String())

	if !s.Ruleset.ShouldAllowConnecting(clientIP) {
		s.recorder().ConnectionRejected(s.Protocol, "connecting")
		log.Debug("connecting ruleset rejected client")
		return
	}
	s.recorder().ConnectionAccepted(s.Protocol)
	defer s.recorder().ConnectionClosed(s.Protocol)

	dst, domain, err := s.Engine.Handshake(ctx, conn)
	if err != nil {
		s.logHandshakeError(log, err)
		return
	}

	if !s.Ruleset.ShouldAllowProxying(clientIP, dst, domain) {
		s.recorder().ConnectionRejected(s.Protocol, "proxying")
		log.Debug("proxying ruleset rejected destination", "destination", dst.String())
		_ = s.Engine.RulesetReject(ctx, conn, dst)
		return
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.dialTimeout())
	remote, err := s.Dialer.Dial(dialCtx, "tcp", dst.String())
	cancel()
	if err != nil {
		unreachable := soxyerrors.NewRemoteUnreachableError(err)
		s.recorder().ConnectionRejected(s.Protocol, "unreachable")
		log.Info("dial failed", "destination", dst.String(), "error", unreachable)
		_ = s.Engine.TargetUnreachable(ctx, conn, dst)
		return
	}
	defer remote.Close()

	actual, _ := socks.AddressFromNetAddr(remote.RemoteAddr())
	if err := s.Engine.Success(ctx, conn, actual); err != nil {
		log.Warn("failed writing success reply", "error", err)
		return
	}

	start := time.Now()
	err = relay.New(conn, remote, s.recorder()).Run(ctx)
	s.recorder().RelayDuration(time.Since(start))
	if err != nil {
		log.Warn("relay ended with an error", "error", err)
	}
}

func (s *Server) dialTimeout() time.Duration {
	if s.DialTimeout > 0 {
		return s.DialTimeout
	}
	return defaultDialTimeout
}

func (s *Server) logHandshakeError(log *logger.Logger, err error) {
	switch e := err.(type) {
	case *soxyerrors.PackageError:
		log.Debug("malformed request", "error", e)
	case *soxyerrors.AuthorizationError:
		s.recorder().ConnectionRejected(s.Protocol, "auth")
		log.Info("authentication failed", "username", e.Username)
	case *soxyerrors.ResolveDomainError:
		s.recorder().ConnectionRejected(s.Protocol, "resolve")
		log.Info("domain resolution failed", "domain", e.Domain)
	case *soxyerrors.RejectError:
		s.recorder().ConnectionRejected(s.Protocol, "handshake")
		log.Info("handshake rejected", "reason", e.Reason)
	default:
		log.Debug("handshake failed", "error", err)
	}
}

func hostIP(addr net.Addr) net.IP {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return net.IPv4zero
	}
	return tcpAddr.IP
}
