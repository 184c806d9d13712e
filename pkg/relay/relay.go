// Package relay implements the bidirectional byte pump between a client and
// its dialed remote, generalizing the teacher's two-goroutine io.Copy relay
// (pkg/proxy/socks5.go's relay()) to transport.Conn's context-aware
// Read/Write and to the explicit arrival-order forwarding contract: a
// direction posts its next read only after its forwarding write to the
// other side has completed.
package relay

import (
	"context"

	soxyerrors "github.com/shpaker/soxyproxy/pkg/errors"
	"github.com/shpaker/soxyproxy/pkg/metrics"
	"github.com/shpaker/soxyproxy/pkg/transport"
)

// bufferSize bounds a single relay read, matching the teacher's io.Copy
// default buffer scale without pulling in an unbounded allocation per read.
const bufferSize = 32 * 1024

const (
	directionClientToRemote = "client_to_remote"
	directionRemoteToClient = "remote_to_client"
)

// Session owns two already-open connections for the lifetime of a single
// relay run. It does not close either connection; the caller does, on
// scope exit, per the transport driver's ownership contract.
type Session struct {
	client   transport.Conn
	remote   transport.Conn
	recorder metrics.Recorder
}

// New builds a relay session over an already-connected client and remote.
// A nil recorder relays without reporting bytes transferred.
func New(client, remote transport.Conn, recorder metrics.Recorder) *Session {
	if recorder == nil {
		recorder = metrics.NoOp
	}
	return &Session{client: client, remote: remote, recorder: recorder}
}

// Run pumps bytes in both directions until either side reaches EOF, the
// context is cancelled, or a write fails. It returns the first relay
// failure observed (a *soxyerrors.RelayError), or nil on a clean EOF-driven
// exit.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- pump(ctx, s.client, s.remote, directionClientToRemote, s.recorder) }()
	go func() { errs <- pump(ctx, s.remote, s.client, directionRemoteToClient, s.recorder) }()

	// Both directions exit once the context is cancelled, so draining both
	// (rather than returning on the first) guarantees neither goroutine
	// leaks past Run.
	first := <-errs
	cancel()
	second := <-errs

	if first != nil {
		return first
	}
	return second
}

// pump copies src to dst until EOF, cancellation, or a failure. Any read
// error (io.EOF included) ends the loop without error, and so does an empty
// read; only a failed write is returned as a RelayError.
func pump(ctx context.Context, src, dst transport.Conn, direction string, recorder metrics.Recorder) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		buf, err := src.Read(ctx, bufferSize)
		if err != nil {
			return nil // EOF or cancellation: orderly end of this direction
		}
		if len(buf) == 0 {
			return nil
		}
		if err := dst.Write(ctx, buf); err != nil {
			return soxyerrors.NewRelayError(err)
		}
		recorder.BytesRelayed(direction, len(buf))
	}
}
