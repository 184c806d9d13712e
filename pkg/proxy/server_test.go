package proxy

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/shpaker/soxyproxy/pkg/ruleset"
	"github.com/shpaker/soxyproxy/pkg/socks"
	"github.com/shpaker/soxyproxy/pkg/transport"
)

// fakeEngine is a minimal engine.Engine double: it treats the first byte
// the client sends as the handshake and returns dst as the destination,
// which a test sets to its echo listener's address.
type fakeEngine struct {
	dst          socks.Address
	handshakeErr error
	successCalls int
}

func (f *fakeEngine) Handshake(ctx context.Context, conn transport.Conn) (socks.Address, string, error) {
	if f.handshakeErr != nil {
		return socks.Address{}, "", f.handshakeErr
	}
	if _, err := conn.Read(ctx, 1); err != nil {
		return socks.Address{}, "", err
	}
	return f.dst, "", nil
}

func (f *fakeEngine) Success(ctx context.Context, conn transport.Conn, actual socks.Address) error {
	f.successCalls++
	return conn.Write(ctx, []byte{0x00})
}

func (f *fakeEngine) RulesetReject(ctx context.Context, conn transport.Conn, dst socks.Address) error {
	return conn.Write(ctx, []byte{0x01})
}

func (f *fakeEngine) TargetUnreachable(ctx context.Context, conn transport.Conn, dst socks.Address) error {
	return conn.Write(ctx, []byte{0x02})
}

func mustRuleset(t *testing.T, entries ruleset.Entries) *ruleset.Ruleset {
	t.Helper()
	rs, err := ruleset.FromConfig(entries)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	return rs
}

func startEcho(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				buf := make([]byte, 1024)
				for {
					n, err := c.Read(buf)
					if err != nil {
						return
					}
					if _, err := c.Write(buf[:n]); err != nil {
						return
					}
				}
			}()
		}
	}()
	return ln.Addr().String()
}

func TestServer_AllowedClientRelaysToDestination(t *testing.T) {
	echoAddr := startEcho(t)
	host, portStr, _ := net.SplitHostPort(echoAddr)
	var port int
	for _, c := range portStr {
		port = port*10 + int(c-'0')
	}

	eng := &fakeEngine{dst: socks.Address{IP: net.ParseIP(host), Port: uint16(port)}}
	rs := mustRuleset(t, ruleset.Entries{
		AllowConnecting: []ruleset.ConnectingEntry{{From: "0.0.0.0/0"}},
		AllowProxying:   []ruleset.ProxyingEntry{{From: "0.0.0.0/0", To: "0.0.0.0/0"}},
	})

	srv := &Server{
		ListenAddr: "127.0.0.1:0",
		Protocol:   "test",
		Engine:     eng,
		Ruleset:    rs,
		Dialer:     transport.NewDialer(),
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", srv.ListenAddr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv.ListenAddr = ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.ListenAndServe(ctx)

	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", srv.ListenAddr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial server: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{0xAA}); err != nil {
		t.Fatalf("write handshake byte: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	status := make([]byte, 1)
	if _, err := conn.Read(status); err != nil {
		t.Fatalf("read success status: %v", err)
	}
	if status[0] != 0x00 {
		t.Fatalf("expected success status byte, got %x", status[0])
	}

	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatalf("write relay payload: %v", err)
	}
	echoed := make([]byte, 4)
	if _, err := conn.Read(echoed); err != nil {
		t.Fatalf("read relayed echo: %v", err)
	}
	if string(echoed) != "ping" {
		t.Fatalf("expected relayed echo %q, got %q", "ping", echoed)
	}
}

func TestServer_ConnectingRulesetRejectsBeforeHandshake(t *testing.T) {
	eng := &fakeEngine{}
	rs := mustRuleset(t, ruleset.Entries{
		BlockConnecting: []ruleset.ConnectingEntry{{From: "0.0.0.0/0"}},
	})

	srv := &Server{
		ListenAddr: "127.0.0.1:0",
		Protocol:   "test",
		Engine:     eng,
		Ruleset:    rs,
		Dialer:     transport.NewDialer(),
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", srv.ListenAddr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv.ListenAddr = ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.ListenAndServe(ctx)

	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", srv.ListenAddr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial server: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	if err == nil {
		t.Fatal("expected connection to be closed by the connecting ruleset")
	}
}
