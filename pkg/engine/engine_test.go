package engine

import (
	"bytes"
	"context"
	"net"
	"testing"

	soxyerrors "github.com/shpaker/soxyproxy/pkg/errors"
	"github.com/shpaker/soxyproxy/pkg/socks"
	"github.com/shpaker/soxyproxy/pkg/transport"
)

// pipePair returns the server-side Conn (what the engine reads/writes) and
// the raw client-side net.Conn a test drives directly.
func pipePair(t *testing.T) (transport.Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return transport.NewTCPConn(server), client
}

func TestSocks4Engine_PlainConnectGranted(t *testing.T) {
	e := New(ProtocolSocks4, nil, nil)
	conn, client := pipePair(t)

	req := []byte{0x04, 0x01, 0x01, 0xBB, 93, 184, 216, 34, 0x00}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = client.Write(req)
	}()

	ctx := context.Background()
	dst, domain, err := e.Handshake(ctx, conn)
	<-done
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if domain != "" {
		t.Fatalf("expected no domain, got %q", domain)
	}
	if dst.Port != 0x01BB || !dst.IP.Equal(net.IPv4(93, 184, 216, 34)) {
		t.Fatalf("unexpected dst: %+v", dst)
	}

	readDone := make(chan []byte)
	go func() {
		buf := make([]byte, 8)
		n, _ := client.Read(buf)
		readDone <- buf[:n]
	}()
	if err := e.Success(ctx, conn, dst); err != nil {
		t.Fatalf("Success: %v", err)
	}
	resp := <-readDone
	want := socks.SerializeSocks4Response(socks.Socks4Response{Reply: socks.Socks4ReplyGranted, Address: dst})
	if !bytes.Equal(resp, want) {
		t.Fatalf("response = % x, want % x", resp, want)
	}
}

func TestSocks4Engine_BindRejected(t *testing.T) {
	e := New(ProtocolSocks4, nil, nil)
	conn, client := pipePair(t)

	req := []byte{0x04, 0x02, 0x00, 0x50, 1, 2, 3, 4, 0x00}
	go func() { _, _ = client.Write(req) }()

	readDone := make(chan []byte)
	go func() {
		buf := make([]byte, 8)
		n, _ := client.Read(buf)
		readDone <- buf[:n]
	}()

	_, _, err := e.Handshake(context.Background(), conn)
	if err == nil {
		t.Fatal("expected reject error for BIND")
	}
	if _, ok := err.(*soxyerrors.RejectError); !ok {
		t.Fatalf("expected *RejectError, got %T: %v", err, err)
	}

	resp := <-readDone
	if resp[1] != byte(socks.Socks4ReplyRejected) {
		t.Fatalf("expected rejected reply byte, got % x", resp)
	}
}

func TestSocks4Engine_Socks4aUsesResolver(t *testing.T) {
	resolver := func(ctx context.Context, domain string) (net.IP, bool) {
		if domain == "example.com" {
			return net.IPv4(1, 2, 3, 4), true
		}
		return nil, false
	}
	e := New(ProtocolSocks4a, nil, resolver)
	conn, client := pipePair(t)

	// VN CD DSTPORT DSTIP(0.0.0.1) NULL "example.com" NULL
	req := append([]byte{0x04, 0x01, 0x00, 0x50, 0, 0, 0, 1, 0x00}, append([]byte("example.com"), 0x00)...)
	go func() { _, _ = client.Write(req) }()

	dst, domain, err := e.Handshake(context.Background(), conn)
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if domain != "example.com" {
		t.Fatalf("domain = %q", domain)
	}
	if !dst.IP.Equal(net.IPv4(1, 2, 3, 4)) {
		t.Fatalf("dst.IP = %v", dst.IP)
	}
}

func TestSocks4Engine_Socks4aResolveFailureEchoesUnknownDestination(t *testing.T) {
	resolver := func(ctx context.Context, domain string) (net.IP, bool) { return nil, false }
	e := New(ProtocolSocks4a, nil, resolver)
	conn, client := pipePair(t)

	req := append([]byte{0x04, 0x01, 0x00, 0x50, 0, 0, 0, 1, 0x00}, append([]byte("nowhere.invalid"), 0x00)...)
	go func() { _, _ = client.Write(req) }()

	readDone := make(chan []byte)
	go func() {
		buf := make([]byte, 8)
		n, _ := client.Read(buf)
		readDone <- buf[:n]
	}()

	_, _, err := e.Handshake(context.Background(), conn)
	if err == nil {
		t.Fatal("expected resolve-domain error")
	}
	resp := <-readDone
	want := socks.SerializeSocks4Response(socks.Socks4Response{Reply: socks.Socks4ReplyRejected, Address: socks.UnknownSocks4Destination})
	if !bytes.Equal(resp, want) {
		t.Fatalf("response = % x, want % x", resp, want)
	}
}

func TestSocks4Engine_AuthRequiredButUsernameMissing(t *testing.T) {
	auther := func(ctx context.Context, username, password string) bool { return username == "alice" }
	e := New(ProtocolSocks4, auther, nil)
	conn, client := pipePair(t)

	req := []byte{0x04, 0x01, 0x00, 0x50, 1, 2, 3, 4, 0x00}
	go func() { _, _ = client.Write(req) }()
	go func() {
		buf := make([]byte, 8)
		_, _ = client.Read(buf) // drain the reject reply
	}()

	_, _, err := e.Handshake(context.Background(), conn)
	if _, ok := err.(*soxyerrors.RejectError); !ok {
		t.Fatalf("expected *RejectError, got %T: %v", err, err)
	}
}

func TestSocks5Engine_NoAuthDirectIPv4(t *testing.T) {
	e := New(ProtocolSocks5, nil, nil)
	conn, client := pipePair(t)

	go func() {
		_, _ = client.Write([]byte{0x05, 0x01, 0x00}) // greeting: NOAUTH only
		buf := make([]byte, 2)
		_, _ = client.Read(buf)
		_, _ = client.Write([]byte{0x05, 0x01, 0x00, 0x01, 142, 250, 74, 35, 0x01, 0xBB})
	}()

	dst, domain, err := e.Handshake(context.Background(), conn)
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if domain != "" {
		t.Fatalf("expected no domain, got %q", domain)
	}
	if !dst.IP.Equal(net.IPv4(142, 250, 74, 35)) || dst.Port != 0x01BB {
		t.Fatalf("unexpected dst: %+v", dst)
	}
}

func TestSocks5Engine_AuthFailure(t *testing.T) {
	auther := func(ctx context.Context, username, password string) bool { return false }
	e := New(ProtocolSocks5, auther, nil)
	conn, client := pipePair(t)

	go func() {
		_, _ = client.Write([]byte{0x05, 0x01, 0x02}) // greeting: USERNAME only
		buf := make([]byte, 2)
		_, _ = client.Read(buf)
		authReq := append([]byte{0x01, 5}, []byte("alice")...)
		authReq = append(authReq, 3)
		authReq = append(authReq, []byte("bad")...)
		_, _ = client.Write(authReq)
		_, _ = client.Read(buf) // drain the sub-negotiation failure reply
	}()

	_, _, err := e.Handshake(context.Background(), conn)
	if _, ok := err.(*soxyerrors.AuthorizationError); !ok {
		t.Fatalf("expected *AuthorizationError, got %T: %v", err, err)
	}
}

func TestSocks5Engine_DomainWithoutResolverSendsAddrTypeNotSupported(t *testing.T) {
	e := New(ProtocolSocks5, nil, nil)
	conn, client := pipePair(t)

	readDone := make(chan []byte, 1)
	go func() {
		_, _ = client.Write([]byte{0x05, 0x01, 0x00})
		buf := make([]byte, 2)
		_, _ = client.Read(buf)
		domain := "example.com"
		req := []byte{0x05, 0x01, 0x00, 0x03, byte(len(domain))}
		req = append(req, []byte(domain)...)
		req = append(req, 0x00, 0x50)
		_, _ = client.Write(req)
		reply := make([]byte, 10)
		n, _ := client.Read(reply)
		readDone <- reply[:n]
	}()

	_, _, err := e.Handshake(context.Background(), conn)
	if err == nil {
		t.Fatal("expected reject error")
	}
	resp := <-readDone
	if len(resp) < 2 || resp[1] != byte(socks.Socks5ReplyAddrTypeNotSupported) {
		t.Fatalf("expected ADDR_TYPE_NOT_SUPPORTED reply, got % x", resp)
	}
}

func TestSocks5Engine_DomainResolvedSuccess(t *testing.T) {
	resolver := func(ctx context.Context, domain string) (net.IP, bool) {
		if domain == "example.com" {
			return net.IPv4(5, 6, 7, 8), true
		}
		return nil, false
	}
	e := New(ProtocolSocks5h, nil, resolver)
	conn, client := pipePair(t)

	go func() {
		_, _ = client.Write([]byte{0x05, 0x01, 0x00})
		buf := make([]byte, 2)
		_, _ = client.Read(buf)
		domain := "example.com"
		req := []byte{0x05, 0x01, 0x00, 0x03, byte(len(domain))}
		req = append(req, []byte(domain)...)
		req = append(req, 0x00, 0x50)
		_, _ = client.Write(req)
	}()

	dst, domain, err := e.Handshake(context.Background(), conn)
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if domain != "example.com" {
		t.Fatalf("domain = %q", domain)
	}
	if !dst.IP.Equal(net.IPv4(5, 6, 7, 8)) || dst.Port != 0x50 {
		t.Fatalf("unexpected dst: %+v", dst)
	}
}
