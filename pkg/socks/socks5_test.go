package socks_test

import (
	"net"
	"testing"

	"github.com/shpaker/soxyproxy/pkg/socks"
)

func TestParseSocks5GreetingRequest(t *testing.T) {
	raw := []byte{0x05, 0x01, 0x00}
	greeting, err := socks.ParseSocks5GreetingRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(greeting.Methods) != 1 || greeting.Methods[0] != socks.Socks5AuthNoAuth {
		t.Fatalf("unexpected methods: %v", greeting.Methods)
	}
}

func TestParseSocks5GreetingRequest_ZeroMethodsIsPackageError(t *testing.T) {
	raw := []byte{0x05, 0x00}
	if _, err := socks.ParseSocks5GreetingRequest(raw); err == nil {
		t.Fatalf("expected package error for NMETHODS=0")
	}
}

func TestParseSocks5GreetingRequest_LengthMismatchIsPackageError(t *testing.T) {
	raw := []byte{0x05, 0x02, 0x00}
	if _, err := socks.ParseSocks5GreetingRequest(raw); err == nil {
		t.Fatalf("expected package error for NMETHODS/length mismatch")
	}
}

func TestSocks5UsernameAuthRequestRoundTrip(t *testing.T) {
	raw := []byte{0x01, 0x04, 'u', 's', 'e', 'r', 0x05, 'w', 'r', 'o', 'n', 'g'}
	req, err := socks.ParseSocks5UsernameAuthRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Username != "user" || req.Password != "wrong" {
		t.Fatalf("unexpected credentials: %+v", req)
	}
}

func TestSocks5ConnectRequest_IPv4(t *testing.T) {
	raw := []byte{0x05, 0x01, 0x00, 0x01, 142, 250, 74, 35, 0x01, 0xBB}
	req, err := socks.ParseSocks5ConnectRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.AddressType != socks.Socks5AddrIPv4 {
		t.Fatalf("unexpected address type")
	}
	if !req.Address.IP.Equal(net.IPv4(142, 250, 74, 35)) || req.Address.Port != 0x01BB {
		t.Fatalf("unexpected destination: %+v", req.Address)
	}
}

func TestSocks5ConnectRequest_UnknownAtypIsAddrTypeNotSupported(t *testing.T) {
	raw := []byte{0x05, 0x01, 0x00, 0x02, 142, 250, 74, 35, 0x01, 0xBB}
	_, err := socks.ParseSocks5ConnectRequest(raw)
	var atypErr *socks.UnsupportedAddressTypeError
	if err == nil {
		t.Fatalf("expected UnsupportedAddressTypeError")
	}
	if !asUnsupported(err, &atypErr) {
		t.Fatalf("expected UnsupportedAddressTypeError, got %T: %v", err, err)
	}
}

func asUnsupported(err error, target **socks.UnsupportedAddressTypeError) bool {
	if e, ok := err.(*socks.UnsupportedAddressTypeError); ok {
		*target = e
		return true
	}
	return false
}

func TestSocks5ConnectResponseRoundTrip_IPv4(t *testing.T) {
	resp := socks.Socks5ConnectResponse{
		Reply:       socks.Socks5ReplySucceeded,
		AddressType: socks.Socks5AddrIPv4,
		Address:     socks.Address{IP: net.IPv4(142, 250, 74, 35), Port: 0x01BB},
	}
	raw := socks.SerializeSocks5ConnectResponse(resp)
	want := []byte{0x05, 0x00, 0x00, 0x01, 142, 250, 74, 35, 0x01, 0xBB}
	if string(raw) != string(want) {
		t.Fatalf("got % X want % X", raw, want)
	}
}

func TestSocks5ConnectResponseRoundTrip_IPv6(t *testing.T) {
	ip := net.ParseIP("2001:db8::1")
	resp := socks.Socks5ConnectResponse{
		Reply:       socks.Socks5ReplySucceeded,
		AddressType: socks.Socks5AddrIPv6,
		Address:     socks.Address{IP: ip, Port: 443},
	}
	raw := socks.SerializeSocks5ConnectResponse(resp)
	if raw[0] != 0x05 || raw[1] != 0x00 || raw[3] != byte(socks.Socks5AddrIPv6) {
		t.Fatalf("unexpected header: % X", raw[:4])
	}
	if len(raw) != 4+16+2 {
		t.Fatalf("unexpected length: %d", len(raw))
	}
}

func TestSocks5ConnectResponse_UnknownDestination(t *testing.T) {
	resp := socks.Socks5ConnectResponse{
		Reply:       socks.Socks5ReplyHostUnreachable,
		AddressType: socks.Socks5AddrIPv4,
		Address:     socks.UnknownSocks5Destination,
	}
	raw := socks.SerializeSocks5ConnectResponse(resp)
	want := []byte{0x05, 0x04, 0x00, 0x01, 0, 0, 0, 0, 0, 0}
	if string(raw) != string(want) {
		t.Fatalf("got % X want % X", raw, want)
	}
}
