package socks

import (
	"encoding/binary"
	"net"

	soxyerrors "github.com/shpaker/soxyproxy/pkg/errors"
)

// Socks5AuthMethod is a SOCKS5 authentication method identifier.
type Socks5AuthMethod uint8

const (
	Socks5AuthNoAuth       Socks5AuthMethod = 0x00
	Socks5AuthGSSAPI       Socks5AuthMethod = 0x01
	Socks5AuthUsername     Socks5AuthMethod = 0x02
	Socks5AuthNoAcceptable Socks5AuthMethod = 0xFF
)

// Socks5AuthReply is the status byte of a username/password sub-negotiation
// response.
type Socks5AuthReply uint8

const (
	Socks5AuthReplySuccess Socks5AuthReply = 0x00
	Socks5AuthReplyFail    Socks5AuthReply = 0x01
)

// Socks5Command is the command byte of a SOCKS5 connect request.
type Socks5Command uint8

const (
	Socks5CommandConnect Socks5Command = 0x01
	Socks5CommandBind    Socks5Command = 0x02
	Socks5CommandUDP     Socks5Command = 0x03
)

// Socks5AddressType identifies the shape of a SOCKS5 address field.
type Socks5AddressType uint8

const (
	Socks5AddrIPv4   Socks5AddressType = 0x01
	Socks5AddrDomain Socks5AddressType = 0x03
	Socks5AddrIPv6   Socks5AddressType = 0x04
)

// Socks5ConnectReply is the reply code of a SOCKS5 connect response.
type Socks5ConnectReply uint8

const (
	Socks5ReplySucceeded            Socks5ConnectReply = 0x00
	Socks5ReplyGeneralFailure       Socks5ConnectReply = 0x01
	Socks5ReplyNotAllowed           Socks5ConnectReply = 0x02
	Socks5ReplyNetUnreachable       Socks5ConnectReply = 0x03
	Socks5ReplyHostUnreachable      Socks5ConnectReply = 0x04
	Socks5ReplyConnRefused          Socks5ConnectReply = 0x05
	Socks5ReplyTTLExpired           Socks5ConnectReply = 0x06
	Socks5ReplyCmdNotSupported      Socks5ConnectReply = 0x07
	Socks5ReplyAddrTypeNotSupported Socks5ConnectReply = 0x08
)

// UnknownSocks5Destination is emitted as ATYP/ADDR/PORT when the engine has
// no better destination to echo.
var UnknownSocks5Destination = Address{IP: net.IPv4zero, Port: 0}

// Socks5GreetingRequest is the client's offered authentication methods.
//
// VER(1) | NMETHODS(1) | METHODS(NMETHODS)
type Socks5GreetingRequest struct {
	Methods []Socks5AuthMethod
}

func ParseSocks5GreetingRequest(raw []byte) (*Socks5GreetingRequest, error) {
	if len(raw) < 2 {
		return nil, soxyerrors.NewPackageError("socks5 greeting too short", raw)
	}
	if raw[0] != 5 {
		return nil, soxyerrors.NewPackageError("unexpected SOCKS version", raw)
	}
	nMethods := int(raw[1])
	if nMethods == 0 {
		return nil, soxyerrors.NewPackageError("socks5 greeting advertises zero methods", raw)
	}
	if len(raw) != 2+nMethods {
		return nil, soxyerrors.NewPackageError("socks5 greeting NMETHODS disagrees with buffer length", raw)
	}
	methods := make([]Socks5AuthMethod, nMethods)
	for i, b := range raw[2 : 2+nMethods] {
		m := Socks5AuthMethod(b)
		switch m {
		case Socks5AuthNoAuth, Socks5AuthGSSAPI, Socks5AuthUsername, Socks5AuthNoAcceptable:
		default:
			return nil, soxyerrors.NewPackageError("socks5 greeting names unknown auth method", raw)
		}
		methods[i] = m
	}
	return &Socks5GreetingRequest{Methods: methods}, nil
}

// Socks5GreetingResponse is the server's chosen authentication method.
//
// 0x05 | METHOD(1)
type Socks5GreetingResponse struct {
	Method Socks5AuthMethod
}

func SerializeSocks5GreetingResponse(resp Socks5GreetingResponse) []byte {
	return []byte{0x05, byte(resp.Method)}
}

// Socks5UsernameAuthRequest is the username/password sub-negotiation
// request (RFC 1929).
//
// 0x01 | ULEN(1) | UNAME(ULEN) | PLEN(1) | PASSWD(PLEN)
type Socks5UsernameAuthRequest struct {
	Username string
	Password string
}

func ParseSocks5UsernameAuthRequest(raw []byte) (*Socks5UsernameAuthRequest, error) {
	if len(raw) < 2 {
		return nil, soxyerrors.NewPackageError("socks5 auth request too short", raw)
	}
	if raw[0] != 0x01 {
		return nil, soxyerrors.NewPackageError("unexpected auth sub-negotiation version", raw)
	}
	uLen := int(raw[1])
	if len(raw) < 2+uLen+1 {
		return nil, soxyerrors.NewPackageError("socks5 auth request truncated username", raw)
	}
	username := raw[2 : 2+uLen]
	pLenIdx := 2 + uLen
	pLen := int(raw[pLenIdx])
	if len(raw) != pLenIdx+1+pLen {
		return nil, soxyerrors.NewPackageError("socks5 auth request length mismatch", raw)
	}
	password := raw[pLenIdx+1 : pLenIdx+1+pLen]
	return &Socks5UsernameAuthRequest{Username: string(username), Password: string(password)}, nil
}

// Socks5UsernameAuthResponse is the sub-negotiation response.
//
// 0x01 | STATUS(1)
type Socks5UsernameAuthResponse struct {
	Status Socks5AuthReply
}

func SerializeSocks5UsernameAuthResponse(resp Socks5UsernameAuthResponse) []byte {
	return []byte{0x01, byte(resp.Status)}
}

// Socks5ConnectRequest is the parsed connect-phase request.
//
// VER(1) | CMD(1) | 0x00 | ATYP(1) | ADDR | PORT(2)
type Socks5ConnectRequest struct {
	Command     Socks5Command
	AddressType Socks5AddressType
	Address     Address // valid when AddressType != Socks5AddrDomain
	Domain      string  // valid when AddressType == Socks5AddrDomain
}

func ParseSocks5ConnectRequest(raw []byte) (*Socks5ConnectRequest, error) {
	if len(raw) < 4 {
		return nil, soxyerrors.NewPackageError("socks5 connect request too short", raw)
	}
	if raw[0] != 5 {
		return nil, soxyerrors.NewPackageError("unexpected SOCKS version", raw)
	}
	if raw[2] != 0x00 {
		return nil, soxyerrors.NewPackageError("socks5 connect request reserved byte must be zero", raw)
	}
	cmd := Socks5Command(raw[1])
	atyp := Socks5AddressType(raw[3])

	switch atyp {
	case Socks5AddrIPv4:
		if len(raw) != 4+4+2 {
			return nil, soxyerrors.NewPackageError("socks5 connect request bad IPv4 length", raw)
		}
		ip := net.IP(raw[4:8])
		port := binary.BigEndian.Uint16(raw[8:10])
		return &Socks5ConnectRequest{Command: cmd, AddressType: atyp, Address: Address{IP: ip, Port: port}}, nil
	case Socks5AddrIPv6:
		if len(raw) != 4+16+2 {
			return nil, soxyerrors.NewPackageError("socks5 connect request bad IPv6 length", raw)
		}
		ip := net.IP(raw[4:20])
		port := binary.BigEndian.Uint16(raw[20:22])
		return &Socks5ConnectRequest{Command: cmd, AddressType: atyp, Address: Address{IP: ip, Port: port}}, nil
	case Socks5AddrDomain:
		if len(raw) < 5 {
			return nil, soxyerrors.NewPackageError("socks5 connect request missing domain length", raw)
		}
		domainLen := int(raw[4])
		if len(raw) != 5+domainLen+2 {
			return nil, soxyerrors.NewPackageError("socks5 connect request bad domain length", raw)
		}
		domain := string(raw[5 : 5+domainLen])
		port := binary.BigEndian.Uint16(raw[5+domainLen : 5+domainLen+2])
		return &Socks5ConnectRequest{Command: cmd, AddressType: atyp, Domain: domain, Address: Address{Port: port}}, nil
	default:
		// An unknown ATYP is a protocol-level condition
		// (ADDR_TYPE_NOT_SUPPORTED), not a package error — the engine
		// decides the reply, so this is reported distinctly.
		return nil, &UnsupportedAddressTypeError{Type: atyp}
	}
}

// UnsupportedAddressTypeError signals a structurally well-formed connect
// request naming an ATYP the server does not support. Unlike a
// PackageError, this produces a reply (ADDR_TYPE_NOT_SUPPORTED) rather than
// a silent close.
type UnsupportedAddressTypeError struct {
	Type Socks5AddressType
}

func (e *UnsupportedAddressTypeError) Error() string {
	return "socks5 connect request names unsupported address type"
}

// Socks5ConnectResponse is the parsed/serialized connect-phase reply.
//
// 0x05 | REP(1) | 0x00 | ATYP(1) | ADDR | PORT(2)
type Socks5ConnectResponse struct {
	Reply       Socks5ConnectReply
	AddressType Socks5AddressType
	Address     Address
	Domain      string // only when AddressType == Socks5AddrDomain
}

func SerializeSocks5ConnectResponse(resp Socks5ConnectResponse) []byte {
	var addrBytes []byte
	atyp := resp.AddressType
	switch atyp {
	case Socks5AddrDomain:
		addrBytes = append([]byte{byte(len(resp.Domain))}, []byte(resp.Domain)...)
	case Socks5AddrIPv6:
		v6 := resp.Address.IP.To16()
		if v6 == nil {
			v6 = net.IPv6zero
		}
		addrBytes = v6
	default:
		atyp = Socks5AddrIPv4
		v4 := resp.Address.IP.To4()
		if v4 == nil {
			v4 = net.IPv4zero.To4()
		}
		addrBytes = v4
	}

	buf := make([]byte, 0, 4+len(addrBytes)+2)
	buf = append(buf, 0x05, byte(resp.Reply), 0x00, byte(atyp))
	buf = append(buf, addrBytes...)
	portBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(portBytes, resp.Address.Port)
	buf = append(buf, portBytes...)
	return buf
}
