package socks

import (
	"bytes"
	"encoding/binary"
	"net"

	soxyerrors "github.com/shpaker/soxyproxy/pkg/errors"
)

// Socks4Command is the command byte of a SOCKS4 request.
type Socks4Command uint8

const (
	Socks4CommandConnect Socks4Command = 1
	Socks4CommandBind    Socks4Command = 2
)

// Socks4Reply is the reply byte of a SOCKS4 response.
type Socks4Reply uint8

const (
	Socks4ReplyGranted             Socks4Reply = 0x5A
	Socks4ReplyRejected            Socks4Reply = 0x5B
	Socks4ReplyIdentdNotReachable  Socks4Reply = 0x5C
	Socks4ReplyIdentdRejected      Socks4Reply = 0x5D
)

// Socks4Request is the parsed form of a SOCKS4/SOCKS4a request.
//
// VER(1) | CMD(1) | DSTPORT(2) | DSTIP(4) | USERID...0x00 [ | DOMAIN...0x00 ]
type Socks4Request struct {
	Command  Socks4Command
	Address  Address
	Username string // may be empty
	Domain   string // non-empty only for SOCKS4a
	IsSocks4a bool
}

// ParseSocks4Request parses a raw SOCKS4/SOCKS4a request buffer.
func ParseSocks4Request(raw []byte) (*Socks4Request, error) {
	if len(raw) < 9 {
		return nil, soxyerrors.NewPackageError("socks4 request too short", raw)
	}
	if raw[0] != 4 {
		return nil, soxyerrors.NewPackageError("unexpected SOCKS version", raw)
	}
	if raw[len(raw)-1] != 0x00 {
		return nil, soxyerrors.NewPackageError("socks4 request not null-terminated", raw)
	}

	port := binary.BigEndian.Uint16(raw[2:4])
	ipBytes := raw[4:8]
	isSocks4a := ipBytes[0] == 0 && ipBytes[1] == 0 && ipBytes[2] == 0 && ipBytes[3] != 0

	tail := raw[8 : len(raw)-1]

	var username, domain string
	if isSocks4a {
		idx := bytes.IndexByte(tail, 0x00)
		if idx < 0 {
			return nil, soxyerrors.NewPackageError("socks4a request missing domain segment", raw)
		}
		username = string(tail[:idx])
		domainBytes := tail[idx+1:]
		if len(domainBytes) == 0 {
			return nil, soxyerrors.NewPackageError("socks4a request has empty domain", raw)
		}
		domain = string(domainBytes)
	} else {
		if bytes.IndexByte(tail, 0x00) >= 0 {
			return nil, soxyerrors.NewPackageError("non-SOCKS4a request must not carry a domain segment", raw)
		}
		username = string(tail)
	}

	return &Socks4Request{
		Command:   Socks4Command(raw[1]),
		Address:   Address{IP: net.IPv4(ipBytes[0], ipBytes[1], ipBytes[2], ipBytes[3]), Port: port},
		Username:  username,
		Domain:    domain,
		IsSocks4a: isSocks4a,
	}, nil
}

// Socks4Response is the parsed/serialized form of a SOCKS4 reply.
//
// 0x00 | REP(1) | DSTPORT(2) | DSTIP(4)
type Socks4Response struct {
	Reply   Socks4Reply
	Address Address
}

// UnknownSocks4Destination is emitted as DSTIP/DSTPORT when the engine has
// no better destination to echo (spec.md §4.A, §8).
var UnknownSocks4Destination = Address{IP: net.IPv4(0, 0, 0, 1), Port: 0}

// SerializeSocks4Response serializes a SOCKS4 reply.
func SerializeSocks4Response(resp Socks4Response) []byte {
	buf := make([]byte, 8)
	buf[0] = 0x00
	buf[1] = byte(resp.Reply)
	binary.BigEndian.PutUint16(buf[2:4], resp.Address.Port)
	v4 := resp.Address.IP.To4()
	if v4 == nil {
		v4 = net.IPv4zero.To4()
	}
	copy(buf[4:8], v4)
	return buf
}
