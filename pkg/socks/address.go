// Package socks implements the byte-level SOCKS4, SOCKS4a, and SOCKS5
// message formats: parsing, serialization, and the constants describing
// every protocol enum. It performs no I/O; every function here is a pure
// transformation over a byte slice.
package socks

import (
	"net"
	"strconv"
)

// Address is an immutable (ip, port) pair. IP is either a 4-byte or
// 16-byte numeric address.
type Address struct {
	IP   net.IP
	Port uint16
}

// IsIPv4 reports whether the address carries a 4-byte IP.
func (a Address) IsIPv4() bool {
	return a.IP.To4() != nil
}

// String renders the address as "ip:port", matching net.JoinHostPort.
func (a Address) String() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

// AddressFromNetAddr converts a dialed net.Conn's remote address into a
// socks.Address plus the address type it should be reported under in a
// SOCKS5 reply. Used to echo the actual bound remote address rather than
// the requested destination (see SPEC_FULL.md design decision on the
// SOCKS5 success reply address).
func AddressFromNetAddr(addr net.Addr) (Address, Socks5AddressType) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return Address{IP: net.IPv4zero, Port: 0}, Socks5AddrIPv4
	}
	ip := tcpAddr.IP
	if v4 := ip.To4(); v4 != nil {
		return Address{IP: v4, Port: uint16(tcpAddr.Port)}, Socks5AddrIPv4
	}
	return Address{IP: ip.To16(), Port: uint16(tcpAddr.Port)}, Socks5AddrIPv6
}
