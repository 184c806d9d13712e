package socks

import "strconv"

// String renders the SOCKS4 command name, used by logging.
func (c Socks4Command) String() string {
	switch c {
	case Socks4CommandConnect:
		return "CONNECT"
	case Socks4CommandBind:
		return "BIND"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(c)) + ")"
	}
}

// String renders the SOCKS4 reply name, used by logging.
func (r Socks4Reply) String() string {
	switch r {
	case Socks4ReplyGranted:
		return "GRANTED"
	case Socks4ReplyRejected:
		return "REJECTED"
	case Socks4ReplyIdentdNotReachable:
		return "IDENTD_NOT_REACHABLE"
	case Socks4ReplyIdentdRejected:
		return "IDENTD_REJECTED"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(r)) + ")"
	}
}

// String renders the SOCKS5 auth method name, used by logging.
func (m Socks5AuthMethod) String() string {
	switch m {
	case Socks5AuthNoAuth:
		return "NO_AUTH"
	case Socks5AuthGSSAPI:
		return "GSSAPI"
	case Socks5AuthUsername:
		return "USERNAME"
	case Socks5AuthNoAcceptable:
		return "NO_ACCEPTABLE"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(m)) + ")"
	}
}

// String renders the SOCKS5 command name, used by logging.
func (c Socks5Command) String() string {
	switch c {
	case Socks5CommandConnect:
		return "CONNECT"
	case Socks5CommandBind:
		return "BIND"
	case Socks5CommandUDP:
		return "UDP_ASSOCIATE"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(c)) + ")"
	}
}

// String renders the SOCKS5 address type name, used by logging.
func (t Socks5AddressType) String() string {
	switch t {
	case Socks5AddrIPv4:
		return "IPV4"
	case Socks5AddrDomain:
		return "DOMAIN"
	case Socks5AddrIPv6:
		return "IPV6"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
	}
}

// String renders the SOCKS5 connect reply name, used by logging.
func (r Socks5ConnectReply) String() string {
	switch r {
	case Socks5ReplySucceeded:
		return "SUCCEEDED"
	case Socks5ReplyGeneralFailure:
		return "GENERAL_FAILURE"
	case Socks5ReplyNotAllowed:
		return "NOT_ALLOWED"
	case Socks5ReplyNetUnreachable:
		return "NETWORK_UNREACHABLE"
	case Socks5ReplyHostUnreachable:
		return "HOST_UNREACHABLE"
	case Socks5ReplyConnRefused:
		return "CONNECTION_REFUSED"
	case Socks5ReplyTTLExpired:
		return "TTL_EXPIRED"
	case Socks5ReplyCmdNotSupported:
		return "COMMAND_NOT_SUPPORTED"
	case Socks5ReplyAddrTypeNotSupported:
		return "ADDRESS_TYPE_NOT_SUPPORTED"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(r)) + ")"
	}
}
