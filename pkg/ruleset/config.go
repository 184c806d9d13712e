package ruleset

import (
	"fmt"
	"net"
)

// ConnectingEntry is the config-layer shape of one connecting rule: a
// single IP or CIDR string (a bare IP is treated as a /32 or /128).
type ConnectingEntry struct {
	From string
}

// ProxyingEntry is the config-layer shape of one proxying rule. To is
// either a CIDR/IP string or a literal domain name; which one it is gets
// decided by attempting to parse it as an address first, since the two
// forms never collide syntactically.
type ProxyingEntry struct {
	From string
	To   string
}

// Entries is the full config-layer ruleset shape passed to FromConfig.
type Entries struct {
	AllowConnecting []ConnectingEntry
	BlockConnecting []ConnectingEntry
	AllowProxying   []ProxyingEntry
	BlockProxying   []ProxyingEntry
}

// FromConfig builds an immutable Ruleset from parsed configuration
// entries, in declaration order. It returns ErrEmptyRuleset when every
// list is empty.
func FromConfig(entries Entries) (*Ruleset, error) {
	rs := &Ruleset{}

	for _, e := range entries.AllowConnecting {
		rule, err := parseConnecting(e)
		if err != nil {
			return nil, err
		}
		rs.AllowConnecting = append(rs.AllowConnecting, rule)
	}
	for _, e := range entries.BlockConnecting {
		rule, err := parseConnecting(e)
		if err != nil {
			return nil, err
		}
		rs.BlockConnecting = append(rs.BlockConnecting, rule)
	}
	for _, e := range entries.AllowProxying {
		rule, err := parseProxying(e)
		if err != nil {
			return nil, err
		}
		rs.AllowProxying = append(rs.AllowProxying, rule)
	}
	for _, e := range entries.BlockProxying {
		rule, err := parseProxying(e)
		if err != nil {
			return nil, err
		}
		rs.BlockProxying = append(rs.BlockProxying, rule)
	}

	if rs.empty() {
		return nil, ErrEmptyRuleset
	}
	return rs, nil
}

func parseConnecting(e ConnectingEntry) (ConnectingRule, error) {
	ipnet, err := parseCIDROrIP(e.From)
	if err != nil {
		return ConnectingRule{}, fmt.Errorf("ruleset: connecting rule %q: %w", e.From, err)
	}
	return ConnectingRule{From: ipnet}, nil
}

func parseProxying(e ProxyingEntry) (ProxyingRule, error) {
	from, err := parseCIDROrIP(e.From)
	if err != nil {
		return ProxyingRule{}, fmt.Errorf("ruleset: proxying rule from %q: %w", e.From, err)
	}
	if e.To == "" {
		return ProxyingRule{}, fmt.Errorf("ruleset: proxying rule names an empty destination")
	}
	if to, err := parseCIDROrIP(e.To); err == nil {
		return ProxyingRule{From: from, To: to}, nil
	}
	return ProxyingRule{From: from, Domain: e.To}, nil
}

func parseCIDROrIP(s string) (*net.IPNet, error) {
	if _, ipnet, err := net.ParseCIDR(s); err == nil {
		return ipnet, nil
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("not a valid IP or CIDR")
	}
	bits := 32
	if ip.To4() == nil {
		bits = 128
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}
