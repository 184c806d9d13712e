// Package ruleset implements the two-phase connecting/proxying policy
// evaluated by every client goroutine. A Ruleset is built once at startup
// by FromConfig and is immutable thereafter, so it is safe to share across
// goroutines without a lock.
package ruleset

import (
	"errors"
	"fmt"
	"net"

	"github.com/shpaker/soxyproxy/pkg/socks"
)

// ErrEmptyRuleset is returned by FromConfig when every list is empty,
// whether the ruleset section was absent from configuration or present with
// no rules — almost certainly a misconfiguration, since an empty ruleset
// denies everything.
var ErrEmptyRuleset = errors.New("ruleset: no rules configured")

// ConnectingRule matches a client source address.
type ConnectingRule struct {
	From *net.IPNet
}

func (r ConnectingRule) matches(client net.IP) bool {
	return r.From.Contains(client)
}

func (r ConnectingRule) String() string {
	return fmt.Sprintf("from %s", r.From)
}

// ProxyingRule matches a client source address together with either a
// destination CIDR or an exact domain name. Exactly one of To/Domain is
// set.
type ProxyingRule struct {
	From   *net.IPNet
	To     *net.IPNet
	Domain string
}

func (r ProxyingRule) matches(client net.IP, dst socks.Address, domain string) bool {
	if !r.From.Contains(client) {
		return false
	}
	if r.Domain != "" {
		return domain != "" && domain == r.Domain
	}
	return domain == "" && r.To.Contains(dst.IP)
}

func (r ProxyingRule) String() string {
	if r.Domain != "" {
		return fmt.Sprintf("from %s to %s", r.From, r.Domain)
	}
	return fmt.Sprintf("from %s to %s", r.From, r.To)
}

// Ruleset is four ordered rule lists: connecting rules guard the initial
// accept, proxying rules guard the resolved destination.
type Ruleset struct {
	AllowConnecting []ConnectingRule
	BlockConnecting []ConnectingRule
	AllowProxying   []ProxyingRule
	BlockProxying   []ProxyingRule
}

// ShouldAllowConnecting walks AllowConnecting for a first match (default
// deny if none match), then BlockConnecting for an overriding match.
func (r *Ruleset) ShouldAllowConnecting(client net.IP) bool {
	allowed := false
	for _, rule := range r.AllowConnecting {
		if rule.matches(client) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	for _, rule := range r.BlockConnecting {
		if rule.matches(client) {
			return false
		}
	}
	return true
}

// ShouldAllowProxying walks AllowProxying for a first match (default deny
// if none match), then BlockProxying for an overriding match. domain is
// empty when the client requested an address-typed destination directly.
func (r *Ruleset) ShouldAllowProxying(client net.IP, dst socks.Address, domain string) bool {
	allowed := false
	for _, rule := range r.AllowProxying {
		if rule.matches(client, dst, domain) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	for _, rule := range r.BlockProxying {
		if rule.matches(client, dst, domain) {
			return false
		}
	}
	return true
}

// Describe renders every rule in declaration order, grouped by list, for
// the admin introspection surface.
func (r *Ruleset) Describe() []string {
	var lines []string
	for _, rule := range r.AllowConnecting {
		lines = append(lines, "allow connecting: "+rule.String())
	}
	for _, rule := range r.BlockConnecting {
		lines = append(lines, "block connecting: "+rule.String())
	}
	for _, rule := range r.AllowProxying {
		lines = append(lines, "allow proxying: "+rule.String())
	}
	for _, rule := range r.BlockProxying {
		lines = append(lines, "block proxying: "+rule.String())
	}
	return lines
}

func (r *Ruleset) empty() bool {
	return len(r.AllowConnecting) == 0 && len(r.BlockConnecting) == 0 &&
		len(r.AllowProxying) == 0 && len(r.BlockProxying) == 0
}
