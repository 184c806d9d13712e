// Package config loads and validates the proxy's TOML configuration file,
// the Go-native realization of spec.md §6's configuration surface. The
// shape mirrors the teacher's pkg/config.Config (one struct per concern,
// a top-level Load and Validate), with env-var loading replaced by
// BurntSushi/toml file decoding, since the spec's configuration is a file
// an operator hands the proxy at startup rather than process environment.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/shpaker/soxyproxy/pkg/engine"
	"github.com/shpaker/soxyproxy/pkg/ruleset"
)

// Config is the fully parsed, still-unvalidated configuration tree.
type Config struct {
	Transport TransportConfig `toml:"transport"`
	Proxy     ProxyConfig     `toml:"proxy"`
	Rules     RulesetConfig   `toml:"ruleset"`
	Logging   LoggingConfig   `toml:"logging"`
	Admin     AdminConfig     `toml:"admin"`
}

// TransportConfig selects the listen address and protocol variant.
type TransportConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Protocol string `toml:"protocol"` // socks4 | socks4a | socks5 | socks5h
}

// ProxyConfig holds the optional username -> secret credential map.
type ProxyConfig struct {
	Auth map[string]string `toml:"auth"`
}

// RulesetConfig is the TOML mirror of ruleset.Entries.
type RulesetConfig struct {
	Connecting ConnectingRulesConfig `toml:"connecting"`
	Proxying   ProxyingRulesConfig   `toml:"proxying"`
}

type ConnectingRulesConfig struct {
	Allow []ConnectingRuleConfig `toml:"allow"`
	Block []ConnectingRuleConfig `toml:"block"`
}

type ConnectingRuleConfig struct {
	From string `toml:"from"`
}

type ProxyingRulesConfig struct {
	Allow []ProxyingRuleConfig `toml:"allow"`
	Block []ProxyingRuleConfig `toml:"block"`
}

type ProxyingRuleConfig struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// LoggingConfig configures the slog handler (see pkg/logger).
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json | text
}

// AdminConfig configures the optional read-only admin HTTP surface.
type AdminConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// Load decodes path as TOML and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields Load cannot leave to later component
// construction to catch (protocol name, port range); the ruleset is
// validated structurally when the caller builds it via Ruleset() below, and
// Credentials() returns the credential map without checking it.
func (c *Config) Validate() error {
	if c.Transport.Host == "" {
		return fmt.Errorf("config: transport.host is required")
	}
	if c.Transport.Port <= 0 || c.Transport.Port > 65535 {
		return fmt.Errorf("config: transport.port must be between 1 and 65535")
	}
	if _, err := c.Protocol(); err != nil {
		return err
	}
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("config: logging.format must be %q or %q", "json", "text")
	}
	if c.Admin.Enabled && c.Admin.Address == "" {
		return fmt.Errorf("config: admin.address is required when admin.enabled is true")
	}
	return nil
}

// Protocol resolves transport.protocol to an engine.Protocol.
func (c *Config) Protocol() (engine.Protocol, error) {
	switch c.Transport.Protocol {
	case "socks4":
		return engine.ProtocolSocks4, nil
	case "socks4a":
		return engine.ProtocolSocks4a, nil
	case "socks5", "":
		return engine.ProtocolSocks5, nil
	case "socks5h":
		return engine.ProtocolSocks5h, nil
	default:
		return 0, fmt.Errorf("config: unknown transport.protocol %q", c.Transport.Protocol)
	}
}

// ListenAddress renders transport.host/port as a dial/listen address.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Transport.Host, c.Transport.Port)
}

// Ruleset builds the immutable ruleset.Ruleset named by the [[ruleset...]]
// sections.
func (c *Config) Ruleset() (*ruleset.Ruleset, error) {
	entries := ruleset.Entries{}
	for _, r := range c.Rules.Connecting.Allow {
		entries.AllowConnecting = append(entries.AllowConnecting, ruleset.ConnectingEntry{From: r.From})
	}
	for _, r := range c.Rules.Connecting.Block {
		entries.BlockConnecting = append(entries.BlockConnecting, ruleset.ConnectingEntry{From: r.From})
	}
	for _, r := range c.Rules.Proxying.Allow {
		entries.AllowProxying = append(entries.AllowProxying, ruleset.ProxyingEntry{From: r.From, To: r.To})
	}
	for _, r := range c.Rules.Proxying.Block {
		entries.BlockProxying = append(entries.BlockProxying, ruleset.ProxyingEntry{From: r.From, To: r.To})
	}
	return ruleset.FromConfig(entries)
}

// Credentials returns the raw username -> secret map for pkg/auth.
func (c *Config) Credentials() map[string]string {
	return c.Proxy.Auth
}
