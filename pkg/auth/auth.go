// Package auth builds the engine.Authenticator closures that gate SOCKS4
// username and SOCKS5 username/password credentials, from a flat
// username -> secret map loaded out of [proxy.auth] configuration. It
// reuses the teacher's password hashing primitives (pkg/crypto) rather
// than rolling comparison logic of its own.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/shpaker/soxyproxy/pkg/crypto"
	"github.com/shpaker/soxyproxy/pkg/engine"
)

// argon2Prefix identifies a pre-hashed credential value (crypto.PasswordHasher's
// encoded format: "$argon2id$v=...$m=...,t=...,p=...$salt$hash").
const argon2Prefix = "$argon2id$"

// FromCredentials builds the SOCKS4 and SOCKS5 authenticator closures over
// a fixed username -> secret map. A secret starting with argon2Prefix is
// verified with crypto.PasswordHasher; any other value is compared as
// plaintext in constant time. An empty map means "no authentication
// configured" and both returned closures are nil.
func FromCredentials(credentials map[string]string) (socks4, socks5 engine.Authenticator) {
	if len(credentials) == 0 {
		return nil, nil
	}

	hasher := crypto.NewPasswordHasher()

	check := func(username, password string) bool {
		secret, ok := credentials[username]
		if !ok {
			return false
		}
		if strings.HasPrefix(secret, argon2Prefix) {
			valid, err := hasher.VerifyPassword(password, secret)
			return err == nil && valid
		}
		return subtle.ConstantTimeCompare([]byte(password), []byte(secret)) == 1
	}

	socks4 = func(ctx context.Context, username, _ string) bool {
		_, ok := credentials[username]
		return ok
	}
	socks5 = func(ctx context.Context, username, password string) bool {
		return check(username, password)
	}
	return socks4, socks5
}
