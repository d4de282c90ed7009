// Package auth provides credential storage schemes for user accounts.
package auth

import (
	"crypto/subtle"
	"fmt"
)

// Scheme names accepted by NewScheme.
const (
	SchemePlaintext = "plaintext"
	SchemeArgon2    = "argon2"
)

// CredentialScheme turns a password into the stored credential secret and
// checks a password against it.
type CredentialScheme interface {
	Name() string
	Hash(password string) (string, error)
	Verify(password, stored string) (bool, error)
}

// NewScheme returns the scheme registered under name.
func NewScheme(name string) (CredentialScheme, error) {
	switch name {
	case "", SchemePlaintext:
		return PlaintextScheme{}, nil
	case SchemeArgon2:
		return Argon2Scheme{}, nil
	default:
		return nil, fmt.Errorf("unknown credential scheme %q", name)
	}
}

// PlaintextScheme stores the password unchanged and compares it byte for
// byte. It matches the behaviour existing clients and data rely on; it is
// not a secure storage format.
type PlaintextScheme struct{}

// Name returns "plaintext".
func (PlaintextScheme) Name() string { return SchemePlaintext }

// Hash returns password unchanged.
func (PlaintextScheme) Hash(password string) (string, error) {
	return password, nil
}

// Verify reports whether password equals stored exactly.
func (PlaintextScheme) Verify(password, stored string) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1, nil
}
