package core

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password scheme names accepted by Config.PasswordScheme.
const (
	PasswordSchemeBcrypt = "bcrypt"
	PasswordSchemePlain  = "plain"
)

// PasswordScheme hashes secrets and verifies submitted secrets against the
// stored representation. Verify must run in constant time relative to the
// secret length; a mismatch is a normal negative result, not an error.
type PasswordScheme interface {
	Hash(secret string) (string, error)
	Verify(submitted, stored string) bool
}

// BcryptScheme stores bcrypt hashes.
type BcryptScheme struct{}

func (BcryptScheme) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (BcryptScheme) Verify(submitted, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(submitted)) == nil
}

// PlainScheme stores the secret as-is. It reproduces the legacy deployment's
// no-op encoder; the comparison is still constant time.
type PlainScheme struct{}

func (PlainScheme) Hash(secret string) (string, error) {
	return secret, nil
}

func (PlainScheme) Verify(submitted, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1
}

// SchemeFromName maps a configured scheme name to its implementation.
func SchemeFromName(name string) (PasswordScheme, error) {
	switch name {
	case PasswordSchemeBcrypt:
		return BcryptScheme{}, nil
	case PasswordSchemePlain:
		return PlainScheme{}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", name)
	}
}
