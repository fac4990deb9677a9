package core

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
	"time"
)

// Role labels attached to accounts. Every account carries RoleUser; the
// staff roles are granted on top of it.
const (
	RoleUser      = "ROLE_USER"
	RoleAdmin     = "ROLE_ADMIN"
	RoleWorker    = "ROLE_WORKER"
	RoleSupporter = "ROLE_SUPPORTER"
)

// User is the persistent account record. Only AuthCount, LastActivity and
// LastOnline are ever written back by the authentication core.
type User struct {
	ID               int64
	Username         string
	Email            string
	Password         string // stored representation per the configured scheme
	TwoFactorEnabled bool
	TwoFactorSecret  string // base32 TOTP secret
	AuthCount        int
	LastActivity     int64 // unix millis
	LastOnline       int64 // unix millis
	Registered       time.Time
	Roles            []string
}

// Principal is an immutable snapshot of an authenticated identity. It is
// built from a User and never written back.
type Principal struct {
	UserID   int64    `json:"user_id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// BuildPrincipal derives a principal from an account record. The base role
// is always present even if the stored role set omits it.
func BuildPrincipal(u *User) Principal {
	roles := make([]string, 0, len(u.Roles)+1)
	roles = append(roles, u.Roles...)
	if !containsRole(roles, RoleUser) {
		roles = append(roles, RoleUser)
	}
	return Principal{
		UserID:   u.ID,
		Username: u.Username,
		Email:    NormalizeEmail(u.Email),
		Roles:    roles,
	}
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role string) bool {
	if p == nil || role == "" {
		return false
	}
	return containsRole(p.Roles, role)
}

// HasAllRoles reports whether the principal carries every given role.
func (p *Principal) HasAllRoles(roles ...string) bool {
	for _, role := range roles {
		if !p.HasRole(role) {
			return false
		}
	}
	return true
}

// IsStaff reports whether the principal carries any staff role.
func (p *Principal) IsStaff() bool {
	return p.HasRole(RoleAdmin) || p.HasRole(RoleWorker) || p.HasRole(RoleSupporter)
}

func containsRole(roles []string, role string) bool {
	for _, item := range roles {
		if item == role {
			return true
		}
	}
	return false
}

// NormalizeEmail lower-cases and trims an identity key for email-shaped lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewTwoFactorSecret generates a base32 TOTP secret for an account.
func NewTwoFactorSecret() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}
