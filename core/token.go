package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token use claim values. A pending token proves "credential not yet fully
// verified" and is never accepted as a session credential.
const (
	tokenUseSession = "session"
	tokenUsePending = "2fa_pending"
)

var (
	// ErrTokenMalformed indicates input that is not a well-formed token of the expected shape.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired indicates a token validated at or after its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenSignature indicates a signature that does not verify against the process key.
	ErrTokenSignature = errors.New("token signature invalid")
)

// SessionClaims is the payload of a full session token. Subject is the
// normalized email of the account.
type SessionClaims struct {
	UserID int64    `json:"uid"`
	Roles  []string `json:"roles"`
	Use    string   `json:"use"`
	jwt.RegisteredClaims
}

// PendingClaims is the reduced payload of a two-factor pending token:
// identity key plus the stored secret hash it was issued against.
type PendingClaims struct {
	SecretHash string `json:"pwh"`
	Use        string `json:"use"`
	jwt.RegisteredClaims
}

// TokenCodec signs and validates HS256 session tokens. The signing key is
// loaded once at startup and never rotated mid-process.
type TokenCodec struct {
	key        []byte
	sessionTTL time.Duration
	pendingTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec builds a codec from the immutable startup configuration.
func NewTokenCodec(cfg Config) *TokenCodec {
	return &TokenCodec{
		key:        []byte(cfg.JWTSecret),
		sessionTTL: time.Duration(cfg.SessionMaxAgeSec) * time.Second,
		pendingTTL: time.Duration(cfg.PendingTokenMaxAgeSec) * time.Second,
		now:        time.Now,
	}
}

// IssueSession encodes a full session token for the principal.
func (c *TokenCodec) IssueSession(p Principal) (string, error) {
	now := c.timeNow()
	claims := SessionClaims{
		UserID: p.UserID,
		Roles:  p.Roles,
		Use:    tokenUseSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.sessionTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// IssuePendingToken encodes a short-lived two-factor pending token bound to
// the identity key and the stored secret hash at issuance time.
func (c *TokenCodec) IssuePendingToken(email, secretHash string) (string, error) {
	now := c.timeNow()
	claims := PendingClaims{
		SecretHash: secretHash,
		Use:        tokenUsePending,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   NormalizeEmail(email),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.pendingTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign pending token: %w", err)
	}
	return token, nil
}

// ValidateSession verifies signature and expiry of a session token. A pending
// token, or any token without the session use claim, fails as malformed.
func (c *TokenCodec) ValidateSession(raw string) (SessionClaims, error) {
	var claims SessionClaims
	if err := c.parse(raw, &claims); err != nil {
		return SessionClaims{}, err
	}
	if claims.Use != tokenUseSession {
		return SessionClaims{}, ErrTokenMalformed
	}
	return claims, nil
}

// ValidatePendingToken verifies a two-factor pending token.
func (c *TokenCodec) ValidatePendingToken(raw string) (PendingClaims, error) {
	var claims PendingClaims
	if err := c.parse(raw, &claims); err != nil {
		return PendingClaims{}, err
	}
	if claims.Use != tokenUsePending {
		return PendingClaims{}, ErrTokenMalformed
	}
	return claims, nil
}

func (c *TokenCodec) parse(raw string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.timeNow),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return mapTokenError(err)
	}
	if !token.Valid {
		return ErrTokenSignature
	}
	return nil
}

func (c *TokenCodec) timeNow() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	default:
		return ErrTokenMalformed
	}
}
