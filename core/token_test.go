package core

import (
	"errors"
	"testing"
	"time"
)

func newTestCodec(now time.Time) *TokenCodec {
	codec := NewTokenCodec(testConfig())
	codec.now = func() time.Time { return now }
	return codec
}

func testPrincipal() Principal {
	return Principal{UserID: 7, Username: "alice", Email: "a@b.com", Roles: []string{RoleUser, RoleAdmin}}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0)
	codec := newTestCodec(now)

	token, err := codec.IssueSession(testPrincipal())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := codec.ValidateSession(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "a@b.com" || claims.UserID != 7 {
		t.Fatalf("claims mismatch: subject=%q uid=%d", claims.Subject, claims.UserID)
	}
	if len(claims.Roles) != 2 || claims.Roles[1] != RoleAdmin {
		t.Fatalf("roles mismatch: %v", claims.Roles)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(time.Hour)) {
		t.Fatalf("expiry mismatch: %v", claims.ExpiresAt.Time)
	}
}

func TestTamperedTokenFailsValidation(t *testing.T) {
	codec := newTestCodec(time.Unix(1700000000, 0))
	token, err := codec.IssueSession(testPrincipal())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Mutate one character in each segment; every mutation must fail as
	// malformed or bad-signature, never validate.
	for _, pos := range []int{2, len(token) / 2, len(token) - 2} {
		mutated := []byte(token)
		if mutated[pos] == 'A' {
			mutated[pos] = 'B'
		} else {
			mutated[pos] = 'A'
		}
		_, err := codec.ValidateSession(string(mutated))
		if err == nil {
			t.Fatalf("mutated token at %d validated", pos)
		}
		if !errors.Is(err, ErrTokenMalformed) && !errors.Is(err, ErrTokenSignature) {
			t.Fatalf("unexpected failure reason at %d: %v", pos, err)
		}
	}
}

func TestWrongKeyFailsSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	codec := newTestCodec(now)
	token, err := codec.IssueSession(testPrincipal())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	otherCfg := testConfig()
	otherCfg.JWTSecret = "a-different-signing-key"
	other := NewTokenCodec(otherCfg)
	other.now = func() time.Time { return now }

	if _, err := other.ValidateSession(token); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected signature failure, got %v", err)
	}
}

func TestExpiryBoundary(t *testing.T) {
	issued := time.Unix(1700000000, 0)
	codec := newTestCodec(issued)
	token, err := codec.IssueSession(testPrincipal())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	expiry := issued.Add(time.Hour)

	codec.now = func() time.Time { return expiry.Add(-time.Second) }
	if _, err := codec.ValidateSession(token); err != nil {
		t.Fatalf("token rejected before expiry: %v", err)
	}

	codec.now = func() time.Time { return expiry }
	if _, err := codec.ValidateSession(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expiry at boundary, got %v", err)
	}

	codec.now = func() time.Time { return expiry.Add(time.Minute) }
	if _, err := codec.ValidateSession(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expiry after boundary, got %v", err)
	}
}

func TestMalformedInputRejected(t *testing.T) {
	codec := newTestCodec(time.Now())
	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := codec.ValidateSession(raw); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("input %q: expected malformed, got %v", raw, err)
		}
	}
}

func TestPendingTokenShape(t *testing.T) {
	now := time.Unix(1700000000, 0)
	codec := newTestCodec(now)

	token, err := codec.IssuePendingToken("A@B.com", "stored-hash")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := codec.ValidatePendingToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "a@b.com" {
		t.Fatalf("pending subject not normalized: %q", claims.Subject)
	}
	if claims.SecretHash != "stored-hash" {
		t.Fatalf("secret hash mismatch: %q", claims.SecretHash)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("pending expiry mismatch: %v", claims.ExpiresAt.Time)
	}

	// Token kinds are not interchangeable in either direction.
	if _, err := codec.ValidateSession(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("pending token accepted as session: %v", err)
	}
	session, err := codec.IssueSession(testPrincipal())
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	if _, err := codec.ValidatePendingToken(session); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("session token accepted as pending: %v", err)
	}
}
