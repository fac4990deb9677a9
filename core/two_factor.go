package core

import (
	"context"
	"crypto/subtle"

	"github.com/pquerna/otp/totp"
)

// CompleteTwoFactor finishes a login that branched into the two-factor path.
// The pending token proves the earlier lookup; the TOTP code proves the
// second factor. The stored secret representation must still match the one
// the pending token was bound to, so a password change voids outstanding
// pending tokens.
func (s *AuthService) CompleteTwoFactor(ctx context.Context, pendingToken, code string) (LoginOutcome, error) {
	claims, err := s.tokens.ValidatePendingToken(pendingToken)
	if err != nil {
		return LoginOutcome{Status: LoginRejected}, nil
	}

	user, err := s.users.FindByNormalizedEmail(ctx, claims.Subject)
	if err != nil {
		return LoginOutcome{}, err
	}
	if user == nil {
		return LoginOutcome{Status: LoginNotFound}, nil
	}

	if !user.TwoFactorEnabled || user.TwoFactorSecret == "" {
		return LoginOutcome{Status: LoginRejected}, nil
	}
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(claims.SecretHash)) != 1 {
		return LoginOutcome{Status: LoginRejected}, nil
	}
	if !totp.Validate(code, user.TwoFactorSecret) {
		return LoginOutcome{Status: LoginRejected}, nil
	}

	return s.establishSession(ctx, user)
}
