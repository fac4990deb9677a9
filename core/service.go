package core

import (
	"context"
	"time"
)

// AuthService orchestrates lookup, the two-factor branch, credential
// verification, and session issuance. Side effects (auth counter, activity
// timestamps, one persistence call) happen only on the success path.
type AuthService struct {
	users     UserRepository
	passwords PasswordScheme
	tokens    *TokenCodec
	cache     *PrincipalCache
	now       func() time.Time
}

func NewAuthService(users UserRepository, passwords PasswordScheme, tokens *TokenCodec, cache *PrincipalCache) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		cache:     cache,
		now:       time.Now,
	}
}

// Login runs one authentication attempt. Two lookup strategies are tried in
// fixed order: normalized email first, then exact handle. Accounts with two
// factor enabled never reach the credential check here; they receive a
// pending token bound to the current stored secret representation.
func (s *AuthService) Login(ctx context.Context, identityKey, secret string) (LoginOutcome, error) {
	user, err := s.lookup(ctx, identityKey)
	if err != nil {
		return LoginOutcome{}, err
	}
	if user == nil {
		return LoginOutcome{Status: LoginNotFound}, nil
	}

	if user.TwoFactorEnabled {
		pending, err := s.tokens.IssuePendingToken(user.Email, user.Password)
		if err != nil {
			return LoginOutcome{}, err
		}
		return LoginOutcome{Status: LoginTwoFactorRequired, PendingToken: pending}, nil
	}

	if !s.passwords.Verify(secret, user.Password) {
		return LoginOutcome{Status: LoginRejected}, nil
	}

	return s.establishSession(ctx, user)
}

func (s *AuthService) lookup(ctx context.Context, identityKey string) (*User, error) {
	user, err := s.users.FindByNormalizedEmail(ctx, identityKey)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	return s.users.FindByHandle(ctx, identityKey)
}

// establishSession is the single side-effecting step: exactly one counter
// increment and one persistence call, then token issuance.
func (s *AuthService) establishSession(ctx context.Context, user *User) (LoginOutcome, error) {
	nowMillis := s.timeNow().UnixMilli()
	user.AuthCount++
	user.LastActivity = nowMillis
	user.LastOnline = nowMillis

	if err := s.users.Save(ctx, user); err != nil {
		return LoginOutcome{}, err
	}
	if err := s.cache.Invalidate(ctx, user.Email); err != nil {
		return LoginOutcome{}, err
	}

	principal := BuildPrincipal(user)
	token, err := s.tokens.IssueSession(principal)
	if err != nil {
		return LoginOutcome{}, err
	}

	return LoginOutcome{Status: LoginSuccess, SessionToken: token, Principal: principal}, nil
}

func (s *AuthService) timeNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
