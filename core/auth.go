package core

import "context"

// LoginStatus enumerates the terminal outcomes of a login attempt. Negative
// outcomes are expected conditions, not errors.
type LoginStatus int

const (
	// LoginSuccess means full authentication: a session token was issued.
	LoginSuccess LoginStatus = iota
	// LoginNotFound means no account matched the identity key.
	LoginNotFound
	// LoginRejected means the submitted secret (or second factor) did not verify.
	LoginRejected
	// LoginTwoFactorRequired means a pending token was issued and the
	// credential check was deferred to the second-factor step.
	LoginTwoFactorRequired
)

// LoginOutcome is the result of a login attempt or a two-factor completion.
type LoginOutcome struct {
	Status       LoginStatus
	SessionToken string    // set on LoginSuccess
	PendingToken string    // set on LoginTwoFactorRequired
	Principal    Principal // set on LoginSuccess
}

// Authenticator defines authentication behaviour exposed to handlers.
type Authenticator interface {
	Login(ctx context.Context, identityKey, secret string) (LoginOutcome, error)
	CompleteTwoFactor(ctx context.Context, pendingToken, code string) (LoginOutcome, error)
}
