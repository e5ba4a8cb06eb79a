package goStudyAuth

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method runs on a nil or
	// partially built engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidRequest wraps input validation failures. The wrapped text
	// names the offending field.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTokenInvalid covers every spent, expired, mismatched or unknown
	// verification or reset token. Callers cannot tell these apart.
	ErrTokenInvalid = errors.New("Verification token is invalid (it may have expired, or already been used).")
	// ErrAuthenticationFailed is returned for a wrong password, reauthentication
	// token or sign-in token, and for unknown identifiers on password sign-in.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrAccountDisabled is returned when the account exists but may not sign in.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountNotFound is the directory's not-found sentinel. Flows that must
	// not reveal account existence never surface it.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned by AccountDirectory.Create for a duplicate
	// email or phone number.
	ErrAccountExists = errors.New("account already exists")
	// ErrChannelSignInDisabled is returned when the tenant has switched off
	// sign-in on the requested channel.
	ErrChannelSignInDisabled = errors.New("channel sign in disabled")
	// ErrPasswordPolicy is returned for passwords outside the configured bounds.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrCacheUnavailable wraps failures of the shared Redis cache.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrSessionNotFound is returned by GetSession for an unknown or expired
	// session token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownTenant is returned when tenants are configured statically and
	// the requested one is not among them.
	ErrUnknownTenant = errors.New("unknown tenant")
	// ErrUnknownChannel is returned for channel names other than email and phone.
	ErrUnknownChannel = errors.New("unknown channel")
)
