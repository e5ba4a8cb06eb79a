package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goStudyAuth/internal/rate"
)

var (
	ErrSignInRateLimited        = errors.New("sign in rate limited")
	ErrSignInLimiterUnavailable = errors.New("sign in limiter unavailable")
)

type SignInConfig struct {
	Enabled     bool
	MaxFailures int
	Window      time.Duration
}

// SignInLimiter tracks failed password sign-ins per identifier. Failures are
// counted whether or not the identifier maps to an account.
type SignInLimiter struct {
	window *rate.FixedWindow
	config SignInConfig
}

func NewSignInLimiter(window *rate.FixedWindow, cfg SignInConfig) *SignInLimiter {
	return &SignInLimiter{window: window, config: cfg}
}

func (l *SignInLimiter) Check(ctx context.Context, tenantID, identifier string) error {
	if l == nil || !l.config.Enabled {
		return nil
	}
	count, err := l.window.Count(ctx, signInFailureKey(tenantID, identifier))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignInLimiterUnavailable, err)
	}
	if count >= int64(l.config.MaxFailures) {
		return ErrSignInRateLimited
	}
	return nil
}

// Failures returns the failures counted in the current window.
func (l *SignInLimiter) Failures(ctx context.Context, tenantID, identifier string) (int, error) {
	if l == nil || !l.config.Enabled {
		return 0, nil
	}
	count, err := l.window.Count(ctx, signInFailureKey(tenantID, identifier))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSignInLimiterUnavailable, err)
	}
	return int(count), nil
}

func (l *SignInLimiter) RecordFailure(ctx context.Context, tenantID, identifier string) error {
	if l == nil || !l.config.Enabled {
		return nil
	}
	if _, err := l.window.Hit(ctx, signInFailureKey(tenantID, identifier), l.config.Window); err != nil {
		return fmt.Errorf("%w: %v", ErrSignInLimiterUnavailable, err)
	}
	return nil
}

func (l *SignInLimiter) Reset(ctx context.Context, tenantID, identifier string) error {
	if l == nil || !l.config.Enabled {
		return nil
	}
	if err := l.window.Reset(ctx, signInFailureKey(tenantID, identifier)); err != nil {
		return fmt.Errorf("%w: %v", ErrSignInLimiterUnavailable, err)
	}
	return nil
}

func signInFailureKey(tenantID, identifier string) string {
	return "signin-failures:" + normalizeTenantID(tenantID) + ":" + strings.ToLower(identifier)
}

func normalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}
