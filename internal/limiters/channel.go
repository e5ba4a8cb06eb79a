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
	ErrThrottleUnavailable = errors.New("channel throttle unavailable")
	ErrThrottleConfig      = errors.New("invalid channel throttle config")
)

// Throttle action names. They become part of the Redis key.
const (
	ActionEmailSignIn   = "email_signin"
	ActionPhoneSignIn   = "phone_signin"
	ActionVerifyEmail   = "verify_email"
	ActionVerifyPhone   = "verify_phone"
	ActionResetPassword = "reset_password"
)

// ChannelThrottle counts outbound-message requests per (action, subject).
type ChannelThrottle struct {
	window *rate.FixedWindow
}

func NewChannelThrottle(window *rate.FixedWindow) *ChannelThrottle {
	return &ChannelThrottle{window: window}
}

// IsThrottled records a request and reports whether it exceeds maxRequests
// within the window. The maxRequests-th request is still admitted.
func (t *ChannelThrottle) IsThrottled(ctx context.Context, action, subjectID string, maxRequests int, window time.Duration) (bool, error) {
	if t == nil || t.window == nil {
		return false, nil
	}
	if maxRequests <= 0 || window <= 0 {
		return false, ErrThrottleConfig
	}

	count, err := t.window.Hit(ctx, channelThrottleKey(action, subjectID), window)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
	}
	return count > int64(maxRequests), nil
}

func channelThrottleKey(action, subjectID string) string {
	return "channel-throttling:" + strings.ToLower(action) + ":" + subjectID
}
