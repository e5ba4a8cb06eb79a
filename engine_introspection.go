package goStudyAuth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// Health pings the shared cache.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.sessionStore == nil {
		return HealthStatus{}
	}

	latency, err := e.sessionStore.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}

// SignInFailures returns how many failed password sign-ins the identifier
// has in the current window. It is zero when the failure limit is off.
func (e *Engine) SignInFailures(ctx context.Context, tenantID string, id Identifier) (int, error) {
	if e == nil || e.signInLimiter == nil {
		return 0, ErrEngineNotReady
	}
	tenantID = resolveTenant(ctx, tenantID)
	key := strings.TrimSpace(id.Email)
	if key == "" {
		key = strings.TrimSpace(id.Phone)
	}
	if key == "" {
		return 0, nil
	}

	n, err := e.signInLimiter.Failures(ctx, tenantID, key)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return n, nil
}
