package goStudyAuth

import (
	"context"

	internalflows "github.com/MrEthical07/goStudyAuth/internal/flows"
)

// SignOut runs the directory's sign-out hook and deletes the session from
// the cache. A nil session is a no-op.
func (e *Engine) SignOut(ctx context.Context, sess *Session) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return internalflows.RunSignOut(ctx, sess, internalflows.SignOutDeps{
		Directory:     e.flowDirectory(),
		Observability: e.observability(ctx, "sign_out"),
		DeleteSession: e.sessionStore.Delete,
		Metrics:       internalflows.SignOutMetrics{SignOut: int(MetricSignOut)},
		Events:        internalflows.SignOutEvents{SignOut: auditEventSignOut},
		Errors:        e.flowErrors(),
	})
}
