package flows

import (
	"context"

	"github.com/MrEthical07/goStudyAuth/session"
)

type SignOutMetrics struct {
	SignOut int
}

type SignOutEvents struct {
	SignOut string
}

type SignOutDeps struct {
	Directory
	Observability

	DeleteSession func(ctx context.Context, sess *session.Session) error

	Metrics SignOutMetrics
	Events  SignOutEvents
	Errors  Errors
}

// RunSignOut runs the directory's sign-out hook and removes both cache
// entries of the session. A nil session is a no-op.
func RunSignOut(ctx context.Context, sess *session.Session, deps SignOutDeps) error {
	normalizeObservability(&deps.Observability)
	normalizeErrors(&deps.Errors)

	if sess == nil {
		return nil
	}
	if deps.DeleteSession == nil {
		return deps.Errors.EngineNotReady
	}

	if deps.SignOut != nil && sess.UserID() != "" {
		if err := deps.SignOut(ctx, sess.TenantID, sess.UserID()); err != nil {
			deps.EmitAudit(ctx, deps.Events.SignOut, false, sess.UserID(), sess.TenantID, "", err, nil)
			return err
		}
	}
	if err := deps.DeleteSession(ctx, sess); err != nil {
		return unavailable(deps.Errors.CacheUnavailable, err)
	}

	deps.MetricInc(deps.Metrics.SignOut)
	deps.EmitAudit(ctx, deps.Events.SignOut, true, sess.UserID(), sess.TenantID, "", nil, nil)
	return nil
}
