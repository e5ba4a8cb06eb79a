package goStudyAuth

import (
	"context"
	"errors"
	"fmt"
	"time"

	internalaudit "github.com/MrEthical07/goStudyAuth/internal/audit"
	internalflows "github.com/MrEthical07/goStudyAuth/internal/flows"
	"github.com/MrEthical07/goStudyAuth/internal/limiters"
	"github.com/MrEthical07/goStudyAuth/internal/logger"
	"github.com/MrEthical07/goStudyAuth/internal/stores"
	"github.com/MrEthical07/goStudyAuth/internal/timing"
	"github.com/MrEthical07/goStudyAuth/notify"
	"github.com/MrEthical07/goStudyAuth/password"
	"github.com/MrEthical07/goStudyAuth/session"
	"github.com/MrEthical07/goStudyAuth/subpop"
	"go.uber.org/zap"
)

// Engine runs the credential, throttling and session flows of a study
// platform. Build one with New().Build(); it is safe for concurrent use
// and is not reconfigured after Build.
type Engine struct {
	config Config
	logger *zap.Logger

	directory  AccountDirectory
	tenants    TenantSettingsProvider
	dispatcher notify.Dispatcher
	subpops    subpop.Registry

	tokens        *stores.TokenStore
	throttle      *limiters.ChannelThrottle
	signInLimiter *limiters.SignInLimiter
	sessionStore  *session.Store
	passwordHash  *password.Argon2
	equalizers    equalizers

	audit   *internalaudit.Dispatcher
	metrics *Metrics
}

// equalizers hold one running estimate per response path that must not
// reveal whether an account exists.
type equalizers struct {
	emailSignInRequest *timing.Equalizer
	phoneSignInRequest *timing.Equalizer
	passwordSignIn     *timing.Equalizer
	resetRequest       *timing.Equalizer
	verificationResend *timing.Equalizer
}

func newEqualizers(initial time.Duration) equalizers {
	return equalizers{
		emailSignInRequest: timing.NewEqualizer("email_signin_request", initial),
		phoneSignInRequest: timing.NewEqualizer("phone_signin_request", initial),
		passwordSignIn:     timing.NewEqualizer("password_signin", initial),
		resetRequest:       timing.NewEqualizer("password_reset_request", initial),
		verificationResend: timing.NewEqualizer("verification_resend", initial),
	}
}

func (q equalizers) estimates() map[string]time.Duration {
	out := make(map[string]time.Duration, 5)
	for _, eq := range []*timing.Equalizer{
		q.emailSignInRequest,
		q.phoneSignInRequest,
		q.passwordSignIn,
		q.resetRequest,
		q.verificationResend,
	} {
		if eq != nil {
			out[eq.Name()] = eq.Estimate()
		}
	}
	return out
}

// Close flushes pending audit events and stops the audit worker.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.tokens != nil && e.directory != nil && e.sessionStore != nil
}

// GetSession loads a session by its token.
func (e *Engine) GetSession(ctx context.Context, sessionToken string) (*Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if sessionToken == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := e.sessionStore.Get(ctx, sessionToken)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionCorrupt):
		return nil, ErrSessionNotFound
	default:
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
}

// SubpopulationForUser returns the most specific subpopulation of the
// tenant that applies to cctx. ok is false when none matches.
func (e *Engine) SubpopulationForUser(ctx context.Context, tenantID string, cctx CriteriaContext) (sp subpop.Subpopulation, ok bool, err error) {
	if !e.ready() || e.subpops == nil {
		return subpop.Subpopulation{}, false, ErrEngineNotReady
	}
	tenantID = resolveTenant(ctx, tenantID)
	if tenantID == "" {
		return subpop.Subpopulation{}, false, fmt.Errorf("%w: tenant id required", ErrInvalidRequest)
	}
	if cached, isCached := e.subpops.(*subpop.Cached); isCached {
		return cached.ForUser(ctx, tenantID, cctx)
	}
	subs, err := e.subpops.List(ctx, tenantID)
	if err != nil {
		return subpop.Subpopulation{}, false, err
	}
	sp, ok = subpop.BestMatch(subs, cctx)
	return sp, ok, nil
}

// InvalidateSubpopulations drops the cached subpopulation list of a tenant
// after its records changed. It is a no-op for uncached registries.
func (e *Engine) InvalidateSubpopulations(tenantID string) {
	if e == nil {
		return
	}
	if cached, ok := e.subpops.(*subpop.Cached); ok {
		cached.Invalidate(tenantID)
	}
}

/*
====================================
FLOW ADAPTERS
====================================
*/

func (e *Engine) flowErrors() internalflows.Errors {
	return internalflows.Errors{
		EngineNotReady:        ErrEngineNotReady,
		InvalidRequest:        ErrInvalidRequest,
		TokenInvalid:          ErrTokenInvalid,
		AuthenticationFailed:  ErrAuthenticationFailed,
		AccountDisabled:       ErrAccountDisabled,
		AccountNotFound:       ErrAccountNotFound,
		AccountExists:         ErrAccountExists,
		ChannelSignInDisabled: ErrChannelSignInDisabled,
		PasswordPolicy:        ErrPasswordPolicy,
		CacheUnavailable:      ErrCacheUnavailable,
	}
}

func (e *Engine) observability(ctx context.Context, op string) internalflows.Observability {
	return internalflows.Observability{
		Logger:    logger.From(ctx, e.logger).With(logger.Op(op)),
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
	}
}

func (e *Engine) delivery() internalflows.Delivery {
	return internalflows.Delivery{
		Tokens:     e.tokens,
		Dispatcher: e.dispatcher,
		GetTenant:  e.flowTenant,
		IsThrottled: func(ctx context.Context, action, subjectID string) (bool, error) {
			return e.throttle.IsThrottled(ctx, action, subjectID, e.config.Throttle.MaxRequests, e.config.Throttle.Window)
		},
		BaseURL: e.config.Links.BaseURL,
	}
}

func (e *Engine) flowTenant(ctx context.Context, tenantID string) (internalflows.Tenant, error) {
	t, err := e.tenants.TenantSettings(ctx, tenantID)
	if err != nil {
		return internalflows.Tenant{}, err
	}
	return internalflows.Tenant{
		ID:                 t.ID,
		Name:               t.Name,
		EmailSignInEnabled: t.EmailSignInEnabled,
		PhoneSignInEnabled: t.PhoneSignInEnabled,
		DataGroups:         t.DataGroups,
	}, nil
}

func (e *Engine) flowDirectory() internalflows.Directory {
	d := e.directory
	return internalflows.Directory{
		FindAccount: d.FindByIdentifier,
		GetAccount:  d.GetByID,
		MarkChannelVerified: func(ctx context.Context, tenantID, userID string, ch Channel) error {
			return d.Mutate(ctx, tenantID, userID, func(a *Account) error {
				switch ch {
				case ChannelEmail:
					a.EmailVerified = true
				case ChannelPhone:
					a.PhoneVerified = true
				default:
					return ErrUnknownChannel
				}
				return nil
			})
		},
		UpdatePasswordHash: func(ctx context.Context, tenantID, userID, hash string) error {
			return d.Mutate(ctx, tenantID, userID, func(a *Account) error {
				a.PasswordHash = hash
				return nil
			})
		},
		SetReauthTokenHash: func(ctx context.Context, tenantID, userID, hash string) error {
			return d.Mutate(ctx, tenantID, userID, func(a *Account) error {
				a.ReauthTokenHash = hash
				return nil
			})
		},
		SetLanguages:  d.SetLanguages,
		CreateAccount: d.Create,
		SignOut:       d.SignOut,
	}
}

func (e *Engine) sessionFlowDeps(ctx context.Context) internalflows.SessionDeps {
	return internalflows.SessionDeps{
		Observability:      e.observability(ctx, "assemble_session"),
		Environment:        e.config.Session.Environment,
		AdminRoles:         e.config.Session.AdminRoles,
		ListSubpopulations: e.subpops.List,
		SetLanguages:       e.directory.SetLanguages,
		FindSessionByUser:  e.sessionStore.GetByUserID,
		SaveSession: func(ctx context.Context, sess *session.Session) error {
			return e.sessionStore.Save(ctx, sess, e.config.Session.TTL)
		},
		ObserveLatency: func(d time.Duration) {
			if e.metrics != nil {
				e.metrics.Observe(MetricSessionAssemblyLatency, d)
			}
		},
		Errors: e.flowErrors(),
	}
}

// assemble runs session assembly and counts the outcome.
func (e *Engine) assemble(ctx context.Context, in internalflows.AssembleInput) (internalflows.AuthOutcome, error) {
	out, err := internalflows.RunAssembleSession(ctx, in, e.sessionFlowDeps(ctx))
	if err != nil {
		return out, err
	}
	e.metricInc(MetricSessionAssembled)
	if out.ConsentRequired {
		e.metricInc(MetricConsentRequired)
	}
	return out, nil
}

func toAuthResult(out internalflows.AuthOutcome) *AuthResult {
	return &AuthResult{Session: out.Session, ConsentRequired: out.ConsentRequired}
}
