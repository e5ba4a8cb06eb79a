package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goStudyAuth/criteria"
	"github.com/MrEthical07/goStudyAuth/session"
	"github.com/MrEthical07/goStudyAuth/subpop"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssembleInput is what a successful authentication hands to the assembler.
type AssembleInput struct {
	TenantID    string
	Context     criteria.Context
	Account     Account
	ReauthToken string
}

// AuthOutcome is an assembled session plus the consent signal. The session
// is returned even when ConsentRequired is set.
type AuthOutcome struct {
	Session         *session.Session
	ConsentRequired bool
}

type SessionDeps struct {
	Observability

	Environment string
	AdminRoles  []string

	ListSubpopulations func(ctx context.Context, tenantID string) ([]subpop.Subpopulation, error)
	SetLanguages       func(ctx context.Context, tenantID, userID string, languages []string) error
	FindSessionByUser  func(ctx context.Context, userID string) (*session.Session, error)
	SaveSession        func(ctx context.Context, sess *session.Session) error
	NewSessionToken    func() string
	Now                func() time.Time
	ObserveLatency     func(time.Duration)

	Errors Errors
}

func normalizeSessionDeps(deps *SessionDeps) {
	normalizeObservability(&deps.Observability)
	normalizeErrors(&deps.Errors)
	if deps.NewSessionToken == nil {
		deps.NewSessionToken = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
	}
	if deps.SetLanguages == nil {
		deps.SetLanguages = func(context.Context, string, string, []string) error { return nil }
	}
}

// RunAssembleSession builds and saves the session for an authenticated
// account. Adopting the request's languages into an account that has none
// is the only account write it performs.
func RunAssembleSession(ctx context.Context, in AssembleInput, deps SessionDeps) (AuthOutcome, error) {
	normalizeSessionDeps(&deps)

	if deps.ListSubpopulations == nil || deps.SaveSession == nil {
		return AuthOutcome{}, deps.Errors.EngineNotReady
	}
	start := deps.Now()
	defer func() { deps.ObserveLatency(time.Since(start)) }()

	account := in.Account
	if len(account.Languages) == 0 && len(in.Context.Languages) > 0 {
		langs := append([]string(nil), in.Context.Languages...)
		if err := deps.SetLanguages(ctx, in.TenantID, account.ID, langs); err != nil {
			return AuthOutcome{}, err
		}
		account.Languages = langs
	}

	cctx := criteria.Context{
		Languages:  account.Languages,
		AppVersion: in.Context.AppVersion,
		OSName:     in.Context.OSName,
		DataGroups: account.DataGroups,
		HealthCode: account.HealthCode,
		UserID:     account.ID,
	}
	if cctx.DataGroups == nil {
		cctx.DataGroups = []string{}
	}

	subs, err := deps.ListSubpopulations(ctx, in.TenantID)
	if err != nil {
		return AuthOutcome{}, err
	}
	statuses := ConsentStatuses(subs, cctx, account.Consents)

	sess := &session.Session{
		ReauthToken:     in.ReauthToken,
		TenantID:        in.TenantID,
		Environment:     deps.Environment,
		Authenticated:   true,
		Participant:     participantOf(account),
		ConsentStatuses: statuses,
		CreatedAt:       deps.Now().UnixMilli(),
	}

	existing, err := findExisting(ctx, account.ID, deps)
	if err != nil {
		return AuthOutcome{}, err
	}
	if existing != nil {
		sess.SessionToken = existing.SessionToken
		sess.InternalSessionToken = existing.InternalSessionToken
	} else {
		sess.SessionToken = deps.NewSessionToken()
		sess.InternalSessionToken = deps.NewSessionToken()
	}

	if err := deps.SaveSession(ctx, sess); err != nil {
		return AuthOutcome{}, unavailable(deps.Errors.CacheUnavailable, err)
	}

	return AuthOutcome{
		Session:         sess,
		ConsentRequired: !sess.FullyConsented() && !sess.HasAnyRole(deps.AdminRoles...),
	}, nil
}

func findExisting(ctx context.Context, userID string, deps SessionDeps) (*session.Session, error) {
	if deps.FindSessionByUser == nil {
		return nil, nil
	}
	existing, err := deps.FindSessionByUser(ctx, userID)
	switch {
	case err == nil:
		return existing, nil
	case errors.Is(err, session.ErrSessionNotFound):
		return nil, nil
	case errors.Is(err, session.ErrSessionCorrupt):
		deps.Logger.Warn("discarding unreadable session", zap.String("user_id", userID), zap.Error(err))
		return nil, nil
	default:
		return nil, unavailable(deps.Errors.CacheUnavailable, err)
	}
}

// ConsentStatuses evaluates every live subpopulation against cctx and
// reports the consent state of each match, keyed by subpopulation id.
func ConsentStatuses(subs []subpop.Subpopulation, cctx criteria.Context, consents map[string]ConsentRecord) map[string]session.ConsentStatus {
	statuses := make(map[string]session.ConsentStatus)
	for _, sub := range subs {
		if sub.Deleted || !criteria.Matches(cctx, sub.Criteria) {
			continue
		}
		record, ok := consents[sub.ID]
		consented := ok && !record.Withdrawn
		statuses[sub.ID] = session.ConsentStatus{
			SubpopulationID:         sub.ID,
			Name:                    sub.Name,
			Required:                sub.Required,
			Consented:               consented,
			SignedMostRecentConsent: consented && record.ConsentCreatedOn == sub.PublishedConsentCreatedOn,
		}
	}
	return statuses
}

func participantOf(a Account) session.Participant {
	return session.Participant{
		ID:            a.ID,
		HealthCode:    a.HealthCode,
		Email:         a.Email,
		EmailVerified: a.EmailVerified,
		Phone:         a.Phone,
		PhoneVerified: a.PhoneVerified,
		Status:        a.Status,
		Roles:         append([]string(nil), a.Roles...),
		Languages:     append([]string(nil), a.Languages...),
		DataGroups:    append([]string(nil), a.DataGroups...),
	}
}
