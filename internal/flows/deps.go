package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goStudyAuth/internal"
	"github.com/MrEthical07/goStudyAuth/internal/stores"
	"github.com/MrEthical07/goStudyAuth/notify"
	"go.uber.org/zap"
)

// Identifier names an account by one of its contact channels.
type Identifier struct {
	Email string
	Phone string
}

// ConsentRecord is one signed consent agreement of an account.
type ConsentRecord struct {
	SubpopulationID  string
	ConsentCreatedOn int64
	SignedOn         int64
	Withdrawn        bool
}

// Account is the flow view of an account held by the directory.
type Account struct {
	ID              string
	TenantID        string
	HealthCode      string
	Email           string
	EmailVerified   bool
	Phone           string
	PhoneVerified   bool
	PasswordHash    string
	ReauthTokenHash string
	Status          string
	Disabled        bool
	Roles           []string
	Languages       []string
	DataGroups      []string
	Consents        map[string]ConsentRecord
}

// Tenant carries the per-tenant settings flows consult.
type Tenant struct {
	ID                 string
	Name               string
	EmailSignInEnabled bool
	PhoneSignInEnabled bool
	DataGroups         []string
}

// TokenStore is implemented by *stores.TokenStore.
type TokenStore interface {
	Issue(ctx context.Context, payload stores.VerificationPayload, ttl time.Duration) (stores.Issued, error)
	Consume(ctx context.Context, token string) (stores.VerificationPayload, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Take(ctx context.Context, key string) (string, error)
	GetOrPut(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error)
	TakeIfEqual(ctx context.Context, key, expected string) (bool, error)
}

// AuditFunc records one audit event. metadata is only called when the
// event is actually emitted.
type AuditFunc func(ctx context.Context, event string, success bool, userID, tenantID, channel string, err error, metadata func() map[string]string)

// Directory groups the account directory calls flows make.
type Directory struct {
	FindAccount         func(ctx context.Context, tenantID string, id Identifier) (Account, error)
	GetAccount          func(ctx context.Context, tenantID, userID string) (Account, error)
	MarkChannelVerified func(ctx context.Context, tenantID, userID string, ch Channel) error
	UpdatePasswordHash  func(ctx context.Context, tenantID, userID, hash string) error
	SetReauthTokenHash  func(ctx context.Context, tenantID, userID, hash string) error
	SetLanguages        func(ctx context.Context, tenantID, userID string, languages []string) error
	CreateAccount       func(ctx context.Context, tenantID string, account Account) (string, error)
	SignOut             func(ctx context.Context, tenantID, userID string) error
}

// Delivery holds the collaborators shared by every flow that sends a token.
type Delivery struct {
	Tokens     TokenStore
	Dispatcher notify.Dispatcher
	GetTenant  func(ctx context.Context, tenantID string) (Tenant, error)
	// IsThrottled counts one request for (action, subject).
	IsThrottled func(ctx context.Context, action, subjectID string) (bool, error)
	NewToken    func() (string, error)
	BaseURL     string
}

// Observability holds logging, metrics and audit hooks.
type Observability struct {
	Logger    *zap.Logger
	MetricInc func(int)
	EmitAudit AuditFunc
}

func normalizeObservability(o *Observability) {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.MetricInc == nil {
		o.MetricInc = func(int) {}
	}
	if o.EmitAudit == nil {
		o.EmitAudit = func(context.Context, string, bool, string, string, string, error, func() map[string]string) {}
	}
}

func normalizeDelivery(d *Delivery) {
	if d.GetTenant == nil {
		d.GetTenant = func(_ context.Context, tenantID string) (Tenant, error) {
			return Tenant{ID: tenantID, Name: tenantID}, nil
		}
	}
	if d.IsThrottled == nil {
		d.IsThrottled = func(context.Context, string, string) (bool, error) { return false, nil }
	}
	if d.NewToken == nil {
		d.NewToken = internal.NewToken
	}
}

// Errors maps flow outcomes onto the caller's public sentinels.
type Errors struct {
	EngineNotReady        error
	InvalidRequest        error
	TokenInvalid          error
	AuthenticationFailed  error
	AccountDisabled       error
	AccountNotFound       error
	AccountExists         error
	ChannelSignInDisabled error
	PasswordPolicy        error
	CacheUnavailable      error
}

func normalizeErrors(e *Errors) {
	set := func(p *error, msg string) {
		if *p == nil {
			*p = errors.New(msg)
		}
	}
	set(&e.EngineNotReady, "engine not ready")
	set(&e.InvalidRequest, "invalid request")
	set(&e.TokenInvalid, "token invalid")
	set(&e.AuthenticationFailed, "authentication failed")
	set(&e.AccountDisabled, "account disabled")
	set(&e.AccountNotFound, "account not found")
	set(&e.AccountExists, "account exists")
	set(&e.ChannelSignInDisabled, "channel sign in disabled")
	set(&e.PasswordPolicy, "password policy")
	set(&e.CacheUnavailable, "cache unavailable")
}
