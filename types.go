package goStudyAuth

import (
	"context"

	"github.com/MrEthical07/goStudyAuth/criteria"
	internalflows "github.com/MrEthical07/goStudyAuth/internal/flows"
	"github.com/MrEthical07/goStudyAuth/session"
)

// Channel is a verifiable contact method: ChannelEmail or ChannelPhone.
type Channel = internalflows.Channel

const (
	// ChannelEmail addresses an account by email.
	ChannelEmail = internalflows.ChannelEmail
	// ChannelPhone addresses an account by phone number, E.164 formatted.
	ChannelPhone = internalflows.ChannelPhone
)

// ParseChannel accepts "email" or "phone" in any case.
func ParseChannel(s string) (Channel, error) {
	ch, ok := internalflows.ParseChannel(s)
	if !ok {
		return "", ErrUnknownChannel
	}
	return ch, nil
}

// Identifier names an account by email or phone. Exactly one should be set;
// when both are, email wins.
type Identifier = internalflows.Identifier

// ConsentRecord is one signed consent agreement. ConsentCreatedOn is the
// revision of the consent document that was signed.
type ConsentRecord = internalflows.ConsentRecord

// Account is the engine's view of a participant account. The directory owns
// the record; the engine only writes back verification flags, password and
// reauthentication hashes and adopted languages.
type Account = internalflows.Account

// Session is an assembled participant session.
type Session = session.Session

// ConsentStatus is the consent state of a session for one subpopulation.
type ConsentStatus = session.ConsentStatus

// CriteriaContext is the request-scoped input to eligibility matching.
type CriteriaContext = criteria.Context

// AccountDirectory is the account store the engine consults. It is not
// owned by this module.
//
// Lookups return ErrAccountNotFound (possibly wrapped) when nothing matches.
// Create returns ErrAccountExists for a duplicate email or phone.
type AccountDirectory interface {
	FindByIdentifier(ctx context.Context, tenantID string, id Identifier) (Account, error)
	GetByID(ctx context.Context, tenantID, userID string) (Account, error)
	// Mutate applies fn to the stored account and persists the result.
	Mutate(ctx context.Context, tenantID, userID string, fn func(*Account) error) error
	SetLanguages(ctx context.Context, tenantID, userID string, languages []string) error
	Create(ctx context.Context, tenantID string, account Account) (string, error)
	// SignOut lets the directory drop any state tied to the user's current
	// session. It may be a no-op.
	SignOut(ctx context.Context, tenantID, userID string) error
}

// TenantSettings are the per-tenant switches the engine reads.
type TenantSettings struct {
	ID                 string
	Name               string
	EmailSignInEnabled bool
	PhoneSignInEnabled bool
	// DataGroups is the vocabulary subpopulation criteria may reference.
	DataGroups []string
}

// TenantSettingsProvider resolves TenantSettings. Config.Tenants backs the
// default provider.
type TenantSettingsProvider interface {
	TenantSettings(ctx context.Context, tenantID string) (TenantSettings, error)
}

// PasswordSignIn is the input of AuthenticateWithPassword.
type PasswordSignIn struct {
	TenantID string
	Email    string
	Phone    string
	Password string
}

// ChannelSignIn is the input of AuthenticateWithChannelToken. Token is the
// value delivered by RequestChannelSignIn; phone codes may keep their dash.
type ChannelSignIn struct {
	TenantID string
	Email    string
	Phone    string
	Token    string
}

// Reauthentication is the input of Reauthenticate.
type Reauthentication struct {
	TenantID    string
	Email       string
	Phone       string
	ReauthToken string
}

// SignUpRequest is the input of SignUp. Password may be empty for accounts
// that only sign in through email or phone.
type SignUpRequest struct {
	TenantID string
	Account  Account
	Password string
}

// AuthResult is returned by every successful authentication.
//
// ConsentRequired is a signal, not an error: the session is created and
// persisted either way and the caller decides how to route the participant.
// Session.ReauthToken holds the rotated reauthentication token; it is
// returned here once and never stored.
type AuthResult struct {
	Session         *Session
	ConsentRequired bool
}

func identifierOf(email, phone string) Identifier {
	if email != "" {
		return Identifier{Email: email}
	}
	return Identifier{Phone: phone}
}
