package notify

import (
	"context"
	"errors"
)

// Template keys. Email and SMS variants of the same event are separate
// templates because their bodies differ.
const (
	TemplateVerifyEmail        = "verify_email"
	TemplateResetPassword      = "reset_password"
	TemplateAccountExists      = "account_exists"
	TemplateEmailSignIn        = "email_sign_in"
	TemplateVerifyPhone        = "verify_phone"
	TemplatePhoneResetPassword = "phone_reset_password"
	TemplatePhoneAccountExists = "phone_account_exists"
	TemplatePhoneSignIn        = "phone_sign_in"
)

// Variable names available to templates.
const (
	VarStudyName                         = "studyName"
	VarSPToken                           = "sptoken"
	VarToken                             = "token"
	VarEmail                             = "email"
	VarResetPasswordURL                  = "resetPasswordUrl"
	VarEmailVerificationURL              = "emailVerificationUrl"
	VarEmailSignInURL                    = "emailSignInUrl"
	VarResetPasswordExpirationPeriod     = "resetPasswordExpirationPeriod"
	VarEmailVerificationExpirationPeriod = "emailVerificationExpirationPeriod"
	VarPhoneVerificationExpirationPeriod = "phoneVerificationExpirationPeriod"
	VarEmailSignInExpirationPeriod       = "emailSignInExpirationPeriod"
	VarPhoneSignInExpirationPeriod       = "phoneSignInExpirationPeriod"
)

var (
	// ErrTemplateNotFound is returned for a key with no template.
	ErrTemplateNotFound = errors.New("notification template not found")
	// ErrNoTransport is returned when the router has no sender for a channel.
	ErrNoTransport = errors.New("notification transport not configured")
	// ErrNoRecipient is returned for a message without an address.
	ErrNoRecipient = errors.New("notification recipient missing")
)

// EmailMessage is an email to render and deliver.
type EmailMessage struct {
	TemplateKey string
	TenantID    string
	To          string
	Variables   map[string]string
}

// SMSMessage is a text message to render and deliver.
type SMSMessage struct {
	TemplateKey string
	TenantID    string
	To          string
	Variables   map[string]string
}

// Dispatcher delivers notifications. Implementations decide how templates
// are rendered and which transport is used.
type Dispatcher interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
	SendSMS(ctx context.Context, msg SMSMessage) error
}

// EmailSender is a raw email transport.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string, html bool) error
}

// SMSSender is a raw text message transport.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}
