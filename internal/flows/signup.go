package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type SignUpMetrics struct {
	SignUpSuccess  int
	SignUpExisting int
}

type SignUpEvents struct {
	SignUp string
}

type SignUpDeps struct {
	Directory
	Observability

	CheckPasswordPolicy func(string) error
	HashPassword        func(string) (string, error)
	RequestVerification func(ctx context.Context, tenantID, userID string, ch Channel) error
	NotifyAccountExists func(ctx context.Context, tenantID, userID string) error

	Metrics SignUpMetrics
	Events  SignUpEvents
	Errors  Errors
}

func normalizeSignUpDeps(deps *SignUpDeps) {
	normalizeObservability(&deps.Observability)
	normalizeErrors(&deps.Errors)
	if deps.CheckPasswordPolicy == nil {
		deps.CheckPasswordPolicy = func(string) error { return nil }
	}
	if deps.RequestVerification == nil {
		deps.RequestVerification = func(context.Context, string, string, Channel) error { return nil }
	}
	if deps.NotifyAccountExists == nil {
		deps.NotifyAccountExists = func(context.Context, string, string) error { return nil }
	}
}

// RunSignUp creates an account and sends verification for each supplied
// address. Signing up with an address that already has an account looks
// the same to the caller; the existing owner is notified instead.
// The password may be empty for accounts that only sign in by channel.
func RunSignUp(ctx context.Context, tenantID string, account Account, password string, deps SignUpDeps) error {
	normalizeSignUpDeps(&deps)

	if deps.CreateAccount == nil || deps.HashPassword == nil {
		return deps.Errors.EngineNotReady
	}

	account.Email = strings.TrimSpace(account.Email)
	account.Phone = strings.TrimSpace(account.Phone)
	if account.Email == "" && account.Phone == "" {
		return fmt.Errorf("%w: email or phone is required", deps.Errors.InvalidRequest)
	}
	if account.Email != "" {
		if err := validateContact(ChannelEmail, account.Email); err != nil {
			return fmt.Errorf("%w: %v", deps.Errors.InvalidRequest, err)
		}
	}
	if account.Phone != "" {
		if err := validateContact(ChannelPhone, account.Phone); err != nil {
			return fmt.Errorf("%w: %v", deps.Errors.InvalidRequest, err)
		}
	}

	if password != "" {
		if err := deps.CheckPasswordPolicy(password); err != nil {
			return fmt.Errorf("%w: %v", deps.Errors.PasswordPolicy, err)
		}
		hash, err := deps.HashPassword(password)
		if err != nil {
			return err
		}
		account.PasswordHash = hash
	}
	account.TenantID = tenantID
	account.EmailVerified = false
	account.PhoneVerified = false
	account.ReauthTokenHash = ""

	userID, err := deps.CreateAccount(ctx, tenantID, account)
	if err != nil {
		if !errors.Is(err, deps.Errors.AccountExists) {
			deps.EmitAudit(ctx, deps.Events.SignUp, false, "", tenantID, "", err, nil)
			return err
		}
		return notifyExisting(ctx, tenantID, account, deps)
	}

	if account.Email != "" {
		if err := deps.RequestVerification(ctx, tenantID, userID, ChannelEmail); err != nil {
			return err
		}
	}
	if account.Phone != "" {
		if err := deps.RequestVerification(ctx, tenantID, userID, ChannelPhone); err != nil {
			return err
		}
	}

	deps.MetricInc(deps.Metrics.SignUpSuccess)
	deps.EmitAudit(ctx, deps.Events.SignUp, true, userID, tenantID, "", nil, nil)
	return nil
}

func notifyExisting(ctx context.Context, tenantID string, account Account, deps SignUpDeps) error {
	deps.MetricInc(deps.Metrics.SignUpExisting)
	if deps.FindAccount == nil {
		return nil
	}
	id := Identifier{Email: account.Email}
	if id.Email == "" {
		id.Phone = account.Phone
	}
	existing, err := deps.FindAccount(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			return nil
		}
		return err
	}
	deps.EmitAudit(ctx, deps.Events.SignUp, true, existing.ID, tenantID, "", nil, func() map[string]string {
		return map[string]string{"existing": "true"}
	})
	return deps.NotifyAccountExists(ctx, tenantID, existing.ID)
}
