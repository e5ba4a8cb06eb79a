package flows

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goStudyAuth/internal/limiters"
	"github.com/MrEthical07/goStudyAuth/internal/stores"
	"github.com/MrEthical07/goStudyAuth/internal/timing"
	"github.com/MrEthical07/goStudyAuth/notify"
	"go.uber.org/zap"
)

type PasswordResetMetrics struct {
	PasswordResetRequest        int
	PasswordResetThrottled      int
	PasswordResetConfirmSuccess int
	PasswordResetConfirmFailure int
	AccountExistsNotified       int
}

type PasswordResetEvents struct {
	PasswordResetRequest string
	PasswordResetConfirm string
	AccountExists        string
}

type PasswordResetDeps struct {
	Delivery
	Directory
	Observability

	ResetTTL  time.Duration
	SignInTTL time.Duration
	// Equalizer guards the unknown-account branch of RunRequestPasswordReset.
	Equalizer *timing.Equalizer

	CheckPasswordPolicy func(string) error
	HashPassword        func(string) (string, error)
	// DeleteUserSession drops the cached session of a user, if any.
	DeleteUserSession func(ctx context.Context, userID string) error

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  Errors
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	normalizeDelivery(&deps.Delivery)
	normalizeObservability(&deps.Observability)
	normalizeErrors(&deps.Errors)
	if deps.ResetTTL <= 0 {
		deps.ResetTTL = 2 * time.Hour
	}
	if deps.SignInTTL <= 0 {
		deps.SignInTTL = time.Hour
	}
	if deps.CheckPasswordPolicy == nil {
		deps.CheckPasswordPolicy = func(string) error { return nil }
	}
	if deps.DeleteUserSession == nil {
		deps.DeleteUserSession = func(context.Context, string) error { return nil }
	}
}

// RunRequestPasswordReset sends a reset token to the account's verified
// email address, or failing that its verified phone. Unknown accounts wait
// out the equalizer and return nil, as do accounts with nothing verified.
func RunRequestPasswordReset(ctx context.Context, tenantID string, id Identifier, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.Tokens == nil || deps.Dispatcher == nil || deps.FindAccount == nil {
		return deps.Errors.EngineNotReady
	}
	if strings.TrimSpace(id.Email) == "" && strings.TrimSpace(id.Phone) == "" {
		return deps.Errors.InvalidRequest
	}

	start := time.Now()
	account, err := deps.FindAccount(ctx, tenantID, id)
	if err != nil {
		if !errors.Is(err, deps.Errors.AccountNotFound) {
			return err
		}
		deps.Logger.Debug("password reset for unknown account", zap.String("tenant_id", tenantID))
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, "", tenantID, "", nil, func() map[string]string {
			return map[string]string{"enumeration_safe": "true"}
		})
		return deps.Equalizer.WaitFrom(ctx, start)
	}

	sent, err := sendResetRelated(ctx, tenantID, account, false, deps)
	if err != nil {
		return err
	}
	if sent {
		deps.Equalizer.ObserveSince(start)
	}
	return nil
}

// RunNotifyAccountExists tells the owner of an existing account that someone
// tried to sign up with its address. The message doubles as a reset message
// and carries a sign-in token when the tenant allows sign-in on that channel.
func RunNotifyAccountExists(ctx context.Context, tenantID, userID string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.Tokens == nil || deps.Dispatcher == nil || deps.GetAccount == nil {
		return deps.Errors.EngineNotReady
	}

	account, err := deps.GetAccount(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			return nil
		}
		return err
	}
	_, err = sendResetRelated(ctx, tenantID, account, true, deps)
	return err
}

// resetChannel picks the channel a reset message goes to.
func resetChannel(a Account) (Channel, bool) {
	if a.Email != "" && a.EmailVerified {
		return ChannelEmail, true
	}
	if a.Phone != "" && a.PhoneVerified {
		return ChannelPhone, true
	}
	return "", false
}

func sendResetRelated(ctx context.Context, tenantID string, account Account, accountExists bool, deps PasswordResetDeps) (bool, error) {
	event := deps.Events.PasswordResetRequest
	if accountExists {
		event = deps.Events.AccountExists
	}

	ch, ok := resetChannel(account)
	if !ok {
		deps.Logger.Debug("no verified channel for reset message", zap.String("tenant_id", tenantID))
		return false, nil
	}
	prof, _ := profileFor(ch)
	contact, _ := contactOf(account, ch)

	throttled, err := deps.IsThrottled(ctx, limiters.ActionResetPassword, account.ID)
	if err != nil {
		return false, unavailable(deps.Errors.CacheUnavailable, err)
	}
	if throttled {
		deps.MetricInc(deps.Metrics.PasswordResetThrottled)
		deps.EmitAudit(ctx, event, false, account.ID, tenantID, string(ch), nil, func() map[string]string {
			return map[string]string{"reason": "throttled"}
		})
		return false, nil
	}

	tenant, err := deps.GetTenant(ctx, tenantID)
	if err != nil {
		return false, err
	}

	sptoken, err := deps.NewToken()
	if err != nil {
		return false, err
	}
	if err := deps.Tokens.Put(ctx, ResetKey(ch, sptoken, tenantID), contact, deps.ResetTTL); err != nil {
		return false, unavailable(deps.Errors.CacheUnavailable, err)
	}

	template := prof.resetTemplate
	if accountExists {
		template = prof.accountExistsTemplate
	}
	msg := newMessage(ch, tenant, contact, template).
		set(notify.VarSPToken, sptoken).
		set(notify.VarResetPasswordURL, resetPasswordURL(deps.BaseURL, tenantID, sptoken)).
		set(notify.VarResetPasswordExpirationPeriod, FormatPeriod(deps.ResetTTL))

	if accountExists && signInEnabled(tenant, ch) {
		signInToken, err := issueSignInToken(ctx, tenantID, ch, contact, deps.Tokens, deps.SignInTTL)
		if err != nil {
			return false, unavailable(deps.Errors.CacheUnavailable, err)
		}
		msg.set(notify.VarToken, prof.displaySignInToken(signInToken)).
			set(prof.signInExpirationVar, FormatPeriod(deps.SignInTTL))
		if ch == ChannelEmail {
			msg.set(notify.VarEmail, url.QueryEscape(contact)).
				set(notify.VarEmailSignInURL, emailSignInURL(deps.BaseURL, tenantID, contact, signInToken))
		}
	}

	if err := msg.send(ctx, deps.Dispatcher); err != nil {
		deps.EmitAudit(ctx, event, false, account.ID, tenantID, string(ch), err, nil)
		return false, err
	}

	if accountExists {
		deps.MetricInc(deps.Metrics.AccountExistsNotified)
	} else {
		deps.MetricInc(deps.Metrics.PasswordResetRequest)
	}
	deps.EmitAudit(ctx, event, true, account.ID, tenantID, string(ch), nil, nil)
	return true, nil
}

// RunCompletePasswordReset spends a reset token and replaces the password of
// the account it was sent to. Both the email and phone keys for the token are
// removed. The account is signed out afterwards.
func RunCompletePasswordReset(ctx context.Context, tenantID, token, newPassword string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.Tokens == nil || deps.FindAccount == nil || deps.UpdatePasswordHash == nil || deps.HashPassword == nil {
		return deps.Errors.EngineNotReady
	}

	token = strings.TrimSpace(token)
	if token == "" {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		return deps.Errors.TokenInvalid
	}
	if err := deps.CheckPasswordPolicy(newPassword); err != nil {
		return fmt.Errorf("%w: %v", deps.Errors.PasswordPolicy, err)
	}

	email, err := takeOptional(ctx, deps.Tokens, ResetKey(ChannelEmail, token, tenantID))
	if err != nil {
		return unavailable(deps.Errors.CacheUnavailable, err)
	}
	phone, err := takeOptional(ctx, deps.Tokens, ResetKey(ChannelPhone, token, tenantID))
	if err != nil {
		return unavailable(deps.Errors.CacheUnavailable, err)
	}

	var (
		id Identifier
		ch Channel
	)
	switch {
	case email != "":
		id, ch = identifierFor(ChannelEmail, email), ChannelEmail
	case phone != "":
		id, ch = identifierFor(ChannelPhone, phone), ChannelPhone
	default:
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, "", tenantID, "", deps.Errors.TokenInvalid, nil)
		return deps.Errors.TokenInvalid
	}

	account, err := deps.FindAccount(ctx, tenantID, id)
	if err != nil {
		return err
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := deps.UpdatePasswordHash(ctx, tenantID, account.ID, hash); err != nil {
		return err
	}

	if deps.SignOut != nil {
		if err := deps.SignOut(ctx, tenantID, account.ID); err != nil {
			return err
		}
	}
	if err := deps.DeleteUserSession(ctx, account.ID); err != nil {
		return unavailable(deps.Errors.CacheUnavailable, err)
	}

	deps.MetricInc(deps.Metrics.PasswordResetConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, true, account.ID, tenantID, string(ch), nil, nil)
	return nil
}

// takeOptional is Take with a missing key reported as "".
func takeOptional(ctx context.Context, tokens TokenStore, key string) (string, error) {
	value, err := tokens.Take(ctx, key)
	if errors.Is(err, stores.ErrTokenNotFound) {
		return "", nil
	}
	return value, err
}
