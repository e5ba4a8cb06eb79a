package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goStudyAuth/internal/stores"
	"github.com/MrEthical07/goStudyAuth/internal/timing"
	"github.com/MrEthical07/goStudyAuth/notify"
	"go.uber.org/zap"
)

type VerificationMetrics struct {
	VerificationRequested int
	VerificationThrottled int
	VerificationSuccess   int
	VerificationFailure   int
}

type VerificationEvents struct {
	VerificationRequest  string
	VerificationComplete string
}

type VerificationDeps struct {
	Delivery
	Directory
	Observability

	TTL time.Duration
	// Resend guards the unknown-account branch of RunResendVerification.
	Resend *timing.Equalizer

	Metrics VerificationMetrics
	Events  VerificationEvents
	Errors  Errors
}

func normalizeVerificationDeps(deps *VerificationDeps) {
	normalizeDelivery(&deps.Delivery)
	normalizeObservability(&deps.Observability)
	normalizeErrors(&deps.Errors)
	if deps.TTL <= 0 {
		deps.TTL = 2 * time.Hour
	}
}

// RunRequestVerification issues a verification token for the account's
// address on ch and sends it. Accounts without an address on ch, unknown
// accounts and throttled requests return nil without sending.
func RunRequestVerification(ctx context.Context, tenantID, userID string, ch Channel, deps VerificationDeps) error {
	normalizeVerificationDeps(&deps)

	if deps.Tokens == nil || deps.Dispatcher == nil || deps.GetAccount == nil {
		return deps.Errors.EngineNotReady
	}
	if _, ok := profileFor(ch); !ok || strings.TrimSpace(userID) == "" {
		return deps.Errors.InvalidRequest
	}

	account, err := deps.GetAccount(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			deps.Logger.Debug("verification requested for unknown account",
				zap.String("tenant_id", tenantID), zap.String("channel", string(ch)))
			return nil
		}
		return err
	}
	_, err = sendVerification(ctx, tenantID, account, ch, deps)
	return err
}

// RunResendVerification resolves the account by identifier and sends a new
// verification token. An unknown identifier waits out the equalizer and
// returns nil.
func RunResendVerification(ctx context.Context, tenantID string, id Identifier, ch Channel, deps VerificationDeps) error {
	normalizeVerificationDeps(&deps)

	if deps.Tokens == nil || deps.Dispatcher == nil || deps.FindAccount == nil {
		return deps.Errors.EngineNotReady
	}
	if _, ok := profileFor(ch); !ok || contactFor(id, ch) == "" {
		return deps.Errors.InvalidRequest
	}

	start := time.Now()
	account, err := deps.FindAccount(ctx, tenantID, id)
	if err != nil {
		if !errors.Is(err, deps.Errors.AccountNotFound) {
			return err
		}
		deps.Logger.Debug("verification resend for unknown account",
			zap.String("tenant_id", tenantID), zap.String("channel", string(ch)))
		return deps.Resend.WaitFrom(ctx, start)
	}

	sent, err := sendVerification(ctx, tenantID, account, ch, deps)
	if err != nil {
		return err
	}
	if sent {
		deps.Resend.ObserveSince(start)
	}
	return nil
}

func sendVerification(ctx context.Context, tenantID string, account Account, ch Channel, deps VerificationDeps) (bool, error) {
	prof, _ := profileFor(ch)
	contact, _ := contactOf(account, ch)
	if contact == "" {
		return false, nil
	}

	throttled, err := deps.IsThrottled(ctx, prof.verifyAction, account.ID)
	if err != nil {
		return false, unavailable(deps.Errors.CacheUnavailable, err)
	}
	if throttled {
		deps.MetricInc(deps.Metrics.VerificationThrottled)
		deps.EmitAudit(ctx, deps.Events.VerificationRequest, false, account.ID, tenantID, string(ch), nil, func() map[string]string {
			return map[string]string{"reason": "throttled"}
		})
		return false, nil
	}

	tenant, err := deps.GetTenant(ctx, tenantID)
	if err != nil {
		return false, err
	}

	issued, err := deps.Tokens.Issue(ctx, stores.VerificationPayload{
		TenantID: tenantID,
		UserID:   account.ID,
		Channel:  string(ch),
	}, deps.TTL)
	if err != nil {
		return false, unavailable(deps.Errors.CacheUnavailable, err)
	}

	msg := newMessage(ch, tenant, contact, prof.verifyTemplate).
		set(notify.VarSPToken, issued.Token).
		set(prof.verifyExpirationVar, FormatPeriod(issued.TTL))
	if ch == ChannelEmail {
		msg.set(notify.VarEmailVerificationURL, verifyEmailURL(deps.BaseURL, tenantID, issued.Token))
	}
	if err := msg.send(ctx, deps.Dispatcher); err != nil {
		deps.EmitAudit(ctx, deps.Events.VerificationRequest, false, account.ID, tenantID, string(ch), err, nil)
		return false, err
	}

	deps.MetricInc(deps.Metrics.VerificationRequested)
	deps.EmitAudit(ctx, deps.Events.VerificationRequest, true, account.ID, tenantID, string(ch), nil, nil)
	return true, nil
}

// RunCompleteVerification consumes token and marks the channel it was
// issued for as verified. The token is spent even when it was issued for a
// different channel.
func RunCompleteVerification(ctx context.Context, ch Channel, token string, deps VerificationDeps) (string, error) {
	normalizeVerificationDeps(&deps)

	if deps.Tokens == nil || deps.GetAccount == nil || deps.MarkChannelVerified == nil {
		return "", deps.Errors.EngineNotReady
	}
	if _, ok := profileFor(ch); !ok {
		return "", deps.Errors.InvalidRequest
	}
	token = strings.TrimSpace(token)
	if token == "" {
		deps.MetricInc(deps.Metrics.VerificationFailure)
		return "", deps.Errors.TokenInvalid
	}

	payload, err := deps.Tokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, stores.ErrTokenNotFound) || errors.Is(err, stores.ErrTokenPayloadCorrupt) {
			deps.MetricInc(deps.Metrics.VerificationFailure)
			deps.EmitAudit(ctx, deps.Events.VerificationComplete, false, "", "", string(ch), deps.Errors.TokenInvalid, nil)
			return "", deps.Errors.TokenInvalid
		}
		return "", unavailable(deps.Errors.CacheUnavailable, err)
	}
	if Channel(payload.Channel) != ch {
		deps.MetricInc(deps.Metrics.VerificationFailure)
		deps.EmitAudit(ctx, deps.Events.VerificationComplete, false, payload.UserID, payload.TenantID, string(ch), deps.Errors.TokenInvalid, func() map[string]string {
			return map[string]string{"reason": "channel_mismatch"}
		})
		return "", deps.Errors.TokenInvalid
	}

	account, err := deps.GetAccount(ctx, payload.TenantID, payload.UserID)
	if err != nil {
		return "", err
	}
	if err := deps.MarkChannelVerified(ctx, payload.TenantID, account.ID, ch); err != nil {
		return "", err
	}

	deps.MetricInc(deps.Metrics.VerificationSuccess)
	deps.EmitAudit(ctx, deps.Events.VerificationComplete, true, account.ID, payload.TenantID, string(ch), nil, nil)
	return account.ID, nil
}
