package goStudyAuth

import (
	"context"

	internalflows "github.com/MrEthical07/goStudyAuth/internal/flows"
)

// RequestChannelVerification sends a verification token to the address the
// account holds on ch. Unknown accounts, accounts without an address on ch
// and throttled requests all return nil without sending.
func (e *Engine) RequestChannelVerification(ctx context.Context, tenantID, userID string, ch Channel) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return internalflows.RunRequestVerification(ctx, resolveTenant(ctx, tenantID), userID, ch, e.verificationFlowDeps(ctx))
}

// ResendChannelVerification is RequestChannelVerification addressed by
// email or phone. Its response time does not depend on whether the
// identifier belongs to an account.
func (e *Engine) ResendChannelVerification(ctx context.Context, tenantID string, id Identifier, ch Channel) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return internalflows.RunResendVerification(ctx, resolveTenant(ctx, tenantID), id, ch, e.verificationFlowDeps(ctx))
}

// CompleteChannelVerification consumes a verification token and marks the
// address verified, returning the account id. Tokens are single-use; every
// failure to redeem one is ErrTokenInvalid.
func (e *Engine) CompleteChannelVerification(ctx context.Context, ch Channel, token string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	return internalflows.RunCompleteVerification(ctx, ch, token, e.verificationFlowDeps(ctx))
}

func (e *Engine) verificationFlowDeps(ctx context.Context) internalflows.VerificationDeps {
	return internalflows.VerificationDeps{
		Delivery:      e.delivery(),
		Directory:     e.flowDirectory(),
		Observability: e.observability(ctx, "verification"),
		TTL:           e.config.Tokens.VerificationTTL,
		Resend:        e.equalizers.verificationResend,
		Metrics: internalflows.VerificationMetrics{
			VerificationRequested: int(MetricVerificationRequested),
			VerificationThrottled: int(MetricVerificationThrottled),
			VerificationSuccess:   int(MetricVerificationSuccess),
			VerificationFailure:   int(MetricVerificationFailure),
		},
		Events: internalflows.VerificationEvents{
			VerificationRequest:  auditEventVerificationRequest,
			VerificationComplete: auditEventVerificationComplete,
		},
		Errors: e.flowErrors(),
	}
}
