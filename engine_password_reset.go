package goStudyAuth

import (
	"context"

	internalflows "github.com/MrEthical07/goStudyAuth/internal/flows"
)

// RequestPasswordReset sends a reset token to the account's verified email,
// or its verified phone when the email is not verified. It returns nil for
// unknown identifiers after the same delay a real send takes.
func (e *Engine) RequestPasswordReset(ctx context.Context, tenantID string, id Identifier) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return internalflows.RunRequestPasswordReset(ctx, resolveTenant(ctx, tenantID), id, e.passwordResetFlowDeps(ctx))
}

// CompletePasswordReset redeems a reset token, stores the new password
// hash and ends the account's cached session.
func (e *Engine) CompletePasswordReset(ctx context.Context, tenantID, token, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return internalflows.RunCompletePasswordReset(ctx, resolveTenant(ctx, tenantID), token, newPassword, e.passwordResetFlowDeps(ctx))
}

// NotifyAccountExists tells an account owner that someone tried to sign up
// with their address, and includes a reset link or sign-in code.
func (e *Engine) NotifyAccountExists(ctx context.Context, tenantID, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return internalflows.RunNotifyAccountExists(ctx, resolveTenant(ctx, tenantID), userID, e.passwordResetFlowDeps(ctx))
}

func (e *Engine) passwordResetFlowDeps(ctx context.Context) internalflows.PasswordResetDeps {
	return internalflows.PasswordResetDeps{
		Delivery:            e.delivery(),
		Directory:           e.flowDirectory(),
		Observability:       e.observability(ctx, "password_reset"),
		ResetTTL:            e.config.Tokens.ResetTTL,
		SignInTTL:           e.config.Tokens.SignInTTL,
		Equalizer:           e.equalizers.resetRequest,
		CheckPasswordPolicy: e.passwordHash.CheckPolicy,
		HashPassword:        e.passwordHash.Hash,
		DeleteUserSession:   e.sessionStore.DeleteByUserID,
		Metrics: internalflows.PasswordResetMetrics{
			PasswordResetRequest:        int(MetricPasswordResetRequest),
			PasswordResetThrottled:      int(MetricPasswordResetThrottled),
			PasswordResetConfirmSuccess: int(MetricPasswordResetConfirmSuccess),
			PasswordResetConfirmFailure: int(MetricPasswordResetConfirmFailure),
			AccountExistsNotified:       int(MetricAccountExistsNotified),
		},
		Events: internalflows.PasswordResetEvents{
			PasswordResetRequest: auditEventPasswordResetRequest,
			PasswordResetConfirm: auditEventPasswordResetConfirm,
			AccountExists:        auditEventAccountExists,
		},
		Errors: e.flowErrors(),
	}
}
