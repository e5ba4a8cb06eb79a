package goStudyAuth

import (
	"context"

	internalflows "github.com/MrEthical07/goStudyAuth/internal/flows"
)

// SignUp creates an account and sends verification for each address it
// carries. When the email or phone already belongs to an account the owner
// is notified instead and SignUp still returns nil.
func (e *Engine) SignUp(ctx context.Context, in SignUpRequest) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	tenantID := resolveTenant(ctx, in.TenantID)
	return internalflows.RunSignUp(ctx, tenantID, in.Account, in.Password, e.signUpFlowDeps(ctx))
}

func (e *Engine) signUpFlowDeps(ctx context.Context) internalflows.SignUpDeps {
	verification := e.verificationFlowDeps(ctx)
	reset := e.passwordResetFlowDeps(ctx)
	return internalflows.SignUpDeps{
		Directory:           e.flowDirectory(),
		Observability:       e.observability(ctx, "sign_up"),
		CheckPasswordPolicy: e.passwordHash.CheckPolicy,
		HashPassword:        e.passwordHash.Hash,
		RequestVerification: func(ctx context.Context, tenantID, userID string, ch Channel) error {
			return internalflows.RunRequestVerification(ctx, tenantID, userID, ch, verification)
		},
		NotifyAccountExists: func(ctx context.Context, tenantID, userID string) error {
			return internalflows.RunNotifyAccountExists(ctx, tenantID, userID, reset)
		},
		Metrics: internalflows.SignUpMetrics{
			SignUpSuccess:  int(MetricSignUpSuccess),
			SignUpExisting: int(MetricSignUpExisting),
		},
		Events: internalflows.SignUpEvents{
			SignUp: auditEventSignUp,
		},
		Errors: e.flowErrors(),
	}
}
