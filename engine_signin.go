package goStudyAuth

import (
	"context"

	internalflows "github.com/MrEthical07/goStudyAuth/internal/flows"
)

// RequestChannelSignIn sends a sign-in token to the email address or phone
// number in id. While an unexpired token exists for the address it is sent
// again rather than replaced. Unknown identifiers return nil after the
// same delay a real send takes.
func (e *Engine) RequestChannelSignIn(ctx context.Context, tenantID string, ch Channel, id Identifier) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return internalflows.RunRequestChannelSignIn(ctx, resolveTenant(ctx, tenantID), ch, id, e.signInFlowDeps(ctx, "channel_sign_in"))
}

// AuthenticateWithChannelToken redeems a token sent by RequestChannelSignIn
// and returns a new session. Redeeming it also verifies the channel.
func (e *Engine) AuthenticateWithChannelToken(ctx context.Context, ch Channel, cctx CriteriaContext, in ChannelSignIn) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	out, err := internalflows.RunAuthenticateWithChannelToken(
		ctx,
		resolveTenant(ctx, in.TenantID),
		ch,
		cctx,
		identifierOf(in.Email, in.Phone),
		in.Token,
		e.signInFlowDeps(ctx, "channel_sign_in"),
	)
	if err != nil {
		return nil, err
	}
	return toAuthResult(out), nil
}

// AuthenticateWithPassword checks a password and returns a new session.
// Unknown identifiers, wrong passwords and identifiers over the failure
// limit all return ErrAuthenticationFailed.
func (e *Engine) AuthenticateWithPassword(ctx context.Context, cctx CriteriaContext, in PasswordSignIn) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	out, err := internalflows.RunAuthenticateWithPassword(
		ctx,
		resolveTenant(ctx, in.TenantID),
		cctx,
		identifierOf(in.Email, in.Phone),
		in.Password,
		e.signInFlowDeps(ctx, "password_sign_in"),
	)
	if err != nil {
		return nil, err
	}
	return toAuthResult(out), nil
}

// Reauthenticate exchanges the reauthentication token from a previous
// AuthResult for a new session. The token rotates on every success.
func (e *Engine) Reauthenticate(ctx context.Context, cctx CriteriaContext, in Reauthentication) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	out, err := internalflows.RunReauthenticate(
		ctx,
		resolveTenant(ctx, in.TenantID),
		cctx,
		identifierOf(in.Email, in.Phone),
		in.ReauthToken,
		e.signInFlowDeps(ctx, "reauthenticate"),
	)
	if err != nil {
		return nil, err
	}
	return toAuthResult(out), nil
}

func (e *Engine) signInFlowDeps(ctx context.Context, op string) internalflows.SignInDeps {
	return internalflows.SignInDeps{
		Delivery:              e.delivery(),
		Directory:             e.flowDirectory(),
		Observability:         e.observability(ctx, op),
		SignInTTL:             e.config.Tokens.SignInTTL,
		EmailRequestEqualizer: e.equalizers.emailSignInRequest,
		PhoneRequestEqualizer: e.equalizers.phoneSignInRequest,
		PasswordEqualizer:     e.equalizers.passwordSignIn,
		CheckFailures:         e.signInLimiter.Check,
		RecordFailure:         e.signInLimiter.RecordFailure,
		ResetFailures:         e.signInLimiter.Reset,
		VerifyPassword:        e.passwordHash.Verify,
		DeleteUserSession:     e.sessionStore.DeleteByUserID,
		Assemble:              e.assemble,
		Metrics: internalflows.SignInMetrics{
			SignInRequested:           int(MetricSignInRequested),
			SignInThrottled:           int(MetricSignInThrottled),
			ChannelSignInSuccess:      int(MetricChannelSignInSuccess),
			ChannelSignInFailure:      int(MetricChannelSignInFailure),
			PasswordSignInSuccess:     int(MetricPasswordSignInSuccess),
			PasswordSignInFailure:     int(MetricPasswordSignInFailure),
			PasswordSignInRateLimited: int(MetricPasswordSignInRateLimited),
			ReauthSuccess:             int(MetricReauthSuccess),
			ReauthFailure:             int(MetricReauthFailure),
		},
		Events: internalflows.SignInEvents{
			SignInRequest:  auditEventSignInRequest,
			ChannelSignIn:  auditEventChannelSignIn,
			PasswordSignIn: auditEventPasswordSignIn,
			Reauthenticate: auditEventReauthenticate,
		},
		Errors: e.flowErrors(),
	}
}
