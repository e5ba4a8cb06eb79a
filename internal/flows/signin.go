package flows

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goStudyAuth/criteria"
	"github.com/MrEthical07/goStudyAuth/internal/limiters"
	"github.com/MrEthical07/goStudyAuth/internal/timing"
	"github.com/MrEthical07/goStudyAuth/notify"
	"go.uber.org/zap"
)

type SignInMetrics struct {
	SignInRequested           int
	SignInThrottled           int
	ChannelSignInSuccess      int
	ChannelSignInFailure      int
	PasswordSignInSuccess     int
	PasswordSignInFailure     int
	PasswordSignInRateLimited int
	ReauthSuccess             int
	ReauthFailure             int
}

type SignInEvents struct {
	SignInRequest  string
	ChannelSignIn  string
	PasswordSignIn string
	Reauthenticate string
}

type SignInDeps struct {
	Delivery
	Directory
	Observability

	SignInTTL time.Duration

	EmailRequestEqualizer *timing.Equalizer
	PhoneRequestEqualizer *timing.Equalizer
	PasswordEqualizer     *timing.Equalizer

	CheckFailures  func(ctx context.Context, tenantID, identifier string) error
	RecordFailure  func(ctx context.Context, tenantID, identifier string) error
	ResetFailures  func(ctx context.Context, tenantID, identifier string) error
	VerifyPassword func(password, hash string) (bool, error)
	NewReauthToken func() (string, error)

	// DeleteUserSession drops the cached session of a user, if any.
	DeleteUserSession func(ctx context.Context, userID string) error
	Assemble          func(ctx context.Context, in AssembleInput) (AuthOutcome, error)

	Metrics SignInMetrics
	Events  SignInEvents
	Errors  Errors
}

func normalizeSignInDeps(deps *SignInDeps) {
	normalizeDelivery(&deps.Delivery)
	normalizeObservability(&deps.Observability)
	normalizeErrors(&deps.Errors)
	if deps.SignInTTL <= 0 {
		deps.SignInTTL = time.Hour
	}
	noop := func(context.Context, string, string) error { return nil }
	if deps.CheckFailures == nil {
		deps.CheckFailures = noop
	}
	if deps.RecordFailure == nil {
		deps.RecordFailure = noop
	}
	if deps.ResetFailures == nil {
		deps.ResetFailures = noop
	}
	if deps.NewReauthToken == nil {
		deps.NewReauthToken = deps.NewToken
	}
	if deps.DeleteUserSession == nil {
		deps.DeleteUserSession = func(context.Context, string) error { return nil }
	}
}

func (deps SignInDeps) requestEqualizer(ch Channel) *timing.Equalizer {
	if ch == ChannelPhone {
		return deps.PhoneRequestEqualizer
	}
	return deps.EmailRequestEqualizer
}

// HashReauthToken is the form in which reauthentication tokens are stored.
func HashReauthToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func signInEnabled(t Tenant, ch Channel) bool {
	if ch == ChannelPhone {
		return t.PhoneSignInEnabled
	}
	return t.EmailSignInEnabled
}

// issueSignInToken returns the outstanding sign-in token for contact, minting
// one when none exists. Repeated requests inside the TTL resend the same
// token.
func issueSignInToken(ctx context.Context, tenantID string, ch Channel, contact string, tokens TokenStore, ttl time.Duration) (string, error) {
	prof, _ := profileFor(ch)
	fresh, err := prof.newSignInToken()
	if err != nil {
		return "", err
	}
	stored, _, err := tokens.GetOrPut(ctx, SignInKey(ch, contact, tenantID), fresh, ttl)
	if err != nil {
		return "", err
	}
	return stored, nil
}

// RunRequestChannelSignIn sends a sign-in token to contact on ch. Unknown
// addresses wait out the channel's equalizer and return nil. Throttled
// requests return nil without sending.
func RunRequestChannelSignIn(ctx context.Context, tenantID string, ch Channel, id Identifier, deps SignInDeps) error {
	normalizeSignInDeps(&deps)

	if deps.Tokens == nil || deps.Dispatcher == nil || deps.FindAccount == nil {
		return deps.Errors.EngineNotReady
	}
	prof, ok := profileFor(ch)
	if !ok {
		return deps.Errors.InvalidRequest
	}
	contact := contactFor(id, ch)
	if err := validateContact(ch, contact); err != nil {
		return fmt.Errorf("%w: %v", deps.Errors.InvalidRequest, err)
	}

	start := time.Now()
	tenant, err := deps.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if !signInEnabled(tenant, ch) {
		deps.EmitAudit(ctx, deps.Events.SignInRequest, false, "", tenantID, string(ch), deps.Errors.ChannelSignInDisabled, nil)
		return deps.Errors.ChannelSignInDisabled
	}

	account, err := deps.FindAccount(ctx, tenantID, identifierFor(ch, contact))
	if err != nil {
		if !errors.Is(err, deps.Errors.AccountNotFound) {
			return err
		}
		deps.Logger.Debug("sign in requested for unknown account",
			zap.String("tenant_id", tenantID), zap.String("channel", string(ch)))
		return deps.requestEqualizer(ch).WaitFrom(ctx, start)
	}

	throttled, err := deps.IsThrottled(ctx, prof.signInAction, account.ID)
	if err != nil {
		return unavailable(deps.Errors.CacheUnavailable, err)
	}
	if throttled {
		deps.MetricInc(deps.Metrics.SignInThrottled)
		deps.EmitAudit(ctx, deps.Events.SignInRequest, false, account.ID, tenantID, string(ch), nil, func() map[string]string {
			return map[string]string{"reason": "throttled"}
		})
		return nil
	}

	token, err := issueSignInToken(ctx, tenantID, ch, contact, deps.Tokens, deps.SignInTTL)
	if err != nil {
		return unavailable(deps.Errors.CacheUnavailable, err)
	}

	msg := newMessage(ch, tenant, contact, prof.signInTemplate).
		set(notify.VarToken, prof.displaySignInToken(token)).
		set(prof.signInExpirationVar, FormatPeriod(deps.SignInTTL))
	if ch == ChannelEmail {
		msg.set(notify.VarEmail, url.QueryEscape(contact)).
			set(notify.VarEmailSignInURL, emailSignInURL(deps.BaseURL, tenantID, contact, token))
	}
	if err := msg.send(ctx, deps.Dispatcher); err != nil {
		deps.EmitAudit(ctx, deps.Events.SignInRequest, false, account.ID, tenantID, string(ch), err, nil)
		return err
	}

	deps.requestEqualizer(ch).ObserveSince(start)
	deps.MetricInc(deps.Metrics.SignInRequested)
	deps.EmitAudit(ctx, deps.Events.SignInRequest, true, account.ID, tenantID, string(ch), nil, nil)
	return nil
}

// RunAuthenticateWithChannelToken exchanges a sign-in token for a session.
// A wrong token leaves the stored one in place; a matching token is spent.
// A spent token whose account has since disappeared fails like a wrong one.
func RunAuthenticateWithChannelToken(ctx context.Context, tenantID string, ch Channel, cctx criteria.Context, id Identifier, token string, deps SignInDeps) (AuthOutcome, error) {
	normalizeSignInDeps(&deps)

	if deps.Tokens == nil || deps.FindAccount == nil || deps.Assemble == nil {
		return AuthOutcome{}, deps.Errors.EngineNotReady
	}
	prof, ok := profileFor(ch)
	if !ok {
		return AuthOutcome{}, deps.Errors.InvalidRequest
	}
	contact := contactFor(id, ch)
	if err := validateContact(ch, contact); err != nil {
		return AuthOutcome{}, fmt.Errorf("%w: %v", deps.Errors.InvalidRequest, err)
	}

	fail := func(reason string) (AuthOutcome, error) {
		deps.MetricInc(deps.Metrics.ChannelSignInFailure)
		deps.EmitAudit(ctx, deps.Events.ChannelSignIn, false, "", tenantID, string(ch), deps.Errors.AuthenticationFailed, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return AuthOutcome{}, deps.Errors.AuthenticationFailed
	}

	submitted := prof.normalizeSubmitted(token)
	if submitted == "" {
		return fail("empty_token")
	}
	matched, err := deps.Tokens.TakeIfEqual(ctx, SignInKey(ch, contact, tenantID), submitted)
	if err != nil {
		return AuthOutcome{}, unavailable(deps.Errors.CacheUnavailable, err)
	}
	if !matched {
		return fail("token_mismatch")
	}

	account, err := deps.FindAccount(ctx, tenantID, identifierFor(ch, contact))
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			return fail("unknown_account")
		}
		return AuthOutcome{}, err
	}
	if account.Disabled {
		deps.EmitAudit(ctx, deps.Events.ChannelSignIn, false, account.ID, tenantID, string(ch), deps.Errors.AccountDisabled, nil)
		return AuthOutcome{}, deps.Errors.AccountDisabled
	}

	// Receiving the token proves control of the address.
	if _, verified := contactOf(account, ch); !verified && deps.MarkChannelVerified != nil {
		if err := deps.MarkChannelVerified(ctx, tenantID, account.ID, ch); err != nil {
			return AuthOutcome{}, err
		}
		if ch == ChannelPhone {
			account.PhoneVerified = true
		} else {
			account.EmailVerified = true
		}
	}

	out, err := finishSignIn(ctx, tenantID, cctx, account, deps)
	if err != nil {
		return AuthOutcome{}, err
	}
	deps.MetricInc(deps.Metrics.ChannelSignInSuccess)
	deps.EmitAudit(ctx, deps.Events.ChannelSignIn, true, account.ID, tenantID, string(ch), nil, nil)
	return out, nil
}

// RunAuthenticateWithPassword signs in with an identifier and password.
// Every failure mode that could reveal whether the account exists answers
// AuthenticationFailed after a comparable delay.
func RunAuthenticateWithPassword(ctx context.Context, tenantID string, cctx criteria.Context, id Identifier, password string, deps SignInDeps) (AuthOutcome, error) {
	normalizeSignInDeps(&deps)

	if deps.FindAccount == nil || deps.VerifyPassword == nil || deps.Assemble == nil {
		return AuthOutcome{}, deps.Errors.EngineNotReady
	}
	identifier := strings.TrimSpace(id.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(id.Phone)
	}
	if identifier == "" || password == "" {
		return AuthOutcome{}, deps.Errors.InvalidRequest
	}

	fail := func(userID, reason string) (AuthOutcome, error) {
		deps.MetricInc(deps.Metrics.PasswordSignInFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordSignIn, false, userID, tenantID, "", deps.Errors.AuthenticationFailed, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return AuthOutcome{}, deps.Errors.AuthenticationFailed
	}

	if err := deps.CheckFailures(ctx, tenantID, identifier); err != nil {
		if errors.Is(err, limiters.ErrSignInRateLimited) {
			deps.MetricInc(deps.Metrics.PasswordSignInRateLimited)
			return fail("", "rate_limited")
		}
		return AuthOutcome{}, unavailable(deps.Errors.CacheUnavailable, err)
	}

	start := time.Now()
	account, err := deps.FindAccount(ctx, tenantID, id)
	if err != nil {
		if !errors.Is(err, deps.Errors.AccountNotFound) {
			return AuthOutcome{}, err
		}
		if err := deps.RecordFailure(ctx, tenantID, identifier); err != nil {
			deps.Logger.Warn("record sign in failure", zap.Error(err))
		}
		if err := deps.PasswordEqualizer.WaitFrom(ctx, start); err != nil {
			return AuthOutcome{}, err
		}
		return fail("", "unknown_account")
	}

	ok, err := deps.VerifyPassword(password, account.PasswordHash)
	deps.PasswordEqualizer.ObserveSince(start)
	if err != nil {
		deps.Logger.Warn("stored password hash unusable",
			zap.String("tenant_id", tenantID), zap.String("user_id", account.ID), zap.Error(err))
		ok = false
	}
	if !ok {
		if err := deps.RecordFailure(ctx, tenantID, identifier); err != nil {
			deps.Logger.Warn("record sign in failure", zap.Error(err))
		}
		return fail(account.ID, "bad_password")
	}
	if account.Disabled {
		deps.EmitAudit(ctx, deps.Events.PasswordSignIn, false, account.ID, tenantID, "", deps.Errors.AccountDisabled, nil)
		return AuthOutcome{}, deps.Errors.AccountDisabled
	}
	if err := deps.ResetFailures(ctx, tenantID, identifier); err != nil {
		deps.Logger.Warn("reset sign in failures", zap.Error(err))
	}

	out, err := finishSignIn(ctx, tenantID, cctx, account, deps)
	if err != nil {
		return AuthOutcome{}, err
	}
	deps.MetricInc(deps.Metrics.PasswordSignInSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordSignIn, true, account.ID, tenantID, "", nil, nil)
	return out, nil
}

// RunReauthenticate trades a reauthentication token for a new session. The
// presented token is rotated and any cached session of the account is
// dropped, so the caller receives fresh session tokens. Both failure modes
// wait out the password equalizer.
func RunReauthenticate(ctx context.Context, tenantID string, cctx criteria.Context, id Identifier, reauthToken string, deps SignInDeps) (AuthOutcome, error) {
	normalizeSignInDeps(&deps)

	if deps.FindAccount == nil || deps.SetReauthTokenHash == nil || deps.Assemble == nil {
		return AuthOutcome{}, deps.Errors.EngineNotReady
	}
	if strings.TrimSpace(id.Email) == "" && strings.TrimSpace(id.Phone) == "" {
		return AuthOutcome{}, deps.Errors.InvalidRequest
	}

	fail := func(userID string) (AuthOutcome, error) {
		deps.MetricInc(deps.Metrics.ReauthFailure)
		deps.EmitAudit(ctx, deps.Events.Reauthenticate, false, userID, tenantID, "", deps.Errors.AuthenticationFailed, nil)
		return AuthOutcome{}, deps.Errors.AuthenticationFailed
	}

	reauthToken = strings.TrimSpace(reauthToken)
	if reauthToken == "" {
		return fail("")
	}

	start := time.Now()
	account, err := deps.FindAccount(ctx, tenantID, id)
	if err != nil {
		if !errors.Is(err, deps.Errors.AccountNotFound) {
			return AuthOutcome{}, err
		}
		if err := deps.PasswordEqualizer.WaitFrom(ctx, start); err != nil {
			return AuthOutcome{}, err
		}
		return fail("")
	}
	presented := HashReauthToken(reauthToken)
	if account.ReauthTokenHash == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(account.ReauthTokenHash)) != 1 {
		if err := deps.PasswordEqualizer.WaitFrom(ctx, start); err != nil {
			return AuthOutcome{}, err
		}
		return fail(account.ID)
	}
	if account.Disabled {
		deps.EmitAudit(ctx, deps.Events.Reauthenticate, false, account.ID, tenantID, "", deps.Errors.AccountDisabled, nil)
		return AuthOutcome{}, deps.Errors.AccountDisabled
	}

	if err := deps.DeleteUserSession(ctx, account.ID); err != nil {
		return AuthOutcome{}, unavailable(deps.Errors.CacheUnavailable, err)
	}

	out, err := finishSignIn(ctx, tenantID, cctx, account, deps)
	if err != nil {
		return AuthOutcome{}, err
	}
	deps.MetricInc(deps.Metrics.ReauthSuccess)
	deps.EmitAudit(ctx, deps.Events.Reauthenticate, true, account.ID, tenantID, "", nil, nil)
	return out, nil
}

// finishSignIn rotates the reauthentication token and assembles the session.
func finishSignIn(ctx context.Context, tenantID string, cctx criteria.Context, account Account, deps SignInDeps) (AuthOutcome, error) {
	var reauth string
	if deps.SetReauthTokenHash != nil {
		token, err := deps.NewReauthToken()
		if err != nil {
			return AuthOutcome{}, err
		}
		if err := deps.SetReauthTokenHash(ctx, tenantID, account.ID, HashReauthToken(token)); err != nil {
			return AuthOutcome{}, err
		}
		account.ReauthTokenHash = HashReauthToken(token)
		reauth = token
	}

	return deps.Assemble(ctx, AssembleInput{
		TenantID:    tenantID,
		Context:     cctx,
		Account:     account,
		ReauthToken: reauth,
	})
}
