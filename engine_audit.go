package goStudyAuth

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/goStudyAuth/internal/audit"
)

const (
	auditEventVerificationRequest  = "verification_request"
	auditEventVerificationComplete = "verification_complete"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetConfirm = "password_reset_confirm"
	auditEventAccountExists        = "account_exists_notified"
	auditEventSignInRequest        = "channel_sign_in_request"
	auditEventChannelSignIn        = "channel_sign_in"
	auditEventPasswordSignIn       = "password_sign_in"
	auditEventReauthenticate       = "reauthenticate"
	auditEventSignUp               = "sign_up"
	auditEventSignOut              = "sign_out"
)

// AuditErrorCode is the stable, non-sensitive error classification stored
// in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidToken    AuditErrorCode = "invalid_token"
	auditErrAuthFailed      AuditErrorCode = "authentication_failed"
	auditErrAccountDisabled AuditErrorCode = "account_disabled"
	auditErrAccountNotFound AuditErrorCode = "account_not_found"
	auditErrDuplicate       AuditErrorCode = "duplicate"
	auditErrSignInDisabled  AuditErrorCode = "channel_sign_in_disabled"
	auditErrPasswordPolicy  AuditErrorCode = "password_policy"
	auditErrInvalidRequest  AuditErrorCode = "invalid_request"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrContextEnded    AuditErrorCode = "context_ended"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tenantID string,
	channel string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}
	if tenantID == "" {
		tenantID = tenantIDFromContext(ctx)
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	now := time.Now().UTC()
	event := AuditEvent{
		ID:        internalaudit.NewID(now),
		Timestamp: now,
		EventType: eventType,
		UserID:    userID,
		TenantID:  tenantID,
		Channel:   channel,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrAuthenticationFailed):
		return auditErrAuthFailed
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrChannelSignInDisabled):
		return auditErrSignInDisabled
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrUnknownChannel), errors.Is(err, ErrUnknownTenant):
		return auditErrInvalidRequest
	case errors.Is(err, ErrCacheUnavailable):
		return auditErrUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrContextEnded
	default:
		return auditErrInternal
	}
}
