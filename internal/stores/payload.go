package stores

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Channel names used inside stored payloads.
const (
	ChannelEmail = "EMAIL"
	ChannelPhone = "PHONE"
)

// VerificationPayload identifies the account and channel a verification
// token was issued for.
type VerificationPayload struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
	Channel  string `json:"type,omitempty"`
}

func encodeVerificationPayload(p VerificationPayload) (string, error) {
	if p.TenantID == "" || p.UserID == "" {
		return "", fmt.Errorf("%w: missing tenant or user", ErrTokenPayloadCorrupt)
	}
	if p.Channel == "" {
		p.Channel = ChannelEmail
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Payloads written before phone verification existed carry no type; they
// are email verifications.
func decodeVerificationPayload(raw string) (VerificationPayload, error) {
	var p VerificationPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return VerificationPayload{}, fmt.Errorf("%w: %v", ErrTokenPayloadCorrupt, err)
	}
	if p.TenantID == "" || p.UserID == "" {
		return VerificationPayload{}, ErrTokenPayloadCorrupt
	}
	p.Channel = strings.ToUpper(p.Channel)
	if p.Channel == "" {
		p.Channel = ChannelEmail
	}
	return p, nil
}
