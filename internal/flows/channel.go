package flows

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goStudyAuth/internal"
	"github.com/MrEthical07/goStudyAuth/internal/limiters"
	"github.com/MrEthical07/goStudyAuth/internal/stores"
	"github.com/MrEthical07/goStudyAuth/notify"
)

// Channel is a verifiable contact method. Values match the "type" field of
// stored verification payloads.
type Channel string

const (
	ChannelEmail Channel = stores.ChannelEmail
	ChannelPhone Channel = stores.ChannelPhone
)

// channelProfile is everything that differs between email and phone.
type channelProfile struct {
	verifyAction string
	signInAction string

	verifyTemplate        string
	resetTemplate         string
	accountExistsTemplate string
	signInTemplate        string

	verifyExpirationVar string
	signInExpirationVar string

	signInKeySuffix string
	resetKeyInfix   string

	// newSignInToken mints the value stored under the sign-in key.
	newSignInToken func() (string, error)
	// displaySignInToken formats a stored sign-in token for delivery.
	displaySignInToken func(string) string
	// normalizeSubmitted undoes displaySignInToken on user input.
	normalizeSubmitted func(string) string
}

var channelProfiles = map[Channel]channelProfile{
	ChannelEmail: {
		verifyAction:          limiters.ActionVerifyEmail,
		signInAction:          limiters.ActionEmailSignIn,
		verifyTemplate:        notify.TemplateVerifyEmail,
		resetTemplate:         notify.TemplateResetPassword,
		accountExistsTemplate: notify.TemplateAccountExists,
		signInTemplate:        notify.TemplateEmailSignIn,
		verifyExpirationVar:   notify.VarEmailVerificationExpirationPeriod,
		signInExpirationVar:   notify.VarEmailSignInExpirationPeriod,
		signInKeySuffix:       "signInRequest",
		resetKeyInfix:         "",
		newSignInToken:        internal.NewToken,
		displaySignInToken:    func(s string) string { return s },
		normalizeSubmitted:    strings.TrimSpace,
	},
	ChannelPhone: {
		verifyAction:          limiters.ActionVerifyPhone,
		signInAction:          limiters.ActionPhoneSignIn,
		verifyTemplate:        notify.TemplateVerifyPhone,
		resetTemplate:         notify.TemplatePhoneResetPassword,
		accountExistsTemplate: notify.TemplatePhoneAccountExists,
		signInTemplate:        notify.TemplatePhoneSignIn,
		verifyExpirationVar:   notify.VarPhoneVerificationExpirationPeriod,
		signInExpirationVar:   notify.VarPhoneSignInExpirationPeriod,
		signInKeySuffix:       "phoneSignInRequest",
		resetKeyInfix:         "phone:",
		newSignInToken:        func() (string, error) { return internal.NewNumericCode(internal.CodeDigits) },
		displaySignInToken:    internal.FormatCode,
		normalizeSubmitted:    internal.NormalizeCode,
	},
}

func profileFor(ch Channel) (channelProfile, bool) {
	prof, ok := channelProfiles[ch]
	return prof, ok
}

// ParseChannel accepts "email" or "phone" in any case.
func ParseChannel(s string) (Channel, bool) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := channelProfiles[ch]
	return ch, ok
}

// SignInKey is the cache key holding the outstanding sign-in token for a
// contact address.
func SignInKey(ch Channel, contact, tenantID string) string {
	prof, _ := profileFor(ch)
	return contact + ":" + tenantID + ":" + prof.signInKeySuffix
}

// ResetKey is the cache key holding the contact address a reset token was
// sent to.
func ResetKey(ch Channel, token, tenantID string) string {
	prof, _ := profileFor(ch)
	return token + ":" + prof.resetKeyInfix + tenantID
}

// contactOf returns the account's address for ch and whether it is verified.
func contactOf(a Account, ch Channel) (string, bool) {
	if ch == ChannelPhone {
		return a.Phone, a.PhoneVerified
	}
	return a.Email, a.EmailVerified
}

// identifierFor builds the identifier naming contact on ch.
func identifierFor(ch Channel, contact string) Identifier {
	if ch == ChannelPhone {
		return Identifier{Phone: contact}
	}
	return Identifier{Email: contact}
}

// contactFor picks the address an identifier names on ch.
func contactFor(id Identifier, ch Channel) string {
	if ch == ChannelPhone {
		return strings.TrimSpace(id.Phone)
	}
	return strings.TrimSpace(id.Email)
}

func resetPasswordURL(base, tenantID, token string) string {
	return fmt.Sprintf("%s/rp?study=%s&sptoken=%s", base, url.QueryEscape(tenantID), url.QueryEscape(token))
}

func verifyEmailURL(base, tenantID, token string) string {
	return fmt.Sprintf("%s/ve?study=%s&sptoken=%s", base, url.QueryEscape(tenantID), url.QueryEscape(token))
}

func emailSignInURL(base, tenantID, email, token string) string {
	return fmt.Sprintf("%s/s/%s?email=%s&token=%s", base, url.PathEscape(tenantID), url.QueryEscape(email), url.QueryEscape(token))
}

// FormatPeriod renders a TTL for message bodies ("2 hours", "1 hour",
// "30 minutes").
func FormatPeriod(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
