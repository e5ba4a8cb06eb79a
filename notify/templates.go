package notify

import (
	"fmt"
	"regexp"
)

// Template is one message layout. Subject is ignored for SMS.
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
	HTML    bool   `yaml:"html"`
}

// Rendered is a template with its variables substituted.
type Rendered struct {
	Subject string
	Body    string
	HTML    bool
}

// Templates maps template keys to layouts. Placeholders use ${name};
// unknown names are left in place.
type Templates map[string]Template

var placeholder = regexp.MustCompile(`\$\{([A-Za-z0-9_.]+)\}`)

// Render substitutes vars into the template stored under key.
func (t Templates) Render(key string, vars map[string]string) (Rendered, error) {
	tpl, ok := t[key]
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, key)
	}
	return Rendered{
		Subject: expand(tpl.Subject, vars),
		Body:    expand(tpl.Body, vars),
		HTML:    tpl.HTML,
	}, nil
}

// Merge returns a copy of t with overrides applied on top.
func (t Templates) Merge(overrides Templates) Templates {
	out := make(Templates, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func expand(s string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// DefaultTemplates returns plain-text layouts for every template key.
func DefaultTemplates() Templates {
	return Templates{
		TemplateVerifyEmail: {
			Subject: "Verify your email for ${studyName}",
			Body:    "Confirm your email address by opening ${emailVerificationUrl}\nThis link expires in ${emailVerificationExpirationPeriod}.",
		},
		TemplateResetPassword: {
			Subject: "Reset your ${studyName} password",
			Body:    "Reset your password at ${resetPasswordUrl}\nThis link expires in ${resetPasswordExpirationPeriod}.",
		},
		TemplateAccountExists: {
			Subject: "Your ${studyName} account",
			Body:    "You already have an account. Reset your password at ${resetPasswordUrl} or sign in at ${emailSignInUrl}",
		},
		TemplateEmailSignIn: {
			Subject: "Sign in to ${studyName}",
			Body:    "Sign in by opening ${emailSignInUrl}\nThis link expires in ${emailSignInExpirationPeriod}.",
		},
		TemplateVerifyPhone: {
			Body: "Your ${studyName} verification code is ${sptoken}. It expires in ${phoneVerificationExpirationPeriod}.",
		},
		TemplatePhoneResetPassword: {
			Body: "Reset your ${studyName} password: ${resetPasswordUrl}",
		},
		TemplatePhoneAccountExists: {
			Body: "You already have a ${studyName} account. Reset your password: ${resetPasswordUrl}",
		},
		TemplatePhoneSignIn: {
			Body: "Your ${studyName} sign-in code is ${token}. It expires in ${phoneSignInExpirationPeriod}.",
		},
	}
}
