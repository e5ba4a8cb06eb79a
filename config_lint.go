package goStudyAuth

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// LintSeverity ranks a lint warning.
type LintSeverity int

const (
	// LintInfo marks settings worth a second look.
	LintInfo LintSeverity = iota
	// LintWarn marks settings that weaken a protection.
	LintWarn
	// LintHigh marks settings that defeat a protection.
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one finding of Config.Lint.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of findings of Config.Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above floor.
func (r LintResult) BySeverity(floor LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= floor {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns an error listing every warning at or above floor, or nil.
func (r LintResult) AsError(floor LintSeverity) error {
	hits := r.BySeverity(floor)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports settings that are valid but weaken enumeration or abuse
// protections. Unlike Validate it never blocks Build.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...interface{}) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if !c.SignIn.FailureLimitEnabled {
		add("signin_failure_limit_disabled", LintHigh, "password sign-in failures are not limited")
	}
	if c.Throttle.MaxRequests > 10 {
		add("throttle_permissive", LintWarn, "%d messages per %s per account and action", c.Throttle.MaxRequests, c.Throttle.Window)
	}
	if c.Timing.InitialEstimate < 50*time.Millisecond {
		add("equalizer_estimate_low", LintWarn, "initial estimate %s is below a typical send latency", c.Timing.InitialEstimate)
	}
	if c.Tokens.SignInTTL > time.Hour {
		add("signin_ttl_long", LintWarn, "sign-in tokens live %s", c.Tokens.SignInTTL)
	}
	if c.Tokens.VerificationTTL > 24*time.Hour || c.Tokens.ResetTTL > 24*time.Hour {
		add("token_ttl_long", LintWarn, "verification or reset tokens live longer than a day")
	}
	if c.Session.TTL > 7*24*time.Hour {
		add("session_ttl_long", LintInfo, "sessions live %s", c.Session.TTL)
	}
	if len(c.Session.AdminRoles) == 0 {
		add("no_admin_roles", LintInfo, "every participant gets the consent signal")
	}
	if u, err := url.Parse(c.Links.BaseURL); err == nil && u.Scheme == "http" && !isLocalHost(u.Hostname()) {
		add("base_url_insecure", LintHigh, "emailed links use plain http")
	}
	if c.Password.Memory < 64*1024 {
		add("argon2_memory_low", LintWarn, "argon2 memory %d KB is below 64 MB", c.Password.Memory)
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are not emitted")
	}
	if c.Subpopulations.CacheTTL > 10*time.Minute {
		add("subpopulation_cache_long", LintInfo, "subpopulation edits take up to %s to apply", c.Subpopulations.CacheTTL)
	}

	return ws
}

func isLocalHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
