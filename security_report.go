package goStudyAuth

import "time"

// SecurityReport summarizes the protections the engine runs with.
type SecurityReport struct {
	Environment string
	BaseURL     string

	VerificationTTL time.Duration
	ResetTTL        time.Duration
	SignInTTL       time.Duration
	SessionTTL      time.Duration

	ThrottleMaxRequests int
	ThrottleWindow      time.Duration

	SignInFailureLimitActive bool
	SignInMaxFailures        int
	SignInFailureWindow      time.Duration

	EqualizerEstimates map[string]time.Duration

	Argon2 PasswordConfigReport

	AuditEnabled   bool
	MetricsEnabled bool

	Tenants            int
	EmailSignInTenants int
	PhoneSignInTenants int
	ConsentBypassRoles []string
	LintFindings       LintResult
}

// PasswordConfigReport is the argon2id cost the engine hashes with.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport returns a point-in-time summary of the engine's settings
// and the current equalizer estimates.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config

	report := SecurityReport{
		Environment:         cfg.Session.Environment,
		BaseURL:             cfg.Links.BaseURL,
		VerificationTTL:     cfg.Tokens.VerificationTTL,
		ResetTTL:            cfg.Tokens.ResetTTL,
		SignInTTL:           cfg.Tokens.SignInTTL,
		SessionTTL:          cfg.Session.TTL,
		ThrottleMaxRequests: cfg.Throttle.MaxRequests,
		ThrottleWindow:      cfg.Throttle.Window,

		SignInFailureLimitActive: cfg.SignIn.FailureLimitEnabled && cfg.SignIn.MaxFailures > 0,
		SignInMaxFailures:        cfg.SignIn.MaxFailures,
		SignInFailureWindow:      cfg.SignIn.FailureWindow,

		EqualizerEstimates: e.equalizers.estimates(),

		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		AuditEnabled:       cfg.Audit.Enabled,
		MetricsEnabled:     cfg.Metrics.Enabled,
		Tenants:            len(cfg.Tenants),
		ConsentBypassRoles: cloneStrings(cfg.Session.AdminRoles),
		LintFindings:       cfg.Lint(),
	}
	for _, t := range cfg.Tenants {
		if t.EmailSignInEnabled {
			report.EmailSignInTenants++
		}
		if t.PhoneSignInEnabled {
			report.PhoneSignInTenants++
		}
	}
	return report
}
