package goStudyAuth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goStudyAuth/internal/logger"
	"github.com/MrEthical07/goStudyAuth/password"
)

// Config is the complete engine configuration. Start from DefaultConfig and
// override what differs.
type Config struct {
	Tokens         TokenConfig             `yaml:"tokens"`
	Throttle       ThrottleConfig          `yaml:"throttle"`
	Timing         TimingConfig            `yaml:"timing"`
	Session        SessionConfig           `yaml:"session"`
	Password       PasswordConfig          `yaml:"password"`
	SignIn         SignInConfig            `yaml:"signIn"`
	Links          LinksConfig             `yaml:"links"`
	Subpopulations SubpopulationConfig     `yaml:"subpopulations"`
	Audit          AuditConfig             `yaml:"audit"`
	Metrics        MetricsConfig           `yaml:"metrics"`
	Logging        LoggingConfig           `yaml:"logging"`
	Tenants        map[string]TenantConfig `yaml:"tenants"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig sets the lifetime of single-use tokens.
type TokenConfig struct {
	RedisPrefix     string        `yaml:"redisPrefix"`
	VerificationTTL time.Duration `yaml:"verificationTTL"`
	ResetTTL        time.Duration `yaml:"resetTTL"`
	SignInTTL       time.Duration `yaml:"signInTTL"`
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig bounds outbound messages per account and action. The
// MaxRequests-th request in a window is still sent.
type ThrottleConfig struct {
	MaxRequests int           `yaml:"maxRequests"`
	Window      time.Duration `yaml:"window"`
}

/*
====================================
TIMING CONFIG
====================================
*/

// TimingConfig seeds the equalizers that pad unknown-account paths.
type TimingConfig struct {
	InitialEstimate time.Duration `yaml:"initialEstimate"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session persistence and the consent bypass.
type SessionConfig struct {
	RedisPrefix string        `yaml:"redisPrefix"`
	TTL         time.Duration `yaml:"ttl"`
	Environment string        `yaml:"environment"`
	// AdminRoles never get a consent-required signal.
	AdminRoles []string `yaml:"adminRoles"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the argon2id cost and the length policy.
type PasswordConfig struct {
	Memory           uint32 `yaml:"memory"` // in KB
	Time             uint32 `yaml:"time"`
	Parallelism      uint8  `yaml:"parallelism"`
	SaltLength       uint32 `yaml:"saltLength"`
	KeyLength        uint32 `yaml:"keyLength"`
	MinPasswordBytes int    `yaml:"minPasswordBytes"`
	MaxPasswordBytes int    `yaml:"maxPasswordBytes"`
}

/*
====================================
SIGN-IN CONFIG
====================================
*/

// SignInConfig limits failed password sign-ins per identifier.
type SignInConfig struct {
	FailureLimitEnabled bool          `yaml:"failureLimitEnabled"`
	MaxFailures         int           `yaml:"maxFailures"`
	FailureWindow       time.Duration `yaml:"failureWindow"`
}

/*
====================================
LINKS CONFIG
====================================
*/

// LinksConfig is the public base URL embedded in emailed links, without a
// trailing slash.
type LinksConfig struct {
	BaseURL string `yaml:"baseURL"`
}

/*
====================================
SUBPOPULATION CONFIG
====================================
*/

// SubpopulationConfig configures the registry built when the caller does
// not supply one.
type SubpopulationConfig struct {
	CacheTTL time.Duration `yaml:"cacheTTL"`
	// CreateDefault persists a default group for tenants with none.
	CreateDefault bool `yaml:"createDefault"`
	// StaticFile is a YAML file of subpopulations per tenant.
	StaticFile string `yaml:"staticFile"`
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"bufferSize"`
	DropIfFull bool `yaml:"dropIfFull"`
}

// MetricsConfig toggles in-process counters and the latency histogram.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enableLatencyHistograms"`
}

// LoggingConfig builds the engine logger when none is supplied.
type LoggingConfig = logger.Config

/*
====================================
TENANTS
====================================
*/

// TenantConfig is the static form of TenantSettings.
type TenantConfig struct {
	Name               string   `yaml:"name"`
	EmailSignInEnabled bool     `yaml:"emailSignInEnabled"`
	PhoneSignInEnabled bool     `yaml:"phoneSignInEnabled"`
	DataGroups         []string `yaml:"dataGroups"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Tokens: TokenConfig{
			RedisPrefix:     "",
			VerificationTTL: 2 * time.Hour,
			ResetTTL:        2 * time.Hour,
			SignInTTL:       time.Hour,
		},
		Throttle: ThrottleConfig{
			MaxRequests: 2,
			Window:      60 * time.Second,
		},
		Timing: TimingConfig{
			InitialEstimate: 200 * time.Millisecond,
		},
		Session: SessionConfig{
			RedisPrefix: "",
			TTL:         12 * time.Hour,
			Environment: "local",
			AdminRoles:  []string{"developer", "researcher", "admin", "worker"},
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MinPasswordBytes: password.DefaultMinPasswordBytes,
			MaxPasswordBytes: password.DefaultMaxPasswordBytes,
		},
		SignIn: SignInConfig{
			FailureLimitEnabled: true,
			MaxFailures:         5,
			FailureWindow:       15 * time.Minute,
		},
		Links: LinksConfig{
			BaseURL: "http://localhost:8080",
		},
		Subpopulations: SubpopulationConfig{
			CacheTTL:      time.Minute,
			CreateDefault: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Env:         "prod",
			Level:       "info",
			ServiceName: "studyauth",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.AdminRoles = cloneStrings(cfg.Session.AdminRoles)
	if cfg.Tenants != nil {
		out.Tenants = make(map[string]TenantConfig, len(cfg.Tenants))
		for id, t := range cfg.Tenants {
			t.DataGroups = cloneStrings(t.DataGroups)
			out.Tenants[id] = t
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Tokens
	if c.Tokens.VerificationTTL <= 0 {
		return errors.New("Tokens VerificationTTL must be > 0")
	}
	if c.Tokens.ResetTTL <= 0 {
		return errors.New("Tokens ResetTTL must be > 0")
	}
	if c.Tokens.SignInTTL <= 0 {
		return errors.New("Tokens SignInTTL must be > 0")
	}

	// Throttle
	if c.Throttle.MaxRequests <= 0 {
		return errors.New("Throttle MaxRequests must be > 0")
	}
	if c.Throttle.Window < time.Second {
		return errors.New("Throttle Window must be >= 1s")
	}

	// Timing
	if c.Timing.InitialEstimate <= 0 {
		return errors.New("Timing InitialEstimate must be > 0")
	}
	if c.Timing.InitialEstimate > 10*time.Second {
		return errors.New("Timing InitialEstimate must be <= 10s")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	for _, r := range c.Session.AdminRoles {
		if strings.TrimSpace(r) == "" {
			return errors.New("Session AdminRoles must not contain empty roles")
		}
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinPasswordBytes < 1 {
		return errors.New("Password MinPasswordBytes must be >= 1")
	}
	if c.Password.MaxPasswordBytes < c.Password.MinPasswordBytes {
		return errors.New("Password MaxPasswordBytes must be >= MinPasswordBytes")
	}

	// Sign-in
	if c.SignIn.FailureLimitEnabled {
		if c.SignIn.MaxFailures <= 0 {
			return errors.New("SignIn MaxFailures must be > 0 when FailureLimitEnabled is true")
		}
		if c.SignIn.FailureWindow < time.Second {
			return errors.New("SignIn FailureWindow must be >= 1s when FailureLimitEnabled is true")
		}
	}

	// Links
	u, err := url.Parse(c.Links.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("Links BaseURL must be an absolute URL")
	}
	if strings.HasSuffix(c.Links.BaseURL, "/") {
		return errors.New("Links BaseURL must not end with '/'")
	}

	// Subpopulations
	if c.Subpopulations.CacheTTL < 0 {
		return errors.New("Subpopulations CacheTTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Tenants
	for id := range c.Tenants {
		if strings.TrimSpace(id) == "" {
			return errors.New("Tenants must not contain an empty tenant id")
		}
		if strings.ContainsAny(id, ": ") {
			return fmt.Errorf("Tenants id %q must not contain ':' or spaces", id)
		}
	}

	return nil
}

func (c PasswordConfig) argon2() password.Config {
	return password.Config{
		Memory:           c.Memory,
		Time:             c.Time,
		Parallelism:      c.Parallelism,
		SaltLength:       c.SaltLength,
		KeyLength:        c.KeyLength,
		MinPasswordBytes: c.MinPasswordBytes,
		MaxPasswordBytes: c.MaxPasswordBytes,
	}
}
