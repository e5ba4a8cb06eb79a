package goStudyAuth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override read by LoadConfig.
const EnvPrefix = "STUDYAUTH_"

// LoadConfig reads a YAML file over DefaultConfig, loads envFiles (".env"
// when none are given, missing files are skipped) and applies STUDYAUTH_*
// environment overrides. The result is validated.
//
// An empty path skips the YAML step.
func LoadConfig(path string, envFiles ...string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv.Load never overwrites variables already set.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(c *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookupEnv(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	dur("VERIFICATION_TTL", &c.Tokens.VerificationTTL)
	dur("RESET_TTL", &c.Tokens.ResetTTL)
	dur("SIGNIN_TTL", &c.Tokens.SignInTTL)
	str("TOKEN_REDIS_PREFIX", &c.Tokens.RedisPrefix)

	integer("THROTTLE_MAX_REQUESTS", &c.Throttle.MaxRequests)
	dur("THROTTLE_WINDOW", &c.Throttle.Window)
	dur("EQUALIZER_INITIAL", &c.Timing.InitialEstimate)

	dur("SESSION_TTL", &c.Session.TTL)
	str("SESSION_REDIS_PREFIX", &c.Session.RedisPrefix)
	str("ENVIRONMENT", &c.Session.Environment)
	if v, ok := lookupEnv("ADMIN_ROLES"); ok {
		c.Session.AdminRoles = splitCSV(v)
	}

	boolean("SIGNIN_FAILURE_LIMIT", &c.SignIn.FailureLimitEnabled)
	integer("SIGNIN_MAX_FAILURES", &c.SignIn.MaxFailures)
	dur("SIGNIN_FAILURE_WINDOW", &c.SignIn.FailureWindow)

	str("BASE_URL", &c.Links.BaseURL)

	dur("SUBPOPULATION_CACHE_TTL", &c.Subpopulations.CacheTTL)
	str("SUBPOPULATIONS_FILE", &c.Subpopulations.StaticFile)

	boolean("AUDIT_ENABLED", &c.Audit.Enabled)
	boolean("METRICS_ENABLED", &c.Metrics.Enabled)
	boolean("LATENCY_HISTOGRAMS", &c.Metrics.EnableLatencyHistograms)

	str("LOG_ENV", &c.Logging.Env)
	str("LOG_LEVEL", &c.Logging.Level)

	return errors.Join(errs...)
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
