package goStudyAuth

import (
	"context"
	"errors"
	"fmt"

	internalaudit "github.com/MrEthical07/goStudyAuth/internal/audit"
	"github.com/MrEthical07/goStudyAuth/internal/limiters"
	"github.com/MrEthical07/goStudyAuth/internal/logger"
	"github.com/MrEthical07/goStudyAuth/internal/rate"
	"github.com/MrEthical07/goStudyAuth/internal/stores"
	"github.com/MrEthical07/goStudyAuth/notify"
	"github.com/MrEthical07/goStudyAuth/password"
	"github.com/MrEthical07/goStudyAuth/session"
	"github.com/MrEthical07/goStudyAuth/subpop"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder is single-use and not safe for
// concurrent use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *zap.Logger

	directory  AccountDirectory
	tenants    TenantSettingsProvider
	dispatcher notify.Dispatcher

	registry subpop.Registry
	source   subpop.Source

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the shared cache holding tokens, throttle counters and
// sessions. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger overrides the logger built from Config.Logging.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithAccountDirectory sets the account store. Required.
func (b *Builder) WithAccountDirectory(d AccountDirectory) *Builder {
	b.directory = d
	return b
}

// WithDispatcher sets the outbound email and SMS dispatcher. Required.
func (b *Builder) WithDispatcher(d notify.Dispatcher) *Builder {
	b.dispatcher = d
	return b
}

// WithTenantSettings overrides the provider built from Config.Tenants.
func (b *Builder) WithTenantSettings(p TenantSettingsProvider) *Builder {
	b.tenants = p
	return b
}

// WithSubpopulations sets a ready registry. It takes precedence over
// WithSubpopulationSource and Config.Subpopulations.StaticFile.
func (b *Builder) WithSubpopulations(r subpop.Registry) *Builder {
	b.registry = r
	return b
}

// WithSubpopulationSource sets the backend the engine caches subpopulations
// from, for example subpop/dynamo.
func (b *Builder) WithSubpopulationSource(s subpop.Source) *Builder {
	b.source = s
	return b
}

// WithAuditSink sets where audit events go once Config.Audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the session assembly latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, errors.New("account directory required")
	}
	if b.dispatcher == nil {
		return nil, errors.New("notification dispatcher required")
	}

	log := b.logger
	if log == nil {
		log = logger.New(cfg.Logging)
	}

	registry, err := b.subpopulations(cfg)
	if err != nil {
		return nil, err
	}

	ph, err := password.NewArgon2(cfg.Password.argon2())
	if err != nil {
		return nil, err
	}

	tenants := b.tenants
	if tenants == nil {
		tenants = NewStaticTenants(cfg.Tenants)
	}

	window := rate.NewFixedWindow(b.redis)

	engine := &Engine{
		config:     cloneConfig(cfg),
		logger:     log,
		directory:  b.directory,
		tenants:    tenants,
		dispatcher: b.dispatcher,
		subpops:    registry,

		tokens:   stores.NewTokenStore(b.redis, cfg.Tokens.RedisPrefix),
		throttle: limiters.NewChannelThrottle(window),
		signInLimiter: limiters.NewSignInLimiter(window, limiters.SignInConfig{
			Enabled:     cfg.SignIn.FailureLimitEnabled,
			MaxFailures: cfg.SignIn.MaxFailures,
			Window:      cfg.SignIn.FailureWindow,
		}),
		sessionStore: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		passwordHash: ph,
		equalizers:   newEqualizers(cfg.Timing.InitialEstimate),

		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}

	for _, w := range cfg.Lint().BySeverity(LintWarn) {
		log.Warn("configuration finding",
			zap.String("code", w.Code),
			zap.String("severity", w.Severity.String()),
			zap.String("detail", w.Message))
	}

	b.built = true

	return engine, nil
}

func (b *Builder) subpopulations(cfg Config) (subpop.Registry, error) {
	if b.registry != nil {
		return b.registry, nil
	}

	source := b.source
	if source == nil {
		static := subpop.NewStatic(nil)
		if cfg.Subpopulations.StaticFile != "" {
			loaded, err := subpop.LoadStaticFile(cfg.Subpopulations.StaticFile)
			if err != nil {
				return nil, fmt.Errorf("load subpopulations: %w", err)
			}
			static = loaded
		}
		if err := validateStatic(static, cfg.Tenants); err != nil {
			return nil, err
		}
		source = static
	}

	return subpop.NewCached(source, subpop.CacheConfig{
		TTL:           cfg.Subpopulations.CacheTTL,
		CreateDefault: cfg.Subpopulations.CreateDefault,
	}), nil
}

// validateStatic checks file-backed criteria against the data groups each
// configured tenant declares. Nothing is checked when no tenants are
// configured.
func validateStatic(static *subpop.Static, tenants map[string]TenantConfig) error {
	if len(tenants) == 0 {
		return nil
	}
	var errs []error
	for _, tenantID := range static.Tenants() {
		t, ok := tenants[tenantID]
		if !ok {
			errs = append(errs, fmt.Errorf("subpopulations reference unknown tenant %q", tenantID))
			continue
		}
		subs, err := static.Load(context.Background(), tenantID)
		if err != nil {
			return err
		}
		if err := subpop.Validate(subs, t.DataGroups); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
