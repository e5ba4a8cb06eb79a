//go:build integration
// +build integration

package test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	goStudyAuth "github.com/MrEthical07/goStudyAuth"
	"github.com/MrEthical07/goStudyAuth/notify"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisMode describes which Redis backend a suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns the backends to test. miniredis is always available;
// a real standalone Redis is added when REDIS_ADDR is set.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	return modes
}

func integrationConfig() goStudyAuth.Config {
	cfg := goStudyAuth.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Timing.InitialEstimate = time.Millisecond
	cfg.Links.BaseURL = "https://ws.example.org"
	cfg.Metrics.Enabled = true
	cfg.Tenants = map[string]goStudyAuth.TenantConfig{
		"study-a": {Name: "Study A", EmailSignInEnabled: true, PhoneSignInEnabled: true, DataGroups: []string{"sdk"}},
	}
	return cfg
}

type fixture struct {
	engine *goStudyAuth.Engine
	dir    *memDirectory
	outbox *outbox
}

func newFixture(t *testing.T, rdb redis.UniversalClient, cfg goStudyAuth.Config, accounts ...goStudyAuth.Account) *fixture {
	t.Helper()
	f := &fixture{dir: newMemDirectory(accounts...), outbox: &outbox{}}
	engine, err := goStudyAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(zap.NewNop()).
		WithAccountDirectory(f.dir).
		WithDispatcher(f.outbox).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	f.engine = engine
	return f
}

func participant() goStudyAuth.Account {
	return goStudyAuth.Account{
		ID:            "u1",
		TenantID:      "study-a",
		HealthCode:    "hc-1",
		Email:         "p@example.com",
		EmailVerified: true,
		Phone:         "+12065550100",
		PhoneVerified: true,
	}
}

// memDirectory is an in-memory AccountDirectory.
type memDirectory struct {
	mu       sync.Mutex
	accounts map[string]goStudyAuth.Account
	nextID   int
}

func newMemDirectory(accounts ...goStudyAuth.Account) *memDirectory {
	d := &memDirectory{accounts: make(map[string]goStudyAuth.Account)}
	for _, a := range accounts {
		d.accounts[a.ID] = a
	}
	return d
}

func (d *memDirectory) FindByIdentifier(_ context.Context, tenantID string, id goStudyAuth.Identifier) (goStudyAuth.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.accounts {
		if a.TenantID != tenantID {
			continue
		}
		if (id.Email != "" && strings.EqualFold(a.Email, id.Email)) || (id.Phone != "" && a.Phone == id.Phone) {
			return a, nil
		}
	}
	return goStudyAuth.Account{}, goStudyAuth.ErrAccountNotFound
}

func (d *memDirectory) GetByID(_ context.Context, tenantID, userID string) (goStudyAuth.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[userID]
	if !ok || a.TenantID != tenantID {
		return goStudyAuth.Account{}, goStudyAuth.ErrAccountNotFound
	}
	return a, nil
}

func (d *memDirectory) Mutate(_ context.Context, tenantID, userID string, fn func(*goStudyAuth.Account) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[userID]
	if !ok || a.TenantID != tenantID {
		return goStudyAuth.ErrAccountNotFound
	}
	if err := fn(&a); err != nil {
		return err
	}
	d.accounts[userID] = a
	return nil
}

func (d *memDirectory) SetLanguages(ctx context.Context, tenantID, userID string, languages []string) error {
	return d.Mutate(ctx, tenantID, userID, func(a *goStudyAuth.Account) error {
		a.Languages = languages
		return nil
	})
}

func (d *memDirectory) Create(_ context.Context, tenantID string, account goStudyAuth.Account) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.accounts {
		if a.TenantID == tenantID && account.Email != "" && strings.EqualFold(a.Email, account.Email) {
			return "", goStudyAuth.ErrAccountExists
		}
	}
	d.nextID++
	account.ID = fmt.Sprintf("user-%d", d.nextID)
	account.TenantID = tenantID
	d.accounts[account.ID] = account
	return account.ID, nil
}

func (d *memDirectory) SignOut(context.Context, string, string) error {
	return nil
}

func (d *memDirectory) get(id string) goStudyAuth.Account {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accounts[id]
}

// outbox records every message the engine sends.
type outbox struct {
	mu     sync.Mutex
	emails []notify.EmailMessage
	sms    []notify.SMSMessage
}

func (o *outbox) SendEmail(_ context.Context, msg notify.EmailMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emails = append(o.emails, msg)
	return nil
}

func (o *outbox) SendSMS(_ context.Context, msg notify.SMSMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sms = append(o.sms, msg)
	return nil
}

func (o *outbox) lastEmail(t *testing.T) notify.EmailMessage {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.emails) == 0 {
		t.Fatalf("expected an email")
	}
	return o.emails[len(o.emails)-1]
}

func (o *outbox) lastSMS(t *testing.T) notify.SMSMessage {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sms) == 0 {
		t.Fatalf("expected a text message")
	}
	return o.sms[len(o.sms)-1]
}
