package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goStudyAuth/internal/limiters"
	"github.com/MrEthical07/goStudyAuth/internal/rate"
	"github.com/MrEthical07/goStudyAuth/internal/stores"
	"github.com/MrEthical07/goStudyAuth/notify"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var (
	errNotFound     = errors.New("test: account not found")
	errExists       = errors.New("test: account exists")
	errTokenInvalid = errors.New("test: token invalid")
	errAuthFailed   = errors.New("test: authentication failed")
	errDisabled     = errors.New("test: account disabled")
	errSignInOff    = errors.New("test: channel sign in disabled")
	errPolicy       = errors.New("test: password policy")
	errInvalid      = errors.New("test: invalid request")
)

func testErrors() Errors {
	return Errors{
		InvalidRequest:        errInvalid,
		TokenInvalid:          errTokenInvalid,
		AuthenticationFailed:  errAuthFailed,
		AccountDisabled:       errDisabled,
		AccountNotFound:       errNotFound,
		AccountExists:         errExists,
		ChannelSignInDisabled: errSignInOff,
		PasswordPolicy:        errPolicy,
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// fakeDirectory is an in-memory account directory.
type fakeDirectory struct {
	mu       sync.Mutex
	accounts map[string]Account
	signOuts []string
	nextID   int
}

func newFakeDirectory(accounts ...Account) *fakeDirectory {
	d := &fakeDirectory{accounts: make(map[string]Account)}
	for _, a := range accounts {
		d.accounts[a.ID] = a
	}
	return d
}

func (d *fakeDirectory) get(id string) Account {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accounts[id]
}

func (d *fakeDirectory) mutate(id string, fn func(*Account)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[id]
	if !ok {
		return errNotFound
	}
	fn(&a)
	d.accounts[id] = a
	return nil
}

func (d *fakeDirectory) Directory() Directory {
	return Directory{
		FindAccount: func(_ context.Context, tenantID string, id Identifier) (Account, error) {
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
			return Account{}, errNotFound
		},
		GetAccount: func(_ context.Context, tenantID, userID string) (Account, error) {
			d.mu.Lock()
			defer d.mu.Unlock()
			a, ok := d.accounts[userID]
			if !ok || a.TenantID != tenantID {
				return Account{}, errNotFound
			}
			return a, nil
		},
		MarkChannelVerified: func(_ context.Context, _, userID string, ch Channel) error {
			return d.mutate(userID, func(a *Account) {
				if ch == ChannelPhone {
					a.PhoneVerified = true
				} else {
					a.EmailVerified = true
				}
			})
		},
		UpdatePasswordHash: func(_ context.Context, _, userID, hash string) error {
			return d.mutate(userID, func(a *Account) { a.PasswordHash = hash })
		},
		SetReauthTokenHash: func(_ context.Context, _, userID, hash string) error {
			return d.mutate(userID, func(a *Account) { a.ReauthTokenHash = hash })
		},
		SetLanguages: func(_ context.Context, _, userID string, languages []string) error {
			return d.mutate(userID, func(a *Account) { a.Languages = languages })
		},
		CreateAccount: func(_ context.Context, tenantID string, account Account) (string, error) {
			d.mu.Lock()
			defer d.mu.Unlock()
			for _, a := range d.accounts {
				if a.TenantID == tenantID && ((account.Email != "" && a.Email == account.Email) || (account.Phone != "" && a.Phone == account.Phone)) {
					return "", errExists
				}
			}
			d.nextID++
			account.ID = fmt.Sprintf("new-%d", d.nextID)
			d.accounts[account.ID] = account
			return account.ID, nil
		},
		SignOut: func(_ context.Context, _, userID string) error {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.signOuts = append(d.signOuts, userID)
			return nil
		},
	}
}

// recordingDispatcher keeps every message it is asked to send.
type recordingDispatcher struct {
	mu     sync.Mutex
	emails []notify.EmailMessage
	sms    []notify.SMSMessage
	err    error
}

func (r *recordingDispatcher) SendEmail(_ context.Context, msg notify.EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.emails = append(r.emails, msg)
	return nil
}

func (r *recordingDispatcher) SendSMS(_ context.Context, msg notify.SMSMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sms = append(r.sms, msg)
	return nil
}

func (r *recordingDispatcher) lastEmail(t *testing.T) notify.EmailMessage {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.emails) == 0 {
		t.Fatalf("expected an email to be sent")
	}
	return r.emails[len(r.emails)-1]
}

func (r *recordingDispatcher) lastSMS(t *testing.T) notify.SMSMessage {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sms) == 0 {
		t.Fatalf("expected an sms to be sent")
	}
	return r.sms[len(r.sms)-1]
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.emails) + len(r.sms)
}

type testEnv struct {
	mr         *miniredis.Miniredis
	rdb        *redis.Client
	tokens     *stores.TokenStore
	dir        *fakeDirectory
	dispatcher *recordingDispatcher
	tenant     Tenant
}

func newTestEnv(t *testing.T, accounts ...Account) *testEnv {
	t.Helper()
	mr, rdb := newTestRedis(t)
	return &testEnv{
		mr:         mr,
		rdb:        rdb,
		tokens:     stores.NewTokenStore(rdb, ""),
		dir:        newFakeDirectory(accounts...),
		dispatcher: &recordingDispatcher{},
		tenant: Tenant{
			ID:                 "t1",
			Name:               "Study One",
			EmailSignInEnabled: true,
			PhoneSignInEnabled: true,
		},
	}
}

func (e *testEnv) delivery() Delivery {
	throttle := limiters.NewChannelThrottle(rate.NewFixedWindow(e.rdb))
	return Delivery{
		Tokens:     e.tokens,
		Dispatcher: e.dispatcher,
		GetTenant: func(context.Context, string) (Tenant, error) {
			return e.tenant, nil
		},
		IsThrottled: func(ctx context.Context, action, subject string) (bool, error) {
			return throttle.IsThrottled(ctx, action, subject, 2, time.Minute)
		},
		BaseURL: "https://ws.example.org",
	}
}

func verifiedAccount() Account {
	return Account{
		ID:            "u1",
		TenantID:      "t1",
		HealthCode:    "hc-1",
		Email:         "a@example.com",
		EmailVerified: true,
		Phone:         "+12065550100",
		PhoneVerified: true,
	}
}
