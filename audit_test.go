package goStudyAuth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func buildAuditTestEngine(t *testing.T, cfg Config, sink AuditSink, accounts ...Account) (*Engine, *memDirectory) {
	t.Helper()

	_, rdb := newTestRedis(t)
	dir := newMemDirectory(accounts...)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(zap.NewNop()).
		WithAccountDirectory(dir).
		WithDispatcher(&outbox{}).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, dir
}

func auditConfig(bufferSize int, dropIfFull bool) Config {
	cfg := testConfig()
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: bufferSize, DropIfFull: dropIfFull}
	return cfg
}

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for an audit event")
		return AuditEvent{}
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	sink := &countingSink{}
	engine, _ := buildAuditTestEngine(t, testConfig(), sink)

	_, _ = engine.AuthenticateWithPassword(context.Background(), CriteriaContext{}, PasswordSignIn{
		TenantID: "t1", Email: "nobody@example.com", Password: "whatever-123",
	})
	engine.Close()

	if got := sink.count.Load(); got != 0 {
		t.Fatalf("expected no events while disabled, got %d", got)
	}
	if engine.AuditDropped() != 0 {
		t.Fatalf("expected no drops while disabled")
	}
}

func TestAuditFailedPasswordSignIn(t *testing.T) {
	sink := NewChannelSink(16)
	engine, _ := buildAuditTestEngine(t, auditConfig(16, false), sink)

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	_, err := engine.AuthenticateWithPassword(ctx, CriteriaContext{}, PasswordSignIn{
		TenantID: "t1", Email: "nobody@example.com", Password: "whatever-123",
	})
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}

	ev := nextEvent(t, sink)
	if ev.EventType != auditEventPasswordSignIn || ev.Success {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Error != string(auditErrAuthFailed) || ev.IP != "203.0.113.9" || ev.TenantID != "t1" {
		t.Fatalf("unexpected event fields: %+v", ev)
	}
	if ev.ID == "" || ev.Timestamp.IsZero() {
		t.Fatalf("expected id and timestamp to be set: %+v", ev)
	}
}

func TestAuditVerificationLifecycle(t *testing.T) {
	a := testAccount()
	a.EmailVerified = false
	sink := NewChannelSink(16)
	engine, _ := buildAuditTestEngine(t, auditConfig(16, false), sink, a)
	ctx := WithTenantID(context.Background(), "t1")

	if err := engine.RequestChannelVerification(ctx, "", "u1", ChannelEmail); err != nil {
		t.Fatalf("RequestChannelVerification failed: %v", err)
	}
	ev := nextEvent(t, sink)
	if ev.EventType != auditEventVerificationRequest || !ev.Success || ev.UserID != "u1" || ev.Channel != string(ChannelEmail) {
		t.Fatalf("unexpected request event: %+v", ev)
	}

	if _, err := engine.CompleteChannelVerification(ctx, ChannelEmail, "bogus-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	ev = nextEvent(t, sink)
	if ev.EventType != auditEventVerificationComplete || ev.Success || ev.Error != string(auditErrInvalidToken) {
		t.Fatalf("unexpected complete event: %+v", ev)
	}
}

func TestAuditJSONWriterSink(t *testing.T) {
	var out syncBuffer
	engine, _ := buildAuditTestEngine(t, auditConfig(8, false), NewJSONWriterSink(&out))

	_, _ = engine.AuthenticateWithPassword(context.Background(), CriteriaContext{}, PasswordSignIn{
		TenantID: "t1", Email: "nobody@example.com", Password: "whatever-123",
	})
	engine.Close()

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatalf("expected a JSON line")
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.Split(line, "\n")[0]), &decoded); err != nil {
		t.Fatalf("expected valid JSON, got %q: %v", line, err)
	}
	if decoded["event_type"] != auditEventPasswordSignIn {
		t.Fatalf("expected the password sign in event, got %v", decoded)
	}
}

func TestAuditDropIfFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	engine, _ := buildAuditTestEngine(t, auditConfig(1, true), sink)

	for i := 0; i < 20; i++ {
		engine.emitAudit(context.Background(), auditEventSignOut, true, fmt.Sprintf("u%d", i), "t1", "", nil, nil)
	}
	if engine.AuditDropped() == 0 {
		t.Fatalf("expected drops with a blocked sink and a one event buffer")
	}
	close(sink.gate)
}

func TestAuditMetadataBuiltLazily(t *testing.T) {
	var built atomic.Bool
	engine := &Engine{}
	engine.emitAudit(context.Background(), auditEventSignUp, true, "u1", "t1", "", nil, func() map[string]string {
		built.Store(true)
		return nil
	})
	if built.Load() {
		t.Fatalf("metadata should not be built without a dispatcher")
	}
}

func TestAuditErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrTokenInvalid, auditErrInvalidToken},
		{fmt.Errorf("wrapped: %w", ErrAuthenticationFailed), auditErrAuthFailed},
		{ErrAccountDisabled, auditErrAccountDisabled},
		{ErrAccountNotFound, auditErrAccountNotFound},
		{ErrAccountExists, auditErrDuplicate},
		{ErrChannelSignInDisabled, auditErrSignInDisabled},
		{fmt.Errorf("%w: too short", ErrPasswordPolicy), auditErrPasswordPolicy},
		{ErrUnknownTenant, auditErrInvalidRequest},
		{fmt.Errorf("%w: redis down", ErrCacheUnavailable), auditErrUnavailable},
		{context.DeadlineExceeded, auditErrContextEnded},
		{errors.New("boom"), auditErrInternal},
	}
	for _, tc := range tests {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
