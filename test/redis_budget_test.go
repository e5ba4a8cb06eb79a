//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goStudyAuth/internal/limiters"
	"github.com/MrEthical07/goStudyAuth/internal/rate"
	"github.com/MrEthical07/goStudyAuth/internal/stores"
	"github.com/MrEthical07/goStudyAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis Hook that counts Redis round-trips.
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64  { return h.commands.Load() }
func (h *cmdCounter) Pipelines() int64 { return h.pipelines.Load() }

// newCountedClient returns a miniredis-backed client with a cmdCounter
// installed after a warm-up PING.
func newCountedClient(t *testing.T) (*redis.Client, *cmdCounter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	counter := &cmdCounter{}
	rdb.AddHook(counter)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter.Reset()
	return rdb, counter
}

// Scripts are loaded by the first EVALSHA miss, so every budget below is
// measured after one warm-up call on an unrelated key.

func TestTokenTakeRedisBudget(t *testing.T) {
	rdb, counter := newCountedClient(t)
	ctx := context.Background()
	tokens := stores.NewTokenStore(rdb, "")

	_, _ = tokens.Take(ctx, "warmup")
	if err := tokens.Put(ctx, "tok:study-a", "p@example.com", time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	counter.Reset()
	if _, err := tokens.Take(ctx, "tok:study-a"); err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if got := counter.Commands(); got != 1 {
		t.Fatalf("Take: expected 1 command, got %d", got)
	}
}

func TestTokenGetOrPutRedisBudget(t *testing.T) {
	rdb, counter := newCountedClient(t)
	ctx := context.Background()
	tokens := stores.NewTokenStore(rdb, "")

	_, _, _ = tokens.GetOrPut(ctx, "warmup", "x", time.Minute)

	counter.Reset()
	first, created, err := tokens.GetOrPut(ctx, "p@example.com:study-a:signInRequest", "abc", time.Hour)
	if err != nil || !created {
		t.Fatalf("GetOrPut: created=%v err=%v", created, err)
	}
	second, created, err := tokens.GetOrPut(ctx, "p@example.com:study-a:signInRequest", "def", time.Hour)
	if err != nil || created || second != first {
		t.Fatalf("GetOrPut reuse: value=%q created=%v err=%v", second, created, err)
	}
	if got := counter.Commands(); got != 2 {
		t.Fatalf("GetOrPut: expected 1 command per call, got %d for 2 calls", got)
	}
}

func TestThrottleHitRedisBudget(t *testing.T) {
	rdb, counter := newCountedClient(t)
	ctx := context.Background()
	throttle := limiters.NewChannelThrottle(rate.NewFixedWindow(rdb))

	_, _ = throttle.IsThrottled(ctx, limiters.ActionVerifyEmail, "warmup", 2, time.Minute)

	counter.Reset()
	if _, err := throttle.IsThrottled(ctx, limiters.ActionVerifyEmail, "u1", 2, time.Minute); err != nil {
		t.Fatalf("IsThrottled failed: %v", err)
	}
	if got := counter.Commands(); got != 1 {
		t.Fatalf("IsThrottled: expected 1 command, got %d", got)
	}
}

func TestSessionSaveRedisBudget(t *testing.T) {
	rdb, counter := newCountedClient(t)
	ctx := context.Background()
	store := session.NewStore(rdb, "")

	sess := &session.Session{
		SessionToken:         "sess-1",
		InternalSessionToken: "internal-1",
		TenantID:             "study-a",
		Participant:          session.Participant{ID: "u1"},
	}

	counter.Reset()
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got := counter.Pipelines(); got != 1 {
		t.Fatalf("Save: expected 1 round-trip, got %d", got)
	}

	counter.Reset()
	if _, err := store.Get(ctx, "sess-1"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := counter.Commands(); got != 1 {
		t.Fatalf("Get: expected 1 command, got %d", got)
	}
}
