package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
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
	return mr, NewStore(rdb, "")
}

func testSession(token, userID string) *Session {
	return &Session{
		SessionToken:         token,
		InternalSessionToken: "internal-" + token,
		ReauthToken:          "reauth",
		TenantID:             "t1",
		Authenticated:        true,
		Participant:          Participant{ID: userID, Email: "a@example.com"},
		ConsentStatuses: map[string]ConsentStatus{
			"sub": {SubpopulationID: "sub", Required: true, Consented: true},
		},
	}
}

func TestStoreDualIndex(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSession("s1", "u1"), time.Hour); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if got, _ := mr.Get("u1:session:user"); got != "s1" {
		t.Fatalf("expected user index to point at s1, got %q", got)
	}
	if ttl := mr.TTL("s1:session"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	byToken, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	byUser, err := store.GetByUserID(ctx, "u1")
	if err != nil {
		t.Fatalf("get by user failed: %v", err)
	}
	if byToken.InternalSessionToken != "internal-s1" || byUser.SessionToken != "s1" {
		t.Fatalf("unexpected sessions: %+v %+v", byToken, byUser)
	}
	if byToken.ReauthToken != "" {
		t.Fatalf("reauth token must not be persisted")
	}
	if !byToken.FullyConsented() {
		t.Fatalf("expected consent statuses to round trip")
	}
}

func TestStoreDeleteKeepsNewerIndex(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	old := testSession("s1", "u1")
	if err := store.Save(ctx, old, time.Hour); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(ctx, testSession("s2", "u1"), time.Hour); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := store.Delete(ctx, old); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got, _ := mr.Get("u1:session:user"); got != "s2" {
		t.Fatalf("expected newer index to survive, got %q", got)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected s1 removed, got %v", err)
	}
}

func TestStoreDeleteByUserID(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSession("s1", "u1"), time.Hour); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.DeleteByUserID(ctx, "u1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session removed, got %v", err)
	}
	if err := store.DeleteByUserID(ctx, "u1"); err != nil {
		t.Fatalf("expected repeat delete to be a no-op, got %v", err)
	}
}

func TestStoreCorruptAndInvalid(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Session{SessionToken: "x"}, time.Hour); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected invalid session, got %v", err)
	}

	_ = mr.Set("bad:session", "{not json")
	if _, err := store.Get(ctx, "bad"); !errors.Is(err, ErrSessionCorrupt) {
		t.Fatalf("expected corrupt session, got %v", err)
	}
}

func TestStoreRedisDown(t *testing.T) {
	mr, store := newTestStore(t)
	mr.Close()

	if _, err := store.Get(context.Background(), "s1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected redis unavailable, got %v", err)
	}
}

func TestFullyConsented(t *testing.T) {
	cases := []struct {
		name     string
		statuses map[string]ConsentStatus
		want     bool
	}{
		{"empty", nil, false},
		{"optional unconsented", map[string]ConsentStatus{"a": {Required: false}}, true},
		{"required unconsented", map[string]ConsentStatus{"a": {Required: true}, "b": {Required: true, Consented: true}}, false},
		{"all required consented", map[string]ConsentStatus{"a": {Required: true, Consented: true}}, true},
	}
	for _, tc := range cases {
		if got := FullyConsented(tc.statuses); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
