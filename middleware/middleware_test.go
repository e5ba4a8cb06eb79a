package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	goStudyAuth "github.com/MrEthical07/goStudyAuth"
	"github.com/MrEthical07/goStudyAuth/session"
)

type fakeSessions struct {
	sessions map[string]*goStudyAuth.Session
	err      error
}

func (f fakeSessions) GetSession(_ context.Context, token string) (*goStudyAuth.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	sess, ok := f.sessions[token]
	if !ok {
		return nil, goStudyAuth.ErrSessionNotFound
	}
	return sess, nil
}

func consentedSession(consented bool, roles ...string) *goStudyAuth.Session {
	return &goStudyAuth.Session{
		SessionToken: "tok",
		TenantID:     "study-a",
		Participant:  session.Participant{ID: "u1", Roles: roles},
		ConsentStatuses: map[string]goStudyAuth.ConsentStatus{
			"study-a": {SubpopulationID: "study-a", Required: true, Consented: consented},
		},
	}
}

func noContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func serve(h http.Handler, req *http.Request) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireSession(t *testing.T) {
	source := fakeSessions{sessions: map[string]*goStudyAuth.Session{"tok": consentedSession(true)}}

	var seen *goStudyAuth.Session
	var tenant string
	h := RequireSession(source)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFromContext(r.Context())
		tenant = goStudyAuth.TenantIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"session header", SessionHeader, "tok", http.StatusNoContent},
		{"bearer", "Authorization", "Bearer tok", http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"empty bearer", "Authorization", "Bearer ", http.StatusUnauthorized},
		{"unknown", SessionHeader, "other", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen, tenant = nil, ""
			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			if got := serve(h, req); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
			if tc.want == http.StatusNoContent && (seen == nil || tenant != "study-a") {
				t.Fatalf("expected session and tenant on context, got %v %q", seen, tenant)
			}
		})
	}
}

func TestRequireSessionCacheDown(t *testing.T) {
	source := fakeSessions{err: fmt.Errorf("%w: dial tcp", goStudyAuth.ErrCacheUnavailable)}
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set(SessionHeader, "tok")

	if got := serve(RequireSession(source)(http.HandlerFunc(noContent)), req); got != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", got)
	}
}

func TestRequireSessionNilSource(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set(SessionHeader, "tok")
	if got := serve(RequireSession(nil)(http.HandlerFunc(noContent)), req); got != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", got)
	}
}

func TestRequireConsent(t *testing.T) {
	tests := []struct {
		name string
		sess *goStudyAuth.Session
		want int
	}{
		{"consented", consentedSession(true), http.StatusNoContent},
		{"not consented", consentedSession(false), http.StatusPreconditionFailed},
		{"exempt role", consentedSession(false, "researcher"), http.StatusNoContent},
		{"no statuses", &goStudyAuth.Session{TenantID: "study-a"}, http.StatusPreconditionFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			source := fakeSessions{sessions: map[string]*goStudyAuth.Session{"tok": tc.sess}}
			h := RequireSession(source)(RequireConsent("researcher", "admin")(http.HandlerFunc(noContent)))
			req := httptest.NewRequest(http.MethodGet, "/v1/surveys", nil)
			req.Header.Set(SessionHeader, "tok")
			if got := serve(h, req); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestRequireConsentWithoutSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/surveys", nil)
	if got := serve(RequireConsent()(http.HandlerFunc(noContent)), req); got != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", got)
	}
}

func TestRequireRole(t *testing.T) {
	source := fakeSessions{sessions: map[string]*goStudyAuth.Session{
		"dev":  consentedSession(true, "developer"),
		"user": consentedSession(true),
	}}
	h := RequireSession(source)(RequireRole("developer")(http.HandlerFunc(noContent)))

	for token, want := range map[string]int{"dev": http.StatusNoContent, "user": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodPost, "/v1/subpopulations", nil)
		req.Header.Set(SessionHeader, token)
		if got := serve(h, req); got != want {
			t.Fatalf("%s: expected %d, got %d", token, want, got)
		}
	}
}

func TestClientContext(t *testing.T) {
	var ip, tenant string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = goStudyAuth.ClientIPFromContext(r.Context())
		tenant = goStudyAuth.TenantIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signIn", nil)
	req.RemoteAddr = "198.51.100.7:5123"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set(TenantHeader, "study-a")

	serve(ClientContext(false)(capture), req)
	if ip != "198.51.100.7" || tenant != "study-a" {
		t.Fatalf("untrusted proxy: got ip=%q tenant=%q", ip, tenant)
	}

	serve(ClientContext(true)(capture), req)
	if ip != "203.0.113.9" {
		t.Fatalf("trusted proxy: got ip=%q", ip)
	}
}
