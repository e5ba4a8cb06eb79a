package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goStudyAuth "github.com/MrEthical07/goStudyAuth"
)

// SessionHeader carries the session token on authenticated requests.
const SessionHeader = "Study-Session"

// SessionSource resolves session tokens. *goStudyAuth.Engine implements it.
type SessionSource interface {
	GetSession(ctx context.Context, sessionToken string) (*goStudyAuth.Session, error)
}

type sessionContextKey struct{}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(ctx context.Context) (*goStudyAuth.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*goStudyAuth.Session)
	return sess, ok && sess != nil
}

// RequireSession loads the session named by SessionHeader, or by an
// Authorization bearer token, and stores it on the request context.
// Unknown tokens get 401; cache failures get 503.
func RequireSession(source SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if source == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := sessionToken(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := source.GetSession(r.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, goStudyAuth.ErrCacheUnavailable):
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			default:
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			ctx = goStudyAuth.WithTenantID(ctx, sess.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) (string, bool) {
	if v := strings.TrimSpace(r.Header.Get(SessionHeader)); v != "" {
		return v, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
