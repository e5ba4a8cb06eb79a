package middleware

import (
	"net/http"
)

// RequireConsent rejects sessions that lack a required consent with 412,
// the status clients treat as "send the participant to consent". Holders
// of an exempt role pass through. It must run after RequireSession.
func RequireConsent(exemptRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !sess.FullyConsented() && !sess.HasAnyRole(exemptRoles...) {
				http.Error(w, "consent required", http.StatusPreconditionFailed)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects sessions holding none of roles with 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !sess.HasAnyRole(roles...) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
