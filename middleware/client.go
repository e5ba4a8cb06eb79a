package middleware

import (
	"net"
	"net/http"
	"strings"

	goStudyAuth "github.com/MrEthical07/goStudyAuth"
)

// TenantHeader names the study a request is addressed to.
const TenantHeader = "Study-Id"

// ClientContext attaches the caller IP and the TenantHeader value to the
// request context. X-Forwarded-For is only honoured when trustProxy is set.
func ClientContext(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := goStudyAuth.WithClientIP(r.Context(), clientIP(r, trustProxy))
			if tenant := strings.TrimSpace(r.Header.Get(TenantHeader)); tenant != "" {
				ctx = goStudyAuth.WithTenantID(ctx, tenant)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
