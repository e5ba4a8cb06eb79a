package goStudyAuth

import "context"

type clientIPContextKey struct{}
type tenantIDContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. It is copied into
// audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithTenantID attaches a tenant (study) identifier to ctx. Engine methods
// whose request carries no tenant fall back to it.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDContextKey{}, tenantID)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func tenantIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	tenantID, _ := ctx.Value(tenantIDContextKey{}).(string)
	return tenantID
}

// resolveTenant prefers an explicit tenant over the context one.
func resolveTenant(ctx context.Context, tenantID string) string {
	if tenantID != "" {
		return tenantID
	}
	return tenantIDFromContext(ctx)
}

// ClientIPFromContext returns the address attached by WithClientIP.
func ClientIPFromContext(ctx context.Context) string {
	return clientIPFromContext(ctx)
}

// TenantIDFromContext returns the tenant attached by WithTenantID.
func TenantIDFromContext(ctx context.Context) string {
	return tenantIDFromContext(ctx)
}
