package goStudyAuth

import (
	"context"
	"fmt"
)

// StaticTenants serves TenantSettings from Config.Tenants.
//
// With no tenants configured every tenant id is accepted, named after
// itself, with channel sign-in switched off.
type StaticTenants struct {
	tenants map[string]TenantConfig
}

// NewStaticTenants copies tenants.
func NewStaticTenants(tenants map[string]TenantConfig) *StaticTenants {
	cfg := cloneConfig(Config{Tenants: tenants})
	return &StaticTenants{tenants: cfg.Tenants}
}

// TenantSettings implements TenantSettingsProvider.
func (s *StaticTenants) TenantSettings(_ context.Context, tenantID string) (TenantSettings, error) {
	if tenantID == "" {
		return TenantSettings{}, fmt.Errorf("%w: tenant id required", ErrInvalidRequest)
	}
	if len(s.tenants) == 0 {
		return TenantSettings{ID: tenantID, Name: tenantID}, nil
	}
	t, ok := s.tenants[tenantID]
	if !ok {
		return TenantSettings{}, fmt.Errorf("%w: %s", ErrUnknownTenant, tenantID)
	}
	name := t.Name
	if name == "" {
		name = tenantID
	}
	return TenantSettings{
		ID:                 tenantID,
		Name:               name,
		EmailSignInEnabled: t.EmailSignInEnabled,
		PhoneSignInEnabled: t.PhoneSignInEnabled,
		DataGroups:         cloneStrings(t.DataGroups),
	}, nil
}
