package auth

import (
	"errors"
	"slices"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{"client", RoleClient, false},
		{"Admin", "", true},
		{"superuser", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownRole) {
					t.Errorf("ParseRole(%q) error = %v, want ErrUnknownRole", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseRole(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestEffectiveTenants(t *testing.T) {
	tests := []struct {
		name    string
		primary string
		granted []string
		want    []string
	}{
		{"primary only", "t1", nil, []string{"t1"}},
		{"grants only", "", []string{"t2", "t3"}, []string{"t2", "t3"}},
		{"union", "t1", []string{"t2"}, []string{"t1", "t2"}},
		{"dedupes primary in grants", "t1", []string{"t1", "t2", "t2"}, []string{"t1", "t2"}},
		{"nothing", "", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := effectiveTenants(tt.primary, tt.granted); !slices.Equal(got, tt.want) {
				t.Errorf("effectiveTenants() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTenantScope(t *testing.T) {
	var unrestricted *TenantScope
	if !unrestricted.HasTenant("anything") || !unrestricted.HasBuilding("anything") {
		t.Error("nil scope should be unrestricted")
	}

	s := &TenantScope{TenantIDs: []string{"t1"}, BuildingIDs: []string{"bld-9"}}
	if !s.HasTenant("t1") || s.HasTenant("t2") {
		t.Error("HasTenant mismatch")
	}
	if !s.HasBuilding("bld-9") || s.HasBuilding("bld-1") {
		t.Error("HasBuilding mismatch")
	}
	if s.HasTenant("") || s.HasBuilding("") {
		t.Error("empty ids must never match")
	}
}

func TestIdentity_Scope(t *testing.T) {
	admin := &Identity{ID: "a", Role: RoleAdmin}
	if admin.Scope() != nil {
		t.Error("admin scope should be nil")
	}

	client := &Identity{ID: "c", Role: RoleClient, TenantIDs: []string{"t1"}}
	scope := client.Scope()
	if scope == nil || !scope.HasTenant("t1") || scope.HasTenant("t2") {
		t.Errorf("client scope = %+v", scope)
	}

	empty := &Identity{ID: "c2", Role: RoleClient}
	if empty.Scope().HasTenant("t1") {
		t.Error("client with no tenants must not match")
	}
}

func TestInvalidCredentialsIsUnauthenticated(t *testing.T) {
	if !errors.Is(ErrInvalidCredentials, ErrUnauthenticated) {
		t.Error("ErrInvalidCredentials should wrap ErrUnauthenticated")
	}
}
