package auth

import (
	"errors"
	"fmt"
	"slices"
)

// Role is the closed set of portal roles.
type Role string

const (
	// RoleAdmin is staff of the roofing organisation. Unrestricted scope.
	RoleAdmin Role = "admin"

	// RoleClient is a user of an external tenant, limited to the tenants
	// and buildings in their effective scope.
	RoleClient Role = "client"
)

// ParseRole converts a stored role string into a Role. Anything outside the
// closed set is an ErrUnknownRole.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleClient:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Principal is what an identity provider vouches for.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile is the stored account record for a principal.
type Profile struct {
	Email           string
	Role            Role
	IsActive        bool
	PrimaryTenantID string // empty when the profile has no primary tenant
}

// AccessGrants are the explicit tenant and building grants for a user,
// supplementing the primary tenant.
type AccessGrants struct {
	TenantIDs   []string
	BuildingIDs []string
}

// Identity is the resolved caller for the lifetime of one request.
type Identity struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	Role            Role     `json:"role"`
	IsActive        bool     `json:"is_active"`
	PrimaryTenantID string   `json:"primary_tenant_id,omitempty"`
	TenantIDs       []string `json:"tenant_ids,omitempty"`
	BuildingIDs     []string `json:"building_ids,omitempty"`
}

// IsAdmin reports whether the identity has the admin role.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == RoleAdmin
}

// Scope returns the tenant scope for ownership checks. Admins get nil,
// meaning unrestricted.
func (id *Identity) Scope() *TenantScope {
	if id.IsAdmin() {
		return nil
	}
	return &TenantScope{
		TenantIDs:   id.TenantIDs,
		BuildingIDs: id.BuildingIDs,
	}
}

// TenantScope is the set of tenants and buildings a client may act on.
// A nil TenantScope means unrestricted access (admin).
type TenantScope struct {
	TenantIDs   []string
	BuildingIDs []string
}

// HasTenant reports whether tenantID is in the scope.
func (s *TenantScope) HasTenant(tenantID string) bool {
	if s == nil {
		return true
	}
	return tenantID != "" && slices.Contains(s.TenantIDs, tenantID)
}

// HasBuilding reports whether buildingID was granted directly.
func (s *TenantScope) HasBuilding(buildingID string) bool {
	if s == nil {
		return true
	}
	return buildingID != "" && slices.Contains(s.BuildingIDs, buildingID)
}

// effectiveTenants is {primary} ∪ granted, deduplicated, primary first.
func effectiveTenants(primary string, granted []string) []string {
	out := make([]string, 0, len(granted)+1)
	if primary != "" {
		out = append(out, primary)
	}
	for _, id := range granted {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Sentinel errors for admission decisions.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrAccountSuspended = errors.New("account suspended")
	ErrRoleForbidden    = errors.New("insufficient permissions")
	ErrNotOwner         = errors.New("resource not owned by caller")
	ErrNotFound         = errors.New("resource not found")
	ErrUnknownRole      = errors.New("unknown stored role")

	// ErrInvalidCredentials is returned by password sign-in. It is a
	// specialisation of ErrUnauthenticated.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
)
