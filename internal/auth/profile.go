package auth

import (
	"context"
	"fmt"
)

// ProfileStore is the read-only view of stored accounts the pipeline needs.
type ProfileStore interface {
	// GetProfile returns nil, nil when no profile exists.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	GetAccessGrants(ctx context.Context, userID string) (*AccessGrants, error)
}

// ProfileResolver turns a verified principal into an Identity.
type ProfileResolver struct {
	store ProfileStore
}

// NewProfileResolver creates a resolver over store.
func NewProfileResolver(store ProfileStore) *ProfileResolver {
	return &ProfileResolver{store: store}
}

// Resolve loads the principal's profile. A missing profile is
// ErrUnauthenticated so account existence is not revealed; an inactive one
// is ErrAccountSuspended.
func (r *ProfileResolver) Resolve(ctx context.Context, p *Principal) (*Identity, error) {
	profile, err := r.store.GetProfile(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: no profile", ErrUnauthenticated)
	}
	if !profile.IsActive {
		return nil, ErrAccountSuspended
	}

	email := profile.Email
	if email == "" {
		email = p.Email
	}

	return &Identity{
		ID:              p.ID,
		Email:           email,
		Role:            profile.Role,
		IsActive:        profile.IsActive,
		PrimaryTenantID: profile.PrimaryTenantID,
	}, nil
}

// AttachScope fills the identity's effective tenant set from its primary
// tenant and stored grants. Nothing from the request is consulted.
func (r *ProfileResolver) AttachScope(ctx context.Context, id *Identity) error {
	grants, err := r.store.GetAccessGrants(ctx, id.ID)
	if err != nil {
		return fmt.Errorf("loading access grants: %w", err)
	}
	if grants == nil {
		grants = &AccessGrants{}
	}

	id.TenantIDs = effectiveTenants(id.PrimaryTenantID, grants.TenantIDs)
	id.BuildingIDs = append([]string(nil), grants.BuildingIDs...)
	return nil
}
