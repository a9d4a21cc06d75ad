package auth

import (
	"context"
	"fmt"
)

// Authorizer enforces role contracts on top of authentication and profile
// resolution.
type Authorizer struct {
	authn    *TokenAuthenticator
	profiles *ProfileResolver
}

// NewAuthorizer composes an authenticator and a profile resolver.
func NewAuthorizer(authn *TokenAuthenticator, profiles *ProfileResolver) *Authorizer {
	return &Authorizer{authn: authn, profiles: profiles}
}

// RequireAuth admits any active identity.
func (a *Authorizer) RequireAuth(ctx context.Context, header string) (*Identity, error) {
	return a.authorize(ctx, header, func(Role) bool { return true })
}

// RequireAdmin admits active admins only.
func (a *Authorizer) RequireAdmin(ctx context.Context, header string) (*Identity, error) {
	return a.authorize(ctx, header, func(r Role) bool { return r == RoleAdmin })
}

// RequireClient admits active clients only. The returned identity carries
// its effective tenant set.
func (a *Authorizer) RequireClient(ctx context.Context, header string) (*Identity, error) {
	return a.authorize(ctx, header, func(r Role) bool { return r == RoleClient })
}

func (a *Authorizer) authorize(ctx context.Context, header string, allowed func(Role) bool) (*Identity, error) {
	principal, err := a.authn.Authenticate(ctx, header)
	if err != nil {
		return nil, err
	}

	id, err := a.profiles.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	if !allowed(id.Role) {
		return nil, fmt.Errorf("%w: role %s", ErrRoleForbidden, id.Role)
	}

	// Clients always carry their scope so ownership checks never refetch it.
	if id.Role == RoleClient {
		if err := a.profiles.AttachScope(ctx, id); err != nil {
			return nil, err
		}
	}
	return id, nil
}
