package auth

import (
	"context"
	"fmt"
	"strings"
)

// ExtractBearer returns the credential from an "Authorization: Bearer <token>"
// header value. The scheme is case-insensitive.
func ExtractBearer(header string) (string, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: missing bearer credential", ErrUnauthenticated)
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", fmt.Errorf("%w: malformed bearer credential", ErrUnauthenticated)
	}
	return token, nil
}

// TokenAuthenticator resolves an Authorization header to a principal.
// Nothing is cached between calls.
type TokenAuthenticator struct {
	provider IdentityProvider
}

// NewTokenAuthenticator creates an authenticator backed by provider.
func NewTokenAuthenticator(provider IdentityProvider) *TokenAuthenticator {
	return &TokenAuthenticator{provider: provider}
}

// Authenticate verifies the bearer credential in header. Every failure,
// including provider errors, is reported as ErrUnauthenticated.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, header string) (*Principal, error) {
	token, err := ExtractBearer(header)
	if err != nil {
		return nil, err
	}

	p, err := a.provider.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("%w: provider returned empty identity", ErrUnauthenticated)
	}
	return p, nil
}
