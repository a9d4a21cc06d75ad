package auth

import "context"

// IdentityProvider verifies a bearer credential. Implementations return an
// error for anything other than a positively verified principal.
type IdentityProvider interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// Session is the result of a successful password sign-in.
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	User         Principal `json:"user"`
}

// PasswordSignIn is implemented by providers that can exchange an email and
// password for a session. Bad credentials yield ErrInvalidCredentials.
type PasswordSignIn interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
}
