package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nerrad567/roofwatch-core/internal/infrastructure/config"
)

// RemoteProvider talks to a GoTrue-compatible identity service over HTTP.
type RemoteProvider struct {
	client *resty.Client
}

type remoteUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type remoteSession struct {
	AccessToken  string     `json:"access_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int        `json:"expires_in"`
	RefreshToken string     `json:"refresh_token"`
	User         remoteUser `json:"user"`
}

// NewRemoteProvider builds a provider rooted at cfg.URL.
func NewRemoteProvider(cfg config.RemoteIdentityConfig) *RemoteProvider {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if cfg.APIKey != "" {
		c.SetHeader("apikey", cfg.APIKey)
	}

	return &RemoteProvider{client: c}
}

// Verify asks the provider who the token belongs to.
func (p *RemoteProvider) Verify(ctx context.Context, token string) (*Principal, error) {
	var user remoteUser
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user).
		Get("/user")
	if err != nil {
		return nil, fmt.Errorf("calling identity provider: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode())
	}
	if user.ID == "" {
		return nil, errors.New("identity provider returned no user")
	}

	return &Principal{ID: user.ID, Email: user.Email}, nil
}

// SignIn exchanges an email and password for a session.
func (p *RemoteProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var sess remoteSession
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&sess).
		Post("/token")
	if err != nil {
		return nil, fmt.Errorf("calling identity provider: %w", err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusBadRequest || code == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	case resp.IsError():
		return nil, fmt.Errorf("identity provider returned status %d", code)
	}
	if sess.AccessToken == "" {
		return nil, errors.New("identity provider returned no access token")
	}
	if sess.User.ID == "" {
		return nil, errors.New("identity provider returned no user id")
	}

	return &Session{
		AccessToken:  sess.AccessToken,
		TokenType:    sess.TokenType,
		ExpiresIn:    sess.ExpiresIn,
		RefreshToken: sess.RefreshToken,
		User:         Principal{ID: sess.User.ID, Email: sess.User.Email},
	}, nil
}
