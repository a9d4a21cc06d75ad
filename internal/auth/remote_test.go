package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/roofwatch-core/internal/infrastructure/config"
)

// fakeGoTrue serves /user and /token like a GoTrue instance with a single
// account (good@example.com / hunter22, token "tok-good").
func fakeGoTrue(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Header.Get("Authorization") {
		case "Bearer tok-good":
			json.NewEncoder(w).Encode(map[string]string{"id": "usr-remote", "email": "good@example.com"}) //nolint:errcheck // test server
		case "Bearer tok-empty":
			json.NewEncoder(w).Encode(map[string]string{}) //nolint:errcheck // test server
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "password" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch {
		case body["email"] == "good@example.com" && body["password"] == "hunter22":
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test server
				"access_token": "tok-good",
				"token_type":   "bearer",
				"expires_in":   3600,
				"user":         map[string]string{"id": "usr-remote", "email": "good@example.com"},
			})
		case body["email"] == "anon@example.com":
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test server
				"access_token": "tok-anon",
				"user":         map[string]string{"email": "anon@example.com"},
			})
		case body["email"] == "broken@example.com":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRemote(t *testing.T) *RemoteProvider {
	t.Helper()
	srv := fakeGoTrue(t)
	return NewRemoteProvider(config.RemoteIdentityConfig{URL: srv.URL + "/", APIKey: "anon-key", Timeout: 2})
}

func TestRemoteProvider_Verify(t *testing.T) {
	p := newTestRemote(t)

	got, err := p.Verify(context.Background(), "tok-good")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.ID != "usr-remote" || got.Email != "good@example.com" {
		t.Errorf("Verify() = %+v", got)
	}

	for _, token := range []string{"tok-bad", "tok-empty"} {
		if _, err := p.Verify(context.Background(), token); err == nil {
			t.Errorf("Verify(%q) error = nil, want rejection", token)
		}
	}
}

func TestRemoteProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewRemoteProvider(config.RemoteIdentityConfig{URL: url, Timeout: 1})
	if _, err := p.Verify(context.Background(), "tok-good"); err == nil {
		t.Error("Verify() against closed server error = nil")
	}
}

func TestRemoteProvider_SignIn(t *testing.T) {
	p := newTestRemote(t)

	sess, err := p.SignIn(context.Background(), "good@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if sess.AccessToken != "tok-good" || sess.User.ID != "usr-remote" || sess.ExpiresIn != 3600 {
		t.Errorf("SignIn() = %+v", sess)
	}

	_, err = p.SignIn(context.Background(), "good@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password error = %v, want ErrInvalidCredentials", err)
	}

	_, err = p.SignIn(context.Background(), "anon@example.com", "x")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("session without user id error = %v, want non-auth error", err)
	}

	_, err = p.SignIn(context.Background(), "broken@example.com", "x")
	if err == nil || errors.Is(err, ErrUnauthenticated) {
		t.Errorf("provider outage error = %v, want non-auth error", err)
	}
}
