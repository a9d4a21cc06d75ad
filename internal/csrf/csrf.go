// Package csrf implements double-submit cookie protection.
//
// The bootstrap request receives a random token twice: as an HttpOnly
// cookie and in the response body. The client keeps the body copy and
// echoes it in a header on every state-changing request. A cross-site
// request can carry the cookie but cannot read it into the header, so the
// two copies only match for same-origin callers. No server-side session
// state is kept.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nerrad567/roofwatch-core/internal/infrastructure/config"
)

// tokenBytes is the entropy of an issued token (256 bits).
const tokenBytes = 32

// Sentinel errors returned by Verify.
var (
	ErrMissingToken  = errors.New("csrf token missing")
	ErrTokenMismatch = errors.New("csrf token mismatch")
)

// State is where a request stands in the token lifecycle.
type State int

const (
	// NoToken: no cookie, the client never bootstrapped.
	NoToken State = iota
	// Issued: cookie present, header absent.
	Issued
	// Verified: cookie and header present and identical.
	Verified
	// Mismatched: cookie and header present but different.
	Mismatched
)

func (s State) String() string {
	switch s {
	case NoToken:
		return "no_token"
	case Issued:
		return "issued"
	case Verified:
		return "verified"
	case Mismatched:
		return "mismatched"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Guard issues and verifies tokens.
type Guard struct {
	cookieName string
	headerName string
	secure     bool
	maxAge     int
	random     io.Reader
}

// New creates a Guard from configuration.
func New(cfg config.CSRFConfig) *Guard {
	return &Guard{
		cookieName: cfg.CookieName,
		headerName: cfg.HeaderName,
		secure:     cfg.SecureCookie,
		maxAge:     cfg.MaxAge,
		random:     rand.Reader,
	}
}

// HeaderName is the request header the client echoes the token in.
func (g *Guard) HeaderName() string { return g.headerName }

// Issue generates a fresh token, sets it as a cookie on w and returns it so
// the caller can also place it in the response body.
func (g *Guard) Issue(w http.ResponseWriter) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(g.random, b); err != nil {
		return "", fmt.Errorf("generating csrf token: %w", err)
	}
	token := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   g.maxAge,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

// Check classifies the token pair carried by r, whatever its method.
func (g *Guard) Check(r *http.Request) State {
	cookie, err := r.Cookie(g.cookieName)
	if err != nil || cookie.Value == "" {
		return NoToken
	}
	header := r.Header.Get(g.headerName)
	if header == "" {
		return Issued
	}
	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
		return Mismatched
	}
	return Verified
}

// Verify returns nil for safe methods and for verified state-changing
// requests.
func (g *Guard) Verify(r *http.Request) error {
	if IsSafeMethod(r.Method) {
		return nil
	}
	switch g.Check(r) {
	case Verified:
		return nil
	case Mismatched:
		return ErrTokenMismatch
	default:
		return ErrMissingToken
	}
}

// Middleware rejects unverified state-changing requests through onFail
// before the next handler runs.
func (g *Guard) Middleware(onFail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := g.Verify(r); err != nil {
				onFail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsSafeMethod reports whether method is read-only per RFC 9110.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
