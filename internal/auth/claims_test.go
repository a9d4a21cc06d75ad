package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTProvider_RoundTrip(t *testing.T) {
	p := NewJWTProvider(testSecret, "roofwatch")

	token, err := IssueToken(Principal{ID: "usr-1", Email: "a@example.com"}, testSecret, "roofwatch", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	got, err := p.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.ID != "usr-1" || got.Email != "a@example.com" {
		t.Errorf("Verify() = %+v", got)
	}
}

func TestJWTProvider_Rejects(t *testing.T) {
	p := NewJWTProvider(testSecret, "roofwatch")
	principal := Principal{ID: "usr-1"}

	expired := mustIssue(t, principal, testSecret, "roofwatch", -time.Minute)
	wrongKey := mustIssue(t, principal, strings.Repeat("x", 32), "roofwatch", time.Minute)
	wrongIss := mustIssue(t, principal, testSecret, "someone-else", time.Minute)
	noSubject := mustIssue(t, Principal{}, testSecret, "roofwatch", time.Minute)

	// alg=none must never verify.
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ //nolint:errcheck // test fixture
		Subject:   "usr-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	// No expiry claim.
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ //nolint:errcheck // test fixture
		Subject: "usr-1",
		Issuer:  "roofwatch",
	}).SignedString([]byte(testSecret))

	tests := map[string]string{
		"expired":         expired,
		"wrong key":       wrongKey,
		"wrong issuer":    wrongIss,
		"missing subject": noSubject,
		"alg none":        none,
		"no expiry":       noExp,
		"garbage":         "not.a.jwt",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := p.Verify(context.Background(), token); err == nil {
				t.Error("Verify() error = nil, want rejection")
			}
		})
	}
}

func TestJWTProvider_EmptyIssuerSkipsCheck(t *testing.T) {
	p := NewJWTProvider(testSecret, "")

	token, err := IssueToken(Principal{ID: "usr-1"}, testSecret, "anyone", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := p.Verify(context.Background(), token); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func mustIssue(t *testing.T, p Principal, secret, issuer string, ttl time.Duration) string {
	t.Helper()
	token, err := IssueToken(p, secret, issuer, ttl)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return token
}
