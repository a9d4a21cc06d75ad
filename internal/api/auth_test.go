package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/nerrad567/roofwatch-core/internal/audit"
	"github.com/nerrad567/roofwatch-core/internal/auth"
	"github.com/nerrad567/roofwatch-core/internal/resource"
)

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		status  int
		message string
	}{
		{"valid credentials", loginRequest{Email: "alice@example.com", Password: testPassword}, http.StatusOK, ""},
		{"wrong password", loginRequest{Email: "alice@example.com", Password: "hunter2"}, http.StatusUnauthorized, "invalid credentials"},
		{"missing password", loginRequest{Email: "alice@example.com"}, http.StatusBadRequest, "email and password are required"},
		{"blank email", loginRequest{Email: "   ", Password: testPassword}, http.StatusBadRequest, "email and password are required"},
		{"malformed json", `{"email"`, http.StatusBadRequest, "invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/api/v1/auth/login", tt.body, withCSRF())
			expectStatus(t, rec, tt.status)

			if tt.message != "" {
				if got := errorOf(t, rec); got != tt.message {
					t.Errorf("error = %q, want %q", got, tt.message)
				}
				return
			}

			var session auth.Session
			dataOf(t, rec, &session)
			if session.AccessToken != "access-alice" || session.User.ID != "alice" {
				t.Errorf("session = %+v", session)
			}
			if got := rec.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Cache-Control = %q", got)
			}
		})
	}
}

func TestLogin_SessionWithoutUserID(t *testing.T) {
	f := newFixture(t)

	// The fake provider derives the user id from the local part.
	rec := f.do(t, http.MethodPost, "/api/v1/auth/login",
		loginRequest{Email: "@example.com", Password: testPassword}, withCSRF())
	expectStatus(t, rec, http.StatusInternalServerError)
	if got := errorOf(t, rec); got != "internal server error" {
		t.Errorf("error = %q", got)
	}
	if n := len(f.srv.mutationCh); n != 0 {
		t.Errorf("queued %d audit entries, want none", n)
	}
}

func TestLogin_RequiresCSRF(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", loginRequest{Email: "alice@example.com", Password: testPassword})
	expectStatus(t, rec, http.StatusForbidden)
	if n := f.signIn.calls.Load(); n != 0 {
		t.Errorf("SignIn called %d times without a csrf token", n)
	}
}

func TestLogin_RateLimitedBeforeCredentialCheck(t *testing.T) {
	f := newFixture(t)
	bad := loginRequest{Email: "alice@example.com", Password: "guess"}

	for i := range 5 {
		rec := f.do(t, http.MethodPost, "/api/v1/auth/login", bad, withCSRF())
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i+1, rec.Code)
		}
	}

	// The correct password does not help once the origin is throttled.
	good := loginRequest{Email: "alice@example.com", Password: testPassword}
	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", good, withCSRF())
	expectStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	if n := f.signIn.calls.Load(); n != 5 {
		t.Errorf("SignIn called %d times, want 5", n)
	}
}

func TestLogin_NotRegisteredWithoutSignIn(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.SignIn = nil })
	rec := f.do(t, http.MethodPost, "/api/v1/auth/login",
		loginRequest{Email: "alice@example.com", Password: testPassword}, withCSRF())
	expectStatus(t, rec, http.StatusNotFound)
}

func TestMutations_AuditedAndPublished(t *testing.T) {
	f := newFixture(t)
	runDrain(t, f.srv)

	rec := f.do(t, http.MethodPatch, "/api/v1/portal/basins/bas-1",
		map[string]string{"name": "North 2"},
		asUser(t, "alice"), withCSRF(), withHeader("X-Request-ID", "req-rename"))
	expectStatus(t, rec, http.StatusOK)

	rec = f.do(t, http.MethodPost, "/api/v1/auth/login",
		loginRequest{Email: "bob@example.com", Password: testPassword}, withCSRF())
	expectStatus(t, rec, http.StatusOK)

	// Rejected mutations leave no trace.
	rec = f.do(t, http.MethodPatch, "/api/v1/portal/basins/bas-2",
		map[string]string{"name": "Mine"}, asUser(t, "alice"), withCSRF())
	expectStatus(t, rec, http.StatusForbidden)

	repo := audit.NewSQLiteRepository(f.db.DB)
	var entries []audit.Entry
	waitFor(t, "audit entries", func() bool {
		res, err := repo.List(context.Background(), audit.Filter{})
		if err != nil {
			return false
		}
		entries = res.Entries
		return res.Total == 2
	})

	var update *audit.Entry
	for i := range entries {
		if entries[i].Action == audit.ActionUpdate {
			update = &entries[i]
		}
	}
	if update == nil {
		t.Fatalf("no update entry in %+v", entries)
	}
	if update.EntityType != string(resource.KindBasin) || update.EntityID != "bas-1" ||
		update.UserID != "alice" || update.RequestID != "req-rename" {
		t.Errorf("update entry = %+v", update)
	}

	events := f.events.published()
	if len(events) != 1 {
		t.Fatalf("published %d events, want 1 (login is not an event)", len(events))
	}
	e := events[0]
	if e.Kind != resource.KindBasin || e.Action != audit.ActionUpdate || e.EntityID != "bas-1" ||
		e.TenantID != "t1" || e.ActorID != "alice" || e.RequestID != "req-rename" {
		t.Errorf("event = %+v", e)
	}
}

func TestListAudit(t *testing.T) {
	f := newFixture(t)
	runDrain(t, f.srv)

	for _, name := range []string{"A", "B", "C"} {
		rec := f.do(t, http.MethodPost, "/api/v1/admin/buildings",
			map[string]string{"client_id": "t2", "name": "Building " + name},
			asUser(t, "admin"), withCSRF())
		expectStatus(t, rec, http.StatusCreated)
	}

	var page audit.ListResult
	waitFor(t, "audit entries", func() bool {
		rec := f.do(t, http.MethodGet, "/api/v1/admin/audit?action=create&limit=2", nil, asUser(t, "admin"))
		if rec.Code != http.StatusOK {
			return false
		}
		dataOf(t, rec, &page)
		return page.Total == 3
	})
	if len(page.Entries) != 2 || page.Limit != 2 {
		t.Errorf("page = %+v, want 2 of 3", page)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/admin/audit?limit=-1", nil, asUser(t, "admin"))
	expectStatus(t, rec, http.StatusBadRequest)
	if got := errorOf(t, rec); got != "limit must be a non-negative integer" {
		t.Errorf("error = %q", got)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/admin/audit", nil, asUser(t, "alice"))
	expectStatus(t, rec, http.StatusForbidden)
}
