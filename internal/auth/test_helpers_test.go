package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nerrad567/roofwatch-core/internal/infrastructure/database"
	_ "github.com/nerrad567/roofwatch-core/migrations" // registers the schema
)

const testSecret = "test-secret-key-at-least-32-chars!"

// testDB opens a migrated temp database closed at test cleanup.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "auth.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db.DB
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// seedPortal creates two tenants with one building each and a chain of
// children under bld-t1:
//
//	t1 -> bld-t1 -> bas-1, war-1, rep-1, int-1 -> file-1
//	t2 -> bld-t2 -> bas-2
func seedPortal(t *testing.T, db *sql.DB) {
	t.Helper()

	mustExec(t, db, `INSERT INTO clients (id, name) VALUES ('t1', 'Tenant One'), ('t2', 'Tenant Two')`)
	mustExec(t, db, `INSERT INTO buildings (id, client_id, name) VALUES ('bld-t1', 't1', 'Warehouse'), ('bld-t2', 't2', 'Depot')`)
	mustExec(t, db, `INSERT INTO basins (id, building_id, name) VALUES ('bas-1', 'bld-t1', 'North'), ('bas-2', 'bld-t2', 'South')`)
	mustExec(t, db, `INSERT INTO warranties (id, building_id, name) VALUES ('war-1', 'bld-t1', 'Membrane')`)
	mustExec(t, db, `INSERT INTO reports (id, building_id, name) VALUES ('rep-1', 'bld-t1', 'Annual')`)
	mustExec(t, db, `INSERT INTO interventions (id, building_id, name) VALUES ('int-1', 'bld-t1', 'Leak repair')`)
	mustExec(t, db, `INSERT INTO intervention_files (id, intervention_id, name) VALUES ('file-1', 'int-1', 'photo.jpg')`)
}

// addProfile inserts a profile; clientID may be empty.
func addProfile(t *testing.T, db *sql.DB, id, role string, active bool, clientID string) {
	t.Helper()

	var client any
	if clientID != "" {
		client = clientID
	}
	isActive := 0
	if active {
		isActive = 1
	}
	mustExec(t, db,
		`INSERT INTO user_profiles (id, email, role, is_active, client_id) VALUES (?, ?, ?, ?, ?)`,
		id, id+"@example.com", role, isActive, client)
}

// stubProvider verifies any token listed in principals.
type stubProvider struct {
	principals map[string]*Principal
	calls      int
}

func (s *stubProvider) Verify(_ context.Context, token string) (*Principal, error) {
	s.calls++
	p, ok := s.principals[token]
	if !ok {
		return nil, ErrUnauthenticated
	}
	return p, nil
}

// countingStore wraps a ProfileStore and counts calls.
type countingStore struct {
	ProfileStore
	calls int
}

func (c *countingStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	c.calls++
	return c.ProfileStore.GetProfile(ctx, id)
}

func (c *countingStore) GetAccessGrants(ctx context.Context, id string) (*AccessGrants, error) {
	c.calls++
	return c.ProfileStore.GetAccessGrants(ctx, id)
}
