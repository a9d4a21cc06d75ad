package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/roofwatch-core/internal/resource"
)

// SQLiteStore implements ProfileStore and ChainStore on the portal database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetProfile loads the profile row for userID. The stored role is parsed
// here so an unknown value never leaves the store as a string.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var (
		p        Profile
		role     string
		active   int
		clientID sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT email, role, is_active, client_id FROM user_profiles WHERE id = ?`, userID,
	).Scan(&p.Email, &role, &active, &clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is a valid answer
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}

	p.Role, err = ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", userID, err)
	}
	p.IsActive = active != 0
	p.PrimaryTenantID = clientID.String
	return &p, nil
}

// GetAccessGrants returns the explicit tenant and building grants for userID.
func (s *SQLiteStore) GetAccessGrants(ctx context.Context, userID string) (*AccessGrants, error) {
	tenants, err := s.queryIDs(ctx,
		`SELECT client_id FROM user_client_access WHERE user_id = ? ORDER BY client_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying client grants: %w", err)
	}
	buildings, err := s.queryIDs(ctx,
		`SELECT building_id FROM user_building_access WHERE user_id = ? ORDER BY building_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying building grants: %w", err)
	}
	return &AccessGrants{TenantIDs: tenants, BuildingIDs: buildings}, nil
}

// ClientExists reports whether the tenant row exists.
func (s *SQLiteStore) ClientExists(ctx context.Context, clientID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM clients WHERE id = ?`, clientID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying client: %w", err)
	}
	return true, nil
}

// BuildingTenant returns the owning tenant of a building.
func (s *SQLiteStore) BuildingTenant(ctx context.Context, buildingID string) (string, bool, error) {
	return s.lookup(ctx, `SELECT client_id FROM buildings WHERE id = ?`, buildingID)
}

// ParentBuilding returns the building a resource hangs off. Intervention
// files resolve through their intervention in a single joined lookup.
func (s *SQLiteStore) ParentBuilding(ctx context.Context, kind resource.Kind, id string) (string, bool, error) {
	if kind == resource.KindInterventionFile {
		return s.lookup(ctx, `
			SELECT i.building_id
			FROM intervention_files f
			JOIN interventions i ON i.id = f.intervention_id
			WHERE f.id = ?`, id)
	}

	parent, col, ok := kind.Parent()
	if !ok || parent != resource.KindBuilding {
		return "", false, fmt.Errorf("resource kind %q has no parent building", kind)
	}
	// Table and column names come from the closed resource.Kind set.
	return s.lookup(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, col, kind.Table()), id) //nolint:gosec // identifiers are not user input
}

func (s *SQLiteStore) lookup(ctx context.Context, query, id string) (string, bool, error) {
	var out string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying ownership chain: %w", err)
	}
	return out, true, nil
}

func (s *SQLiteStore) queryIDs(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
