package portal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/roofwatch-core/internal/resource"
)

// Repository is the portal's persistence.
type Repository interface {
	CreateBuilding(ctx context.Context, clientID, name string) (*Record, error)
	Get(ctx context.Context, kind resource.Kind, id string) (*Record, error)
	Rename(ctx context.Context, kind resource.Kind, id, name string) (*Record, error)
	Delete(ctx context.Context, kind resource.Kind, id string) error
}

// SQLiteRepository implements Repository on the portal database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateBuilding adds a building under clientID.
func (r *SQLiteRepository) CreateBuilding(ctx context.Context, clientID, name string) (*Record, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, &ValidationError{Field: "client_id", Message: "client_id is required"}
	}

	now := time.Now().UTC().Truncate(time.Second)
	rec := &Record{
		ID:        "bld-" + uuid.NewString(),
		Kind:      resource.KindBuilding,
		Name:      name,
		ParentID:  clientID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO buildings (id, client_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, clientID, name, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, &ValidationError{Field: "client_id", Message: "client does not exist"}
		}
		return nil, fmt.Errorf("creating building: %w", err)
	}
	return rec, nil
}

// Get loads one row.
func (r *SQLiteRepository) Get(ctx context.Context, kind resource.Kind, id string) (*Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}

	parentCol := "''"
	if _, col, ok := kind.Parent(); ok {
		parentCol = col
	}
	query := fmt.Sprintf(`SELECT id, name, %s, created_at, updated_at FROM %s WHERE id = ?`, //nolint:gosec // identifiers from the closed resource.Kind set
		parentCol, kind.Table())

	var rec Record
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.Name, &rec.ParentID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", kind, err)
	}

	rec.Kind = kind
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &rec, nil
}

// Rename sets the name of one row and returns the updated record.
func (r *SQLiteRepository) Rename(ctx context.Context, kind resource.Kind, id, name string) (*Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET name = ?, updated_at = ? WHERE id = ?`, kind.Table()), //nolint:gosec // identifiers from the closed resource.Kind set
		name, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return nil, fmt.Errorf("renaming %s: %w", kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports rows affected
		return nil, ErrNotFound
	}
	return r.Get(ctx, kind, id)
}

// Delete removes one row. Rows that still have children are a conflict.
func (r *SQLiteRepository) Delete(ctx context.Context, kind resource.Kind, id string) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown resource kind %q", kind)
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, kind.Table()), id) //nolint:gosec // identifiers from the closed resource.Kind set
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s %s has dependent records", ErrConflict, kind, id)
		}
		return fmt.Errorf("deleting %s: %w", kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports rows affected
		return ErrNotFound
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
