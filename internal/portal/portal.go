// Package portal holds the minimal resource mutations that sit behind the
// admission pipeline: create a building, read, rename and delete rows of
// any resource kind.
package portal

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nerrad567/roofwatch-core/internal/resource"
)

// MaxNameLength bounds resource names in runes.
const MaxNameLength = 200

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ValidationError reports a rejected input field. Message is safe to show
// to callers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Record is the common shape of every portal row.
type Record struct {
	ID        string        `json:"id"`
	Kind      resource.Kind `json:"kind"`
	Name      string        `json:"name"`
	ParentID  string        `json:"parent_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ValidateName trims and checks a resource name.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("name must be at most %d characters", MaxNameLength),
		}
	}
	return name, nil
}
