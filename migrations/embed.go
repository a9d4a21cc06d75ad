// Package migrations embeds the Roofwatch schema into the binary so the
// service can migrate without SQL files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/roofwatch-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
