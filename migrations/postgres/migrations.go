// Package migrations holds the gateway's SQL schema migrations. They are
// applied at startup through the bun migrator whenever DATABASE_URL is set.
package migrations

import (
	"embed"

	"github.com/uptrace/bun/migrate"
)

//go:embed *.sql
var sqlMigrations embed.FS

// Migrations is the bun registry for the gateway schema. River's queue
// tables are managed separately by rivermigrate.
var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.Discover(sqlMigrations); err != nil {
		panic(err)
	}
}
