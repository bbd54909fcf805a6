package migration

import "embed"

// Scripts holds the versioned SQL shipped with the binary: goose files under
// scripts/goose and golang-migrate up/down pairs under scripts/migrate.
//
//go:embed scripts/goose/*.sql scripts/migrate/*.sql
var Scripts embed.FS

const (
	gooseDir   = "scripts/goose"
	migrateDir = "scripts/migrate"
)
