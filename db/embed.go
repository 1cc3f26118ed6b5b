// Package db holds the SQL migrations for the order mirror and the audit log.
package db

import "embed"

// Migrations contains the migration files, embedded for builds with the
// embed_migrations tag.
//
//go:embed migrations/*.sql
var Migrations embed.FS
