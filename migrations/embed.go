// Package migrations embeds the audit store's SQL migrations into the binary.
//
// Files follow YYYYMMDD_HHMMSS_description.up.sql and are applied in
// version order by database.DB.Migrate.
package migrations

import "embed"

// FS holds every migration file at its root.
//
//go:embed *.up.sql
var FS embed.FS
