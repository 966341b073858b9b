// Package migrations embeds the SQL schema applied by cmd/migrate.
package migrations

import "embed"

// FS holds NNN_name.up.sql files and 000_drop_all.sql.
//
//go:embed *.sql
var FS embed.FS
