// Package migrations embeds the SQLite schema migrations.
package migrations

import "embed"

// FS holds NNN_name.up.sql files, applied in lexical order.
//
//go:embed *.up.sql
var FS embed.FS
