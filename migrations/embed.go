// Package migrations embeds the SQL schema migrations applied by goose.
package migrations

import "embed"

// FS holds every migration file; goose reads it with directory ".".
//
//go:embed *.sql
var FS embed.FS
