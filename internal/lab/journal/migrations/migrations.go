// Package migrations embeds the simulation journal schema.
package migrations

import "embed"

// FS holds the journal migrations.
//
//go:embed *.sql
var FS embed.FS
