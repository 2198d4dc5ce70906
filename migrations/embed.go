// Package migrations embeds the schema migration files so the compiled
// binary can bring up a fresh database without any files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
