// Package migrations embeds the SQL schema so binaries and tests share one source.
package migrations

import "embed"

// FS holds the numbered *.sql migration files
//
//go:embed *.sql
var FS embed.FS
