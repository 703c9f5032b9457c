// Package migrations embeds the auction database schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
