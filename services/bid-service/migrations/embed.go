// Package migrations embeds the bid database schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
