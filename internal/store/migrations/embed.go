// Package migrations embeds the schema of the local backend database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
