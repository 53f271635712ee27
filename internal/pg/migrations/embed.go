// Package migrations embeds the Postgres schema: tables, the procedures the
// daemon calls and the trigger that feeds the typing_status channel.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
