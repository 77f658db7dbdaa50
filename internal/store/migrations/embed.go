// Package migrations embeds the goose SQL migrations for the relay's
// Postgres schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
