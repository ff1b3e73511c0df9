// Package migrations embeds the store schema, one goose directory per SQL
// dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS
