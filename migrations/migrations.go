// Package migrations embeds the SQL schema so the server and the CLI can apply
// it without shipping loose files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
