// Package migrations embeds the goose SQL migrations so the API binary and
// topfivectl can migrate without shipping the files separately.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
