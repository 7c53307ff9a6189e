// Package migrations embeds the versioned postgres schema migrations.
package migrations

import "embed"

// FS holds the *.up.sql / *.down.sql files, read by golang-migrate's iofs source.
//
//go:embed *.sql
var FS embed.FS
