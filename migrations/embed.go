// Package migrations carries the SQL schema as an embedded filesystem so
// the migrate binary needs no files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
