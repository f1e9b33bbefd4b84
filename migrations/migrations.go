// Package migrations carries flyway compatible SQL scripts of the postgres schema.
package migrations

import "embed"

//go:embed V*.sql
var FS embed.FS
