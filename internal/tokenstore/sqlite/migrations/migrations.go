package migrations

import "embed"

// Migrations holds the schema of the client state database.
//
//go:embed *.sql
var Migrations embed.FS
