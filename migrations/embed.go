// Package migrations holds the goose SQL migrations, embedded so the service
// and the migrator binary apply the same schema without a migrations dir on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
