package migrations

import (
	_ "embed"

	"github.com/goran-ethernal/ethindex/internal/db"
)

//go:embed 001_schema_sqlite.sql
var mig001SQLite string

//go:embed 001_schema_postgres.sql
var mig001Postgres string

// For returns the schema migrations for the given dialect.
func For(dialect string) []db.Migration {
	if dialect == db.DialectPostgres {
		return []db.Migration{{ID: "001_schema.sql", SQL: mig001Postgres}}
	}

	return []db.Migration{{ID: "001_schema.sql", SQL: mig001SQLite}}
}
