package pg

import (
	"database/sql"
	"fmt"

	"github.com/candlelife/candle/internal/pg/migrations"
	"github.com/candlelife/candle/internal/schema"
	"github.com/golang-migrate/migrate/v4/database/postgres"
)

// migrationsTable keeps candle's version row apart from other tenants of a
// shared database.
const migrationsTable = "candle_schema_migrations"

func migrateDB(db *sql.DB) (*schema.Result, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	return schema.Up(migrations.FS, "postgres", driver)
}
