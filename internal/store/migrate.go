package store

import (
	"fmt"

	"github.com/candlelife/candle/internal/schema"
	"github.com/candlelife/candle/internal/store/migrations"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
)

// Migrate brings the transactions and typing_status schema up to date.
func (db *DB) Migrate() (*schema.Result, error) {
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	return schema.Up(migrations.FS, "sqlite3", driver)
}
