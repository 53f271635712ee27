package schema

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/mattn/go-sqlite3"
)

var testMigrations = fstest.MapFS{
	"000001_a.up.sql":   {Data: []byte("CREATE TABLE a (id INTEGER PRIMARY KEY);")},
	"000001_a.down.sql": {Data: []byte("DROP TABLE a;")},
	"000002_b.up.sql":   {Data: []byte("CREATE TABLE b (id INTEGER PRIMARY KEY);")},
	"000002_b.down.sql": {Data: []byte("DROP TABLE b;")},
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "schema.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func up(t *testing.T, db *sql.DB) (*Result, error) {
	t.Helper()
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		t.Fatal(err)
	}
	return Up(testMigrations, "sqlite3", driver)
}

func TestUpAppliesPending(t *testing.T) {
	db := openDB(t)

	res, err := up(t, db)
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if !res.Changed || res.Version != 2 {
		t.Errorf("result = %+v, want changed at version 2", res)
	}

	res, err = up(t, db)
	if err != nil {
		t.Fatalf("second Up() error = %v", err)
	}
	if res.Changed {
		t.Error("second Up() should report Changed=false")
	}
}

func TestDirtySchemaRefused(t *testing.T) {
	db := openDB(t)
	if _, err := up(t, db); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`UPDATE schema_migrations SET dirty = 1`); err != nil {
		t.Fatal(err)
	}

	_, err := up(t, db)
	if !errors.Is(err, ErrDirty) {
		t.Errorf("Up() error = %v, want ErrDirty", err)
	}
}
