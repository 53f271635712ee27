// Package store is the local backend: a SQLite database holding the
// transactions and typing_status tables, with the remote procedures run as
// local statements and realtime changes fanned out through the hub.
package store

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

// busyTimeoutMs bounds how long a statement waits on a locked database.
const busyTimeoutMs = 5000

// DB is the candle.db handle. All statements filter by owner, so one file
// safely holds every user that signs in on this profile.
type DB struct {
	*sql.DB
}

// Open connects to the database at path in WAL mode.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One writer at a time; readers share WAL snapshots.
	db.SetMaxOpenConns(4)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return &DB{db}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", fmt.Sprint(busyTimeoutMs))
	q.Set("_foreign_keys", "on")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}
