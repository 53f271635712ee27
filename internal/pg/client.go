// Package pg is the hosted backend: transactions are read and written over a
// pgx pool, remote procedures are SQL functions, and typing_status changes
// arrive over LISTEN/NOTIFY.
package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/candlelife/candle/internal/logging"
	"github.com/candlelife/candle/internal/realtime"
	"github.com/candlelife/candle/internal/schema"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Client talks to one Postgres database.
type Client struct {
	pool   *pgxpool.Pool
	dsn    string
	hub    *realtime.Hub
	logger *zap.Logger

	listener *Listener
}

// Connect opens the pool and checks the connection.
func Connect(ctx context.Context, dsn string, hub *realtime.Hub, logger *zap.Logger) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Client{pool: pool, dsn: dsn, hub: hub, logger: logging.OrNop(logger)}, nil
}

// Close stops the listener and closes the pool.
func (c *Client) Close() {
	if c.listener != nil {
		c.listener.Stop()
	}
	c.pool.Close()
}

// Migrate applies the embedded schema over a short-lived lib/pq connection.
func (c *Client) Migrate() (*schema.Result, error) {
	db, err := sql.Open("postgres", c.dsn)
	if err != nil {
		return nil, fmt.Errorf("open migration connection: %w", err)
	}
	defer func() { _ = db.Close() }()
	return migrateDB(db)
}
