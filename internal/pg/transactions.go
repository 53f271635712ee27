package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/candlelife/candle/internal/backend"
)

const selectTransactions = `SELECT id::text, owner_id, counterparty_id, type, payment_status, date, amount::text, description FROM transactions`

// buildSelect renders f as a parameterized query.
func buildSelect(f backend.TransactionFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.PaymentStatus != "" {
		add("payment_status = $%d", f.PaymentStatus)
	}
	if !f.Since.IsZero() {
		add("date >= $%d", f.Since)
	}
	if f.HasCounterparty {
		where = append(where, "counterparty_id IS NOT NULL")
	}

	q := selectTransactions
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return q + " ORDER BY date ASC, created_at ASC", args
}

// SelectTransactions returns the transactions matching f, oldest first.
func (c *Client) SelectTransactions(ctx context.Context, f backend.TransactionFilter) ([]backend.TransactionRow, error) {
	query, args := buildSelect(f)
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []backend.TransactionRow
	for rows.Next() {
		var (
			r    backend.TransactionRow
			date time.Time
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.CounterpartyID, &r.Type, &r.PaymentStatus, &date, &r.Amount, &r.Description); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		r.Date = date.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertTransaction stores a new transaction row.
func (c *Client) InsertTransaction(ctx context.Context, r backend.TransactionRow) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO transactions (id, owner_id, counterparty_id, type, payment_status, date, amount, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8)`,
		r.ID, r.OwnerID, r.CounterpartyID, r.Type, r.PaymentStatus, r.Date, r.Amount, r.Description)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
