package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/candlelife/candle/internal/backend"
)

// SelectTransactions returns the transactions matching f, oldest first.
func (db *DB) SelectTransactions(ctx context.Context, f backend.TransactionFilter) ([]backend.TransactionRow, error) {
	var (
		where []string
		args  []any
	)
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.PaymentStatus != "" {
		where = append(where, "payment_status = ?")
		args = append(args, f.PaymentStatus)
	}
	if !f.Since.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.Since.UnixMilli())
	}
	if f.HasCounterparty {
		where = append(where, "counterparty_id IS NOT NULL")
	}

	query := `SELECT id, owner_id, counterparty_id, type, payment_status, date, amount, description FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, created_at ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []backend.TransactionRow
	for rows.Next() {
		var (
			r    backend.TransactionRow
			cp   sql.NullString
			date int64
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &cp, &r.Type, &r.PaymentStatus, &date, &r.Amount, &r.Description); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if cp.Valid {
			r.CounterpartyID = &cp.String
		}
		r.Date = time.UnixMilli(date).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertTransaction stores a new transaction row.
func (db *DB) InsertTransaction(ctx context.Context, r backend.TransactionRow) error {
	var cp sql.NullString
	if r.CounterpartyID != nil {
		cp = sql.NullString{String: *r.CounterpartyID, Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions (id, owner_id, counterparty_id, type, payment_status, date, amount, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OwnerID, cp, r.Type, r.PaymentStatus, r.Date.UnixMilli(), r.Amount, r.Description, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// MarkTransactionPaid settles one of ownerID's transactions. Settling an
// already paid transaction succeeds; a transaction ownerID does not own is
// reported as not found.
func (db *DB) MarkTransactionPaid(ctx context.Context, ownerID, transactionID string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE transactions SET payment_status = 'paid' WHERE id = ? AND owner_id = ?`,
		transactionID, ownerID)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
	}
	return nil
}
