package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/candlelife/candle/internal/backend"
)

// UpsertTypingStatus records whether userID is typing to targetID as of at.
func (db *DB) UpsertTypingStatus(ctx context.Context, userID, targetID string, isTyping bool, at time.Time) (backend.TypingChange, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO typing_status (user_id, target_id, is_typing, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, target_id) DO UPDATE SET
			is_typing = excluded.is_typing,
			updated_at = excluded.updated_at`,
		userID, targetID, isTyping, at.UnixMilli())
	if err != nil {
		return backend.TypingChange{}, fmt.Errorf("upsert typing status: %w", err)
	}
	return backend.TypingChange{
		UserID:    userID,
		TargetID:  targetID,
		IsTyping:  isTyping,
		UpdatedAt: time.UnixMilli(at.UnixMilli()).UTC(),
	}, nil
}

// TypingStatus returns the stored row for (userID, targetID).
func (db *DB) TypingStatus(ctx context.Context, userID, targetID string) (backend.TypingChange, error) {
	var (
		c       = backend.TypingChange{UserID: userID, TargetID: targetID}
		updated int64
	)
	err := db.QueryRowContext(ctx,
		`SELECT is_typing, updated_at FROM typing_status WHERE user_id = ? AND target_id = ?`,
		userID, targetID).Scan(&c.IsTyping, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.TypingChange{}, ErrNotFound
	}
	if err != nil {
		return backend.TypingChange{}, fmt.Errorf("get typing status: %w", err)
	}
	c.UpdatedAt = time.UnixMilli(updated).UTC()
	return c, nil
}
