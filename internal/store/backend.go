package store

import (
	"context"
	"fmt"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/logging"
	"github.com/candlelife/candle/internal/realtime"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a procedure targets a missing row.
var ErrNotFound = backend.ErrNotFound

// Backend serves the backend interfaces from a local database. Writes to
// typing_status are announced on the hub the way a hosted backend would push
// them over its realtime channel.
type Backend struct {
	*DB
	hub    *realtime.Hub
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewBackend wraps db. clock may be nil.
func NewBackend(db *DB, hub *realtime.Hub, clock clockwork.Clock, logger *zap.Logger) *Backend {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Backend{DB: db, hub: hub, clock: clock, logger: logging.OrNop(logger)}
}

// Call runs a procedure.
func (b *Backend) Call(ctx context.Context, procedure string, params backend.Params) error {
	switch procedure {
	case backend.ProcUpdateTypingStatus:
		userID, targetID, isTyping, err := backend.ParseTypingParams(params)
		if err != nil {
			return err
		}
		change, err := b.UpsertTypingStatus(ctx, userID, targetID, isTyping, b.clock.Now())
		if err != nil {
			return err
		}
		b.hub.Publish(change)
		b.logger.Debug("typing status updated",
			zap.String("user_id", userID),
			zap.String("target_id", targetID),
			zap.Bool("is_typing", isTyping))
		return nil

	case backend.ProcMarkTransactionPaid:
		ownerID, txID, err := backend.ParseMarkPaidParams(params)
		if err != nil {
			return err
		}
		return b.MarkTransactionPaid(ctx, ownerID, txID)

	default:
		return fmt.Errorf("%w: %s", backend.ErrUnknownProcedure, procedure)
	}
}

// SubscribeTyping opens a realtime channel on the hub.
func (b *Backend) SubscribeTyping(ctx context.Context, targetID string, onEvent func(backend.TypingChange)) (backend.Subscription, error) {
	return b.hub.SubscribeTyping(ctx, targetID, onEvent)
}
