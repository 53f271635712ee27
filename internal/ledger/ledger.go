package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/cache"
	"github.com/candlelife/candle/internal/logging"
	"github.com/candlelife/candle/internal/money"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrReadOnly is returned by RecordTransaction when the backend does not accept writes.
var ErrReadOnly = errors.New("backend does not accept transactions")

// ValidationError reports a NewTransaction that cannot be recorded.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }

func (e *ValidationError) Unwrap() error { return e.Err }

// NewTransaction is the input to RecordTransaction.
type NewTransaction struct {
	OwnerID        string
	CounterpartyID string
	Type           string
	Amount         string
	Date           time.Time
	Description    string
}

// Ledger performs writes that change debt totals. Every write declares the
// debts bucket stale on success.
type Ledger struct {
	writer backend.TransactionWriter
	caller backend.Caller
	coord  *cache.Coordinator
	clock  clockwork.Clock
	logger *zap.Logger
}

// New creates a Ledger. writer may be nil for backends that only expose
// procedures; clock dates transactions recorded without one and defaults to
// the real clock.
func New(writer backend.TransactionWriter, caller backend.Caller, coord *cache.Coordinator, clock clockwork.Clock, logger *zap.Logger) *Ledger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ledger{writer: writer, caller: caller, coord: coord, clock: clock, logger: logging.OrNop(logger)}
}

// RecordTransaction validates and stores a transaction, returning its id.
func (l *Ledger) RecordTransaction(ctx context.Context, tx NewTransaction) (string, error) {
	if l.writer == nil {
		return "", ErrReadOnly
	}
	if tx.OwnerID == "" {
		return "", &ValidationError{Field: "owner_id", Err: ErrMissingOwner}
	}
	switch tx.Type {
	case backend.TypeIncome, backend.TypeExpense:
	default:
		return "", &ValidationError{Field: "type", Err: fmt.Errorf("unknown transaction type %q", tx.Type)}
	}
	amount, err := money.ParseEntry(tx.Amount)
	if err != nil {
		return "", &ValidationError{Field: "amount", Err: err}
	}
	if tx.Date.IsZero() {
		tx.Date = l.clock.Now()
	}

	row := backend.TransactionRow{
		ID:            uuid.NewString(),
		OwnerID:       tx.OwnerID,
		Type:          tx.Type,
		PaymentStatus: backend.StatusPending,
		Date:          tx.Date,
		Amount:        amount.String(),
		Description:   tx.Description,
	}
	if tx.CounterpartyID != "" {
		cp := tx.CounterpartyID
		row.CounterpartyID = &cp
	}

	err = cache.Mutate(ctx, l.coord, []string{BucketDebts}, func(ctx context.Context) error {
		return l.writer.InsertTransaction(ctx, row)
	})
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	l.logger.Info("transaction recorded", zap.String("id", row.ID), zap.String("owner_id", row.OwnerID))
	return row.ID, nil
}

// MarkPaid settles one of ownerID's transactions.
func (l *Ledger) MarkPaid(ctx context.Context, ownerID, transactionID string) error {
	if ownerID == "" {
		return ErrMissingOwner
	}
	err := cache.Mutate(ctx, l.coord, []string{BucketDebts}, func(ctx context.Context) error {
		return l.caller.Call(ctx, backend.ProcMarkTransactionPaid, backend.MarkPaidParams(ownerID, transactionID))
	})
	if err != nil {
		return fmt.Errorf("mark transaction paid: %w", err)
	}
	l.logger.Info("transaction marked paid", zap.String("id", transactionID), zap.String("owner_id", ownerID))
	return nil
}
