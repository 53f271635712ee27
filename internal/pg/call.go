package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/candlelife/candle/internal/backend"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// invalid_text_representation, e.g. a transaction id that is not a uuid.
const codeInvalidText = "22P02"

// Call runs a procedure as the SQL function of the same name.
func (c *Client) Call(ctx context.Context, procedure string, params backend.Params) error {
	switch procedure {
	case backend.ProcUpdateTypingStatus:
		userID, targetID, isTyping, err := backend.ParseTypingParams(params)
		if err != nil {
			return err
		}
		if _, err := c.pool.Exec(ctx, `SELECT update_typing_status($1, $2, $3)`, userID, targetID, isTyping); err != nil {
			return fmt.Errorf("call %s: %w", procedure, err)
		}
		return nil

	case backend.ProcMarkTransactionPaid:
		ownerID, txID, err := backend.ParseMarkPaidParams(params)
		if err != nil {
			return err
		}
		var found bool
		err = c.pool.QueryRow(ctx, `SELECT mark_transaction_paid($1, $2::uuid)`, ownerID, txID).Scan(&found)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeInvalidText {
			c.logger.Debug("malformed transaction id", zap.String("id", txID))
			found, err = false, nil
		}
		if err != nil {
			return fmt.Errorf("call %s: %w", procedure, err)
		}
		if !found {
			return fmt.Errorf("transaction %s: %w", txID, backend.ErrNotFound)
		}
		return nil

	default:
		return fmt.Errorf("%w: %s", backend.ErrUnknownProcedure, procedure)
	}
}
