package pg

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/bus"
	"github.com/candlelife/candle/internal/realtime"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q, args := buildSelect(backend.TransactionFilter{
		OwnerID:         "me",
		Type:            backend.TypeIncome,
		PaymentStatus:   backend.StatusPending,
		Since:           since,
		HasCounterparty: true,
	})

	assert.Equal(t, selectTransactions+
		" WHERE owner_id = $1 AND type = $2 AND payment_status = $3 AND date >= $4 AND counterparty_id IS NOT NULL"+
		" ORDER BY date ASC, created_at ASC", q)
	assert.Equal(t, []any{"me", backend.TypeIncome, backend.StatusPending, since}, args)
}

func TestBuildSelectPartial(t *testing.T) {
	q, args := buildSelect(backend.TransactionFilter{PaymentStatus: backend.StatusPaid})
	assert.Contains(t, q, "WHERE payment_status = $1 ORDER BY")
	assert.Equal(t, []any{backend.StatusPaid}, args)

	q, args = buildSelect(backend.TransactionFilter{})
	assert.NotContains(t, q, "WHERE")
	assert.Empty(t, args)
}

func TestDecodeTypingNotification(t *testing.T) {
	got, err := decodeTypingNotification(`{"user_id":"alice","target_id":"me","is_typing":true,"updated_at":"2026-03-01T10:00:00.123456+00:00"}`)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, "me", got.TargetID)
	assert.True(t, got.IsTyping)
	assert.True(t, got.UpdatedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 123456000, time.UTC)))

	for _, bad := range []string{`not json`, `{"user_id":"alice"}`, `{"target_id":"me","is_typing":true}`} {
		_, err := decodeTypingNotification(bad)
		assert.Error(t, err, bad)
	}
}

func TestCallRejectsBadInput(t *testing.T) {
	c := &Client{}
	ctx := context.Background()

	err := c.Call(ctx, "drop_everything", nil)
	assert.ErrorIs(t, err, backend.ErrUnknownProcedure)

	var pe *backend.ParamError
	err = c.Call(ctx, backend.ProcMarkTransactionPaid, backend.Params{"owner_id": "me"})
	assert.True(t, errors.As(err, &pe), "error = %v", err)
}

// testClient connects to CANDLE_TEST_DATABASE_URL, skipping when it is unset.
func testClient(t *testing.T) *Client {
	t.Helper()
	dsn := os.Getenv("CANDLE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CANDLE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	c, err := Connect(ctx, dsn, realtime.NewHub(bus.New(), nil), nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	_, err = c.Migrate()
	require.NoError(t, err)
	return c
}

func TestPostgresRoundTrip(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	owner := "owner-" + uuid.NewString()
	cp := "alice"
	id := uuid.NewString()

	require.NoError(t, c.InsertTransaction(ctx, backend.TransactionRow{
		ID: id, OwnerID: owner, CounterpartyID: &cp, Type: backend.TypeIncome,
		PaymentStatus: backend.StatusPending, Date: time.Now(), Amount: "12.5",
	}))

	rows, err := c.SelectTransactions(ctx, backend.TransactionFilter{OwnerID: owner, HasCounterparty: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "12.50", rows[0].Amount)

	require.NoError(t, c.Call(ctx, backend.ProcMarkTransactionPaid, backend.MarkPaidParams(owner, id)))
	err = c.Call(ctx, backend.ProcMarkTransactionPaid, backend.MarkPaidParams(owner, "not-a-uuid"))
	assert.ErrorIs(t, err, backend.ErrNotFound)
	err = c.Call(ctx, backend.ProcMarkTransactionPaid, backend.MarkPaidParams("someone-else", id))
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestPostgresTypingNotify(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	require.NoError(t, c.Listen(ctx))

	target := "me-" + uuid.NewString()
	got := make(chan backend.TypingChange, 1)
	sub, err := c.SubscribeTyping(ctx, target, func(ch backend.TypingChange) { got <- ch })
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, c.Call(ctx, backend.ProcUpdateTypingStatus, backend.TypingParams("alice", target, true)))

	select {
	case ch := <-got:
		assert.Equal(t, "alice", ch.UserID)
		assert.True(t, ch.IsTyping)
		assert.False(t, ch.UpdatedAt.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}
