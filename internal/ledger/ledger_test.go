package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/cache"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	rows []backend.TransactionRow
	err  error
}

func (w *fakeWriter) InsertTransaction(_ context.Context, r backend.TransactionRow) error {
	if w.err != nil {
		return w.err
	}
	w.rows = append(w.rows, r)
	return nil
}

type fakeCaller struct {
	procedure string
	params    backend.Params
	err       error
}

func (c *fakeCaller) Call(_ context.Context, procedure string, params backend.Params) error {
	c.procedure = procedure
	c.params = params
	return c.err
}

func primedDebts(t *testing.T) (*cache.Coordinator, *cache.Bucket[Result]) {
	t.Helper()
	coord := cache.NewCoordinator(clockwork.NewFakeClock(), nil)
	b := cache.NewBucket[Result](coord, BucketDebts, time.Hour)
	b.Set("owner", Result{})
	return coord, b
}

func TestRecordTransaction(t *testing.T) {
	coord, debts := primedDebts(t)
	w := &fakeWriter{}
	l := New(w, &fakeCaller{}, coord, nil, nil)

	id, err := l.RecordTransaction(context.Background(), NewTransaction{
		OwnerID: "owner", CounterpartyID: "alice", Type: backend.TypeIncome, Amount: "12.50",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Len(t, w.rows, 1)

	r := w.rows[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, backend.StatusPending, r.PaymentStatus)
	assert.Equal(t, "12.5", r.Amount)
	require.NotNil(t, r.CounterpartyID)
	assert.Equal(t, "alice", *r.CounterpartyID)
	assert.False(t, r.Date.IsZero())
	assert.Equal(t, 0, debts.Len(), "debts bucket must be stale after a write")
}

func TestRecordTransactionDatesFromClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)
	coord := cache.NewCoordinator(clock, nil)
	w := &fakeWriter{}
	l := New(w, &fakeCaller{}, coord, clock, nil)

	_, err := l.RecordTransaction(context.Background(), NewTransaction{
		OwnerID: "owner", CounterpartyID: "alice", Type: backend.TypeIncome, Amount: "4",
	})
	require.NoError(t, err)
	require.Len(t, w.rows, 1)
	assert.True(t, w.rows[0].Date.Equal(now), "undated transaction dated %s, want %s", w.rows[0].Date, now)

	got, err := Aggregate(w.rows, "owner", now.Add(-DefaultWindow))
	require.NoError(t, err)
	require.Len(t, got, 1, "a transaction recorded now falls inside the window computed from the same clock")
}

func TestRecordTransactionValidation(t *testing.T) {
	coord, debts := primedDebts(t)
	l := New(&fakeWriter{}, &fakeCaller{}, coord, nil, nil)
	ctx := context.Background()

	_, err := l.RecordTransaction(ctx, NewTransaction{Type: backend.TypeIncome, Amount: "1"})
	assert.ErrorIs(t, err, ErrMissingOwner)

	_, err = l.RecordTransaction(ctx, NewTransaction{OwnerID: "o", Type: "gift", Amount: "1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "type", verr.Field)

	_, err = l.RecordTransaction(ctx, NewTransaction{OwnerID: "o", Type: backend.TypeIncome, Amount: "-1"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.RecordTransaction(ctx, NewTransaction{OwnerID: "o", Type: backend.TypeIncome, Amount: "10.005"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Equal(t, 1, debts.Len(), "rejected writes must not invalidate")
}

func TestRecordTransactionAcceptsCentsWithTrailingZeros(t *testing.T) {
	coord, _ := primedDebts(t)
	w := &fakeWriter{}
	l := New(w, &fakeCaller{}, coord, nil, nil)

	_, err := l.RecordTransaction(context.Background(), NewTransaction{OwnerID: "o", Type: backend.TypeIncome, Amount: "10.500"})
	require.NoError(t, err)
	require.Len(t, w.rows, 1)
	assert.Equal(t, "10.5", w.rows[0].Amount)
}

func TestRecordTransactionReadOnly(t *testing.T) {
	coord, _ := primedDebts(t)
	l := New(nil, &fakeCaller{}, coord, nil, nil)
	_, err := l.RecordTransaction(context.Background(), NewTransaction{OwnerID: "o", Type: backend.TypeIncome, Amount: "1"})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestRecordTransactionWriterFailureKeepsCache(t *testing.T) {
	coord, debts := primedDebts(t)
	l := New(&fakeWriter{err: errors.New("disk full")}, &fakeCaller{}, coord, nil, nil)
	_, err := l.RecordTransaction(context.Background(), NewTransaction{OwnerID: "o", Type: backend.TypeIncome, Amount: "1"})
	require.Error(t, err)
	assert.Equal(t, 1, debts.Len())
}

func TestMarkPaid(t *testing.T) {
	coord, debts := primedDebts(t)
	c := &fakeCaller{}
	l := New(nil, c, coord, nil, nil)

	require.NoError(t, l.MarkPaid(context.Background(), "owner", "t1"))
	assert.Equal(t, backend.ProcMarkTransactionPaid, c.procedure)
	assert.Equal(t, backend.MarkPaidParams("owner", "t1"), c.params)
	assert.Equal(t, 0, debts.Len())
}

func TestMarkPaidFailureKeepsCache(t *testing.T) {
	coord, debts := primedDebts(t)
	l := New(nil, &fakeCaller{err: backend.ErrNotFound}, coord, nil, nil)

	err := l.MarkPaid(context.Background(), "owner", "missing")
	require.ErrorIs(t, err, backend.ErrNotFound)
	assert.Equal(t, 1, debts.Len())
}

func TestMarkPaidRequiresOwner(t *testing.T) {
	coord, _ := primedDebts(t)
	c := &fakeCaller{}
	l := New(nil, c, coord, nil, nil)
	assert.ErrorIs(t, l.MarkPaid(context.Background(), "", "t1"), ErrMissingOwner)
	assert.Empty(t, c.procedure)
}
