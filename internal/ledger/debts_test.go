package ledger

import (
	"testing"
	"time"

	"github.com/candlelife/candle/internal/backend"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func since() time.Time { return now.Add(-DefaultWindow) }

func ptr(s string) *string { return &s }

func row(id, cp string, amount string, age time.Duration) backend.TransactionRow {
	r := backend.TransactionRow{
		ID:            id,
		OwnerID:       "owner",
		Type:          backend.TypeIncome,
		PaymentStatus: backend.StatusPending,
		Date:          now.Add(-age),
		Amount:        amount,
	}
	if cp != "" {
		r.CounterpartyID = ptr(cp)
	}
	return r
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAggregateGroupsByCounterparty(t *testing.T) {
	rows := []backend.TransactionRow{
		row("t1", "alice", "100", time.Hour),
		row("t2", "bob", "20.50", 2*time.Hour),
		row("t3", "alice", "0.25", 3*time.Hour),
	}

	got, err := Aggregate(rows, "owner", since())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "alice", got[0].CounterpartyID)
	assert.True(t, got[0].TotalOwed.Equal(dec("100.25")), "alice owes %s", got[0].TotalOwed)
	assert.Equal(t, 2, got[0].OverdueCount)

	assert.Equal(t, "bob", got[1].CounterpartyID)
	assert.True(t, got[1].TotalOwed.Equal(dec("20.5")))
	assert.Equal(t, 1, got[1].OverdueCount)
}

func TestAggregateKeepsEmptyCounterparty(t *testing.T) {
	blank := row("t2", "", "3", time.Hour)
	blank.CounterpartyID = ptr("")
	rows := []backend.TransactionRow{
		row("t1", "", "9", time.Hour), // NULL counterparty
		blank,
		row("t3", "alice", "1", time.Hour),
	}

	assert.False(t, Matches(rows[0], "owner", since()))
	assert.True(t, Matches(blank, "owner", since()))

	got, err := Aggregate(rows, "owner", since())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "", got[0].CounterpartyID)
	assert.True(t, got[0].TotalOwed.Equal(dec("3")))
	assert.Equal(t, 1, got[0].OverdueCount)
	assert.Equal(t, "alice", got[1].CounterpartyID)
}

// TestAggregateTotalsMatchFilteredRows: summed totals and counts equal the
// sums over the rows that satisfy the predicate, and every matching row lands
// in exactly one summary.
func TestAggregateTotalsMatchFilteredRows(t *testing.T) {
	rows := []backend.TransactionRow{
		row("t1", "a", "10.10", time.Hour),
		row("t2", "b", "0.20", time.Hour),
		row("t3", "a", "3", 24*time.Hour),
		row("t4", "c", "7.77", 29*24*time.Hour),
		row("t5", "b", "1000", 40*24*time.Hour),
		row("t6", "", "50", time.Hour),
	}
	rows[1].Type = backend.TypeExpense

	got, err := Aggregate(rows, "owner", since())
	require.NoError(t, err)

	wantTotal := decimal.Zero
	wantCount := 0
	for _, r := range rows {
		if Matches(r, "owner", since()) {
			wantTotal = wantTotal.Add(dec(r.Amount))
			wantCount++
		}
	}

	gotCount := 0
	seen := map[string]bool{}
	for _, s := range got {
		assert.False(t, seen[s.CounterpartyID], "counterparty %s appears twice", s.CounterpartyID)
		seen[s.CounterpartyID] = true
		assert.GreaterOrEqual(t, s.OverdueCount, 1)
		gotCount += s.OverdueCount
	}
	assert.True(t, Total(got).Equal(wantTotal), "total = %s, want %s", Total(got), wantTotal)
	assert.Equal(t, wantCount, gotCount)
	assert.Equal(t, 3, wantCount)
}

func TestAggregateExclusions(t *testing.T) {
	base := row("t", "alice", "10", 10*24*time.Hour)

	tests := []struct {
		name   string
		mutate func(*backend.TransactionRow)
	}{
		{"expense", func(r *backend.TransactionRow) { r.Type = backend.TypeExpense }},
		{"paid", func(r *backend.TransactionRow) { r.PaymentStatus = backend.StatusPaid }},
		{"older than window", func(r *backend.TransactionRow) { r.Date = now.Add(-40 * 24 * time.Hour) }},
		{"null counterparty", func(r *backend.TransactionRow) { r.CounterpartyID = nil }},
		{"other owner", func(r *backend.TransactionRow) { r.OwnerID = "someone-else" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			got, err := Aggregate([]backend.TransactionRow{r}, "owner", since())
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}

	t.Run("ten days old is included", func(t *testing.T) {
		got, err := Aggregate([]backend.TransactionRow{base}, "owner", since())
		require.NoError(t, err)
		require.Len(t, got, 1)
	})
}

func TestAggregateWindowBoundaryIsInclusive(t *testing.T) {
	r := row("t", "alice", "1", 0)
	r.Date = since()
	got, err := Aggregate([]backend.TransactionRow{r}, "owner", since())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAggregateRejectsBadAmount(t *testing.T) {
	rows := []backend.TransactionRow{
		row("t1", "alice", "10", time.Hour),
		row("t2", "alice", "ten", time.Hour),
	}
	_, err := Aggregate(rows, "owner", since())
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Contains(t, err.Error(), "t2")
}

func TestAggregateIgnoresBadAmountOnExcludedRow(t *testing.T) {
	bad := row("t1", "alice", "garbage", time.Hour)
	bad.PaymentStatus = backend.StatusPaid

	got, err := Aggregate([]backend.TransactionRow{bad}, "owner", since())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAggregateEmptyIsNotNil(t *testing.T) {
	got, err := Aggregate(nil, "owner", since())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterMirrorsMatches(t *testing.T) {
	f := Filter("owner", since())
	assert.Equal(t, "owner", f.OwnerID)
	assert.Equal(t, backend.TypeIncome, f.Type)
	assert.Equal(t, backend.StatusPending, f.PaymentStatus)
	assert.True(t, f.HasCounterparty)
	assert.Equal(t, since(), f.Since)
}
