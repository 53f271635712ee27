// Package ledger computes what each counterparty owes the signed-in user and
// records changes to the transactions those totals come from.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/money"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingOwner  = errors.New("owner id is required")
	ErrInvalidAmount = money.ErrInvalidAmount
)

// DebtSummary aggregates the pending income from one counterparty.
type DebtSummary struct {
	CounterpartyID string
	TotalOwed      decimal.Decimal
	OverdueCount   int
}

// Filter is the predicate a transaction must satisfy to count as owed.
func Filter(ownerID string, since time.Time) backend.TransactionFilter {
	return backend.TransactionFilter{
		OwnerID:         ownerID,
		Type:            backend.TypeIncome,
		PaymentStatus:   backend.StatusPending,
		Since:           since,
		HasCounterparty: true,
	}
}

// Matches reports whether row contributes to ownerID's debts for the window
// starting at since. Only a NULL counterparty excludes a row; an empty id is
// grouped like any other, as the backend filter returns it.
func Matches(row backend.TransactionRow, ownerID string, since time.Time) bool {
	return row.OwnerID == ownerID &&
		row.Type == backend.TypeIncome &&
		row.PaymentStatus == backend.StatusPending &&
		!row.Date.Before(since) &&
		row.CounterpartyID != nil
}

// Aggregate groups the matching rows by counterparty, in the order each
// counterparty is first seen. Rows that do not match are ignored, so the
// result does not depend on how much filtering the backend already did.
// An unparsable amount on a matching row fails the whole aggregation.
func Aggregate(rows []backend.TransactionRow, ownerID string, since time.Time) ([]DebtSummary, error) {
	index := make(map[string]int)
	out := []DebtSummary{}
	for _, row := range rows {
		if !Matches(row, ownerID, since) {
			continue
		}
		amount, err := money.Parse(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", row.ID, err)
		}
		cp := *row.CounterpartyID
		i, ok := index[cp]
		if !ok {
			i = len(out)
			index[cp] = i
			out = append(out, DebtSummary{CounterpartyID: cp, TotalOwed: decimal.Zero})
		}
		out[i].TotalOwed = out[i].TotalOwed.Add(amount)
		out[i].OverdueCount++
	}
	return out, nil
}

// Total sums TotalOwed across summaries.
func Total(summaries []DebtSummary) decimal.Decimal {
	total := decimal.Zero
	for _, s := range summaries {
		total = total.Add(s.TotalOwed)
	}
	return total
}
