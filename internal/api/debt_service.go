package api

import (
	"context"
	"errors"

	"github.com/candlelife/candle/internal/identity"
	"github.com/candlelife/candle/internal/ledger"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// DebtService implements candle.v1.DebtService for the signed-in user.
type DebtService struct {
	identity   *identity.Provider
	aggregator *ledger.Aggregator
	ledger     *ledger.Ledger
}

func NewDebtService(id *identity.Provider, agg *ledger.Aggregator, l *ledger.Ledger) *DebtService {
	return &DebtService{identity: id, aggregator: agg, ledger: l}
}

func (s *DebtService) ComputeDebts(ctx context.Context, _ *ComputeDebtsRequest) (*ComputeDebtsResponse, error) {
	owner, ok := s.identity.Current()
	if !ok {
		return nil, errNotSignedIn
	}
	res, err := s.aggregator.Compute(ctx, owner)
	if errors.Is(err, ledger.ErrInvalidAmount) {
		return nil, grpcstatus.Errorf(codes.DataLoss, "could not load debts: %v", err)
	}
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "could not load debts: %v", err)
	}
	return DebtsResponse(res), nil
}

// DebtsResponse converts a computed result to its wire form.
func DebtsResponse(res ledger.Result) *ComputeDebtsResponse {
	out := &ComputeDebtsResponse{
		Debts:     make([]DebtSummary, 0, len(res.Debts)),
		Total:     ledger.Total(res.Debts).String(),
		AsOf:      res.AsOf,
		Since:     res.Since,
		FromCache: res.FromCache,
	}
	for _, d := range res.Debts {
		out.Debts = append(out.Debts, DebtSummary{
			CounterpartyID: d.CounterpartyID,
			TotalOwed:      d.TotalOwed.String(),
			OverdueCount:   d.OverdueCount,
		})
	}
	return out
}

func (s *DebtService) RecordTransaction(ctx context.Context, req *RecordTransactionRequest) (*RecordTransactionResponse, error) {
	owner, ok := s.identity.Current()
	if !ok {
		return nil, errNotSignedIn
	}
	id, err := s.ledger.RecordTransaction(ctx, ledger.NewTransaction{
		OwnerID:        owner,
		CounterpartyID: req.CounterpartyID,
		Type:           req.Type,
		Amount:         req.Amount,
		Date:           req.Date,
		Description:    req.Description,
	})
	if err != nil {
		var invalid *ledger.ValidationError
		if errors.As(err, &invalid) {
			return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
		}
		return nil, writeError("record transaction", err)
	}
	return &RecordTransactionResponse{ID: id}, nil
}

func (s *DebtService) MarkPaid(ctx context.Context, req *MarkPaidRequest) (*MarkPaidResponse, error) {
	owner, ok := s.identity.Current()
	if !ok {
		return nil, errNotSignedIn
	}
	if req.TransactionID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "transaction_id is required")
	}
	if err := s.ledger.MarkPaid(ctx, owner, req.TransactionID); err != nil {
		return nil, writeError("mark paid", err)
	}
	return &MarkPaidResponse{}, nil
}
