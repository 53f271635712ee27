package ledger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/cache"
	"github.com/candlelife/candle/internal/logging"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// BucketDebts is the cache bucket holding computed debt summaries per owner.
const BucketDebts = "debts"

// Defaults for the debt window and cache freshness.
const (
	DefaultWindow    = 30 * 24 * time.Hour
	DefaultFreshness = 2 * time.Minute
)

// Result is a computed debt list with the instant it was computed for.
type Result struct {
	Debts     []DebtSummary
	AsOf      time.Time
	Since     time.Time
	FromCache bool
}

// Aggregator computes debts from the backend's transactions and caches them
// for the freshness interval.
type Aggregator struct {
	source backend.TransactionQuerier
	window time.Duration
	clock  clockwork.Clock
	bucket *cache.Bucket[Result]
	logger *zap.Logger
}

// AggregatorOptions configures an Aggregator. Zero values take the defaults.
type AggregatorOptions struct {
	Window    time.Duration
	Freshness time.Duration
	Clock     clockwork.Clock
	Logger    *zap.Logger
}

// NewAggregator registers the debts bucket on the coordinator.
func NewAggregator(source backend.TransactionQuerier, coord *cache.Coordinator, opts AggregatorOptions) *Aggregator {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Aggregator{
		source: source,
		window: opts.Window,
		clock:  opts.Clock,
		bucket: cache.NewBucket[Result](coord, BucketDebts, opts.Freshness),
		logger: logging.OrNop(opts.Logger),
	}
}

// ComputeDebts returns ownerID's debt summaries. A result computed less than
// the freshness interval ago may be returned as is. Backend failures are
// returned as errors; an empty slice means there are no debts.
func (a *Aggregator) ComputeDebts(ctx context.Context, ownerID string) ([]DebtSummary, error) {
	res, err := a.Compute(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return res.Debts, nil
}

// Compute is ComputeDebts with the window boundaries and cache provenance.
func (a *Aggregator) Compute(ctx context.Context, ownerID string) (Result, error) {
	if ownerID == "" {
		return Result{}, ErrMissingOwner
	}
	res, hit, err := a.bucket.GetOrLoad(ctx, ownerID, func(ctx context.Context) (Result, error) {
		return a.load(ctx, ownerID)
	})
	if err != nil {
		a.logger.Warn("compute debts failed", zap.String("owner_id", ownerID), zap.Error(err))
		return Result{}, err
	}
	res.FromCache = hit
	res.Debts = slices.Clone(res.Debts)
	return res, nil
}

func (a *Aggregator) load(ctx context.Context, ownerID string) (Result, error) {
	now := a.clock.Now()
	since := now.Add(-a.window)

	rows, err := a.source.SelectTransactions(ctx, Filter(ownerID, since))
	if err != nil {
		return Result{}, fmt.Errorf("select transactions: %w", err)
	}
	debts, err := Aggregate(rows, ownerID, since)
	if err != nil {
		return Result{}, fmt.Errorf("aggregate debts: %w", err)
	}
	a.logger.Debug("debts computed",
		zap.String("owner_id", ownerID),
		zap.Int("rows", len(rows)),
		zap.Int("counterparties", len(debts)))
	return Result{Debts: debts, AsOf: now, Since: since}, nil
}
