package daemon

import (
	"context"
	"time"

	"github.com/candlelife/candle/internal/bus"
	"github.com/candlelife/candle/internal/cache"
	"github.com/candlelife/candle/internal/identity"
	"github.com/candlelife/candle/internal/presence"
	"github.com/candlelife/candle/internal/status"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// resubscribeInterval is how long a degraded link waits before trying again.
const resubscribeInterval = 15 * time.Second

// IdentityWatcher keeps the presence tracker attached to whoever is signed in
// and drops cached results that belonged to the previous identity.
type IdentityWatcher struct {
	bus      *bus.Bus
	identity *identity.Provider
	tracker  *presence.Tracker
	coord    *cache.Coordinator
	clock    clockwork.Clock
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewIdentityWatcher(b *bus.Bus, id *identity.Provider, tracker *presence.Tracker, coord *cache.Coordinator, clock clockwork.Clock, logger *zap.Logger) *IdentityWatcher {
	return &IdentityWatcher{
		bus:      b,
		identity: id,
		tracker:  tracker,
		coord:    coord,
		clock:    clock,
		logger:   logger,
	}
}

// Start subscribes to identity changes. If someone is already signed in the
// tracker is attached right away.
func (w *IdentityWatcher) Start(ctx context.Context) {
	ch, unsub := w.bus.Subscribe(bus.KindIdentityChanged, 16)
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	if current, ok := w.identity.Current(); ok {
		w.attach(ctx, current)
	}

	go func() {
		defer close(w.done)
		defer unsub()

		retry := w.clock.NewTicker(resubscribeInterval)
		defer retry.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if change, ok := evt.Payload.(identity.Change); ok {
					w.apply(ctx, change)
				}
			case <-retry.Chan():
				if w.tracker.Link() != status.Degraded {
					continue
				}
				if current, ok := w.identity.Current(); ok {
					w.attach(ctx, current)
				}
			}
		}
	}()
}

// Stop ends the watch and detaches the tracker.
func (w *IdentityWatcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.tracker.Detach()
}

func (w *IdentityWatcher) apply(ctx context.Context, change identity.Change) {
	if change.Previous != "" {
		w.coord.InvalidateAll()
	}
	if change.Current == "" {
		w.tracker.Detach()
		w.logger.Info("presence detached", zap.String("user_id", change.Previous))
		return
	}
	w.attach(ctx, change.Current)
}

func (w *IdentityWatcher) attach(ctx context.Context, userID string) {
	if err := w.tracker.Attach(ctx, userID); err != nil {
		w.logger.Warn("presence attach failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	w.logger.Info("presence attached", zap.String("user_id", userID))
}
