// Package realtime fans typing-status changes out to per-identity
// subscriptions. Backends publish every change on the bus; the hub delivers
// the ones addressed to each subscriber.
package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/bus"
	"github.com/candlelife/candle/internal/logging"
	"go.uber.org/zap"
)

const subscriptionBuffer = 64

var ErrNoTarget = errors.New("subscription target is required")

// Hub implements backend.Realtime on top of the in-process bus.
type Hub struct {
	bus    *bus.Bus
	logger *zap.Logger
}

// NewHub creates a hub on b.
func NewHub(b *bus.Bus, logger *zap.Logger) *Hub {
	return &Hub{bus: b, logger: logging.OrNop(logger)}
}

// Publish announces a typing_status change to every subscriber.
func (h *Hub) Publish(c backend.TypingChange) {
	h.bus.Publish(bus.Event{Kind: bus.KindTypingStatus, Payload: c})
}

// SubscribeTyping delivers changes whose TargetID is targetID to onEvent, in
// publish order, from a single goroutine. No callback runs after Close returns.
func (h *Hub) SubscribeTyping(ctx context.Context, targetID string, onEvent func(backend.TypingChange)) (backend.Subscription, error) {
	if targetID == "" {
		return nil, ErrNoTarget
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch, unsub := h.bus.Subscribe(bus.KindTypingStatus, subscriptionBuffer)
	s := &subscription{unsub: unsub, done: make(chan struct{})}

	go func() {
		defer close(s.done)
		for evt := range ch {
			c, ok := evt.Payload.(backend.TypingChange)
			if !ok || c.TargetID != targetID {
				continue
			}
			onEvent(c)
		}
	}()

	h.logger.Debug("typing subscription opened", zap.String("target_id", targetID))
	return s, nil
}

type subscription struct {
	once  sync.Once
	unsub func()
	done  chan struct{}
}

// Close unsubscribes and waits for the delivery goroutine to finish. It must
// not be called from inside the subscription's own callback.
func (s *subscription) Close() error {
	s.once.Do(s.unsub)
	<-s.done
	return nil
}
