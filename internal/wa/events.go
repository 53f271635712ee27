package wa

import (
	"context"
	"sync"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/bus"
	"github.com/candlelife/candle/internal/logging"
	"github.com/jonboulle/clockwork"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

// Pairing and connection events published on the bus.
const (
	KindPairQRCode        = bus.KindPairing + "qr_code"
	KindPairAuthenticated = bus.KindPairing + "authenticated"
	KindPairFailed        = bus.KindPairing + "failed"
	KindLoggedOut         = bus.KindPairing + "logged_out"
)

// EventHandler turns whatsmeow chat presence into typing_status changes for
// the identity currently subscribed.
type EventHandler struct {
	publish     func(backend.TypingChange)
	bus         *bus.Bus
	clock       clockwork.Clock
	logger      *zap.Logger
	onConnected func(ctx context.Context)

	mu     sync.RWMutex
	target string
}

// NewEventHandler creates a handler. publish receives every inbound change.
func NewEventHandler(publish func(backend.TypingChange), b *bus.Bus, clock clockwork.Clock, logger *zap.Logger) *EventHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EventHandler{publish: publish, bus: b, clock: clock, logger: logging.OrNop(logger)}
}

// SetTarget sets the identity inbound chat presence is addressed to.
func (h *EventHandler) SetTarget(target string) {
	h.mu.Lock()
	h.target = target
	h.mu.Unlock()
}

func (h *EventHandler) currentTarget() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.target
}

// Handle is the main whatsmeow event handler function.
func (h *EventHandler) Handle(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.ChatPresence:
		h.handleChatPresence(evt)
	case *events.Connected:
		h.logger.Info("WhatsApp connected")
		if h.onConnected != nil {
			h.onConnected(context.Background())
		}
	case *events.Disconnected:
		h.logger.Warn("WhatsApp disconnected")
	case *events.LoggedOut:
		h.logger.Warn("WhatsApp logged out", zap.String("reason", evt.Reason.String()))
		if h.bus != nil {
			h.bus.Publish(bus.Event{Kind: KindLoggedOut, Payload: evt.Reason.String()})
		}
	}
}

func (h *EventHandler) handleChatPresence(evt *events.ChatPresence) {
	if evt.IsFromMe || evt.IsGroup {
		return
	}
	target := h.currentTarget()
	if target == "" {
		return
	}
	user := UserForJID(evt.Sender)
	if user == "" {
		return
	}
	h.publish(backend.TypingChange{
		UserID:    user,
		TargetID:  target,
		IsTyping:  evt.State == types.ChatPresenceComposing,
		UpdatedAt: h.clock.Now(),
	})
}
