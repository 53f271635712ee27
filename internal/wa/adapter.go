// Package wa relays typing indicators over WhatsApp chat presence. It is a
// presence-only transport: it serves update_typing_status and typing
// subscriptions, and nothing else.
package wa

import (
	"context"
	"fmt"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/bus"
	"github.com/candlelife/candle/internal/logging"
	"github.com/candlelife/candle/internal/realtime"
	"github.com/jonboulle/clockwork"
	"go.mau.fi/whatsmeow"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3"
)

// presenceClient is the part of whatsmeow.Client the adapter sends through.
type presenceClient interface {
	SendChatPresence(ctx context.Context, jid types.JID, state types.ChatPresence, media types.ChatPresenceMedia) error
	SendPresence(ctx context.Context, state types.Presence) error
}

// Adapter wraps the whatsmeow client and manages the WhatsApp connection.
type Adapter struct {
	client    *whatsmeow.Client
	presence  presenceClient
	container *sqlstore.Container
	hub       *realtime.Hub
	bus       *bus.Bus
	handler   *EventHandler
	logger    *zap.Logger
}

// NewAdapter opens the device store at dbPath and registers the presence
// event handler.
func NewAdapter(ctx context.Context, dbPath string, hub *realtime.Hub, b *bus.Bus, logger *zap.Logger) (*Adapter, error) {
	// Device name shown on the phone's linked devices list.
	wastore.SetOSInfo("Candle", [3]uint32{0, 1, 0})

	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", dbPath),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device store: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)
	a := &Adapter{
		client:    client,
		presence:  client,
		container: container,
		hub:       hub,
		bus:       b,
		logger:    logging.OrNop(logger),
	}
	a.handler = NewEventHandler(hub.Publish, b, clockwork.NewRealClock(), logger)
	a.handler.onConnected = a.announceAvailable
	client.AddEventHandler(a.handler.Handle)
	return a, nil
}

// IsLoggedIn returns whether the adapter has valid credentials.
func (a *Adapter) IsLoggedIn() bool {
	return a.client.Store.ID != nil
}

// Connect initiates the WhatsApp connection.
func (a *Adapter) Connect() error {
	a.logger.Info("connecting to WhatsApp")
	return a.client.Connect()
}

// Disconnect terminates the WhatsApp connection.
func (a *Adapter) Disconnect() {
	a.logger.Info("disconnecting from WhatsApp")
	a.client.Disconnect()
}

// Logout invalidates the linked device and removes credentials.
func (a *Adapter) Logout(ctx context.Context) error {
	return a.client.Logout(ctx)
}

// PhoneNumber returns the phone number from the device store, or empty string.
func (a *Adapter) PhoneNumber() string {
	if a.client.Store.ID == nil {
		return ""
	}
	return a.client.Store.ID.User
}

// Chat presence is only delivered to clients that are marked available.
func (a *Adapter) announceAvailable(ctx context.Context) {
	if err := a.presence.SendPresence(ctx, types.PresenceAvailable); err != nil {
		a.logger.Warn("send available presence failed", zap.Error(err))
	}
}

// Call serves update_typing_status as a composing/paused chat presence to the
// other user. Other procedures are not available on this transport.
func (a *Adapter) Call(ctx context.Context, procedure string, params backend.Params) error {
	if procedure != backend.ProcUpdateTypingStatus {
		return fmt.Errorf("%w: %s over whatsapp", backend.ErrUnknownProcedure, procedure)
	}
	_, targetID, isTyping, err := backend.ParseTypingParams(params)
	if err != nil {
		return err
	}
	to, err := JIDForUser(targetID)
	if err != nil {
		return err
	}
	state := types.ChatPresencePaused
	if isTyping {
		state = types.ChatPresenceComposing
	}
	if err := a.presence.SendChatPresence(ctx, to, state, types.ChatPresenceMediaText); err != nil {
		return fmt.Errorf("send chat presence: %w", err)
	}
	return nil
}

// SubscribeTyping addresses inbound chat presence to targetID and delivers it
// through the hub.
func (a *Adapter) SubscribeTyping(ctx context.Context, targetID string, onEvent func(backend.TypingChange)) (backend.Subscription, error) {
	if !a.IsLoggedIn() {
		return nil, fmt.Errorf("whatsapp device is not paired")
	}
	sub, err := a.hub.SubscribeTyping(ctx, targetID, onEvent)
	if err != nil {
		return nil, err
	}
	a.handler.SetTarget(targetID)
	return &targetSubscription{Subscription: sub, handler: a.handler}, nil
}

type targetSubscription struct {
	backend.Subscription
	handler *EventHandler
}

func (s *targetSubscription) Close() error {
	s.handler.SetTarget("")
	return s.Subscription.Close()
}
