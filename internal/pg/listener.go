package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/realtime"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ChannelTypingStatus is the NOTIFY channel fed by the typing_status trigger.
const ChannelTypingStatus = "typing_status"

const (
	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
)

type typingNotification struct {
	UserID    string    `json:"user_id"`
	TargetID  string    `json:"target_id"`
	IsTyping  bool      `json:"is_typing"`
	UpdatedAt time.Time `json:"updated_at"`
}

func decodeTypingNotification(payload string) (backend.TypingChange, error) {
	var n typingNotification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return backend.TypingChange{}, fmt.Errorf("decode typing notification: %w", err)
	}
	if n.UserID == "" || n.TargetID == "" {
		return backend.TypingChange{}, fmt.Errorf("typing notification without user or target: %s", payload)
	}
	return backend.TypingChange(n), nil
}

// Listener relays typing_status notifications to the hub.
type Listener struct {
	pl     *pq.Listener
	hub    *realtime.Hub
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// Listen starts relaying typing_status notifications to the client's hub.
// The lib/pq listener reconnects on its own; a reconnect may lose
// notifications, which typing decay tolerates.
func (c *Client) Listen(ctx context.Context) error {
	logger := c.logger
	pl := pq.NewListener(c.dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			logger.Info("typing listener connected")
		case pq.ListenerEventDisconnected:
			logger.Warn("typing listener disconnected", zap.Error(err))
		case pq.ListenerEventReconnected:
			logger.Info("typing listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			logger.Warn("typing listener connection attempt failed", zap.Error(err))
		}
	})
	if err := pl.Listen(ChannelTypingStatus); err != nil {
		_ = pl.Close()
		return fmt.Errorf("listen %s: %w", ChannelTypingStatus, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	l := &Listener{pl: pl, hub: c.hub, logger: logger, cancel: cancel, done: make(chan struct{})}
	c.listener = l
	go l.run(ctx)
	return nil
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.pl.Notify:
			// nil after a reconnect
			if n == nil {
				continue
			}
			change, err := decodeTypingNotification(n.Extra)
			if err != nil {
				l.logger.Warn("bad typing notification", zap.Error(err))
				continue
			}
			l.hub.Publish(change)
		case <-time.After(90 * time.Second):
			go func() { _ = l.pl.Ping() }()
		}
	}
}

// Stop closes the listener connection.
func (l *Listener) Stop() {
	l.cancel()
	<-l.done
	_ = l.pl.Close()
}

// SubscribeTyping opens a realtime channel on the hub fed by Listen.
func (c *Client) SubscribeTyping(ctx context.Context, targetID string, onEvent func(backend.TypingChange)) (backend.Subscription, error) {
	return c.hub.SubscribeTyping(ctx, targetID, onEvent)
}
