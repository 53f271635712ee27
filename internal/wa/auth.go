package wa

import (
	"context"
	"fmt"

	"github.com/candlelife/candle/internal/bus"
	"go.mau.fi/whatsmeow"
)

// AuthEventType enumerates pairing event types.
type AuthEventType string

const (
	AuthEventQRCode        AuthEventType = "qr_code"
	AuthEventAuthenticated AuthEventType = "authenticated"
	AuthEventAuthFailed    AuthEventType = "auth_failed"
	AuthEventTimeout       AuthEventType = "timeout"
)

// AuthEvent is one step of the pairing flow.
type AuthEvent struct {
	Type    AuthEventType
	QRCode  string
	Message string
}

// StartQRAuth links this daemon as a WhatsApp device. The returned channel
// carries QR codes to show the user and closes after the final event.
func (a *Adapter) StartQRAuth(ctx context.Context) (<-chan AuthEvent, error) {
	if a.IsLoggedIn() {
		return nil, fmt.Errorf("already paired")
	}
	qrChan, err := a.client.GetQRChannel(ctx)
	if err != nil {
		return nil, fmt.Errorf("get QR channel: %w", err)
	}

	out := make(chan AuthEvent, 10)
	go func() {
		defer close(out)
		emit := func(evt AuthEvent) {
			out <- evt
			a.publishAuth(evt)
		}

		// Connect must be called after GetQRChannel.
		if err := a.Connect(); err != nil {
			emit(AuthEvent{Type: AuthEventAuthFailed, Message: err.Error()})
			return
		}
		for item := range qrChan {
			if evt, final := authEventFor(item); evt != nil {
				emit(*evt)
				if final {
					return
				}
			}
		}
	}()
	return out, nil
}

// authEventFor maps a QR channel item; final reports whether pairing ended.
func authEventFor(item whatsmeow.QRChannelItem) (evt *AuthEvent, final bool) {
	switch item.Event {
	case "code":
		return &AuthEvent{Type: AuthEventQRCode, QRCode: item.Code}, false
	case "success":
		return &AuthEvent{Type: AuthEventAuthenticated, Message: "paired"}, true
	case "timeout":
		return &AuthEvent{Type: AuthEventTimeout, Message: "QR code timeout"}, true
	}
	if item.Error != nil {
		return &AuthEvent{Type: AuthEventAuthFailed, Message: item.Error.Error()}, true
	}
	return nil, false
}

func (a *Adapter) publishAuth(evt AuthEvent) {
	if a.bus == nil {
		return
	}
	kind := KindPairFailed
	switch evt.Type {
	case AuthEventQRCode:
		kind = KindPairQRCode
	case AuthEventAuthenticated:
		kind = KindPairAuthenticated
	}
	a.bus.Publish(bus.Event{Kind: kind, Payload: evt})
}
