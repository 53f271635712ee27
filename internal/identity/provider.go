// Package identity holds who the session is signed in as. Components receive
// the identity explicitly from here instead of reading ambient state.
package identity

import (
	"sync"

	"github.com/candlelife/candle/internal/bus"
)

// Change is the payload of bus.KindIdentityChanged. An empty Current means
// the session signed out.
type Change struct {
	Previous string
	Current  string
}

// Provider is the current identity of the session, or none.
type Provider struct {
	bus *bus.Bus

	mu      sync.RWMutex
	current string
}

// NewProvider creates a signed-out provider. b may be nil.
func NewProvider(b *bus.Bus) *Provider {
	return &Provider{bus: b}
}

// Current returns the signed-in user id and whether there is one.
func (p *Provider) Current() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.current != ""
}

// SignIn sets the identity. Signing in as the current user changes nothing.
func (p *Provider) SignIn(userID string) {
	p.set(userID)
}

// SignOut clears the identity.
func (p *Provider) SignOut() {
	p.set("")
}

func (p *Provider) set(userID string) {
	p.mu.Lock()
	prev := p.current
	p.current = userID
	p.mu.Unlock()

	if prev == userID || p.bus == nil {
		return
	}
	p.bus.Publish(bus.Event{
		Kind:    bus.KindIdentityChanged,
		Payload: Change{Previous: prev, Current: userID},
	})
}
