package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/candlelife/candle/internal/bus"
)

// State is the state of the inbound presence link for the signed-in identity.
type State string

const (
	Detached    State = "DETACHED"
	Subscribing State = "SUBSCRIBING"
	Live        State = "LIVE"
	Degraded    State = "DEGRADED"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Detached:    {Subscribing},
	Subscribing: {Live, Degraded, Detached},
	Live:        {Detached},
	Degraded:    {Subscribing, Detached},
}

// Machine tracks and enforces link state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	since   time.Time
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Detached state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Detached,
		since:   time.Now(),
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Since returns when the current state was entered.
func (m *Machine) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.since = time.Now()
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindLinkStatus,
			Timestamp: m.since,
			Payload:   StatusChange{From: from, To: to},
		})
	}
	return nil
}

// Reset moves the machine to Detached unless it is already there.
func (m *Machine) Reset() {
	if m.Current() == Detached {
		return
	}
	_ = m.Transition(Detached)
}

// StatusChange is the payload for link status events.
type StatusChange struct {
	From State
	To   State
}
