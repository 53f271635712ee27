// Package presence relays "is typing" indicators between two users. Outbound
// changes go to the backend as a remote procedure; inbound changes arrive on a
// realtime subscription filtered to the signed-in identity and decay back to
// idle when no renewal arrives.
package presence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/bus"
	"github.com/candlelife/candle/internal/logging"
	"github.com/candlelife/candle/internal/status"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultDecay is how long a typing indicator stays on without renewal.
const DefaultDecay = 3 * time.Second

// ErrNoIdentity is returned by Attach when called without an identity.
var ErrNoIdentity = errors.New("no identity to attach")

// TypingChanged is the payload of bus.KindTypingChanged.
type TypingChanged struct {
	UserID   string
	IsTyping bool
}

type entry struct {
	typing    bool
	expiresAt time.Time
	updatedAt time.Time
	gen       uint64
	timer     clockwork.Timer
}

func (e *entry) active(now time.Time) bool {
	return e.typing && now.Before(e.expiresAt)
}

// Options configures a Tracker. Zero values take the defaults.
type Options struct {
	Decay  time.Duration
	Clock  clockwork.Clock
	Bus    *bus.Bus
	Logger *zap.Logger
}

// Tracker holds who is currently typing to the attached identity.
type Tracker struct {
	caller   backend.Caller
	realtime backend.Realtime
	link     *status.Machine
	bus      *bus.Bus
	clock    clockwork.Clock
	decay    time.Duration
	logger   *zap.Logger

	// attachMu serializes Attach and Detach; mu guards the fields below it.
	attachMu sync.Mutex
	mu       sync.Mutex
	self     string
	sub      backend.Subscription
	entries  map[string]*entry
	gen      uint64
}

// NewTracker creates a detached tracker.
func NewTracker(caller backend.Caller, rt backend.Realtime, opts Options) *Tracker {
	if opts.Decay <= 0 {
		opts.Decay = DefaultDecay
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Tracker{
		caller:   caller,
		realtime: rt,
		link:     status.NewMachine(opts.Bus),
		bus:      opts.Bus,
		clock:    opts.Clock,
		decay:    opts.Decay,
		logger:   logging.OrNop(opts.Logger),
		entries:  make(map[string]*entry),
	}
}

// SendTypingStatus tells otherUserID whether selfID is composing. Without an
// identity it does nothing. Transport failures are logged and dropped; a lost
// indicator is corrected by the next one or by decay on the receiving side.
func (t *Tracker) SendTypingStatus(ctx context.Context, selfID, otherUserID string, isTyping bool) {
	if selfID == "" {
		return
	}
	if otherUserID == "" {
		t.logger.Debug("typing status without recipient dropped", zap.String("user_id", selfID))
		return
	}
	err := t.caller.Call(ctx, backend.ProcUpdateTypingStatus, backend.TypingParams(selfID, otherUserID, isTyping))
	if err != nil {
		t.logger.Warn("send typing status failed",
			zap.String("target_id", otherUserID),
			zap.Bool("is_typing", isTyping),
			zap.Error(err))
	}
}

// IsUserTyping reports whether userID is typing to the attached identity right now.
func (t *Tracker) IsUserTyping(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[userID]
	if !ok {
		return false
	}
	return e.active(t.clock.Now())
}

// Typing lists the users currently typing to the attached identity, sorted.
func (t *Tracker) Typing() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	var ids []string
	for id, e := range t.entries {
		if e.active(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Self returns the attached identity, or "" when detached.
func (t *Tracker) Self() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.self
}

// Link returns the state of the inbound subscription.
func (t *Tracker) Link() status.State {
	return t.link.Current()
}

// LinkSince returns when the subscription entered its current state.
func (t *Tracker) LinkSince() time.Time {
	return t.link.Since()
}

// Decay returns the configured decay interval.
func (t *Tracker) Decay() time.Duration {
	return t.decay
}

// Attach opens the inbound channel for selfID. Attaching the identity that is
// already live is a no-op; attaching another identity closes the previous
// channel first. When the subscription cannot be opened the link goes
// DEGRADED and the error is returned; sends and lookups keep working and a
// later Attach retries.
func (t *Tracker) Attach(ctx context.Context, selfID string) error {
	if selfID == "" {
		return ErrNoIdentity
	}
	t.attachMu.Lock()
	defer t.attachMu.Unlock()

	cur := t.Self()
	if cur == selfID && t.link.Current() == status.Live {
		return nil
	}
	if cur != "" && cur != selfID {
		t.detachLocked()
	}

	t.mu.Lock()
	t.self = selfID
	t.mu.Unlock()

	if err := t.link.Transition(status.Subscribing); err != nil {
		return err
	}
	sub, err := t.realtime.SubscribeTyping(ctx, selfID, t.apply)
	if err != nil {
		t.logger.Error("typing subscription failed", zap.String("self_id", selfID), zap.Error(err))
		_ = t.link.Transition(status.Degraded)
		return fmt.Errorf("subscribe typing: %w", err)
	}

	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()
	_ = t.link.Transition(status.Live)
	t.logger.Info("typing subscription live", zap.String("self_id", selfID))
	return nil
}

// Detach closes the inbound channel, stops every pending expiry and forgets
// all typing state.
func (t *Tracker) Detach() {
	t.attachMu.Lock()
	defer t.attachMu.Unlock()
	t.detachLocked()
}

func (t *Tracker) detachLocked() {
	t.mu.Lock()
	sub := t.sub
	self := t.self
	t.sub = nil
	t.self = ""
	for _, e := range t.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	t.entries = make(map[string]*entry)
	t.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			t.logger.Warn("close typing subscription", zap.Error(err))
		}
	}
	t.link.Reset()
	if self != "" {
		t.logger.Info("typing subscription closed", zap.String("self_id", self))
	}
}

// apply handles one inbound change. Changes addressed to anyone but the
// attached identity, and changes older than the last one applied for the same
// actor, are ignored.
func (t *Tracker) apply(c backend.TypingChange) {
	t.mu.Lock()
	if t.self == "" || c.TargetID != t.self || c.UserID == "" {
		t.mu.Unlock()
		return
	}
	e, ok := t.entries[c.UserID]
	if !ok {
		e = &entry{}
		t.entries[c.UserID] = e
	}
	if !c.UpdatedAt.IsZero() {
		if c.UpdatedAt.Before(e.updatedAt) {
			t.mu.Unlock()
			t.logger.Debug("out-of-order typing change dropped",
				zap.String("user_id", c.UserID),
				zap.Time("updated_at", c.UpdatedAt),
				zap.Time("last_applied", e.updatedAt))
			return
		}
		e.updatedAt = c.UpdatedAt
	}

	now := t.clock.Now()
	was := e.typing
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	t.gen++
	e.gen = t.gen
	if c.IsTyping {
		e.typing = true
		e.expiresAt = now.Add(t.decay)
		gen, user := e.gen, c.UserID
		e.timer = t.clock.AfterFunc(t.decay, func() { t.expire(user, gen) })
	} else {
		e.typing = false
		e.expiresAt = time.Time{}
	}
	t.mu.Unlock()

	if was != c.IsTyping {
		t.publish(c.UserID, c.IsTyping)
	}
}

// expire is run by the decay timer of generation gen. A timer that was
// superseded by a later change finds a different generation and does nothing.
func (t *Tracker) expire(userID string, gen uint64) {
	t.mu.Lock()
	e, ok := t.entries[userID]
	if !ok || e.gen != gen || !e.typing {
		t.mu.Unlock()
		return
	}
	e.typing = false
	e.timer = nil
	t.mu.Unlock()

	t.publish(userID, false)
}

func (t *Tracker) publish(userID string, typing bool) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(bus.Event{
		Kind:    bus.KindTypingChanged,
		Payload: TypingChanged{UserID: userID, IsTyping: typing},
	})
}
