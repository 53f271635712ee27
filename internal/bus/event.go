package bus

import "time"

// Event kinds published by the daemon. Subscribers filter by prefix, so the
// part before the first dot acts as the namespace.
const (
	KindTypingStatus    = "realtime.typing_status"
	KindTypingChanged   = "presence.typing_changed"
	KindLinkStatus      = "link.status_changed"
	KindIdentityChanged = "identity.changed"
	KindCacheInvalidate = "cache.invalidated"
	KindPairing         = "pairing."
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
