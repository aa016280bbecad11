package event_bus

// SessionEvictedType is published when a background refresh observes an
// authentication failure and the session's cached state must be dropped.
const SessionEvictedType EventType = "session.evicted"

type SessionEvicted struct {
	SessionUID string
}
