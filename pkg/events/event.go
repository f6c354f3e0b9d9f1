package events

// EventType classifies events for transport-specific encoding.
type EventType int

const (
	EvText       EventType = iota // Raw text (universal fallback)
	EvConnect                     // Player connected
	EvDisconnect                  // Player disconnected
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvText:
		return "text"
	case EvConnect:
		return "connect"
	case EvDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Event is a game event that flows through the event bus.
// Players are addressed by name; the bus matches names case-insensitively.
type Event struct {
	Type   EventType
	Player string // Recipient ("" for broadcast)
	Source string // Who generated the event
	Text   string // Pre-formatted text
}
