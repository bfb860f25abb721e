package resource

// Handle is an opaque reference to a value in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind distinguishes the lifetime class of a reference table.
type Kind uint8

const (
	// Local references live for one native call frame.
	Local Kind = iota
	// Global references live until explicitly released.
	Global
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Global:
		return "global"
	default:
		return "unknown"
	}
}

// EventType identifies a reference lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventReleased
)

// Event represents a reference lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about reference lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Dropper is optionally implemented by values that need cleanup when their
// reference is released.
type Dropper interface {
	Drop()
}
