package events

// EventType tags the variant carried by an Event.
type EventType int

const (
	EvNewPlayer  EventType = iota + 1 // Client chose its name
	EvPlayerLeft                      // Client disconnected
	EvCommand                         // Named client sent a line
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvNewPlayer:
		return "new_player"
	case EvPlayerLeft:
		return "player_left"
	case EvCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Event is one occurrence detected during a tick. Which fields are meaningful
// depends on Type: Name for EvNewPlayer, Verb and Remainder for EvCommand.
type Event struct {
	Type      EventType
	Client    int
	Name      string
	Verb      string
	Remainder string
}

// NewPlayer is the projection of an EvNewPlayer event.
type NewPlayer struct {
	ID   int
	Name string
}

// Command is the projection of an EvCommand event.
type Command struct {
	ID        int
	Verb      string
	Remainder string
}

// NewPlayerEvent builds an EvNewPlayer event.
func NewPlayerEvent(id int, name string) Event {
	return Event{Type: EvNewPlayer, Client: id, Name: name}
}

// PlayerLeftEvent builds an EvPlayerLeft event.
func PlayerLeftEvent(id int) Event {
	return Event{Type: EvPlayerLeft, Client: id}
}

// CommandEvent builds an EvCommand event.
func CommandEvent(id int, verb, remainder string) Event {
	return Event{Type: EvCommand, Client: id, Verb: verb, Remainder: remainder}
}
