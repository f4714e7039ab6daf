// Package events holds the per-tick occurrence log the server exposes to the
// game loop.
package events

// Queue is a double-buffered event log. Events appended during a tick land in
// the pending buffer; Swap publishes them as the current buffer, replacing
// whatever the previous tick published. Readers only ever see current.
//
// Queue is not safe for concurrent use.
type Queue struct {
	current []Event
	pending []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Append records ev in the pending buffer.
func (q *Queue) Append(ev Event) {
	q.pending = append(q.pending, ev)
}

// Swap publishes the pending buffer and starts a fresh one.
func (q *Queue) Swap() {
	q.current = q.pending
	q.pending = nil
}

// Pending returns the number of events waiting for the next Swap.
func (q *Queue) Pending() int {
	return len(q.pending)
}

// Events returns a copy of the current buffer.
func (q *Queue) Events() []Event {
	out := make([]Event, len(q.current))
	copy(out, q.current)
	return out
}

// NewPlayers returns the new-player events of the current buffer in order.
func (q *Queue) NewPlayers() []NewPlayer {
	var out []NewPlayer
	for _, ev := range q.current {
		if ev.Type == EvNewPlayer {
			out = append(out, NewPlayer{ID: ev.Client, Name: ev.Name})
		}
	}
	return out
}

// Disconnected returns the ids of clients that left, in order.
func (q *Queue) Disconnected() []int {
	var out []int
	for _, ev := range q.current {
		if ev.Type == EvPlayerLeft {
			out = append(out, ev.Client)
		}
	}
	return out
}

// Commands returns the command events of the current buffer in order.
func (q *Queue) Commands() []Command {
	var out []Command
	for _, ev := range q.current {
		if ev.Type == EvCommand {
			out = append(out, Command{ID: ev.Client, Verb: ev.Verb, Remainder: ev.Remainder})
		}
	}
	return out
}
