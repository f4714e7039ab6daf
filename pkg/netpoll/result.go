// Package netpoll provides non-blocking TCP sockets for a single-goroutine
// tick loop. Nothing in this package ever parks the caller: readiness checks
// use a zero-timeout poll, and reads, writes and accepts go straight to the
// file descriptor and report "nothing yet" instead of waiting.
package netpoll

import "errors"

// ErrNotPending is returned by Listener.Accept when no connection is waiting.
var ErrNotPending = errors.New("netpoll: no pending connection")

// Status classifies the outcome of a single read.
type Status int

const (
	NoneReady Status = iota // nothing to read right now
	Data                    // Result.Bytes holds what was read
	Closed                  // peer went away or the socket failed
)

func (s Status) String() string {
	switch s {
	case NoneReady:
		return "none-ready"
	case Data:
		return "data"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one Recv call.
type Result struct {
	Status Status
	Bytes  []byte
	Err    error // cause when Status is Closed; nil on a clean EOF
}
