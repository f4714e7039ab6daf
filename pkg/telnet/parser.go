package telnet

type readState int

const (
	stateNormal readState = iota
	stateCommand
	stateSubneg
)

// Process feeds one received chunk through the control-code state machine.
//
// buf holds the client's unterminated bytes from earlier reads. If chunk
// completes a line, Process returns that line (without the '\n'), ok=true and
// an empty rest; any bytes following the first newline in chunk are dropped.
// Otherwise it returns ok=false and rest holds buf plus the text bytes of
// chunk.
//
// State starts at normal on every call, so an IAC whose option byte arrives in
// the next read leaves that option byte to be read as text.
func Process(buf, chunk []byte) (line []byte, ok bool, rest []byte) {
	rest = buf
	state := stateNormal
	for _, c := range chunk {
		switch state {
		case stateNormal:
			switch c {
			case IAC:
				state = stateCommand
			case '\n':
				return rest, true, nil
			default:
				rest = append(rest, c)
			}
		case stateCommand:
			switch c {
			case SB:
				state = stateSubneg
			case WILL, WONT, DO, DONT:
				// next byte is the option code
			default:
				state = stateNormal
			}
		case stateSubneg:
			if c == SE {
				state = stateNormal
			}
		}
	}
	return nil, false, rest
}
