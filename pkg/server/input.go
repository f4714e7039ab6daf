package server

import (
	"strings"
	"unicode"

	"github.com/crystal-mush/tickmud/pkg/events"
	"github.com/crystal-mush/tickmud/pkg/netpoll"
	"github.com/crystal-mush/tickmud/pkg/telnet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// readClients reads once from every client that has input ready.
func (s *Server) readClients() {
	for _, id := range s.clients.ids() {
		c, ok := s.clients.get(id)
		if !ok {
			continue
		}
		ready, err := c.socket.Readable()
		if err != nil {
			s.disconnect(id, err)
			continue
		}
		if !ready {
			continue
		}

		res := c.socket.Recv(s.cfg.ReadChunk)
		switch res.Status {
		case netpoll.NoneReady:
			continue
		case netpoll.Closed:
			s.disconnect(id, res.Err)
			continue
		}
		s.metrics.received(len(res.Bytes))

		line, done, rest := telnet.Process(c.Buffer, res.Bytes)
		s.clients.update(id, func(c *Client) { c.Buffer = rest })
		if done {
			s.handleLine(id, line)
		}
	}
}

// handleLine turns a completed line into an event. The first line a client
// sends is its name; every later one is a command.
func (s *Server) handleLine(id int, raw []byte) {
	text := strings.TrimSpace(decodeLatin1(raw))

	c, _ := s.clients.get(id)
	if !c.Named {
		s.clients.update(id, func(c *Client) { c.Named = true })
		s.queue.Append(events.NewPlayerEvent(id, text))
		s.metrics.named()
		s.log.Info().Int("client", id).Str("name", text).Msg("player named")
		return
	}

	verb, rest := SplitCommand(text)
	s.queue.Append(events.CommandEvent(id, verb, rest))
	s.metrics.command()
	s.log.Debug().Int("client", id).Str("verb", verb).Str("args", rest).Msg("command")
}

// SplitCommand splits a trimmed line into its lower-cased first word and the
// rest of the line. Either part may be empty. Any Unicode space separates the
// verb, and runs of it are trimmed from the rest, so "say  hi" gives "hi"
// rather than the " hi" a split on a single ' ' would give.
func SplitCommand(text string) (verb, rest string) {
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return strings.ToLower(text), ""
	}
	return strings.ToLower(text[:i]), strings.TrimLeftFunc(text[i:], unicode.IsSpace)
}

// decodeLatin1 maps wire bytes one-to-one onto runes U+0000..U+00FF.
func decodeLatin1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// encodeLatin1 maps text onto wire bytes; runes above U+00FF become the
// charset's substitute byte.
func encodeLatin1(text string) []byte {
	out, err := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).Bytes([]byte(text))
	if err != nil {
		return []byte(text)
	}
	return out
}
