// Package server is a non-blocking, single-goroutine Telnet front end. The
// caller drives it by calling Tick; each tick accepts new connections, probes
// idle clients, reads whatever input is ready, and publishes the events it
// found as one batch readable until the next tick.
package server

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/crystal-mush/tickmud/pkg/events"
	"github.com/crystal-mush/tickmud/pkg/netpoll"
	"github.com/rs/zerolog"
)

// Config holds server configuration.
type Config struct {
	Addr          string
	ProbeInterval time.Duration
	ReadChunk     int
	NamePrompt    string
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Addr:          "0.0.0.0:23",
		ProbeInterval: 5 * time.Second,
		ReadChunk:     4096,
		NamePrompt:    "What is your name?",
	}
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics records server activity in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server is the tick-driven Telnet server. It is not safe for concurrent use:
// Tick, Send and Shutdown must all be called from the same goroutine.
type Server struct {
	cfg     Config
	ln      Listener
	clients *registry
	queue   *events.Queue
	prompt  string

	log     zerolog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Listen binds cfg.Addr and returns a server ready to Tick. Bind failures are
// returned wrapped; nothing is retried.
func Listen(cfg Config, opts ...Option) (*Server, error) {
	ln, err := netpoll.Listen(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen %s: %w", cfg.Addr, err)
	}
	return New(netListener{ln}, cfg, opts...), nil
}

// New builds a server on an existing listener. Zero config fields take their
// DefaultConfig values.
func New(ln Listener, cfg Config, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = def.ProbeInterval
	}
	if cfg.ReadChunk <= 0 {
		cfg.ReadChunk = def.ReadChunk
	}
	if cfg.NamePrompt == "" {
		cfg.NamePrompt = def.NamePrompt
	}
	s := &Server{
		cfg:     cfg,
		ln:      ln,
		clients: newRegistry(),
		queue:   events.NewQueue(),
		prompt:  cfg.NamePrompt,
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick advances the server one step: accept, probe, read, then publish the
// events gathered in this step, replacing those of the previous one.
func (s *Server) Tick() {
	start := time.Now()
	s.acceptPending()
	s.probeIdle()
	s.readClients()
	s.queue.Swap()
	s.metrics.ticked(time.Since(start), s.clients.len())
}

// NewPlayers returns the clients that chose a name during the last tick.
func (s *Server) NewPlayers() []events.NewPlayer {
	return s.queue.NewPlayers()
}

// DisconnectedPlayers returns the ids of clients lost during the last tick.
func (s *Server) DisconnectedPlayers() []int {
	return s.queue.Disconnected()
}

// Commands returns the commands received during the last tick.
func (s *Server) Commands() []events.Command {
	return s.queue.Commands()
}

// Events returns every event of the last tick in detection order.
func (s *Server) Events() []events.Event {
	return s.queue.Events()
}

// Send writes text and a trailing newline to client id. A failed write
// disconnects the client; the PlayerLeft event appears after the next Tick.
// Unknown ids are ignored.
func (s *Server) Send(id int, text string) {
	if _, ok := s.clients.get(id); !ok {
		return
	}
	s.write(id, encodeLatin1(text+"\n"))
}

// SetNamePrompt changes the prompt sent to new connections.
func (s *Server) SetNamePrompt(text string) {
	s.prompt = text
}

// Addr returns the peer address of client id.
func (s *Server) Addr(id int) (string, bool) {
	c, ok := s.clients.get(id)
	return c.Addr, ok
}

// Count returns the number of connected clients.
func (s *Server) Count() int {
	return s.clients.len()
}

// IDs returns the connected client ids in ascending order.
func (s *Server) IDs() []int {
	return s.clients.ids()
}

// ListenAddr returns the address the listener is bound to.
func (s *Server) ListenAddr() net.Addr {
	return s.ln.Addr()
}

// Shutdown closes every client socket and then the listener. It must be
// called once, after the last Tick.
func (s *Server) Shutdown() error {
	var errs []error
	for _, id := range s.clients.ids() {
		c, _ := s.clients.remove(id)
		s.metrics.closed()
		if err := c.socket.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close client %d: %w", id, err))
		}
	}
	if err := s.ln.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close listener: %w", err))
	}
	s.log.Info().Msg("server shut down")
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// write sends p in full or disconnects the client.
func (s *Server) write(id int, p []byte) {
	c, ok := s.clients.get(id)
	if !ok {
		return
	}
	if err := c.socket.SendAll(p); err != nil {
		s.disconnect(id, err)
		return
	}
	s.metrics.sent(len(p))
}

// disconnect closes and forgets client id and records that it left. It is a
// no-op for ids already gone, so each client leaves exactly once.
func (s *Server) disconnect(id int, cause error) {
	c, ok := s.clients.remove(id)
	if !ok {
		return
	}
	closeErr := c.socket.Close()
	s.queue.Append(events.PlayerLeftEvent(id))
	s.metrics.disconnected()
	ev := s.log.Info().Int("client", id).Str("addr", c.Addr)
	if cause != nil {
		ev = ev.Err(cause)
	}
	ev.Msg("connection closed")
	if closeErr != nil {
		s.log.Debug().Int("client", id).Err(closeErr).Msg("close failed")
	}
}
