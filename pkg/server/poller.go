package server

import (
	"errors"
	"net"

	"github.com/crystal-mush/tickmud/pkg/netpoll"
)

// Socket is a non-blocking client connection. *netpoll.Conn implements it.
type Socket interface {
	PeerAddr() string
	Readable() (bool, error)
	Recv(max int) netpoll.Result
	SendAll(p []byte) error
	Close() error
}

// Listener is a non-blocking listening socket. Accept must return
// netpoll.ErrNotPending rather than wait when nothing is queued.
type Listener interface {
	Addr() net.Addr
	Pending() (bool, error)
	Accept() (Socket, error)
	Close() error
}

// netListener adapts *netpoll.Listener to Listener.
type netListener struct {
	*netpoll.Listener
}

func (l netListener) Accept() (Socket, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// acceptPending checks the listener once and, if it is ready, accepts until
// nothing is left. Accept errors end the phase quietly.
func (s *Server) acceptPending() {
	ready, err := s.ln.Pending()
	if err != nil {
		s.log.Debug().Err(err).Msg("listener poll failed")
		return
	}
	if !ready {
		return
	}
	for {
		sock, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, netpoll.ErrNotPending) {
				s.log.Debug().Err(err).Msg("accept failed")
			}
			return
		}
		s.register(sock)
	}
}

// register stores a freshly accepted socket and prompts for a name.
func (s *Server) register(sock Socket) {
	addr := sock.PeerAddr()
	id := s.clients.register(sock, addr, s.now())
	s.metrics.connected()
	s.log.Info().Int("client", id).Str("addr", addr).Msg("new connection")
	s.Send(id, s.prompt)
}
