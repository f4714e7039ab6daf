//go:build unix

package netpoll

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Listener is a listening TCP socket with non-blocking accept.
type Listener struct {
	ln  *net.TCPListener
	raw syscall.RawConn
}

// Listen binds addr with SO_REUSEADDR so a restart can reuse a just-released
// port.
func Listen(addr string) (*Listener, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, err
	}
	tl, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, fmt.Errorf("netpoll: unexpected listener type %T", ln)
	}
	raw, err := tl.SyscallConn()
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("netpoll: raw listener: %w", err)
	}
	return &Listener{ln: tl, raw: raw}, nil
}

func reuseAddr(network, address string, c syscall.RawConn) error {
	var serr error
	if err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return serr
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Pending reports whether a connection is waiting to be accepted.
func (l *Listener) Pending() (bool, error) {
	var ready bool
	var perr error
	if err := l.raw.Control(func(fd uintptr) {
		ready, perr = pollIn(int(fd))
	}); err != nil {
		return false, err
	}
	return ready, perr
}

// Accept takes one pending connection. It returns ErrNotPending instead of
// waiting when there is none, including when a peer that poll reported has
// already gone.
func (l *Listener) Accept() (*Conn, error) {
	var nfd int
	var aerr error
	// A listener's RawConn only supports Control. The runtime keeps the fd
	// non-blocking, so accept(2) here reports EAGAIN rather than waiting.
	err := l.raw.Control(func(fd uintptr) {
		syscall.ForkLock.RLock()
		defer syscall.ForkLock.RUnlock()
		for {
			nfd, _, aerr = unix.Accept(int(fd))
			if !errors.Is(aerr, unix.EINTR) {
				break
			}
		}
		if aerr == nil {
			unix.CloseOnExec(nfd)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("netpoll: accept: %w", err)
	}
	if errors.Is(aerr, unix.EAGAIN) || errors.Is(aerr, unix.ECONNABORTED) {
		return nil, ErrNotPending
	}
	if aerr != nil {
		return nil, fmt.Errorf("netpoll: accept: %w", aerr)
	}

	// FileConn dups the descriptor and registers the copy in non-blocking
	// mode, so the accepted fd is closed once wrapped.
	f := os.NewFile(uintptr(nfd), "tcp")
	fc, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("netpoll: wrap accepted fd: %w", err)
	}
	tcp, ok := fc.(*net.TCPConn)
	if !ok {
		fc.Close()
		return nil, fmt.Errorf("netpoll: unexpected conn type %T", fc)
	}
	return Wrap(tcp)
}

// Close stops listening.
func (l *Listener) Close() error {
	return l.ln.Close()
}
