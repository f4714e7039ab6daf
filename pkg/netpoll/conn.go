//go:build unix

package netpoll

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// Conn is a client TCP connection driven without blocking.
type Conn struct {
	tcp  *net.TCPConn
	raw  syscall.RawConn
	peer string
}

// Wrap adopts an established TCP connection.
func Wrap(c *net.TCPConn) (*Conn, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("netpoll: raw conn: %w", err)
	}
	peer := c.RemoteAddr().String()
	if ta, ok := c.RemoteAddr().(*net.TCPAddr); ok {
		peer = ta.IP.String()
	}
	return &Conn{tcp: c, raw: raw, peer: peer}, nil
}

// PeerAddr returns the remote IP address.
func (c *Conn) PeerAddr() string { return c.peer }

// Readable reports whether a Recv would return data or a closed result.
func (c *Conn) Readable() (bool, error) {
	var ready bool
	var perr error
	if err := c.raw.Control(func(fd uintptr) {
		ready, perr = pollIn(int(fd))
	}); err != nil {
		return false, err
	}
	return ready, perr
}

// Recv reads at most max bytes.
func (c *Conn) Recv(max int) Result {
	buf := make([]byte, max)
	var n int
	var rerr error
	err := c.raw.Read(func(fd uintptr) bool {
		for {
			n, rerr = unix.Read(int(fd), buf)
			if !errors.Is(rerr, unix.EINTR) {
				return true
			}
		}
	})
	switch {
	case err != nil:
		return Result{Status: Closed, Err: err}
	case errors.Is(rerr, unix.EAGAIN):
		return Result{Status: NoneReady}
	case rerr != nil:
		return Result{Status: Closed, Err: rerr}
	case n == 0:
		return Result{Status: Closed}
	}
	return Result{Status: Data, Bytes: buf[:n]}
}

// SendAll writes all of p or returns an error. A send buffer too full to take
// the rest of p is an error too; callers treat any error as a lost peer.
func (c *Conn) SendAll(p []byte) error {
	for len(p) > 0 {
		var n int
		var werr error
		err := c.raw.Write(func(fd uintptr) bool {
			for {
				n, werr = unix.Write(int(fd), p)
				if !errors.Is(werr, unix.EINTR) {
					return true
				}
			}
		})
		if err != nil {
			return fmt.Errorf("netpoll: write %s: %w", c.peer, err)
		}
		if werr != nil {
			return fmt.Errorf("netpoll: write %s: %w", c.peer, werr)
		}
		if n <= 0 {
			return fmt.Errorf("netpoll: write %s: %w", c.peer, io.ErrShortWrite)
		}
		p = p[n:]
	}
	return nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.tcp.Close()
}
