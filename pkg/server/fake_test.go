package server

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/crystal-mush/tickmud/pkg/netpoll"
)

var errBroken = errors.New("broken pipe")

// fakeSocket is an in-memory Socket. Queued reads are handed out one per
// Recv; writes are captured until failWrites is set.
type fakeSocket struct {
	mu         sync.Mutex
	addr       string
	reads      []netpoll.Result
	written    [][]byte
	failWrites bool
	closed     int
	closeErr   error
}

func newFakeSocket(addr string) *fakeSocket {
	return &fakeSocket{addr: addr}
}

func (f *fakeSocket) feed(data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, netpoll.Result{Status: netpoll.Data, Bytes: []byte(data)})
}

func (f *fakeSocket) feedBytes(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, netpoll.Result{Status: netpoll.Data, Bytes: data})
}

func (f *fakeSocket) hangUp() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, netpoll.Result{Status: netpoll.Closed})
}

func (f *fakeSocket) breakWrites() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = true
}

// output returns everything written so far, concatenated.
func (f *fakeSocket) output() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s string
	for _, w := range f.written {
		s += string(w)
	}
	return s
}

func (f *fakeSocket) writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.written))
	copy(out, f.written)
	return out
}

func (f *fakeSocket) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSocket) PeerAddr() string { return f.addr }

func (f *fakeSocket) Readable() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reads) > 0, nil
}

func (f *fakeSocket) Recv(max int) netpoll.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reads) == 0 {
		return netpoll.Result{Status: netpoll.NoneReady}
	}
	r := f.reads[0]
	f.reads = f.reads[1:]
	if r.Status == netpoll.Data && len(r.Bytes) > max {
		r.Bytes = r.Bytes[:max]
	}
	return r
}

func (f *fakeSocket) SendAll(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errBroken
	}
	f.written = append(f.written, append([]byte(nil), p...))
	return nil
}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

// fakeListener hands out queued sockets. Pending can be forced true with an
// empty queue to simulate a peer that vanished between poll and accept.
type fakeListener struct {
	queue      []Socket
	spurious   bool
	acceptErr  error
	closed     int
	pendingErr error
}

func (l *fakeListener) dial(addr string) *fakeSocket {
	s := newFakeSocket(addr)
	l.queue = append(l.queue, s)
	return s
}

func (l *fakeListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4zero, Port: 23}
}

func (l *fakeListener) Pending() (bool, error) {
	if l.pendingErr != nil {
		return false, l.pendingErr
	}
	return len(l.queue) > 0 || l.spurious, nil
}

func (l *fakeListener) Accept() (Socket, error) {
	if l.acceptErr != nil {
		return nil, l.acceptErr
	}
	if len(l.queue) == 0 {
		return nil, netpoll.ErrNotPending
	}
	s := l.queue[0]
	l.queue = l.queue[1:]
	return s, nil
}

func (l *fakeListener) Close() error {
	l.closed++
	return nil
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// newTestServer builds a server on a fake listener with a fake clock.
func newTestServer() (*Server, *fakeListener, *fakeClock) {
	ln := &fakeListener{}
	clock := newFakeClock()
	srv := New(ln, DefaultConfig(), WithClock(clock.now))
	return srv, ln, clock
}

// join connects a client and names it, returning its id and socket with the
// prompt already consumed.
func join(srv *Server, ln *fakeListener, addr, name string) (int, *fakeSocket) {
	sock := ln.dial(addr)
	srv.Tick()
	ids := srv.IDs()
	id := ids[len(ids)-1]
	sock.feed(name + "\r\n")
	srv.Tick()
	return id, sock
}
