//go:build unix

package server

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"
)

// tickUntil ticks srv until cond holds, failing after two seconds.
func tickUntil(t *testing.T, srv *Server, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		srv.Tick()
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLoopbackSession(t *testing.T) {
	srv, err := Listen(Config{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Shutdown()

	conn, err := net.Dial("tcp", srv.ListenAddr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	tickUntil(t, srv, "accept", func() bool { return srv.Count() == 1 })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	prompt, err := r.ReadString('\n')
	if err != nil || prompt != "What is your name?\n" {
		t.Fatalf("prompt = %q, %v", prompt, err)
	}

	if _, err := conn.Write([]byte("\xff\xfb\x18Alice\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var id int
	tickUntil(t, srv, "name", func() bool {
		np := srv.NewPlayers()
		if len(np) == 1 && np[0].Name == "Alice" {
			id = np[0].ID
			return true
		}
		return false
	})
	if addr, _ := srv.Addr(id); addr != "127.0.0.1" {
		t.Errorf("Addr = %q, want 127.0.0.1", addr)
	}

	srv.Send(id, "Welcome, Alice.")
	line, err := r.ReadString('\n')
	if err != nil || line != "Welcome, Alice.\n" {
		t.Fatalf("welcome = %q, %v", line, err)
	}

	conn.Write([]byte("Say hello there\n"))
	tickUntil(t, srv, "command", func() bool {
		cmds := srv.Commands()
		return len(cmds) == 1 && cmds[0].Verb == "say" && cmds[0].Remainder == "hello there"
	})

	conn.Close()
	tickUntil(t, srv, "disconnect", func() bool {
		left := srv.DisconnectedPlayers()
		return len(left) == 1 && left[0] == id
	})
	if srv.Count() != 0 {
		t.Errorf("Count = %d after disconnect", srv.Count())
	}
}

func TestListenFailure(t *testing.T) {
	_, err := Listen(Config{Addr: "127.0.0.1:99999"})
	if err == nil {
		t.Fatal("Listen on invalid port succeeded")
	}
	if !strings.HasPrefix(err.Error(), "server: listen 127.0.0.1:99999:") {
		t.Errorf("error = %v", err)
	}
}

func TestShutdownClosesRealSockets(t *testing.T) {
	srv, err := Listen(Config{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := srv.ListenAddr().String()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	tickUntil(t, srv, "accept", func() bool { return srv.Count() == 1 })

	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	var rerr error
	for rerr == nil {
		_, rerr = conn.Read(buf)
	}
	if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
		t.Error("client socket still open after shutdown")
	}
	if c, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		c.Close()
		t.Error("listener still accepting after shutdown")
	}
}

func TestListenRegistersDialedClient(t *testing.T) {
	srv, err := Listen(Config{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Shutdown()

	conn, err := net.Dial("tcp", srv.ListenAddr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("Carol\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var named []string
	tickUntil(t, srv, "new player", func() bool {
		for _, p := range srv.NewPlayers() {
			named = append(named, p.Name)
		}
		return len(named) > 0
	})
	if len(named) != 1 || named[0] != "Carol" {
		t.Errorf("NewPlayers names = %v, want [Carol]", named)
	}
}

func TestResetBeforeAcceptIsSwallowed(t *testing.T) {
	srv, err := Listen(Config{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Shutdown()
	addr := srv.ListenAddr().String()

	gone, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	gone.(*net.TCPConn).SetLinger(0)
	gone.Close()

	// The reset peer must not stop later connections from being accepted.
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.Write([]byte("Dave\n"))

	var names []string
	tickUntil(t, srv, "second client named", func() bool {
		for _, p := range srv.NewPlayers() {
			names = append(names, p.Name)
		}
		return len(names) > 0
	})
	if names[0] != "Dave" {
		t.Errorf("NewPlayers = %v, want Dave", names)
	}
	tickUntil(t, srv, "reset client gone", func() bool { return srv.Count() == 1 })
}
