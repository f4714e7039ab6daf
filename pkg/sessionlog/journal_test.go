package sessionlog

import (
	"path/filepath"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return j, path
}

func TestJoinAndLeave(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	if err := j.Join(0, "Alice", "10.0.0.1", t0); err != nil {
		t.Fatalf("Join: %v", err)
	}
	s, ok, err := j.Get(0)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if s.Name != "Alice" || s.Addr != "10.0.0.1" || !s.Joined.Equal(t0) || !s.Open() {
		t.Errorf("session = %+v", s)
	}
	if s.Boot != j.Boot() {
		t.Errorf("boot = %s, want %s", s.Boot, j.Boot())
	}

	if err := j.Leave(0, t0.Add(time.Minute)); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	s, _, _ = j.Get(0)
	if !s.Left.Equal(t0.Add(time.Minute)) {
		t.Errorf("Left = %v", s.Left)
	}

	if err := j.Leave(0, t0.Add(time.Hour)); err != nil {
		t.Fatalf("second Leave: %v", err)
	}
	s, _, _ = j.Get(0)
	if !s.Left.Equal(t0.Add(time.Minute)) {
		t.Errorf("second Leave moved Left to %v", s.Left)
	}
}

func TestLeaveUnknownIsNoop(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	if err := j.Leave(42, t0); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if _, ok, _ := j.Get(42); ok {
		t.Error("Leave created a session")
	}
}

func TestRecentNewestFirst(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	names := []string{"Alice", "Bob", "Carol", "Dave"}
	for i, name := range names {
		if err := j.Join(i, name, "10.0.0.1", t0.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Join %s: %v", name, err)
		}
	}

	got, err := j.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	want := []string{"Dave", "Carol", "Bob"}
	if len(got) != len(want) {
		t.Fatalf("Recent returned %d sessions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Errorf("Recent[%d] = %s, want %s", i, got[i].Name, want[i])
		}
	}

	all, _ := j.Recent(0)
	if len(all) != 4 {
		t.Errorf("Recent(0) returned %d, want 4", len(all))
	}
}

func TestReopenStartsNewBoot(t *testing.T) {
	j, path := openTemp(t)
	first := j.Boot()
	if err := j.Join(0, "Alice", "10.0.0.1", t0); err != nil {
		t.Fatalf("Join: %v", err)
	}
	j.Close()

	j, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()

	if j.Boot() == first {
		t.Error("boot id reused across opens")
	}
	if j.Boots() != 2 {
		t.Errorf("Boots = %d, want 2", j.Boots())
	}

	if err := j.Join(0, "Bob", "10.0.0.2", t0.Add(time.Hour)); err != nil {
		t.Fatalf("Join: %v", err)
	}
	all, err := j.Recent(0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("client id 0 collided across boots: %d sessions", len(all))
	}
	if all[1].Name != "Alice" || all[1].Open() {
		t.Errorf("previous boot's session not closed: %+v", all[1])
	}
	if all[0].Name != "Bob" || !all[0].Open() {
		t.Errorf("current session = %+v", all[0])
	}
}

func TestSessionKeyRoundTrip(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	boot, id := keyToSession(sessionKey(j.Boot(), 1234))
	if boot != j.Boot() || id != 1234 {
		t.Errorf("keyToSession = %s, %d", boot, id)
	}
}
