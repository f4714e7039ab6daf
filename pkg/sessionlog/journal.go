// Package sessionlog keeps a bbolt journal of player sessions: who connected,
// from where, and for how long. Every process start gets a fresh boot id so
// client ids, which restart at zero, never collide across runs.
package sessionlog

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"
)

// Session is one named connection.
type Session struct {
	Boot   uuid.UUID
	Client int
	Name   string
	Addr   string
	Joined time.Time
	Left   time.Time // zero while the session is open
}

// Open reports whether the session has not ended yet.
func (s Session) Open() bool {
	return s.Left.IsZero()
}

// Journal wraps a bbolt database of sessions for one boot.
type Journal struct {
	bolt  *bbolt.DB
	boot  uuid.UUID
	boots int
}

// Open opens or creates the journal at path and starts a new boot. Sessions
// a previous boot left open are closed at the current time, since their
// connections died with that process.
func Open(path string) (*Journal, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("sessionlog: open %s: %w", path, err)
	}

	j := &Journal{bolt: db, boot: uuid.New()}
	now := time.Now()
	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketSessions); err != nil {
			return err
		}
		j.boots = keyToInt(meta.Get(keyBoots)) + 1
		if err := meta.Put(keyBoots, intToKey(j.boots)); err != nil {
			return err
		}
		return closeStale(tx, now)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sessionlog: init %s: %w", path, err)
	}
	return j, nil
}

// closeStale stamps Left on every session still open.
func closeStale(tx *bbolt.Tx, now time.Time) error {
	b := tx.Bucket(bucketSessions)
	var stale []*Session
	err := b.ForEach(func(k, v []byte) error {
		s, err := decodeSession(v)
		if err != nil {
			return fmt.Errorf("decode session %x: %w", k, err)
		}
		if s.Open() {
			stale = append(stale, s)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, s := range stale {
		s.Left = now
		data, err := encodeSession(s)
		if err != nil {
			return err
		}
		if err := b.Put(sessionKey(s.Boot, s.Client), data); err != nil {
			return err
		}
	}
	return nil
}

// Boot returns this run's boot id.
func (j *Journal) Boot() uuid.UUID {
	return j.boot
}

// Boots returns how many times the journal has been opened, this run included.
func (j *Journal) Boots() int {
	return j.boots
}

// Path returns the filesystem path of the underlying bbolt database.
func (j *Journal) Path() string {
	return j.bolt.Path()
}

// Close closes the underlying bbolt database.
func (j *Journal) Close() error {
	return j.bolt.Close()
}

// Join records that client id took name, connecting from addr.
func (j *Journal) Join(id int, name, addr string, at time.Time) error {
	s := &Session{Boot: j.boot, Client: id, Name: name, Addr: addr, Joined: at}
	data, err := encodeSession(s)
	if err != nil {
		return fmt.Errorf("sessionlog: encode session %d: %w", id, err)
	}
	return j.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).Put(sessionKey(j.boot, id), data)
	})
}

// Leave closes the session of client id. Clients that never joined, and
// sessions already closed, are left alone.
func (j *Journal) Leave(id int, at time.Time) error {
	return j.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		key := sessionKey(j.boot, id)
		v := b.Get(key)
		if v == nil {
			return nil
		}
		s, err := decodeSession(v)
		if err != nil {
			return fmt.Errorf("sessionlog: decode session %d: %w", id, err)
		}
		if !s.Open() {
			return nil
		}
		s.Left = at
		data, err := encodeSession(s)
		if err != nil {
			return fmt.Errorf("sessionlog: encode session %d: %w", id, err)
		}
		return b.Put(key, data)
	})
}

// Get returns the session of client id in the current boot.
func (j *Journal) Get(id int) (Session, bool, error) {
	var (
		s     Session
		found bool
	)
	err := j.bolt.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketSessions).Get(sessionKey(j.boot, id))
		if v == nil {
			return nil
		}
		got, err := decodeSession(v)
		if err != nil {
			return fmt.Errorf("sessionlog: decode session %d: %w", id, err)
		}
		s, found = *got, true
		return nil
	})
	return s, found, err
}

// Recent returns up to n sessions, most recently joined first, across all
// boots. n <= 0 returns every session.
func (j *Journal) Recent(n int) ([]Session, error) {
	var all []Session
	err := j.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).ForEach(func(k, v []byte) error {
			s, err := decodeSession(v)
			if err != nil {
				boot, id := keyToSession(k)
				return fmt.Errorf("sessionlog: decode session %s/%d: %w", boot, id, err)
			}
			all = append(all, *s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(all, func(a, b Session) int {
		return b.Joined.Compare(a.Joined)
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}
