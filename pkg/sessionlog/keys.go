package sessionlog

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Bucket name constants for bbolt storage.
var (
	bucketMeta     = []byte("meta")
	bucketSessions = []byte("sessions")
)

// Meta key constants.
var (
	keyBoots = []byte("boots")
)

// sessionKey builds the 24-byte key for a session: the boot id followed by
// the client id, big-endian, so one boot's sessions sort by id.
func sessionKey(boot uuid.UUID, id int) []byte {
	buf := make([]byte, 24)
	copy(buf, boot[:])
	binary.BigEndian.PutUint64(buf[16:], uint64(id))
	return buf
}

// keyToSession splits a session key back into boot and client id.
func keyToSession(b []byte) (uuid.UUID, int) {
	var boot uuid.UUID
	copy(boot[:], b[:16])
	return boot, int(binary.BigEndian.Uint64(b[16:]))
}

func intToKey(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

func keyToInt(b []byte) int {
	if len(b) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(b))
}
