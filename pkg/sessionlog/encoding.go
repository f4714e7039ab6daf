package sessionlog

import (
	"bytes"
	"encoding/gob"
)

// encodeSession serializes a Session to bytes using gob.
func encodeSession(s *Session) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeSession deserializes bytes back into a Session.
func decodeSession(data []byte) (*Session, error) {
	var s Session
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
