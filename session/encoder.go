package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

// Wire layout, version 1:
//
//	[1]  version
//	[1]  len(UserID)  [n] UserID
//	[1]  len(Role)    [n] Role
//	[8]  CreatedAt    unix seconds, big endian
//	[8]  ExpiresAt    unix seconds, big endian
//
// SessionID is the storage key and is not repeated in the blob.
const sessionFormatVersion = 1

const maxFieldLen = 255

var errUnsupportedVersion = errors.New("unsupported session schema version")

// Encode serializes sess. Timestamps are truncated to whole seconds.
func Encode(sess *Session) ([]byte, error) {
	if sess == nil {
		return nil, errors.New("session is nil")
	}

	var buf bytes.Buffer
	buf.Grow(2 + len(sess.UserID) + len(sess.Role) + 17)
	buf.WriteByte(sessionFormatVersion)

	if err := writeField(&buf, "userID", sess.UserID); err != nil {
		return nil, err
	}
	if err := writeField(&buf, "role", sess.Role); err != nil {
		return nil, err
	}

	var ts [16]byte
	binary.BigEndian.PutUint64(ts[0:8], uint64(sess.CreatedAt.Unix()))
	binary.BigEndian.PutUint64(ts[8:16], uint64(sess.ExpiresAt.Unix()))
	buf.Write(ts[:])

	return buf.Bytes(), nil
}

// Decode parses a blob written by Encode. Timestamps come back in UTC.
func Decode(data []byte) (*Session, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersion {
		return nil, errUnsupportedVersion
	}

	s := &Session{}
	if s.UserID, err = readField(r); err != nil {
		return nil, err
	}
	if s.Role, err = readField(r); err != nil {
		return nil, err
	}

	var created, expires int64
	if err := binary.Read(r, binary.BigEndian, &created); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &expires); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, errors.New("trailing bytes after session record")
	}

	s.CreatedAt = time.Unix(created, 0).UTC()
	s.ExpiresAt = time.Unix(expires, 0).UTC()
	return s, nil
}

func writeField(buf *bytes.Buffer, name, v string) error {
	if len(v) > maxFieldLen {
		return errors.New(name + " too long")
	}
	buf.WriteByte(byte(len(v)))
	buf.WriteString(v)
	return nil
}

func readField(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
