package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	sessionFormatVersionCurrent = 1

	maxFieldLen = 255
)

var ErrInvalidRecord = errors.New("invalid session record")

// Encode serializes s without its Handle; the handle is the storage key.
//
// Layout (v1): version | len+SessionID | len+Username | UserID int64 | CreatedAt int64 | ExpiresAt int64
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if len(s.SessionID) == 0 {
		return nil, errors.New("sessionID is required")
	}
	if len(s.SessionID) > maxFieldLen {
		return nil, errors.New("sessionID too long")
	}
	if len(s.Username) > maxFieldLen {
		return nil, errors.New("username too long")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 1 + len(s.SessionID) + 1 + len(s.Username) + 24)

	buf.WriteByte(sessionFormatVersionCurrent)
	buf.WriteByte(byte(len(s.SessionID)))
	buf.WriteString(s.SessionID)
	buf.WriteByte(byte(len(s.Username)))
	buf.WriteString(s.Username)

	for _, v := range []int64{s.UserID, s.CreatedAt, s.ExpiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a record written by Encode and attaches handle.
func Decode(handle string, data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrInvalidRecord
	}
	if version != sessionFormatVersionCurrent {
		return nil, ErrInvalidRecord
	}

	sessionID, err := readString(reader)
	if err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, ErrInvalidRecord
	}
	username, err := readString(reader)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Handle:    handle,
		SessionID: sessionID,
		Username:  username,
	}
	for _, dst := range []*int64{&s.UserID, &s.CreatedAt, &s.ExpiresAt} {
		if err := binary.Read(reader, binary.BigEndian, dst); err != nil {
			return nil, ErrInvalidRecord
		}
	}
	if reader.Len() != 0 {
		return nil, ErrInvalidRecord
	}

	return s, nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", ErrInvalidRecord
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", ErrInvalidRecord
	}
	return string(b), nil
}
