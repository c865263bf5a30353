// Package frame implements the length-prefixed wire container messages
// travel in over a stream-oriented transport. Grounded on the teacher's
// Frame v2 (its Frame v1, a fixed 1200-byte anonymity-padded layout, is
// dropped — nothing in this protocol needs fixed-size framing).
//
//	+---------+-------------+---------------+
//	|  Type   |   Length    |    Payload    |
//	| (1 B)   |   (2 B)     |   (N bytes)   |
//	+---------+-------------+---------------+
//
// This is a message-level length prefix, well suited to QUIC unidirectional
// streams: the sender writes once and closes the stream; the receiver reads
// the whole stream and gets one complete message.
package frame

import (
	"encoding/binary"
	"errors"
)

const (
	// HeaderSize is 1 byte Type + 2 bytes Length.
	HeaderSize = 3

	// TypeNormal marks a frame carrying an ordinary protocol message.
	TypeNormal = 0x01
)

// ErrTooShort is returned by Decode when data is smaller than HeaderSize.
var ErrTooShort = errors.New("frame: too short")

// ErrLengthMismatch is returned by Decode when the declared payload length
// doesn't fit within data.
var ErrLengthMismatch = errors.New("frame: length mismatch")

// Build serializes a frame of the given type wrapping payload.
func Build(t uint8, payload []byte) []byte {
	raw := make([]byte, HeaderSize+len(payload))
	raw[0] = t
	binary.BigEndian.PutUint16(raw[1:3], uint16(len(payload)))
	copy(raw[3:], payload)
	return raw
}

// Decode parses a frame's type and payload out of data.
func Decode(data []byte) (t uint8, payload []byte, err error) {
	if len(data) < HeaderSize {
		return 0, nil, ErrTooShort
	}

	t = data[0]
	length := binary.BigEndian.Uint16(data[1:3])
	if len(data) < HeaderSize+int(length) {
		return 0, nil, ErrLengthMismatch
	}

	return t, data[HeaderSize : HeaderSize+int(length)], nil
}
