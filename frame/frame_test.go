package frame_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kadcore/frame"
)

func TestBuildDecodeRoundTrip(t *testing.T) {
	payload := []byte("hello kademlia")
	raw := frame.Build(frame.TypeNormal, payload)

	gotType, gotPayload, err := frame.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, uint8(frame.TypeNormal), gotType)
	require.Equal(t, payload, gotPayload)
}

func TestDecodeRejectsShortData(t *testing.T) {
	_, _, err := frame.Decode([]byte{0x01, 0x00})
	require.ErrorIs(t, err, frame.ErrTooShort)
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	raw := frame.Build(frame.TypeNormal, []byte("abc"))
	truncated := raw[:len(raw)-1]

	_, _, err := frame.Decode(truncated)
	require.ErrorIs(t, err, frame.ErrLengthMismatch)
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	raw := frame.Build(frame.TypeNormal, []byte("abc"))
	withTrailer := append(raw, 0xFF, 0xFF)

	_, payload, err := frame.Decode(withTrailer)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), payload)
}
