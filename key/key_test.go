package key_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kadcore/key"
)

func TestXorSelfIsZero(t *testing.T) {
	k, err := key.Random(key.DefaultSize)
	require.NoError(t, err)

	dist, err := k.Xor(k)
	require.NoError(t, err)
	require.True(t, dist.IsZero())

	_, ok := dist.LeadingSetBitIndex()
	require.False(t, ok)
}

func TestXorSizeMismatch(t *testing.T) {
	a := key.New([]byte{0xFF})
	b := key.New([]byte{0xFF, 0xFF})
	_, err := a.Xor(b)
	require.ErrorIs(t, err, key.ErrSizeMismatch)
}

func TestRandomRejectsNonByteAligned(t *testing.T) {
	_, err := key.Random(159)
	require.ErrorIs(t, err, key.ErrInvalidKeySize)
}

func TestLeadingSetBitIndexScenarios(t *testing.T) {
	cases := []struct {
		name  string
		bytes []byte
		want  int
		ok    bool
	}{
		{"F000", []byte{0xF0, 0x00}, 15, true},
		{"0001", []byte{0x00, 0x01}, 0, true},
		{"0000", []byte{0x00, 0x00}, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			idx, ok := key.New(c.bytes).LeadingSetBitIndex()
			require.Equal(t, c.ok, ok)
			if ok {
				require.Equal(t, c.want, idx)
			}
		})
	}
}

func TestRoundTripBytes(t *testing.T) {
	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(i * 7)
	}
	k := key.New(data)
	require.Equal(t, data, k.Bytes())
}

func TestStringParseRoundTrip(t *testing.T) {
	k, err := key.Random(key.DefaultSize)
	require.NoError(t, err)

	parsed, err := key.Parse(k.String())
	require.NoError(t, err)
	require.True(t, k.Equal(parsed))
}

func TestLeadingSetBitIndexRange(t *testing.T) {
	fixed, err := key.Random(key.DefaultSize)
	require.NoError(t, err)

	seen := make(map[int]bool)
	const trials = 4_000_000
	for i := 0; i < trials; i++ {
		r, err := key.Random(fixed.Size())
		require.NoError(t, err)
		dist, err := fixed.Xor(r)
		require.NoError(t, err)
		idx, ok := dist.LeadingSetBitIndex()
		if !ok {
			continue
		}
		require.GreaterOrEqual(t, idx, 0)
		require.LessOrEqual(t, idx, fixed.Size()-1)
		seen[idx] = true
	}
	require.GreaterOrEqual(t, len(seen), 150)
}
