package message_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kadcore/key"
	"kadcore/message"
	"kadcore/peer"
)

func mustKey(t *testing.T) key.Key {
	t.Helper()
	k, err := key.Random(key.DefaultSize)
	require.NoError(t, err)
	return k
}

func TestPingRoundTrip(t *testing.T) {
	src := peer.New(mustKey(t), "10.0.0.1", 9000)
	req := message.Ping(src)

	data, err := message.Marshal(req)
	require.NoError(t, err)

	got, err := message.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, message.KindPingRequest, got.Kind)
	require.Equal(t, req.ID, got.ID)
	require.True(t, src.Equal(got.Source))
}

func TestFindNodeRoundTripWithPeers(t *testing.T) {
	src := peer.New(mustKey(t), "10.0.0.1", 9000)
	target := mustKey(t)
	candidates := []peer.Peer{
		peer.New(mustKey(t), "10.0.0.2", 9001),
		peer.New(mustKey(t), "10.0.0.3", 9002),
	}

	req := message.FindNode(src, target)
	reply := message.FindNodeReply(req.ID, src, candidates)

	data, err := message.Marshal(reply)
	require.NoError(t, err)

	got, err := message.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, message.KindFindNodeResponse, got.Kind)
	require.Equal(t, req.ID, got.ID)
	require.Len(t, got.Peers, 2)
	require.True(t, candidates[0].Equal(got.Peers[0]))
	require.True(t, candidates[1].Equal(got.Peers[1]))
}

func TestCloneDoesNotAliasPeers(t *testing.T) {
	src := peer.New(mustKey(t), "10.0.0.1", 9000)
	reply := message.FindNodeReply("id", src, []peer.Peer{peer.New(mustKey(t), "a", 1)})

	clone := reply.Clone()
	clone.Peers[0] = peer.New(mustKey(t), "b", 2)

	require.NotEqual(t, clone.Peers[0].IP, reply.Peers[0].IP)
}

func TestEncryptDecryptPayloadRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	plaintext := []byte("kademlia payload")

	sealed, err := message.EncryptPayload(key, plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, sealed)

	opened, err := message.DecryptPayload(key, sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestDecryptPayloadRejectsShortCiphertext(t *testing.T) {
	key := make([]byte, 32)
	_, err := message.DecryptPayload(key, []byte{0x01, 0x02})
	require.ErrorIs(t, err, message.ErrCiphertextTooShort)
}
