// Package peer defines the node identity (Peer) and the Ed25519 key
// material a node derives its DHT key from. Adapted from the teacher's
// peer.PeerID/peer.KeyPair, retargeted onto kadcore/key.Key and extended
// with the contacted/last-contact bookkeeping routing requires.
package peer

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"time"

	"kadcore/key"
)

// Peer is a value-like routing entry: identity, transport address, and
// an optional last-contact timestamp. Two peers are considered the same
// routing entry iff their keys are equal — address is metadata, not
// identity.
type Peer struct {
	Key  key.Key
	IP   string
	Port int

	lastContact time.Time
	contacted   bool
}

// New builds a Peer that has not yet been observed (Contacted() is false).
func New(k key.Key, ip string, port int) Peer {
	return Peer{Key: k, IP: ip, Port: port}
}

// Equal reports whether two peers share the same key, ignoring address
// and contact state.
func (p Peer) Equal(other Peer) bool {
	return p.Key.Equal(other.Key)
}

// Contacted reports whether this peer has ever been directly observed —
// a message received from it, or a successful response.
func (p Peer) Contacted() bool { return p.contacted }

// LastContact returns the last-observed time and whether one exists.
func (p Peer) LastContact() (time.Time, bool) {
	return p.lastContact, p.contacted
}

// Observed returns a copy of p marked contacted at t, with its address
// updated to the one it was just observed at. Peers are value-like:
// re-observation at a new address does not create a new routing entry,
// it refreshes this one.
func (p Peer) Observed(ip string, port int, t time.Time) Peer {
	p.IP = ip
	p.Port = port
	p.lastContact = t
	p.contacted = true
	return p
}

// KeyPair is a node's Ed25519 identity. Its Key is derived the way the
// teacher derives a PeerID from a public key — a SHA-256 digest of the
// public key — truncated to the DHT's configured key size rather than
// kept as a full 256-bit digest.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	Key        key.Key
}

// NewKeyPair generates a fresh Ed25519 identity and derives its DHT key.
func NewKeyPair() (*KeyPair, error) {
	return NewKeyPairSize(key.DefaultSize)
}

// NewKeyPairSize is NewKeyPair with an explicit key size in bits, used by
// tests that want a smaller identifier space.
func NewKeyPairSize(bits int) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(pub)
	n := bits / 8
	if n > len(sum) {
		n = len(sum)
	}
	return &KeyPair{
		PublicKey:  pub,
		PrivateKey: priv,
		Key:        key.New(sum[:n]),
	}, nil
}
