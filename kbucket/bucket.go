package kbucket

import (
	"sync"

	"kadcore/peer"
)

// DefaultCapacity is k, the bucket capacity fixed by the spec.
const DefaultCapacity = 20

// bucket is a bounded, recency-ordered list of contacted peers. Position 0
// is the most recently observed peer. Grounded on the teacher's
// router.KademliaTable's per-bucket slice and its oldest-out eviction —
// deliberately simpler than a liveness-probing bucket: the oldest entry
// is evicted without being pinged first.
type bucket struct {
	mu       sync.Mutex
	capacity int
	peers    []peer.Peer
}

func newBucket(capacity int) *bucket {
	return &bucket{capacity: capacity}
}

// insert is a no-op for peers that are not yet contacted, and a no-op if
// an entry with the same key is already present (no move-to-front).
// Otherwise it prepends, evicting the oldest (tail) entry first if full.
func (b *bucket) insert(p peer.Peer) {
	if !p.Contacted() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.peers {
		if existing.Equal(p) {
			return
		}
	}

	if len(b.peers) >= b.capacity {
		b.peers = b.peers[:len(b.peers)-1]
	}
	b.peers = append([]peer.Peer{p}, b.peers...)
}

// snapshot returns a recency-ordered copy of the bucket's peers, most-recent first.
func (b *bucket) snapshot() []peer.Peer {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]peer.Peer, len(b.peers))
	copy(out, b.peers)
	return out
}

func (b *bucket) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.peers)
}
