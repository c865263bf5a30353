// Package kbucket implements the Kademlia routing table: 160 XOR-distance
// buckets with oldest-out replacement and closest-set queries. Grounded
// on the teacher's router.KademliaTable (bucket policy) and on
// diogo464-go-libp2p-kbucket's RoutingTable.NearestPeers (expand-outward
// traversal), reconciled with spec.md's fixed 160-bucket, caller-sorts
// contract — see DESIGN.md.
package kbucket

import (
	"kadcore/key"
	"kadcore/peer"
)

// NumBuckets is the fixed bucket count for a 160-bit key space.
const NumBuckets = key.DefaultSize

// RoutingTable holds one fixed bucket per distance shell around a local
// peer. It is safe for concurrent use: each bucket guards its own state.
type RoutingTable struct {
	self       peer.Peer
	bucketSize int
	buckets    [NumBuckets]*bucket
}

// NewRoutingTable creates a table centred on self with the given bucket
// capacity (DefaultCapacity if <= 0).
func NewRoutingTable(self peer.Peer, bucketSize int) *RoutingTable {
	if bucketSize <= 0 {
		bucketSize = DefaultCapacity
	}
	rt := &RoutingTable{self: self, bucketSize: bucketSize}
	for i := range rt.buckets {
		rt.buckets[i] = newBucket(bucketSize)
	}
	return rt
}

// Self returns the peer this table is centred on.
func (rt *RoutingTable) Self() peer.Peer { return rt.self }

// BucketSize returns k, this table's per-bucket capacity.
func (rt *RoutingTable) BucketSize() int { return rt.bucketSize }

// indexFor returns the bucket index for a key relative to self, or
// ok=false when the key is self's own (zero XOR distance).
func (rt *RoutingTable) indexFor(k key.Key) (int, bool) {
	dist, err := rt.self.Key.Xor(k)
	if err != nil {
		return 0, false
	}
	return dist.LeadingSetBitIndex()
}

// Insert places a peer into its bucket. Inserting self is a silent no-op,
// as is inserting a peer that isn't yet contacted (enforced by bucket).
func (rt *RoutingTable) Insert(p peer.Peer) {
	idx, ok := rt.indexFor(p.Key)
	if !ok {
		return
	}
	rt.buckets[idx].insert(p)
}

// ClosestFor gathers candidate peers for target, starting at target's
// home bucket and expanding outward by ±1, ±2, … until the table's
// bucket-size worth of peers has been accumulated or both directions are
// exhausted. The result is NOT sorted by XOR distance — callers (the
// lookup state machine) own final ordering and truncation, per spec.md
// §4.3/§9.
func (rt *RoutingTable) ClosestFor(target key.Key) []peer.Peer {
	idx, ok := rt.indexFor(target)
	if !ok {
		idx = 0
	}

	var out []peer.Peer
	seen := make(map[string]struct{})
	appendBucket := func(i int) {
		for _, p := range rt.buckets[i].snapshot() {
			k := p.Key.String()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, p)
		}
	}

	appendBucket(idx)
	for lo, hi := idx-1, idx+1; lo >= 0 || hi < NumBuckets; lo, hi = lo-1, hi+1 {
		if len(out) >= rt.bucketSize {
			break
		}
		if hi < NumBuckets {
			appendBucket(hi)
		}
		if len(out) >= rt.bucketSize {
			break
		}
		if lo >= 0 {
			appendBucket(lo)
		}
	}
	return out
}

// PeerCount returns the total number of peers held across all buckets.
func (rt *RoutingTable) PeerCount() int {
	total := 0
	for _, b := range rt.buckets {
		total += b.count()
	}
	return total
}
