package node

import (
	"context"
	"sort"

	"kadcore/key"
	"kadcore/message"
	"kadcore/peer"
)

// lookup implements the α-parallel iterative FindNode search described
// in spec.md §4.5. One lookup instance is single-use: created by
// Node.Find and discarded once run returns.
type lookup struct {
	node   *Node
	target key.Key
	k      int
	alpha  int

	closest  []peer.Peer     // ascending XOR distance to target, len <= k
	queried  map[string]bool // peer key string -> queried
	inFlight map[string]bool // peer key string -> call outstanding
}

func newLookup(n *Node, target key.Key) *lookup {
	return &lookup{
		node:     n,
		target:   target,
		k:        n.table.BucketSize(),
		alpha:    n.alpha,
		queried:  make(map[string]bool),
		inFlight: make(map[string]bool),
	}
}

type lookupResult struct {
	source peer.Peer
	peers  []peer.Peer
	err    error
}

// run drives the lookup to convergence: every iteration either starts a
// new call, resolves one, or terminates, per the §4.5 invariant.
func (l *lookup) run(ctx context.Context) ([]peer.Peer, error) {
	l.closest = l.node.table.ClosestFor(l.target)
	l.addCandidate(l.node.self)
	l.queried[l.node.self.Key.String()] = true
	l.sortAndTruncate()

	results := make(chan lookupResult, l.alpha)

	for {
		dispatched := l.dispatchEligible(ctx, results)

		if len(l.inFlight) == 0 {
			// step 2d: nothing outstanding and nothing new to start means
			// every candidate in closest has been queried.
			return l.closest, nil
		}

		if dispatched == 0 {
			// step 2b: no new call could start this round; at least one is
			// outstanding, so block for its resolution.
		}

		res := <-results
		delete(l.inFlight, res.source.Key.String())
		l.queried[res.source.Key.String()] = true

		if res.err == nil {
			for _, p := range res.peers {
				l.addCandidate(p)
			}
		}

		l.sortAndTruncate()
	}
}

// dispatchEligible starts calls for every peer in closest that is
// neither queried nor in flight, up to the α bound, returning how many
// new calls it started this round.
func (l *lookup) dispatchEligible(ctx context.Context, results chan<- lookupResult) int {
	started := 0
	for len(l.inFlight) < l.alpha {
		p, ok := l.nextEligible()
		if !ok {
			break
		}
		l.inFlight[p.Key.String()] = true
		go l.queryOne(ctx, p, results)
		started++
	}
	return started
}

func (l *lookup) nextEligible() (peer.Peer, bool) {
	for _, p := range l.closest {
		ks := p.Key.String()
		if l.queried[ks] || l.inFlight[ks] {
			continue
		}
		return p, true
	}
	return peer.Peer{}, false
}

func (l *lookup) queryOne(ctx context.Context, p peer.Peer, results chan<- lookupResult) {
	req := message.FindNode(l.node.self, l.target)
	resp, err := l.node.Call(ctx, p, req, message.KindFindNodeResponse)
	if err != nil {
		// A timed-out peer is queried-with-no-contribution, per §4.5's
		// failure semantics, not a lookup failure.
		results <- lookupResult{source: p, err: err}
		return
	}
	results <- lookupResult{source: p, peers: resp.Peers}
}

func (l *lookup) addCandidate(p peer.Peer) {
	ks := p.Key.String()
	if l.queried[ks] || l.inFlight[ks] {
		return
	}
	for _, existing := range l.closest {
		if existing.Equal(p) {
			return
		}
	}
	l.closest = append(l.closest, p)
}

// sortAndTruncate re-sorts closest by XOR distance to target ascending
// and truncates to k, per step 2c.
func (l *lookup) sortAndTruncate() {
	sort.Slice(l.closest, func(i, j int) bool {
		di, _ := l.closest[i].Key.Xor(l.target)
		dj, _ := l.closest[j].Key.Xor(l.target)
		return less(di, dj)
	})
	if len(l.closest) > l.k {
		l.closest = l.closest[:l.k]
	}
}

// less reports whether a represents a smaller big-endian integer than b.
// Both are XOR-distance keys of equal size.
func less(a, b key.Key) bool {
	ab, bb := a.Bytes(), b.Bytes()
	for i := range ab {
		if ab[i] != bb[i] {
			return ab[i] < bb[i]
		}
	}
	return false
}
