// Package node implements the Node actor: the component that owns one
// Peer identity and one routing table, serves inbound requests, and
// drives bootstrap and lookups against a transport.Fabric. Grounded on
// the teacher's rpc.Client/Server pair (pending-call map keyed by
// request id, register-before-send, timer-based timeout) and
// netquic.Node (the single-purpose inbound dispatch loop), fused into
// one actor per spec.md §4.4/§5: the actor's inbox plays the role the
// teacher splits between Client.pending and Server.handlers.
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"kadcore/kbucket"
	"kadcore/key"
	"kadcore/message"
	"kadcore/peer"
	"kadcore/transport"
)

// DefaultAlpha is the iterative lookup parallelism bound.
const DefaultAlpha = 3

// DefaultCallTimeout bounds every outstanding call; the source had no
// such bound (see DESIGN.md), so every call here is guarded by a timer.
const DefaultCallTimeout = 5 * time.Second

// DefaultInboxSize is the buffered inbox capacity; Handle enqueues and
// never blocks the fabric's delivery goroutine under normal load.
const DefaultInboxSize = 256

type pendingCall struct {
	expect message.Kind
	done   chan message.Message
}

// Node is a Kademlia actor: one identity, one routing table, one inbox
// goroutine serialising all inbound message handling.
type Node struct {
	self    peer.Peer
	table   *kbucket.RoutingTable
	fabric  transport.Fabric
	log     *zap.Logger
	alpha   int
	timeout time.Duration

	inbox chan rawMessage

	mu      sync.Mutex
	pending map[string]*pendingCall

	stop chan struct{}
	done chan struct{}
}

type rawMessage struct {
	from    string
	payload []byte
}

// Options configures Start beyond its required arguments.
type Options struct {
	Key         *key.Key
	BucketSize  int
	Alpha       int
	CallTimeout time.Duration
	Logger      *zap.Logger
}

// Start creates a Node bound to ip:port, registers it with fabric, and
// launches its actor loop. If opts.Key is nil a fresh random 160-bit key
// is generated.
func Start(fabric transport.Fabric, ip string, port int, opts Options) (*Node, error) {
	var k key.Key
	if opts.Key != nil {
		k = *opts.Key
	} else {
		generated, err := key.Random(key.DefaultSize)
		if err != nil {
			return nil, fmt.Errorf("node: generate key: %w", err)
		}
		k = generated
	}

	self := peer.New(k, ip, port)

	alpha := opts.Alpha
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	n := &Node{
		self:    self,
		table:   kbucket.NewRoutingTable(self, opts.BucketSize),
		fabric:  fabric,
		log:     log,
		alpha:   alpha,
		timeout: timeout,
		inbox:   make(chan rawMessage, DefaultInboxSize),
		pending: make(map[string]*pendingCall),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	fabric.Register(fmt.Sprintf("%s:%d", ip, port), n)
	go n.run()
	return n, nil
}

// Self returns this node's own peer identity.
func (n *Node) Self() peer.Peer { return n.self }

// RoutingTable exposes the node's routing table for observability
// (PeerCount) and for the lookup state machine.
func (n *Node) RoutingTable() *kbucket.RoutingTable { return n.table }

// PeerCount is the observability hook used by tests: total peers held
// across the routing table.
func (n *Node) PeerCount() int { return n.table.PeerCount() }

// Close stops the actor loop. It does not close the underlying fabric.
func (n *Node) Close() {
	close(n.stop)
	<-n.done
}

// Handle satisfies transport.Handler: it only enqueues. The four-step
// handler pipeline for one inbound message always runs to completion
// inside run before the next message's pipeline starts.
func (n *Node) Handle(from string, payload []byte) {
	select {
	case n.inbox <- rawMessage{from: from, payload: payload}:
	case <-n.stop:
	}
}

func (n *Node) run() {
	defer close(n.done)
	for {
		select {
		case raw := <-n.inbox:
			n.dispatch(raw)
		case <-n.stop:
			return
		}
	}
}

func (n *Node) dispatch(raw rawMessage) {
	m, err := message.Unmarshal(raw.payload)
	if err != nil {
		n.log.Warn("discarding malformed message", zap.String("from", raw.from), zap.Error(err))
		return
	}
	n.handle(m)
}

// handle runs the four-step inbound pipeline described in spec.md §4.4:
// learn, then serve requests by kind, then resolve any waiting call.
func (n *Node) handle(m message.Message) {
	n.learn(m)

	switch m.Kind {
	case message.KindPingRequest:
		n.reply(m.Source, message.PingReply(m.ID, n.self))
	case message.KindFindNodeRequest:
		closest := n.table.ClosestFor(m.Target)
		n.reply(m.Source, message.FindNodeReply(m.ID, n.self, closest))
	}

	n.resolvePending(m)
}

// learn marks the message's source (and any carried peers) as contacted
// and inserts them into the routing table. This step never consumes the
// message; it runs for every inbound message regardless of kind.
func (n *Node) learn(m message.Message) {
	now := time.Now()
	n.table.Insert(m.Source.Observed(m.Source.IP, m.Source.Port, now))
	for _, p := range m.Peers {
		n.table.Insert(p.Observed(p.IP, p.Port, now))
	}
}

func (n *Node) resolvePending(m message.Message) {
	n.mu.Lock()
	call, ok := n.pending[m.ID]
	if ok && call.expect == m.Kind {
		delete(n.pending, m.ID)
	}
	n.mu.Unlock()

	if ok && call.expect == m.Kind {
		call.done <- m
	}
}

func (n *Node) addr(p peer.Peer) string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

// Send is a fire-and-forget transmission to p. The message is deep
// copied before marshalling so sender-side mutation after Send returns
// can never be observed by the receiver.
func (n *Node) Send(ctx context.Context, p peer.Peer, m message.Message) error {
	data, err := message.Marshal(m.Clone())
	if err != nil {
		return fmt.Errorf("node: marshal: %w", err)
	}
	return n.fabric.Send(ctx, n.addr(p), data)
}

func (n *Node) reply(to peer.Peer, m message.Message) {
	if err := n.Send(context.Background(), to, m); err != nil {
		n.log.Warn("reply send failed", zap.String("to", n.addr(to)), zap.Error(err))
	}
}

// Call transmits request to p and waits for a response of kind expect
// correlated by request.ID, bounded by the node's call timeout. The
// waiter is registered in the pending table before the request is sent,
// so a reply can never arrive before something is listening for it.
func (n *Node) Call(ctx context.Context, p peer.Peer, request message.Message, expect message.Kind) (message.Message, error) {
	call := &pendingCall{expect: expect, done: make(chan message.Message, 1)}

	n.mu.Lock()
	n.pending[request.ID] = call
	n.mu.Unlock()

	if err := n.Send(ctx, p, request); err != nil {
		n.mu.Lock()
		delete(n.pending, request.ID)
		n.mu.Unlock()
		return message.Message{}, err
	}

	timer := time.NewTimer(n.timeout)
	defer timer.Stop()

	select {
	case resp := <-call.done:
		return resp, nil
	case <-timer.C:
		n.mu.Lock()
		delete(n.pending, request.ID)
		n.mu.Unlock()
		return message.Message{}, ErrCallTimeout
	case <-ctx.Done():
		n.mu.Lock()
		delete(n.pending, request.ID)
		n.mu.Unlock()
		return message.Message{}, ctx.Err()
	}
}

// Bootstrap pings each initial peer, learns whichever respond, then runs
// a self-lookup to populate the routing table with well-distributed
// contacts. It tolerates any subset of pings failing.
func (n *Node) Bootstrap(ctx context.Context, initial ...peer.Peer) error {
	for _, p := range initial {
		req := message.Ping(n.self)
		// The response's source carries the contact's real identity and is
		// learned by the inbound pipeline (learn, in handle) before Call
		// returns, so no explicit table insert is needed here even when p
		// itself was built from a bare address with no known key.
		if _, err := n.Call(ctx, p, req, message.KindPingResponse); err != nil {
			n.log.Debug("bootstrap ping failed", zap.String("peer", p.Key.String()), zap.Error(err))
			continue
		}
	}

	_, err := n.Find(ctx, n.self.Key)
	return err
}

// Find runs an iterative lookup for target and returns up to k peers
// ordered by XOR distance to target ascending.
func (n *Node) Find(ctx context.Context, target key.Key) ([]peer.Peer, error) {
	l := newLookup(n, target)
	return l.run(ctx)
}
