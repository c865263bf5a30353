// Package transport defines the narrow boundary between the node actor
// and whatever carries bytes between peers — an in-memory fabric for
// tests (memfabric) or a QUIC-backed fabric for real deployments
// (netquic). Grounded on the teacher's Node/PeerManager split: Node owns
// "how do I turn bytes into an Envelope and hand it off", PeerManager
// owns "how do I get bytes to this address" — split here into Handler
// and Fabric respectively.
package transport

import "context"

// Handler processes one inbound message. Implementations must not block
// for long; the fabric calls Handle once per received message and a slow
// handler stalls that delivery path.
type Handler interface {
	Handle(from string, payload []byte)
}

// Fabric is the address-level send/receive boundary a Node is built on.
// An address is an opaque "host:port"-shaped string; Fabric does not
// interpret it beyond what its own implementation requires to route.
type Fabric interface {
	// Send delivers payload to addr. It returns once the payload has been
	// handed to the fabric; it does not wait for the remote handler to
	// run.
	Send(ctx context.Context, addr string, payload []byte) error

	// Register installs the Handler invoked for every message addressed
	// to localAddr, the fabric's own listening address.
	Register(localAddr string, h Handler)

	// LocalAddr returns the address other peers should use to reach this
	// fabric endpoint.
	LocalAddr() string

	// Close releases any resources (listeners, dialed connections) held
	// by the fabric.
	Close() error
}
