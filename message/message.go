// Package message defines the request/response protocol that binds
// nodes together (spec.md §3): Ping and FindNode, each correlated by an
// opaque id. Grounded on the teacher's rpc.Message shape, generalized
// from a free-form RPC envelope to the DHT's four fixed message kinds.
package message

import (
	"github.com/google/uuid"

	"kadcore/key"
	"kadcore/peer"
)

// Kind identifies which of the four message shapes a Message carries.
type Kind uint8

const (
	// KindPingRequest carries no extra fields.
	KindPingRequest Kind = iota + 1
	// KindPingResponse carries no extra fields.
	KindPingResponse
	// KindFindNodeRequest carries Target.
	KindFindNodeRequest
	// KindFindNodeResponse carries Peers.
	KindFindNodeResponse
)

func (k Kind) String() string {
	switch k {
	case KindPingRequest:
		return "PingRequest"
	case KindPingResponse:
		return "PingResponse"
	case KindFindNodeRequest:
		return "FindNodeRequest"
	case KindFindNodeResponse:
		return "FindNodeResponse"
	default:
		return "Unknown"
	}
}

// Message is the single concrete type backing all four message shapes;
// fields irrelevant to a given Kind are left zero. The correlation key
// between a request and its response is ID: a response's ID equals its
// request's ID.
type Message struct {
	Kind   Kind
	ID     string
	Source peer.Peer

	Target key.Key     // FindNodeRequest only
	Peers  []peer.Peer // FindNodeResponse only
}

// NewID mints an opaque correlation token. Replaces the teacher's
// monotonically increasing atomic counter with an unguessable uuid, per
// spec.md §6's "opaque bytes, typically random" id contract.
func NewID() string {
	return uuid.NewString()
}

// Ping builds a PingRequest from source, with a fresh id.
func Ping(source peer.Peer) Message {
	return Message{Kind: KindPingRequest, ID: NewID(), Source: source}
}

// PingReply builds the PingResponse correlated to a given request id.
func PingReply(id string, source peer.Peer) Message {
	return Message{Kind: KindPingResponse, ID: id, Source: source}
}

// FindNode builds a FindNodeRequest for target from source, with a fresh
// id.
func FindNode(source peer.Peer, target key.Key) Message {
	return Message{Kind: KindFindNodeRequest, ID: NewID(), Source: source, Target: target}
}

// FindNodeReply builds the FindNodeResponse correlated to a given request
// id, carrying peers.
func FindNodeReply(id string, source peer.Peer, peers []peer.Peer) Message {
	return Message{
		Kind:   KindFindNodeResponse,
		ID:     id,
		Source: source,
		Peers:  append([]peer.Peer(nil), peers...),
	}
}

// Clone returns a deep copy safe to hand to a different goroutine or a
// simulated remote node without aliasing the original's Peers slice.
func (m Message) Clone() Message {
	cp := m
	if m.Peers != nil {
		cp.Peers = append([]peer.Peer(nil), m.Peers...)
	}
	return cp
}
