package message

import (
	"encoding/json"
	"fmt"

	"kadcore/key"
	"kadcore/peer"
)

// wirePeer is the JSON-safe shape of a peer.Peer. Addresses travel as
// plain strings/ints; contact bookkeeping is local-only and never
// crosses the wire.
type wirePeer struct {
	Key  string `json:"key"`
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

func toWirePeer(p peer.Peer) wirePeer {
	return wirePeer{Key: p.Key.String(), IP: p.IP, Port: p.Port}
}

func (wp wirePeer) toPeer() (peer.Peer, error) {
	k, err := keyFromString(wp.Key)
	if err != nil {
		return peer.Peer{}, err
	}
	return peer.New(k, wp.IP, wp.Port), nil
}

// wireMessage is the JSON-safe shape of a Message. Grounded on the
// teacher's rpc.Message{Method,Data} envelope, generalized to a typed
// Kind plus the union of fields the four kinds need.
type wireMessage struct {
	Kind   Kind       `json:"kind"`
	ID     string     `json:"id"`
	Source wirePeer   `json:"source"`
	Target string     `json:"target,omitempty"`
	Peers  []wirePeer `json:"peers,omitempty"`
}

// Marshal encodes m as JSON for transmission over a Fabric.
func Marshal(m Message) ([]byte, error) {
	wm := wireMessage{
		Kind:   m.Kind,
		ID:     m.ID,
		Source: toWirePeer(m.Source),
	}
	if m.Kind == KindFindNodeRequest {
		wm.Target = m.Target.String()
	}
	if len(m.Peers) > 0 {
		wm.Peers = make([]wirePeer, len(m.Peers))
		for i, p := range m.Peers {
			wm.Peers[i] = toWirePeer(p)
		}
	}
	return json.Marshal(wm)
}

// Unmarshal decodes a wire-format payload back into a Message.
func Unmarshal(data []byte) (Message, error) {
	var wm wireMessage
	if err := json.Unmarshal(data, &wm); err != nil {
		return Message{}, fmt.Errorf("message: unmarshal: %w", err)
	}

	source, err := wm.Source.toPeer()
	if err != nil {
		return Message{}, fmt.Errorf("message: source: %w", err)
	}

	m := Message{Kind: wm.Kind, ID: wm.ID, Source: source}

	if wm.Kind == KindFindNodeRequest {
		t, err := keyFromString(wm.Target)
		if err != nil {
			return Message{}, fmt.Errorf("message: target: %w", err)
		}
		m.Target = t
	}

	if len(wm.Peers) > 0 {
		m.Peers = make([]peer.Peer, len(wm.Peers))
		for i, wp := range wm.Peers {
			p, err := wp.toPeer()
			if err != nil {
				return Message{}, fmt.Errorf("message: peers[%d]: %w", i, err)
			}
			m.Peers[i] = p
		}
	}

	return m, nil
}

func keyFromString(s string) (key.Key, error) {
	return key.Parse(s)
}
