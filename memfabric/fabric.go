// Package memfabric implements transport.Fabric entirely in process
// memory, for simulating many-node networks in tests without binding any
// sockets. Grounded on the teacher's netquic.PeerManager connection
// registry (an addr → handle map guarded by a mutex), replacing the QUIC
// dial/stream machinery with a direct handoff into the destination
// endpoint's goroutine pool and lmars-pss-demo's simulated-network test
// style (drive many in-process peers through one shared switch) without
// importing its go-ethereum dependency.
package memfabric

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"kadcore/transport"
)

// Switch is a shared in-memory network: a registry of addr → endpoint.
// Every Fabric created against the same Switch can reach every other.
type Switch struct {
	mu        sync.Mutex
	endpoints map[string]*Fabric
	dropRate  float64
	rng       *rand.Rand
}

// NewSwitch creates a Switch. dropRate in [0,1] is the probability any
// given Send is silently dropped, simulating lossy transport for
// scenario 5 (message-loss resilience); 1 drops every message.
func NewSwitch(dropRate float64) *Switch {
	return &Switch{
		endpoints: make(map[string]*Fabric),
		dropRate:  dropRate,
		rng:       rand.New(rand.NewSource(1)),
	}
}

// Fabric is one node's endpoint on a Switch.
type Fabric struct {
	sw      *Switch
	addr    string
	mu      sync.Mutex
	handler transport.Handler
	closed  bool
}

// NewFabric registers a new endpoint at addr on sw. addr must be unique
// within sw.
func (sw *Switch) NewFabric(addr string) *Fabric {
	f := &Fabric{sw: sw, addr: addr}
	sw.mu.Lock()
	sw.endpoints[addr] = f
	sw.mu.Unlock()
	return f
}

// LocalAddr implements transport.Fabric.
func (f *Fabric) LocalAddr() string { return f.addr }

// Register implements transport.Fabric.
func (f *Fabric) Register(localAddr string, h transport.Handler) {
	f.mu.Lock()
	f.addr = localAddr
	f.handler = h
	f.mu.Unlock()

	f.sw.mu.Lock()
	f.sw.endpoints[localAddr] = f
	f.sw.mu.Unlock()
}

// Send looks up addr's endpoint on the shared switch and dispatches
// payload to it asynchronously, matching the fire-and-forget semantics
// real transports give Node. A copy of payload is taken so the sender's
// buffer can be reused safely.
func (f *Fabric) Send(ctx context.Context, addr string, payload []byte) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return fmt.Errorf("memfabric: %s is closed", f.addr)
	}

	f.sw.mu.Lock()
	dst, ok := f.sw.endpoints[addr]
	dropRate := f.sw.dropRate
	drop := dropRate > 0 && f.sw.rng.Float64() < dropRate
	f.sw.mu.Unlock()

	if !ok {
		return fmt.Errorf("memfabric: send to %s: %w", addr, ErrUnknownEndpoint)
	}
	if drop {
		return nil
	}

	cp := append([]byte(nil), payload...)
	go dst.deliver(f.addr, cp)
	return nil
}

func (f *Fabric) deliver(from string, payload []byte) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h.Handle(from, payload)
	}
}

// Close implements transport.Fabric.
func (f *Fabric) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
