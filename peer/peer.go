// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package peer holds the per-connection state a listener keeps once a
// peer has completed its handshake: its sink, its subscription table,
// and the request that established the connection.
package peer

import (
	"net/http"
	"sync"
)

// Sink is the outbound half of a peer's framed channel. Transports
// (websocket, in-process pipes used by tests) implement this.
type Sink interface {
	Write(frame []byte) error
	Close() error
}

// Subscription is a named, peer-owned producer pipeline. It is
// created when a subscription handler returns successfully and torn
// down on unsubscribe, disconnect, or producer exhaustion.
type Subscription struct {
	ID     string
	Stream <-chan any
	Stop   func()

	// Cancel stops the pump goroutine feeding this subscription's
	// values to the sink. It is set by the subscription stage and
	// invoked alongside Stop so disconnect/unsubscribe always tears
	// down the producer side too, rather than leaking it.
	Cancel func()

	closeOnce sync.Once
}

// Close invokes Stop and Cancel (if present) exactly once. It does
// not close Stream itself — that channel belongs to the producer,
// which is expected to close it once it observes cancellation.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		if s.Cancel != nil {
			s.Cancel()
		}
		if s.Stop != nil {
			s.Stop()
		}
	})
}

// Peer is a live connection's state. At most one Peer exists per
// peer-id in a listener; a later handshake with the same id replaces
// the record without tearing down the prior connection.
type Peer struct {
	ID     string
	Sink   Sink
	Origin *http.Request

	mu   sync.Mutex
	subs map[string]*Subscription
}

// New creates a peer record with an empty subscription table.
func New(id string, sink Sink, origin *http.Request) *Peer {
	return &Peer{
		ID:     id,
		Sink:   sink,
		Origin: origin,
		subs:   make(map[string]*Subscription),
	}
}

// AddSubscription installs a subscription record under its id,
// replacing any record already stored at that id. The replaced record
// is neither returned nor closed.
func (p *Peer) AddSubscription(sub *Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs[sub.ID] = sub
}

// RemoveSubscription atomically removes and returns the subscription
// for id, or (nil, false) if it wasn't present — the unsubscription
// stage's idempotence rests on this.
func (p *Peer) RemoveSubscription(id string) (*Subscription, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sub, ok := p.subs[id]
	if ok {
		delete(p.subs, id)
	}
	return sub, ok
}

// Subscription looks up an active subscription by id without removing
// it.
func (p *Peer) Subscription(id string) (*Subscription, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sub, ok := p.subs[id]
	return sub, ok
}

// DrainSubscriptions removes and returns every active subscription,
// leaving the table empty. Used by teardown on disconnect.
func (p *Peer) DrainSubscriptions() []*Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Subscription, 0, len(p.subs))
	for _, sub := range p.subs {
		out = append(out, sub)
	}
	p.subs = make(map[string]*Subscription)
	return out
}
