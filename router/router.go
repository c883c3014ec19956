// Copyright 2015 The go-ethereum Authors
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

// Package router implements the per-peer router loop: the fiber that
// reads inbound frames off one peer's connection and pushes each
// through the interceptor chain.
package router

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/thinktopic/peer/chain"
	"github.com/thinktopic/peer/message"
	"github.com/thinktopic/peer/metrics"
	"github.com/thinktopic/peer/peer"
	"github.com/thinktopic/peer/registry"
)

// Conn is the duplex framed channel a transport hands the router.
// ReadMessage blocks until a frame arrives, the peer disconnects
// (io.EOF), or the transport fails (any other error); both the
// latter two end the loop.
type Conn interface {
	ReadMessage() ([]byte, error)
	Write(frame []byte) error
	Close() error
}

// Loop is the per-peer consumer: it reads frames off one
// connection and dispatches each through the interceptor chain.
type Loop struct {
	Peer  *peer.Peer
	Conn  Conn
	Codec message.Codec
	Chain *chain.Chain
	API   *registry.Cell
	Peers *peer.Table

	// OnDisconnect, if set, is invoked with the peer record before
	// teardown runs, once the inbound stream has ended.
	OnDisconnect func(*peer.Peer)
	// OnError, if set, receives decode errors for individual frames.
	// A decode error drops that one frame; it does not end the loop.
	OnError func(error)

	Log zerolog.Logger
}

// Start begins consuming inbound frames. It runs until the
// connection yields end-of-stream or a transport error, then tears
// the peer down. Start returns immediately; the loop runs on its own
// goroutine.
func (l *Loop) Start(rootCtx context.Context) {
	go l.run(rootCtx)
}

func (l *Loop) run(rootCtx context.Context) {
	for {
		frame, err := l.Conn.ReadMessage()
		if err != nil || frame == nil {
			l.terminate()
			return
		}

		msg, err := l.Codec.Decode(frame)
		if err != nil {
			if l.OnError != nil {
				l.OnError(err)
			}
			l.Log.Debug().Err(err).Str("peer", l.Peer.ID).Msg("dropping malformed frame")
			continue
		}

		// Dispatch synchronously: classification, handler lookup, and
		// the subscription-table mutations (add/remove) must happen in
		// arrival order on this peer's connection, so a subscribe
		// immediately followed by an unsubscribe for the same id can
		// never be reordered into a leaked subscription. The chain only
		// blocks the loop until a response object is built (or, for an
		// RPC, until its Lazy value resolves) — the sink write and a
		// subscription's pump goroutine are already off-loop.
		l.dispatch(rootCtx, msg)
	}
}

func (l *Loop) dispatch(rootCtx context.Context, msg *message.Message) {
	ctx := &chain.Context{
		Ctx:     rootCtx,
		API:     l.API.Load(),
		Peers:   l.Peers,
		PeerID:  l.Peer.ID,
		Peer:    l.Peer,
		Sink:    l.Peer.Sink,
		Codec:   l.Codec,
		Request: msg,
	}
	l.Chain.Run(ctx)
}

func (l *Loop) terminate() {
	if l.OnDisconnect != nil {
		l.OnDisconnect(l.Peer)
	}
	Disconnect(l.Peers, l.Peer.ID)
}

// Disconnect tears a peer down: remove it from the table, close its
// connection, then stop every subscription it still held.
func Disconnect(peers *peer.Table, peerID string) {
	p, ok := peers.Remove(peerID)
	if !ok {
		return
	}
	p.Sink.Close()
	subs := p.DrainSubscriptions()
	for _, sub := range subs {
		sub.Close()
	}
	metrics.ConnectedPeers.Set(float64(peers.Len()))
	if len(subs) > 0 {
		metrics.ActiveSubscriptions.Sub(float64(len(subs)))
	}
}

// DisconnectAll tears down every currently connected peer.
func DisconnectAll(peers *peer.Table) {
	for _, id := range peers.IDs() {
		Disconnect(peers, id)
	}
}
