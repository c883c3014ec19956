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

// Package listener owns the peer table, the handler-dictionary cell,
// and the middleware chain; it accepts new connections, runs the
// handshake, and installs a router loop for every peer it admits.
package listener

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/thinktopic/peer/chain"
	"github.com/thinktopic/peer/message"
	"github.com/thinktopic/peer/metrics"
	"github.com/thinktopic/peer/peer"
	"github.com/thinktopic/peer/registry"
	"github.com/thinktopic/peer/router"
)

// Config holds the recognized construction options for a Listener.
type Config struct {
	// API is the initial handler dictionary.
	API *registry.Dict
	// Middleware is interposed between the response writer and the
	// classification stage.
	Middleware []chain.Stage
	// OnConnect is invoked with the peer record after a successful
	// handshake.
	OnConnect func(*peer.Peer)
	// OnDisconnect is invoked with the peer record before teardown.
	OnDisconnect func(*peer.Peer)
	// OnError is invoked for transport and handshake errors. Defaults
	// to logging through Log.
	OnError func(error)
	// Codec selects the wire encoding; defaults to JSON.
	Codec message.Codec
	// CustomRPCResponder, if set, replaces the default
	// ResponseWriterStage as the chain's outermost stage. A caller that
	// needs a different wire shape for responses (or wants to intercept
	// every chain error before it reaches the sink) installs one of
	// these instead of middleware.
	CustomRPCResponder *chain.Stage

	Log zerolog.Logger
}

// Listener owns the peer table and the registry cell, and exposes
// Accept/Close.
type Listener struct {
	api   *registry.Cell
	peers *peer.Table
	chain *chain.Chain
	cfg   Config
}

// New constructs a listener from cfg, filling in defaults for any
// option left zero.
func New(cfg Config) *Listener {
	if cfg.Codec == nil {
		cfg.Codec = message.JSONCodec{}
	}
	if cfg.OnError == nil {
		log := cfg.Log
		cfg.OnError = func(err error) { log.Error().Err(err).Msg("listener error") }
	}
	c := chain.New(cfg.Middleware)
	if cfg.CustomRPCResponder != nil {
		c = chain.NewWithResponder(*cfg.CustomRPCResponder, cfg.Middleware)
	}
	return &Listener{
		api:   registry.NewCell(cfg.API),
		peers: peer.NewTable(),
		chain: c,
		cfg:   cfg,
	}
}

// SwapAPI atomically replaces the handler dictionary. In-flight
// requests that already snapshotted the previous dictionary keep
// running against it.
func (l *Listener) SwapAPI(dict *registry.Dict) {
	l.api.Store(dict)
}

// Peers returns the live peer table, mainly for tests and
// introspection callers (e.g. a metrics collector).
func (l *Listener) Peers() *peer.Table { return l.peers }

// API returns the handler-dictionary cell backing this listener, so a
// transport that bypasses the router chain (the REST shim) can look
// up and invoke descriptors against the same live dictionary.
func (l *Listener) API() *registry.Cell { return l.api }

// Accept runs the handshake on a freshly upgraded connection: read the
// first frame, decode it as a connect message, install the peer,
// start its router loop, and reply.
func (l *Listener) Accept(conn router.Conn, origin *http.Request) error {
	frame, err := conn.ReadMessage()
	if err != nil {
		l.cfg.OnError(err)
		return err
	}
	handshake, err := l.cfg.Codec.Decode(frame)
	if err != nil {
		l.cfg.OnError(err)
		return err
	}
	if handshake.PeerID == "" {
		err := fmt.Errorf("handshake frame missing peer-id")
		l.cfg.OnError(err)
		return err
	}

	p := peer.New(handshake.PeerID, conn, origin)
	l.peers.Install(p)
	metrics.ConnectedPeers.Set(float64(l.peers.Len()))

	loop := &router.Loop{
		Peer:         p,
		Conn:         conn,
		Codec:        l.cfg.Codec,
		Chain:        l.chain,
		API:          l.api,
		Peers:        l.peers,
		OnDisconnect: l.cfg.OnDisconnect,
		OnError:      l.cfg.OnError,
		Log:          l.cfg.Log,
	}
	loop.Start(context.Background())

	reply, err := l.cfg.Codec.Encode(message.ConnectReply())
	if err != nil {
		l.cfg.OnError(err)
		return err
	}
	if err := conn.Write(reply); err != nil {
		l.cfg.OnError(err)
		return err
	}

	if l.cfg.OnConnect != nil {
		l.cfg.OnConnect(p)
	}
	return nil
}

// Close disconnects every peer. It does not stop any transport
// acceptor loop feeding Accept — that is the transport's concern.
func (l *Listener) Close() {
	router.DisconnectAll(l.peers)
}
