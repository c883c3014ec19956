// Copyright 2018 The go-ethereum Authors
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

// Package chain implements the interceptor chain: the ordered
// enter/leave pipeline that a router pushes every inbound message
// through, and the built-in stages (classification, event, rpc,
// subscription, unsubscription, response writer).
package chain

import (
	"context"
	"sync/atomic"

	"github.com/thinktopic/peer/message"
	"github.com/thinktopic/peer/peer"
	"github.com/thinktopic/peer/registry"
)

// Context is the mutable request envelope threaded through the
// chain. It is borrowed by the chain for the duration of processing
// one inbound message and dropped on exit; nothing retains it
// afterwards.
type Context struct {
	// Ctx carries cancellation: for ordinary requests it is the
	// peer's root context, for a subscription it is a child cancelled
	// when the subscription is torn down.
	Ctx context.Context

	API    *registry.Dict
	Peers  *peer.Table
	PeerID string
	Peer   *peer.Peer
	Sink   peer.Sink
	Codec  message.Codec

	Request  *message.Message
	Response *message.Message
	Err      error
}

// errBox gives the latched cell a single concrete type to store,
// since atomic.Value panics if successive Store calls see different
// concrete types (which bare error values, being an interface, would).
type errBox struct{ err error }

// lastError is the process-wide latched cell holding the most recent
// chain error (a handler exception, an unhandled name, or an arity
// mismatch): observable for diagnostics, never load-bearing for
// control flow.
var lastError atomic.Value // holds *errBox

// recordLastError latches err as the most recently observed chain
// error, if err is non-nil.
func recordLastError(err error) {
	if err != nil {
		lastError.Store(&errBox{err: err})
	}
}

// LastError returns the most recent chain error seen by any chain run
// in this process, or nil if none has occurred yet.
func LastError() error {
	v := lastError.Load()
	if v == nil {
		return nil
	}
	return v.(*errBox).err
}
