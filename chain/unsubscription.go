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

package chain

import "github.com/thinktopic/peer/metrics"

// unsubscriptionEnter removes peers[peer-id].subscriptions[request.id]
// atomically and invokes its stop hook if present. A second
// unsubscription for the same id is a no-op: RemoveSubscription only
// reports ok=true once.
func unsubscriptionEnter(ctx *Context) error {
	sub, ok := ctx.Peer.RemoveSubscription(ctx.Request.ID)
	if !ok {
		return nil
	}
	sub.Close()
	metrics.ActiveSubscriptions.Dec()
	return nil
}
