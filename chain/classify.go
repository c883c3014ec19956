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

import (
	"github.com/thinktopic/peer/message"
	"github.com/thinktopic/peer/metrics"
)

// kindLabel maps a request's event tag to the metrics label used for
// MessagesProcessed/HandlerErrors: the three reserved dispatch kinds,
// or "event" for anything else (including unreserved user tags).
func kindLabel(tag string) string {
	switch tag {
	case message.EventRPC, message.EventSubscription, message.EventUnsubscription:
		return tag
	default:
		return "event"
	}
}

// ClassifyStage reads request.Event and routes to the matching
// downstream stage. It is always the innermost stage of the chain,
// installed after any user middleware.
func ClassifyStage() Stage {
	return Stage{
		Name: "classify",
		Enter: func(ctx *Context) error {
			kind := kindLabel(ctx.Request.Event)
			metrics.MessagesProcessed.WithLabelValues(kind).Inc()

			var err error
			switch ctx.Request.Event {
			case message.EventRPC:
				err = rpcEnter(ctx)
			case message.EventSubscription:
				err = subscriptionEnter(ctx)
			case message.EventUnsubscription:
				err = unsubscriptionEnter(ctx)
			default:
				err = eventEnter(ctx)
			}
			if err != nil {
				metrics.HandlerErrors.WithLabelValues(kind).Inc()
			}
			return err
		},
	}
}
