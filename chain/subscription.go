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
	"context"
	"errors"
	"fmt"

	"github.com/thinktopic/peer/message"
	"github.com/thinktopic/peer/metrics"
	"github.com/thinktopic/peer/peer"
	"github.com/thinktopic/peer/registry"
)

// subscriptionEnter looks up api.subscription[request.fn], invokes it,
// normalizes the return into a publication pipeline, and registers it
// under the peer's subscription table.
func subscriptionEnter(ctx *Context) (err error) {
	desc, ok := ctx.API.Lookup(registry.Subscription, ctx.Request.Fn)
	if !ok {
		return fmt.Errorf("Unhandled subscription request: %s", ctx.Request.Fn)
	}
	args, err := resolveArgs(desc, ctx.Request.Args)
	if err != nil {
		return err
	}

	subCtx, cancel := context.WithCancel(ctx.Ctx)
	ctx.Ctx = subCtx

	raw, err := invokeSubscription(ctx, desc, args)
	if err != nil {
		cancel()
		return err
	}
	pub, err := normalizePublication(raw)
	if err != nil {
		cancel()
		return err
	}

	sub := &peer.Subscription{ID: ctx.Request.ID, Stream: pub.Stream, Stop: pub.Stop, Cancel: cancel}
	ctx.Peer.AddSubscription(sub)
	metrics.ActiveSubscriptions.Inc()

	go pump(subCtx, ctx.Peer, ctx.Sink, ctx.Codec, sub)

	return nil
}

func invokeSubscription(ctx *Context, desc *registry.Descriptor, args []any) (result any, err error) {
	defer recoverHandlerPanic(&err)
	return desc.InvokeSubscription(ctx.Ctx, args)
}

// normalizePublication accepts either a bare receive-only channel or
// a *registry.Publication and always returns the latter shape.
func normalizePublication(raw any) (*registry.Publication, error) {
	switch v := raw.(type) {
	case *registry.Publication:
		if v.Stream == nil {
			return nil, errors.New("Subscription function didn't return a publication channel")
		}
		return v, nil
	case <-chan any:
		return &registry.Publication{Stream: v}, nil
	case chan any:
		return &registry.Publication{Stream: v}, nil
	default:
		return nil, errors.New("Subscription function didn't return a publication channel")
	}
}

// pump is the single-slot transforming stage: it reads one value at a
// time from the producer, wraps it in a publication envelope, and
// writes it to the sink. It stalls on a slow sink (natural
// backpressure) and exits either when the producer closes its stream
// or when the subscription is removed (unsubscribe or disconnect).
func pump(ctx context.Context, p *peer.Peer, sink peer.Sink, codec message.Codec, sub *peer.Subscription) {
	for {
		select {
		case v, ok := <-sub.Stream:
			if !ok {
				// Producer exhausted on its own; tear down as if unsubscribed.
				if _, removed := p.RemoveSubscription(sub.ID); removed {
					sub.Close()
					metrics.ActiveSubscriptions.Dec()
				}
				return
			}
			msg, err := message.Publication(sub.ID, v)
			if err != nil {
				continue
			}
			frame, err := codec.Encode(msg)
			if err != nil {
				continue
			}
			if err := sink.Write(frame); err != nil {
				// Sink is gone; stop pumping. Disconnect teardown (if any)
				// will remove the subscription and invoke Stop.
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
