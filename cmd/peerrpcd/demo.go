package main

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/thinktopic/peer/config"
	"github.com/thinktopic/peer/listener"
	"github.com/thinktopic/peer/log"
	"github.com/thinktopic/peer/message"
	"github.com/thinktopic/peer/peer"
	"github.com/thinktopic/peer/registry"
)

// newDemoListener wires a listener with a small, illustrative handler
// dictionary: a "ping" event, an "add" RPC, and a "count" subscription
// that ticks once a second. It exists so the binary this package
// builds is runnable end to end without an external handler module.
func newDemoListener(cfg config.Config) *listener.Listener {
	dict := registry.NewDict().
		Event(registry.NewEvent("ping", pingHandler, []int{0, 1}, false)).
		// add accepts either {a,b} over the websocket chain, or
		// {request,a,b} over the REST shim, which prepends the
		// transport request to args.
		RPC(registry.NewRPC("add", addHandler, []int{2, 3}, false)).
		Subscription(registry.NewSubscription("count", countHandler, []int{0, 1}, false))

	codec, ok := message.Codecs[cfg.Codec]
	if !ok {
		codec = message.JSONCodec{}
	}

	return listener.New(listener.Config{
		API:   dict,
		Codec: codec,
		Log:   log.WithComponent("listener"),
		OnConnect: func(p *peer.Peer) {
			log.WithPeer(p.ID).Info().Msg("peer connected")
		},
		OnDisconnect: func(p *peer.Peer) {
			log.WithPeer(p.ID).Info().Msg("peer disconnected")
		},
	})
}

func pingHandler(ctx context.Context, args []any) (any, error) {
	return nil, nil
}

func addHandler(ctx context.Context, args []any) (any, error) {
	if len(args) == 3 {
		if _, ok := args[0].(*http.Request); ok {
			args = args[1:]
		}
	}
	a, ok1 := toFloat(args[0])
	b, ok2 := toFloat(args[1])
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("add expects two numbers")
	}
	return a + b, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// countHandler opens a subscription that publishes an incrementing
// counter every second until the caller unsubscribes or disconnects.
func countHandler(ctx context.Context, args []any) (any, error) {
	var counter int64
	out := make(chan any)
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		defer close(out)
		for {
			select {
			case <-ticker.C:
				n := atomic.AddInt64(&counter, 1)
				select {
				case out <- n:
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return &registry.Publication{
		Stream: out,
		Stop:   func() { close(stop) },
	}, nil
}
