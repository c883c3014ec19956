package chain

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinktopic/peer/message"
	"github.com/thinktopic/peer/peer"
	"github.com/thinktopic/peer/registry"
)

type recordingSink struct {
	mu      sync.Mutex
	frames  [][]byte
	written chan []byte
}

func newRecordingSink() *recordingSink {
	return &recordingSink{written: make(chan []byte, 16)}
}

func (s *recordingSink) Write(frame []byte) error {
	s.mu.Lock()
	s.frames = append(s.frames, frame)
	s.mu.Unlock()
	s.written <- frame
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) next(t *testing.T) *message.Message {
	t.Helper()
	select {
	case frame := <-s.written:
		var msg message.Message
		if err := json.Unmarshal(frame, &msg); err != nil {
			t.Fatalf("decoding response frame: %v\nraw frame: %s", err, spew.Sdump(frame))
		}
		return &msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a response frame")
		return nil
	}
}

func newTestContext(dict *registry.Dict, p *peer.Peer, sink *recordingSink, req *message.Message) *Context {
	return &Context{
		Ctx:     context.Background(),
		API:     dict,
		Peers:   peer.NewTable(),
		PeerID:  p.ID,
		Peer:    p,
		Sink:    sink,
		Codec:   message.JSONCodec{},
		Request: req,
	}
}

// S1: a fire-and-forget event reaches its handler and produces no response.
func TestEventScenario(t *testing.T) {
	var called bool
	dict := registry.NewDict().Event(registry.NewEvent("ping", func(ctx context.Context, args []any) (any, error) {
		called = true
		return nil, nil
	}, []int{0}, false))

	p := peer.New("peer-1", newRecordingSink(), nil)
	sink := newRecordingSink()
	ctx := newTestContext(dict, p, sink, &message.Message{Event: "ping"})

	c := New(nil)
	c.Run(ctx)

	assert.True(t, called)
	assert.Nil(t, ctx.Err)
	select {
	case <-sink.written:
		t.Fatal("an event must never produce a response frame")
	case <-time.After(50 * time.Millisecond):
	}
}

// S2: an RPC call correlates its response with the request id.
func TestRPCScenario(t *testing.T) {
	dict := registry.NewDict().RPC(registry.NewRPC("add", func(ctx context.Context, args []any) (any, error) {
		a := int(args[0].(float64))
		b := int(args[1].(float64))
		return a + b, nil
	}, []int{2}, false))

	p := peer.New("peer-1", newRecordingSink(), nil)
	sink := newRecordingSink()
	ctx := newTestContext(dict, p, sink, &message.Message{Event: message.EventRPC, ID: "req-1", Fn: "add", Args: []any{float64(2), float64(3)}})

	c := New(nil)
	c.Run(ctx)

	resp := sink.next(t)
	assert.Equal(t, "req-1", resp.ID)
	assert.Equal(t, message.EventRPCResponse, resp.Event)
	var result int
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, 5, result)
}

// S3: an unknown RPC name surfaces as an rpc-response error, not a panic
// or a dropped request.
func TestUnknownRPCScenario(t *testing.T) {
	dict := registry.NewDict()
	p := peer.New("peer-1", newRecordingSink(), nil)
	sink := newRecordingSink()
	ctx := newTestContext(dict, p, sink, &message.Message{Event: message.EventRPC, ID: "req-1", Fn: "missing"})

	c := New(nil)
	c.Run(ctx)

	resp := sink.next(t)
	assert.Equal(t, "req-1", resp.ID)
	assert.NotEmpty(t, resp.Error)
}

// S4: a subscription fans values in, and unsubscribing stops delivery
// and removes the subscription record.
func TestSubscriptionAndUnsubscribeScenario(t *testing.T) {
	values := make(chan any, 10)
	dict := registry.NewDict().
		Subscription(registry.NewSubscription("count", func(ctx context.Context, args []any) (any, error) {
			return &registry.Publication{Stream: values}, nil
		}, []int{0}, false)).
		RPC(registry.NewRPC("noop", func(ctx context.Context, args []any) (any, error) { return nil, nil }, []int{0}, false))

	p := peer.New("peer-1", newRecordingSink(), nil)
	sink := newRecordingSink()

	c := New(nil)

	subCtx := newTestContext(dict, p, sink, &message.Message{Event: message.EventSubscription, ID: "sub-1", Fn: "count"})
	c.Run(subCtx)
	require.Nil(t, subCtx.Err)

	_, ok := p.Subscription("sub-1")
	require.True(t, ok)

	values <- 1
	pub := sink.next(t)
	assert.Equal(t, "sub-1", pub.ID)
	assert.Equal(t, message.EventPublication, pub.Event)

	unsubCtx := newTestContext(dict, p, sink, &message.Message{Event: message.EventUnsubscription, ID: "sub-1"})
	c.Run(unsubCtx)

	_, ok = p.Subscription("sub-1")
	assert.False(t, ok, "unsubscribe must remove the subscription record")

	// A second unsubscription of the same id is a no-op, not an error.
	c.Run(unsubCtx)
	assert.Nil(t, unsubCtx.Err)
}

// S5: disconnect teardown drains and closes every subscription a peer
// still held.
func TestDisconnectTeardownDrainsSubscriptions(t *testing.T) {
	p := peer.New("peer-1", newRecordingSink(), nil)
	var closed int
	p.AddSubscription(&peer.Subscription{ID: "a", Stop: func() { closed++ }})
	p.AddSubscription(&peer.Subscription{ID: "b", Stop: func() { closed++ }})

	subs := p.DrainSubscriptions()
	for _, s := range subs {
		s.Close()
	}

	assert.Equal(t, 2, closed)
	assert.Empty(t, p.DrainSubscriptions())
}

// S6: a handler that panics produces an error response, and the chain
// remains usable for the next request on the same peer.
func TestHandlerPanicThenSubsequentRPCSucceeds(t *testing.T) {
	dict := registry.NewDict().
		RPC(registry.NewRPC("boom", func(ctx context.Context, args []any) (any, error) {
			panic("handler exploded")
		}, []int{0}, false)).
		RPC(registry.NewRPC("ok", func(ctx context.Context, args []any) (any, error) {
			return "fine", nil
		}, []int{0}, false))

	p := peer.New("peer-1", newRecordingSink(), nil)
	sink := newRecordingSink()
	c := New(nil)

	c.Run(newTestContext(dict, p, sink, &message.Message{Event: message.EventRPC, ID: "req-1", Fn: "boom"}))
	resp := sink.next(t)
	assert.Equal(t, "req-1", resp.ID)
	assert.Contains(t, resp.Error, "handler exploded")

	c.Run(newTestContext(dict, p, sink, &message.Message{Event: message.EventRPC, ID: "req-2", Fn: "ok"}))
	resp = sink.next(t)
	assert.Equal(t, "req-2", resp.ID)
	assert.Empty(t, resp.Error)

	require.NotNil(t, LastError())
	assert.Contains(t, LastError().Error(), "handler exploded")
}

// Invariant: middleware Enter runs top-down before the dispatched
// handler, and its Leave runs bottom-up after it.
func TestMiddlewareOrdering(t *testing.T) {
	var events []string
	mw := Stage{
		Name: "record",
		Enter: func(ctx *Context) error {
			events = append(events, "enter")
			return nil
		},
		Leave: func(ctx *Context) {
			events = append(events, "leave")
		},
	}

	dict := registry.NewDict().Event(registry.NewEvent("ping", func(ctx context.Context, args []any) (any, error) {
		events = append(events, "handler")
		return nil, nil
	}, []int{0}, false))

	p := peer.New("peer-1", newRecordingSink(), nil)
	ctx := newTestContext(dict, p, newRecordingSink(), &message.Message{Event: "ping"})

	New([]Stage{mw}).Run(ctx)

	assert.Equal(t, []string{"enter", "handler", "leave"}, events)
}

// A custom-rpc-responder replaces the default ResponseWriterStage
// entirely: it still runs outermost, but what it writes (or doesn't)
// is entirely up to it.
func TestNewWithResponderReplacesTheDefaultResponseWriter(t *testing.T) {
	var sawResponse bool
	responder := Stage{
		Name: "custom-responder",
		Leave: func(ctx *Context) {
			sawResponse = ctx.Response != nil || ctx.Err != nil
		},
	}

	dict := registry.NewDict().RPC(registry.NewRPC("add", func(ctx context.Context, args []any) (any, error) {
		return 2, nil
	}, []int{0}, false))

	p := peer.New("peer-1", newRecordingSink(), nil)
	sink := newRecordingSink()
	ctx := newTestContext(dict, p, sink, &message.Message{Event: message.EventRPC, ID: "req-1", Fn: "add"})

	NewWithResponder(responder, nil).Run(ctx)

	assert.True(t, sawResponse)
	select {
	case <-sink.written:
		t.Fatal("a custom responder that never calls writeAsync must produce no frame")
	case <-time.After(50 * time.Millisecond):
	}
}
