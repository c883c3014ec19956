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

// Package registry holds the handler dictionary: named event, rpc, and
// subscription handlers grouped into three categories. Unlike the
// source this was distilled from, lookup never reflects over a Go
// function value's parameter list — every descriptor declares its own
// accepted argument counts at registration time, and dispatch is a
// single map access.
package registry

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Func is an event or RPC handler. args is the positional argument
// list taken verbatim off the inbound message. The returned value is
// ignored for events; for RPCs it becomes the response, unless it
// implements Lazy, in which case the stage awaits it first.
type Func func(ctx context.Context, args []any) (any, error)

// Lazy is returned by an RPC handler that doesn't have its result
// ready yet. Await is called at most once, on the goroutine that
// invoked the handler (for the chain, the peer's router loop), and
// must yield exactly one value (or an error) before returning.
type Lazy interface {
	Await(ctx context.Context) (any, error)
}

// SubscriptionFunc opens a subscription. The returned value is
// normalized by the subscription stage: either a bare receive-only
// channel, or a *Publication wrapping one with an optional stop hook.
type SubscriptionFunc func(ctx context.Context, args []any) (any, error)

// Publication is what a subscription handler returns when it needs a
// cleanup hook alongside its stream.
type Publication struct {
	Stream <-chan any
	Stop   func()
}

// Category names one of the three handler buckets.
type Category string

const (
	Event        Category = "event"
	RPC          Category = "rpc"
	Subscription Category = "subscription"
)

// Descriptor is one registered handler plus the arity it declares.
// Arities lists every accepted fixed argument count; Variadic, if
// true, additionally accepts being invoked with zero extra args when
// no fixed arity matches (per the arity-resolution rule in the
// router's event/rpc stage).
type Descriptor struct {
	Name     string
	Arities  []int
	Variadic bool

	eventFn Func
	rpcFn   Func
	subFn   SubscriptionFunc
}

// Accepts reports whether n positional args can be routed to this
// descriptor, and whether routing should drop the extras (the
// variadic no-fixed-match case).
func (d *Descriptor) Accepts(n int) (ok bool, truncateToZero bool) {
	for _, a := range d.Arities {
		if a == n {
			return true, false
		}
	}
	if d.Variadic {
		return true, true
	}
	return false, false
}

// NewEvent declares an event handler descriptor.
func NewEvent(name string, fn Func, arities []int, variadic bool) *Descriptor {
	return &Descriptor{Name: name, Arities: arities, Variadic: variadic, eventFn: fn}
}

// NewRPC declares an RPC handler descriptor.
func NewRPC(name string, fn Func, arities []int, variadic bool) *Descriptor {
	return &Descriptor{Name: name, Arities: arities, Variadic: variadic, rpcFn: fn}
}

// NewSubscription declares a subscription handler descriptor.
func NewSubscription(name string, fn SubscriptionFunc, arities []int, variadic bool) *Descriptor {
	return &Descriptor{Name: name, Arities: arities, Variadic: variadic, subFn: fn}
}

func (d *Descriptor) InvokeEvent(ctx context.Context, args []any) (any, error) {
	return d.eventFn(ctx, args)
}

func (d *Descriptor) InvokeRPC(ctx context.Context, args []any) (any, error) {
	return d.rpcFn(ctx, args)
}

// CallRPC invokes an RPC descriptor, recovering a handler panic into
// an ordinary error and awaiting a Lazy result before returning. Both
// the interceptor chain's rpc stage and any direct caller bypassing
// the chain (e.g. the REST shim) go through this so the two paths
// can't silently diverge in panic/await handling.
func (d *Descriptor) CallRPC(ctx context.Context, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	result, err = d.rpcFn(ctx, args)
	if err != nil {
		return nil, err
	}
	if lazy, ok := result.(Lazy); ok {
		return lazy.Await(ctx)
	}
	return result, nil
}

func (d *Descriptor) InvokeSubscription(ctx context.Context, args []any) (any, error) {
	return d.subFn(ctx, args)
}

// Dict is one immutable snapshot of the handler dictionary: a mapping
// from category to name to descriptor.
type Dict struct {
	events        map[string]*Descriptor
	rpcs          map[string]*Descriptor
	subscriptions map[string]*Descriptor
}

// NewDict builds an empty, mutable-via-builder dictionary snapshot.
func NewDict() *Dict {
	return &Dict{
		events:        make(map[string]*Descriptor),
		rpcs:          make(map[string]*Descriptor),
		subscriptions: make(map[string]*Descriptor),
	}
}

// Event registers (or replaces) an event handler and returns the dict
// for chaining. Dict is meant to be built once, then installed into a
// Cell; it is not itself safe for concurrent mutation.
func (d *Dict) Event(desc *Descriptor) *Dict {
	d.events[desc.Name] = desc
	return d
}

func (d *Dict) RPC(desc *Descriptor) *Dict {
	d.rpcs[desc.Name] = desc
	return d
}

func (d *Dict) Subscription(desc *Descriptor) *Dict {
	d.subscriptions[desc.Name] = desc
	return d
}

// Lookup finds a descriptor by category and name.
func (d *Dict) Lookup(cat Category, name string) (*Descriptor, bool) {
	var table map[string]*Descriptor
	switch cat {
	case Event:
		table = d.events
	case RPC:
		table = d.rpcs
	case Subscription:
		table = d.subscriptions
	default:
		return nil, false
	}
	desc, ok := table[name]
	return desc, ok
}

// Cell is the mutable-by-swap holder for a Dict: readers snapshot it
// once per request via Load, writers replace the whole dictionary
// atomically via Store. This is the concrete stand-in for the
// "mutable cell" the data model calls for, implemented as an
// atomic.Pointer instead of a reflective cell-of-cells.
type Cell struct {
	ptr atomic.Pointer[Dict]
}

// NewCell wraps an initial dictionary. A nil dict is replaced with an
// empty one so Load never returns nil.
func NewCell(initial *Dict) *Cell {
	c := &Cell{}
	if initial == nil {
		initial = NewDict()
	}
	c.ptr.Store(initial)
	return c
}

// Load takes one atomic snapshot of the current dictionary.
func (c *Cell) Load() *Dict {
	return c.ptr.Load()
}

// Store swaps in a whole new dictionary. In-flight requests that
// already snapshotted the old Dict keep running against it.
func (c *Cell) Store(d *Dict) {
	if d == nil {
		d = NewDict()
	}
	c.ptr.Store(d)
}

// ArityError is returned by the router's arity-resolution helper when
// no declared arity (fixed or variadic) matches the call.
type ArityError struct {
	Name string
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("arity mismatch calling %q with %d argument(s)", e.Name, e.Got)
}

// ResolveArgs matches len(args) against desc's declared arities. A
// fixed arity match passes args through unchanged; a variadic
// descriptor with no fixed match is invoked with no extra args;
// anything else is an arity mismatch. Shared by the interceptor
// chain's event/rpc stages and by callers that invoke a descriptor
// directly, outside the chain.
func ResolveArgs(desc *Descriptor, args []any) ([]any, error) {
	ok, truncate := desc.Accepts(len(args))
	if !ok {
		return nil, &ArityError{Name: desc.Name, Got: len(args)}
	}
	if truncate {
		return nil, nil
	}
	return args, nil
}
