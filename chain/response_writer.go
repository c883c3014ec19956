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

import "github.com/thinktopic/peer/message"

// ResponseWriterStage is the chain's default outermost stage (the
// listener installs it unless a custom-rpc-responder is configured).
// Its Leave runs last during unwind (after every middleware and the
// classify/dispatch stage have had their turn), so it is the single
// place that decides what — if anything — gets written back to the
// peer's sink.
//
// On success with a response present, it writes that response. On a
// chain error it builds the rpc-response error envelope, writes it,
// and stores it as ctx.Response.
//
// A plain event or a subscription has nothing to write: the former
// never produces a response, the latter's values are written
// asynchronously by its own pump goroutine.
func ResponseWriterStage() Stage {
	return Stage{
		Name: "response-writer",
		Leave: func(ctx *Context) {
			if ctx.Request == nil || ctx.Request.ID == "" {
				// No correlation id to answer on (event, or a
				// malformed request caught before an id was parsed).
				return
			}
			if ctx.Err != nil {
				ctx.Response = message.RPCError(ctx.Request.ID, ctx.Err.Error())
			}
			if ctx.Response == nil {
				return
			}
			writeAsync(ctx)
		},
	}
}

// writeAsync encodes and writes the response without blocking the
// caller on the sink: a slow peer stalls only its own pending write,
// never the router loop that built this context.
func writeAsync(ctx *Context) {
	frame, err := ctx.Codec.Encode(ctx.Response)
	if err != nil {
		return
	}
	go ctx.Sink.Write(frame)
}
