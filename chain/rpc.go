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
	"fmt"

	"github.com/thinktopic/peer/message"
	"github.com/thinktopic/peer/registry"
)

// rpcEnter looks up api.rpc[request.fn], invokes it, and builds the
// rpc-response on ctx.Response. A Lazy return value is awaited before
// the response is built; the await, like the sink write, is a
// suspension point, not an OS-thread block.
func rpcEnter(ctx *Context) (err error) {
	desc, ok := ctx.API.Lookup(registry.RPC, ctx.Request.Fn)
	if !ok {
		return fmt.Errorf("Unhandled rpc-request: %s", ctx.Request.Fn)
	}
	args, err := resolveArgs(desc, ctx.Request.Args)
	if err != nil {
		return err
	}

	result, err := invokeRPC(ctx, desc, args)
	if err != nil {
		return err
	}

	resp, err := message.RPCResult(ctx.Request.ID, result)
	if err != nil {
		return err
	}
	ctx.Response = resp
	return nil
}

func invokeRPC(ctx *Context, desc *registry.Descriptor, args []any) (any, error) {
	return desc.CallRPC(ctx.Ctx, args)
}
