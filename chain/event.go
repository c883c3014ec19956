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

	"github.com/thinktopic/peer/registry"
)

// eventEnter looks up api.event[request.event] and invokes it. The
// return value is ignored: events never
// produce a response.
func eventEnter(ctx *Context) (err error) {
	desc, ok := ctx.API.Lookup(registry.Event, ctx.Request.Event)
	if !ok {
		return fmt.Errorf("unhandled event %q", ctx.Request.Event)
	}
	args, err := resolveArgs(desc, ctx.Request.Args)
	if err != nil {
		return err
	}
	defer recoverHandlerPanic(&err)
	_, err = desc.InvokeEvent(ctx.Ctx, args)
	return err
}

// recoverHandlerPanic converts a panicking handler into an ordinary
// error, matching the "handler exception" response kind. It must be
// deferred directly in the function that calls the handler.
func recoverHandlerPanic(errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("handler panic: %v", r)
	}
}
