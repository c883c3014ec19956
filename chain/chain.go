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

// Stage is one link in the interceptor chain. Enter runs top-down in
// chain order; Leave runs bottom-up, in reverse, for every stage whose
// Enter already ran (including a stage whose own Enter failed — Leave
// still sees the context so it can react to ctx.Err). A stage that
// needs no phase may leave either func nil.
type Stage struct {
	Name  string
	Enter func(*Context) error
	Leave func(*Context)
}

// Chain is a fixed, ordered pipeline of stages. The outermost stage
// (conventionally the response writer) doubles as the chain's
// "dedicated error stage": because its Leave always runs last during
// unwind, it is the one place that sees both the final response and
// any ctx.Err, regardless of which inner stage produced the error.
type Chain struct {
	Stages []Stage
}

// New builds a chain from middleware (run in the given order, between
// the response writer and classification) plus the fixed tail every
// chain ends with, using the default ResponseWriterStage as the
// outermost stage.
func New(middleware []Stage) *Chain {
	return NewWithResponder(ResponseWriterStage(), middleware)
}

// NewWithResponder is New with the outermost stage replaced by
// responder, the listener's custom-rpc-responder option. responder
// still runs outermost (its Leave sees the final response and any
// ctx.Err last on unwind), it just isn't necessarily
// ResponseWriterStage.
func NewWithResponder(responder Stage, middleware []Stage) *Chain {
	stages := make([]Stage, 0, len(middleware)+2)
	stages = append(stages, responder)
	stages = append(stages, middleware...)
	stages = append(stages, ClassifyStage())
	return &Chain{Stages: stages}
}

// Run pushes ctx through every stage's Enter in order, stopping at
// the first error, then unwinds Leave in reverse for every stage that
// entered (successfully or not). Panics raised by a handler are
// recovered by the individual stage that invokes it (event, rpc,
// subscription), never by Run itself — by the time Run sees them
// they are already ordinary errors on ctx.Err.
func (c *Chain) Run(ctx *Context) {
	entered := make([]Stage, 0, len(c.Stages))
	for _, s := range c.Stages {
		entered = append(entered, s)
		if s.Enter == nil {
			continue
		}
		if err := s.Enter(ctx); err != nil {
			ctx.Err = err
			recordLastError(err)
			break
		}
	}
	for i := len(entered) - 1; i >= 0; i-- {
		if entered[i].Leave != nil {
			entered[i].Leave(ctx)
		}
	}
}
