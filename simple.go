/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


// Package simple optimizes and schedules functions expressed as a
// sea-of-nodes graph.
package simple

import (
	"github.com/SeaOfNodes/Simple-sub002/internal/opts"
	"github.com/SeaOfNodes/Simple-sub002/internal/ssa"
	"github.com/SeaOfNodes/Simple-sub002/internal/types"
	"github.com/SeaOfNodes/Simple-sub002/internal/utils"
	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"
)

type (
	Graph   = ssa.Graph
	Node    = ssa.Node
	Builder = ssa.Builder
	Struct  = ssa.Struct
	Field   = ssa.Field
	Op      = ssa.Op
	Type    = types.Type
)

// NewGraph creates an empty function graph, with options applied over the
// defaults taken from the environment.
func NewGraph(options ...Option) *Graph {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}
	return ssa.NewGraph(o)
}

// NewBuilder starts constructing the function held by g.
func NewBuilder(g *Graph) *Builder {
	return ssa.NewBuilder(g)
}

// Optimize runs the peephole engine over the whole graph until nothing
// changes anymore.
func Optimize(g *Graph) error {
	return guard("optimize", g.Iterate)
}

// Schedule builds the loop tree and places every floating node into a
// block. The graph should be optimized first.
func Schedule(g *Graph) error {
	return guard("schedule", g.GCM)
}

// Compile optimizes, then schedules g.
func Compile(g *Graph) error {
	if err := Optimize(g); err != nil {
		return err
	}
	if err := Schedule(g); err != nil {
		return err
	}

	/* report what has been done */
	tlog.V("simple").Printw("compiled",
		"iterations", g.Stats.Iterations,
		"gvn_hits", g.Stats.GvnHits,
		"rewrites", g.Stats.Rewrites,
		"scheduled", g.Stats.Scheduled,
		"forced_exits", g.Stats.ForcedExits,
	)
	return nil
}

// guard turns the invariant violations raised by a pass into an error. Any
// other panic is not ours to handle.
func guard(pass string, fn func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			if e, ok := v.(*utils.InvariantError); ok {
				err = errors.Wrap(e, pass)
			} else {
				panic(v)
			}
		}
	}()
	fn()
	return nil
}
