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

package ssa

import (
	"github.com/SeaOfNodes/Simple-sub002/internal/types"
	"github.com/SeaOfNodes/Simple-sub002/internal/utils"
	"github.com/nikandfor/tlog"
	"github.com/oleiade/lane"
)

// Peephole is the construction time entry point: it returns n itself, an
// equivalent node already in the graph, or a better replacement. A replaced
// node is killed if nothing uses it.
func (self *Graph) Peephole(n *Node) *Node {
	if x := self.peepholeOpt(n); x == nil {
		return n
	} else {
		return self.deadCodeElim(n, self.Peephole(x))
	}
}

func (self *Graph) peepholeOpt(n *Node) *Node {
	self.Stats.Iterations++
	old := n.typ
	t := n.compute()

	/* types only ever get more precise once the graph is complete */
	if old != nil && self.iterating {
		t = old.Join(t)
	}

	/* replace high and constant values */
	n.setType(t)
	if c := self.constantFor(n); c != nil {
		return c
	}

	/* global value numbering */
	if !n.inGVN && n.gvnable() {
		if m := self.gvnFind(n); m != nil {
			m.setType(m.typ.Join(n.typ))
			self.Stats.GvnHits++
			return self.deadCodeElim(n, m)
		}
		self.gvnInsert(n)
	}

	/* local rewrites */
	if x := n.idealize(); x != nil {
		self.Stats.Rewrites++
		return x
	} else if old != n.typ {
		return n
	} else {
		return nil
	}
}

func constantable(t *types.Type) bool {
	switch t.Kind() {
	case types.KTop, types.KInt, types.KPtr:
		return t.IsHighOrConst()
	default:
		return false
	}
}

func (self *Graph) constantFor(n *Node) *Node {
	switch {
	case n.op == OpConstant || n.op == OpXCtrl:
		return nil
	case n.op == OpRegion || n.op == OpLoop || n.op == OpCProj:
		if n.typ == types.XCtrl {
			return self.xctrl
		} else {
			return nil
		}
	case n.IsCFG():
		return nil
	case constantable(n.typ):
		return self.Peephole(self.newConstant(n.typ))
	default:
		return nil
	}
}

func (self *Graph) deadCodeElim(n *Node, m *Node) *Node {
	if m != n && !n.dead && n.isUnused() {
		m.keep++
		n.kill()
		m.keep--
	}
	return m
}

// Iterate runs the peephole engine until no node changes anymore.
func (self *Graph) Iterate() {
	self.iterating = true
	defer func() { self.iterating = false }()

	/* every round starts from the whole graph, until a round changes nothing */
	for round := 0; ; round++ {
		mark := self.progress
		self.seed()
		self.drain()
		tlog.V("peephole").Printw("iterate", "round", round, "steps", self.Stats.Iterations, "progress", self.progress-mark)
		if self.progress == mark {
			break
		}
	}

	/* flush the counters */
	self.Stats.flush()
	if self.opts.Verify {
		self.CheckEdges()
		self.CheckPhis()
		self.checkFixedPoint()
	}
}

func (self *Graph) drain() {
	for n := self.work.pop(); n != nil; n = self.work.pop() {
		if !self.opts.CanIterate(self.Stats.Iterations) {
			utils.Throw("peephole", "iteration limit %d exceeded", self.opts.MaxIterations)
		}

		/* nodes nobody uses anymore */
		if n.isUnused() {
			n.kill()
			continue
		}

		/* optimize the node */
		x := self.peepholeOpt(n)
		if x == nil {
			continue
		}

		/* record the progress */
		self.progress++
		if x != n {
			tlog.V("peephole").Printw("replace", "node", n, "by", x)
			self.work.push(x)
			if !n.dead {
				self.work.pushAll(n.ins)
				n.subsume(x)
			}
			self.work.pushAll(x.outs)
		} else {
			self.work.push(n)
			self.work.pushAll(n.outs)
		}
	}
}

// seed puts every node reachable from Start or Stop onto the worklist.
func (self *Graph) seed() {
	stk := lane.NewStack()
	vis := make(map[int]bool)
	stk.Push(self.Stop)
	stk.Push(self.Start)

	/* walk along both inputs and outputs */
	for !stk.Empty() {
		n := stk.Pop().(*Node)
		if n == nil || n.dead || vis[n.id] {
			continue
		}

		/* queue the node */
		vis[n.id] = true
		self.work.push(n)
		for _, in := range n.ins {
			if in != nil {
				stk.Push(in)
			}
		}
		for _, u := range n.outs {
			stk.Push(u)
		}
	}
}

// checkFixedPoint makes sure a second round over a converged graph changes
// nothing at all.
func (self *Graph) checkFixedPoint() {
	mark := self.progress
	iters := self.Stats.Iterations
	self.iterating = true
	self.seed()
	self.drain()
	self.iterating = false
	utils.Assert(self.progress == mark, "peephole", "graph changed after reaching a fixed point (%d changes)", self.progress-mark)
	self.Stats.Iterations = iters
}
