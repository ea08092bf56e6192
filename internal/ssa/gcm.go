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
	"github.com/SeaOfNodes/Simple-sub002/internal/utils"
	"github.com/nikandfor/tlog"
	"github.com/oleiade/lane"
	"golang.org/x/exp/slices"
)

// Block returns the head of the basic block the node lives in. Floating
// nodes have no block until they get scheduled.
func (self *Node) Block() *Node {
	for n := self; n != nil; n = n.In(0) {
		if n.op.isBlockHead() {
			return n
		}
	}
	return nil
}

// GCM builds the loop tree, then places every floating node into a block.
// Afterwards the control input of every node names its block.
func (self *Graph) GCM() {
	self.BuildLoopTree()
	self.SchedEarly()
	self.SchedLate()
	self.Stats.flush()

	/* verify the result */
	if self.opts.Verify {
		self.CheckEdges()
		self.CheckPhis()
		self.CheckDominators()
		self.CheckLoops()
		self.CheckSchedule()
	}
}

// SchedEarly places every floating node as high as its inputs allow.
func (self *Graph) SchedEarly() {
	vis := make(map[int]bool)
	for _, cfg := range self.ReversePostOrder() {
		for _, in := range cfg.ins {
			self.schedEarly(in, vis)
		}
		for _, u := range cfg.outs {
			if !u.IsCFG() {
				self.schedEarly(u, vis)
			}
		}
	}
}

func (self *Graph) schedEarly(n *Node, vis map[int]bool) {
	if n == nil || n.IsCFG() || vis[n.id] {
		return
	}

	/* floating inputs only, pinned ones are placed already */
	vis[n.id] = true
	for _, def := range n.ins {
		if def != nil && !def.IsCFG() && !def.Pinned() {
			self.schedEarly(def, vis)
		}
	}

	/* pinned nodes stay where they are */
	if n.Pinned() {
		return
	}

	/* an existing control input is a lower bound */
	early := n.In(0)
	if early == nil {
		early = self.Start
	}

	/* the deepest input block */
	for _, def := range n.ins[1:] {
		if def != nil {
			if b := def.Block(); b.IDepth() > early.IDepth() {
				early = b
			}
		}
	}
	n.setDef(0, early)
}

type _LateSched struct {
	g      *Graph
	live   map[int]bool
	late   map[int]*Node
	vis    map[int]bool
	queued map[int]bool
	stk    *lane.Stack
	order  []*Node
}

// liveNodes lists every node Stop depends on.
func (self *Graph) liveNodes() ([]*Node, map[int]bool) {
	stk := lane.NewStack()
	ret := []*Node{self.Stop}
	vis := map[int]bool{self.Stop.id: true}
	stk.Push(self.Stop)

	/* walk backwards along all inputs */
	for !stk.Empty() {
		for _, in := range stk.Pop().(*Node).ins {
			if in != nil && !vis[in.id] {
				vis[in.id] = true
				ret = append(ret, in)
				stk.Push(in)
			}
		}
	}
	return ret, vis
}

// SchedLate sinks every floating node as low as its uses allow, then lifts it
// out of as many loops as possible without going above its early block.
func (self *Graph) SchedLate() {
	nodes, live := self.liveNodes()
	ls := &_LateSched{
		g:      self,
		live:   live,
		late:   make(map[int]*Node),
		vis:    make(map[int]bool),
		queued: make(map[int]bool),
		stk:    lane.NewStack(),
	}

	/* pinned nodes are already placed, clear the anti-dependence tags */
	for _, n := range nodes {
		if n.anti = -1; n.Pinned() {
			ls.late[n.id] = n.Block()
		}
	}

	/* uses before defs, starting from Stop */
	ls.push(self.Stop)
	for !ls.stk.Empty() {
		ls.visit(ls.stk.Pop().(*Node))
	}

	/* commit the placement */
	for _, n := range ls.order {
		n.setDef(0, ls.late[n.id])
	}
	self.Stats.Scheduled += len(ls.order)
	tlog.V("gcm").Printw("schedule late", "nodes", len(nodes), "floating", len(ls.order))
}

func (self *_LateSched) push(n *Node) {
	if n != nil && !self.queued[n.id] && self.ready(n) {
		self.queued[n.id] = true
		self.stk.Push(n)
	}
}

// ready reports whether every use of n has been placed. Loads also wait for
// everything else that consumes their memory, for the anti-dependences.
func (self *_LateSched) ready(n *Node) bool {
	if n.Pinned() {
		return true
	}

	/* all forward uses */
	for _, u := range n.outs {
		if self.live[u.id] && self.late[u.id] == nil {
			return false
		}
	}

	/* all memory users next to a load */
	if n.op == OpLoad {
		for _, u := range n.In(1).outs {
			if u != n && self.live[u.id] && definesMem(u) && self.late[u.id] == nil {
				return false
			}
		}
	}
	return true
}

func definesMem(n *Node) bool {
	switch n.op {
	case OpStore, OpNew:
		return true
	case OpPhi:
		return n.typ != nil && n.typ.IsMem()
	default:
		return false
	}
}

func (self *_LateSched) visit(n *Node) {
	if self.vis[n.id] {
		utils.Throw("gcm", "%v visited twice", n)
	}

	/* place the floating ones */
	self.vis[n.id] = true
	if !n.Pinned() {
		self.late[n.id] = self.g.schedLate(n, self)
		self.order = append(self.order, n)
	}

	/* defs that became ready */
	for _, def := range n.ins {
		self.push(def)
	}

	/* loads waiting on this memory user */
	if definesMem(n) {
		for _, def := range n.ins[1:] {
			if def != nil && def.typ != nil && def.typ.IsMem() {
				for _, u := range def.outs {
					if u.op == OpLoad && self.live[u.id] {
						self.push(u)
					}
				}
			}
		}
	}
}

func (self *_LateSched) useBlock(n *Node, u *Node) *Node {
	if u.op != OpPhi {
		return self.late[u.id]
	}

	/* phi uses happen at the end of the matching predecessor */
	var lca *Node
	for i := 1; i < len(u.ins); i++ {
		if u.ins[i] == n {
			lca = LCA(lca, u.In(0).In(i).Block())
		}
	}
	return lca
}

func (self *Graph) schedLate(n *Node, ls *_LateSched) *Node {
	var lca *Node
	early := n.In(0)

	/* the common dominator of all uses */
	for _, u := range n.outs {
		if ls.live[u.id] {
			lca = LCA(lca, ls.useBlock(n, u))
		}
	}
	if lca == nil {
		lca = early
	}

	/* loads can not sink below a store that might clobber them */
	if n.op == OpLoad {
		lca = self.findAntiDep(lca, n, early, ls)
	}

	/* walk up to the early block looking for the best one */
	best := lca
	for b := lca; b != early; {
		if b = b.IDom(); b == nil {
			utils.Throw("gcm", "early block of %v does not dominate its uses", n)
		}
		if better(b, best) {
			best = b
		}
	}

	/* never schedule into a branch */
	utils.Assert(!best.op.isBranch(), "gcm", "%v placed into branch %v", n, best)
	return best
}

// better prefers shallower loops, then deeper dominators, and never a branch.
func better(cand *Node, best *Node) bool {
	if cand.op.isBranch() {
		return false
	}
	if best.op.isBranch() {
		return true
	}
	cd, bd := cand.LoopDepth(), best.LoopDepth()
	return cd < bd || (cd == bd && cand.IDepth() > best.IDepth())
}

func (self *Graph) findAntiDep(lca *Node, load *Node, early *Node, ls *_LateSched) *Node {
	for b := lca; b != nil; b = b.IDom() {
		if b.anti = load.id; b == early {
			break
		}
	}
	return self.antiDepUses(lca, load, load.In(1), ls)
}

func (self *Graph) antiDepUses(lca *Node, load *Node, mem *Node, ls *_LateSched) *Node {
	for _, u := range mem.outs {
		if u == load || !ls.live[u.id] {
			continue
		}
		switch u.op {
		case OpStore:
			if u.alias == load.alias && !disjoint(load.In(2), u.In(2)) {
				lca = self.antiDep(load, ls.late[u.id], mem.Block(), lca, u)
			}
		case OpPhi:
			for i := 1; i < len(u.ins); i++ {
				if u.ins[i] == mem {
					lca = self.antiDep(load, u.In(0).In(i).Block(), mem.Block(), lca, nil)
				}
			}
		case OpNew:
			if p := u.memProj(load.alias); p != nil && ls.live[p.id] {
				lca = self.antiDepUses(lca, load, p, ls)
			}
		}
	}
	return lca
}

// antiDep walks up from the block of a store towards the block of the memory
// it consumes. Meeting a block tagged for the load means the load could be
// placed after the store, so the load is raised to the store and, when they
// end up in the same block, the store is made to depend on the load.
func (self *Graph) antiDep(load *Node, stblk *Node, defblk *Node, lca *Node, st *Node) *Node {
	for b, stop := stblk, defblk.IDom(); b != stop; b = b.IDom() {
		if b.anti == load.id {
			if lca = LCA(b, lca); lca == stblk && st != nil && !slices.Contains(st.ins, load) {
				st.addDef(load)
			}
			return lca
		}
	}
	return lca
}
