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
	"fmt"

	"github.com/SeaOfNodes/Simple-sub002/internal/types"
	"github.com/SeaOfNodes/Simple-sub002/internal/utils"
	"github.com/nikandfor/tlog"
	"github.com/oleiade/lane"
)

// LoopTree is one loop of the loop nesting forest. The root stands for the
// whole function, with Start as its head.
type LoopTree struct {
	Head   *Node
	Parent *LoopTree
	depth  int
}

func newLoopTree(head *Node) *LoopTree {
	return &LoopTree{Head: head, depth: -1}
}

// Depth returns the loop nesting depth, 0 for the root.
func (self *LoopTree) Depth() int {
	if self.depth < 0 {
		if self.Parent == nil {
			self.depth = 0
		} else {
			self.depth = self.Parent.Depth() + 1
		}
	}
	return self.depth
}

func (self *LoopTree) String() string {
	return fmt.Sprintf("loop(%v, depth=%d)", self.Head, self.Depth())
}

// Loop returns the innermost loop around the node, nil before the loop tree
// was built.
func (self *Node) Loop() *LoopTree {
	if b := self.Block(); b != nil {
		return b.ltree
	} else {
		return nil
	}
}

func (self *Node) LoopDepth() int {
	if t := self.Loop(); t != nil {
		return t.Depth()
	} else {
		return 0
	}
}

type _LoopFrame struct {
	n     *Node
	succs []*Node
	i     int
}

type _LoopBuilder struct {
	nr    int
	pre   map[int]int
	post  map[int]bool
	loops []*LoopTree
}

// BuildLoopTree gives every infinite loop an exit, then assigns every live
// CFG node its innermost loop.
func (self *Graph) BuildLoopTree() *LoopTree {
	self.fixLoops()
	root := newLoopTree(self.Start)
	cfgs := self.ReversePostOrder()

	/* forget the previous assignment */
	for _, n := range cfgs {
		n.ltree = nil
	}

	/* one depth-first walk does all the work */
	lb := &_LoopBuilder{
		pre:  make(map[int]int),
		post: make(map[int]bool),
	}
	lb.walk(self.Start)

	/* everything outside of any loop belongs to the root */
	for _, n := range cfgs {
		if n.ltree == nil {
			n.ltree = root
		}
	}
	for _, l := range lb.loops {
		if l.Parent == nil {
			l.Parent = root
		}
	}

	/* the dead control node is in no loop */
	root.depth = 0
	self.xctrl.ltree = root
	self.ltree = root
	tlog.V("looptree").Printw("loop tree", "loops", len(lb.loops), "nodes", len(cfgs))
	return root
}

func (self *_LoopBuilder) walk(root *Node) {
	stk := lane.NewStack()
	self.visit(stk, root)

	/* pre-order on the way down, post-order on the way up */
	for !stk.Empty() {
		fp := stk.Head().(*_LoopFrame)
		if fp.i < len(fp.succs) {
			s := fp.succs[fp.i]
			if fp.i++; self.pre[s.id] == 0 {
				self.visit(stk, s)
			}
		} else {
			stk.Pop()
			self.finish(fp.n, fp.succs)
		}
	}
}

func (self *_LoopBuilder) visit(stk *lane.Stack, n *Node) {
	self.nr++
	self.pre[n.id] = self.nr
	stk.Push(&_LoopFrame{n: n, succs: cfgSuccs(n)})
}

// finish picks the innermost loop among the successors of n.
func (self *_LoopBuilder) finish(n *Node, succs []*Node) {
	var inner *LoopTree
	for _, s := range succs {
		var l *LoopTree

		/* an unfinished successor is the head of a loop around n */
		if !self.post[s.id] {
			if s.op != OpLoop {
				utils.Throw("looptree", "irreducible control flow into %v", s)
			}
			if s.ltree == nil || s.ltree.Head != s {
				s.ltree = newLoopTree(s)
				self.loops = append(self.loops, s.ltree)
			}
			l = s.ltree
		} else {
			l = s.ltree

			/* entering a loop from outside of it */
			if l != nil && l.Head == s {
				l = l.Parent
			}

			/* skip the loops that are already complete */
			for l != nil && self.post[l.Head.id] {
				l = l.Parent
			}
		}

		/* keep the innermost one, nesting the other around it */
		switch {
		case l == nil || l == inner:
			break
		case inner == nil:
			inner = l
		case self.pre[l.Head.id] > self.pre[inner.Head.id]:
			self.nest(l, inner)
			inner = l
		default:
			self.nest(inner, l)
		}
	}

	/* a loop head already knows its own loop */
	self.post[n.id] = true
	if inner != nil && (n.ltree == nil || n.ltree.Head != n) {
		n.ltree = inner
	} else if n.ltree != nil && n.ltree.Head == n && inner != nil && inner != n.ltree {
		self.nest(n.ltree, inner)
	}
}

// nest puts inner somewhere below outer, keeping the parent chain ordered by
// the pre-order of the loop heads.
func (self *_LoopBuilder) nest(inner *LoopTree, outer *LoopTree) {
	for inner != outer {
		p := inner.Parent
		switch {
		case p == nil:
			inner.Parent = outer
			return
		case p == outer:
			return
		case self.pre[p.Head.id] > self.pre[outer.Head.id]:
			inner = p
		default:
			inner.Parent = outer
			inner, outer = outer, p
		}
	}
}

// fixLoops gives an exit to every loop that can not reach Stop.
func (self *Graph) fixLoops() {
	for {
		var loop *Node
		reach := self.reachStop()

		/* find the outermost loop that never exits */
		for _, n := range self.ReversePostOrder() {
			if n.op == OpLoop && !reach[n.id] {
				loop = n
				break
			}
		}

		/* all loops exit */
		if loop == nil {
			return
		}
		self.forceExit(loop)
	}
}

func (self *Graph) reachStop() map[int]bool {
	stk := lane.NewStack()
	ret := map[int]bool{self.Stop.id: true}
	stk.Push(self.Stop)

	/* walk backwards along control */
	for !stk.Empty() {
		for _, p := range cfgPreds(stk.Pop().(*Node)) {
			if p != nil && !ret[p.id] {
				ret[p.id] = true
				stk.Push(p)
			}
		}
	}
	return ret
}

// forceExit splits the backedge of loop with a branch that is never taken
// and routes its taken arm to the function return.
func (self *Graph) forceExit(loop *Node) {
	top := self.ConType(types.Top)
	never := self.init(self.newNever(loop.In(2)))
	exit := self.init(self.newCProj(never, 0, "True"))
	back := self.init(self.newCProj(never, 1, "False"))

	/* the false arm keeps looping */
	loop.setDef(2, back)
	self.Stats.ForcedExits++
	tlog.V("looptree").Printw("force exit", "loop", loop, "never", never)

	/* no return at all, make one */
	ret := self.returnNode()
	if ret == nil {
		self.Stop.addDef(self.init(self.newReturn(exit, top)))
		self.init(self.Stop)
		return
	}

	/* the return needs a merge point to hang the new path on */
	r := ret.In(0)
	if r.op != OpRegion {
		r = self.init(self.newRegion(r))
		ret.setDef(0, r)
	}

	/* widen the region and all of its phis */
	phis := make([]*Node, 0, len(r.outs))
	for _, u := range r.outs {
		if u.op == OpPhi && u.In(0) == r {
			phis = append(phis, u)
		}
	}
	r.addDef(exit)
	for _, phi := range phis {
		phi.addDef(top)
	}

	/* values that do not merge at the region get a phi of their own */
	for i := 1; i < len(ret.ins); i++ {
		if v := ret.In(i); v.op != OpPhi || v.In(0) != r {
			ins := make([]*Node, len(r.ins))
			ins[0] = r
			ins[len(ins)-1] = top
			for j := 1; j < len(ins)-1; j++ {
				ins[j] = v
			}
			ret.setDef(i, self.init(self.newPhi("$exit", typeOf(v).Glb(), ins...)))
		}
	}

	/* refresh the types */
	self.init(r)
	for _, phi := range phis {
		self.init(phi)
	}
	self.init(ret)
}

func (self *Graph) returnNode() *Node {
	for _, n := range self.Stop.ins {
		if n != nil && n.op == OpReturn {
			return n
		}
	}
	return nil
}
