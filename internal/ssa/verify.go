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
	"github.com/oleiade/lane"
	"github.com/yourbasic/graph"
	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"
)

// allNodes lists every node connected to Start or Stop.
func (self *Graph) allNodes() []*Node {
	var ret []*Node
	stk := lane.NewStack()
	vis := make(map[int]bool)
	stk.Push(self.Stop)
	stk.Push(self.Start)

	/* walk along both directions */
	for !stk.Empty() {
		n := stk.Pop().(*Node)
		if n == nil || vis[n.id] {
			continue
		}
		vis[n.id] = true
		ret = append(ret, n)
		for _, in := range n.ins {
			stk.Push(in)
		}
		for _, u := range n.outs {
			stk.Push(u)
		}
	}
	return ret
}

func count(ns []*Node, n *Node) int {
	ret := 0
	for _, v := range ns {
		if v == n {
			ret++
		}
	}
	return ret
}

// CheckEdges makes sure every input edge is mirrored by exactly one output
// edge and that no live node refers to a dead one.
func (self *Graph) CheckEdges() {
	for _, n := range self.allNodes() {
		utils.Assert(!n.dead, "verify", "dead node %v is still linked", n)
		for _, in := range n.ins {
			if in != nil {
				utils.Assert(count(in.outs, n) == count(n.ins, in), "verify", "edge %v -> %v is not mirrored", in, n)
			}
		}
		for _, u := range n.outs {
			utils.Assert(count(u.ins, n) == count(n.outs, u), "verify", "use %v of %v is not mirrored", u, n)
		}
	}
}

// CheckPhis makes sure every Phi has one value per path of its region.
func (self *Graph) CheckPhis() {
	for _, n := range self.allNodes() {
		if n.op != OpPhi {
			continue
		}
		r := n.In(0)
		utils.Assert(r != nil && (r.op == OpRegion || r.op == OpLoop), "verify", "%v is not attached to a region", n)
		utils.Assert(len(n.ins) == len(r.ins), "verify", "%v has %d inputs, but %v has %d", n, len(n.ins), r, len(r.ins))
	}
}

// CheckDominators compares the lazily computed immediate dominators with
// the exact ones.
func (self *Graph) CheckDominators() {
	exact := exactDominators(self.Start)
	for _, n := range self.ReversePostOrder() {
		if n != self.Start {
			utils.Assert(exact[n.id] == n.IDom(), "verify", "idom of %v is %v, expected %v", n, n.IDom(), exact[n.id])
		}
	}
}

// CheckLoops makes sure the loop tree agrees with the strongly connected
// components of the control flow graph.
func (self *Graph) CheckLoops() {
	cfgs := self.ReversePostOrder()
	index := make(map[int]int, len(cfgs))
	for i, n := range cfgs {
		index[n.id] = i
	}

	/* build the control flow graph */
	cfg := graph.New(len(cfgs))
	for i, n := range cfgs {
		for _, s := range cfgSuccs(n) {
			if j, ok := index[s.id]; ok {
				cfg.Add(i, j)
			}
		}
	}

	/* every node in a cycle is in some loop, and nothing else is */
	for _, comp := range graph.StrongComponents(cfg) {
		cyclic := len(comp) > 1
		for _, i := range comp {
			n := cfgs[i]
			if cyclic {
				utils.Assert(n.LoopDepth() > 0, "verify", "%v is in a cycle, but not in a loop", n)
			} else {
				utils.Assert(n.op != OpLoop, "verify", "loop %v has no cycle", n)
			}
		}
	}

	/* loop heads are loops */
	for _, n := range cfgs {
		if l := n.Loop(); l != nil && l.Parent != nil {
			utils.Assert(l.Head.op == OpLoop, "verify", "loop tree head %v is not a loop", l.Head)
		}
	}
}

// CheckSchedule makes sure every node sits in a block dominated by the blocks
// of its inputs. Dominance is computed independently of the lazy dominators.
func (self *Graph) CheckSchedule() {
	cfgs := self.ReversePostOrder()
	dg := simple.NewDirectedGraph()
	dg.AddNode(simple.Node(self.Start.id))
	for _, n := range cfgs {
		for _, s := range cfgSuccs(n) {
			if s != n {
				dg.SetEdge(dg.NewEdge(simple.Node(n.id), simple.Node(s.id)))
			}
		}
	}

	/* the dominance oracle */
	dt := flow.Dominators(simple.Node(self.Start.id), dg)
	dominates := func(a *Node, b *Node) bool {
		for v := dg.Node(int64(b.id)); v != nil; v = dt.DominatorOf(v.ID()) {
			if v.ID() == int64(a.id) {
				return true
			}
		}
		return false
	}

	/* check every placed node */
	nodes, _ := self.liveNodes()
	for _, n := range nodes {
		if n.op == OpStop || n.op == OpXCtrl {
			continue
		}

		/* floating nodes never sit in a branch */
		b := n.Block()
		utils.Assert(b != nil, "verify", "%v has not been scheduled", n)
		if !n.IsCFG() {
			utils.Assert(!n.In(0).op.isBranch(), "verify", "%v is scheduled into branch %v", n, n.In(0))
		}

		/* every data input is available where it is used */
		for i := 1; i < len(n.ins); i++ {
			d := n.ins[i]
			if d == nil || d.IsCFG() {
				continue
			}
			use := b
			if n.op == OpPhi {
				use = n.In(0).In(i).Block()
			}
			utils.Assert(dominates(d.Block(), use), "verify", "%v does not dominate its use in %v", d, n)
		}
	}
}
