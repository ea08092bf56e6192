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
	"strings"

	"github.com/SeaOfNodes/Simple-sub002/internal/types"
	"github.com/SeaOfNodes/Simple-sub002/internal/utils"
	"golang.org/x/exp/slices"
)

type RegionState uint8

const (
	Closed RegionState = iota
	Building
	Open
)

func (self RegionState) String() string {
	switch self {
	case Closed:
		return "closed"
	case Building:
		return "building"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// Node is the single vertex type of the graph. Inputs are ordered, with slot 0
// reserved for control, outputs are an unordered multiset of users.
type Node struct {
	id    int
	op    Op
	g     *Graph
	ins   []*Node
	outs  []*Node
	deps  []*Node
	typ   *types.Type
	keep  int
	dead  bool
	inGVN bool

	/* payload */
	con   *types.Type
	name  string
	alias int
	idx   int
	state RegionState

	/* control flow caches */
	dver   int
	idepth int
	idom   *Node
	ltree  *LoopTree
	anti   int
}

func (self *Node) Id() int { return self.id }
func (self *Node) Op() Op { return self.op }
func (self *Node) Graph() *Graph { return self.g }
func (self *Node) Type() *types.Type { return self.typ }
func (self *Node) NIns() int { return len(self.ins) }
func (self *Node) NOuts() int { return len(self.outs) }
func (self *Node) Ins() []*Node { return self.ins }
func (self *Node) Outs() []*Node { return self.outs }
func (self *Node) Name() string { return self.name }
func (self *Node) Alias() int { return self.alias }
func (self *Node) Index() int { return self.idx }
func (self *Node) State() RegionState { return self.state }
func (self *Node) IsDead() bool { return self.dead }
func (self *Node) IsCFG() bool { return self.op.IsCFG() }

func (self *Node) In(i int) *Node {
	if i < len(self.ins) {
		return self.ins[i]
	} else {
		return nil
	}
}

// Value returns the integer value of a constant node.
func (self *Node) Value() int64 {
	if self.op != OpConstant {
		utils.Throw("node", "%v is not a constant", self)
	}
	return self.con.Value()
}

// Pinned reports whether the node is bound to its control input and can not
// be moved by the scheduler.
func (self *Node) Pinned() bool {
	switch self.op {
	case OpPhi, OpProj, OpNew, OpStore:
		return true
	default:
		return self.IsCFG()
	}
}

func (self *Node) isUnused() bool {
	return len(self.outs) == 0 && self.keep == 0
}

func (self *Node) String() string {
	switch self.op {
	case OpConstant:
		return fmt.Sprintf("%d:#%s", self.id, self.con)
	case OpProj, OpCProj:
		return fmt.Sprintf("%d:%s(%d)", self.id, self.op, self.idx)
	case OpLoad, OpStore:
		return fmt.Sprintf("%d:%s(.%s)", self.id, self.op, self.name)
	case OpNew:
		return fmt.Sprintf("%d:New(%s)", self.id, self.name)
	default:
		return fmt.Sprintf("%d:%s", self.id, self.op)
	}
}

// Expr renders the data expression rooted at the node, for diagnostics.
func (self *Node) Expr() string {
	var sb strings.Builder
	self.expr(&sb, 8)
	return sb.String()
}

func (self *Node) expr(sb *strings.Builder, depth int) {
	if depth == 0 {
		sb.WriteString("...")
		return
	}

	/* operators */
	if sym, ok := _OpSymbols[self.op]; ok {
		if self.op == OpMinus || self.op == OpNot {
			sb.WriteString("(" + sym)
			self.ins[1].expr(sb, depth-1)
		} else {
			sb.WriteString("(")
			self.ins[1].expr(sb, depth-1)
			sb.WriteString(sym)
			self.ins[2].expr(sb, depth-1)
		}
		sb.WriteString(")")
		return
	}

	/* leaves and merges */
	switch self.op {
	case OpConstant:
		sb.WriteString(self.con.String())
	case OpPhi:
		sb.WriteString("Phi(")
		for i := 1; i < len(self.ins); i++ {
			if i != 1 {
				sb.WriteString(",")
			}
			if self.ins[i] == nil {
				sb.WriteString("_")
			} else if self.ins[i] == self {
				sb.WriteString("self")
			} else {
				self.ins[i].expr(sb, depth-1)
			}
		}
		sb.WriteString(")")
	case OpProj:
		if self.name != "" {
			sb.WriteString(self.name)
		} else {
			sb.WriteString(self.String())
		}
	case OpLoad:
		self.ins[2].expr(sb, depth-1)
		sb.WriteString("." + self.name)
	default:
		sb.WriteString(self.String())
	}
}

func (self *Node) addUse(u *Node) {
	self.outs = append(self.outs, u)
}

// delUse removes one occurrence of u from the outputs and reports whether the
// node became unused.
func (self *Node) delUse(u *Node) bool {
	i := slices.Index(self.outs, u)
	utils.Assert(i >= 0, "node", "%v is not a user of %v", u, self)
	n := len(self.outs) - 1
	self.outs[i] = self.outs[n]
	self.outs[n] = nil
	self.outs = self.outs[:n]
	return self.isUnused()
}

func (self *Node) cfgChanged() {
	if self.IsCFG() {
		self.g.cfgv++
	}
}

func (self *Node) setDef(i int, def *Node) *Node {
	old := self.ins[i]
	if old == def {
		return self
	}

	/* link the new def first, it might be reachable only through the old one */
	self.unlock()
	if def != nil {
		def.addUse(self)
	}

	/* release the old def */
	self.ins[i] = def
	self.cfgChanged()
	if old != nil {
		self.g.work.push(old)
		if old.delUse(self) {
			old.kill()
		}
	}
	return self
}

func (self *Node) addDef(def *Node) *Node {
	self.unlock()
	self.ins = append(self.ins, def)
	self.cfgChanged()
	if def != nil {
		def.addUse(self)
	}
	return self
}

// delDef removes input i, keeping the order of the remaining inputs so that
// Regions and their Phis stay aligned.
func (self *Node) delDef(i int) *Node {
	self.unlock()
	old := self.ins[i]
	self.ins = slices.Delete(self.ins, i, i+1)
	self.cfgChanged()
	if old != nil {
		self.g.work.push(old)
		if old.delUse(self) {
			old.kill()
		}
	}
	return self
}

func (self *Node) swap12() *Node {
	self.unlock()
	self.ins[1], self.ins[2] = self.ins[2], self.ins[1]
	return self
}

func (self *Node) setType(t *types.Type) *types.Type {
	old := self.typ
	if old == t {
		return old
	}

	/* dependents must see the new type */
	self.typ = t
	self.g.moveDeps(self)
	self.cfgChanged()
	return old
}

// addDep registers dep to be revisited whenever this node changes.
func (self *Node) addDep(dep *Node) *Node {
	if dep != nil && dep != self && !slices.Contains(self.deps, dep) {
		self.deps = append(self.deps, dep)
	}
	return self
}

// kill releases an unused node together with every input that becomes
// unused as a result.
func (self *Node) kill() {
	utils.Assert(self.isUnused(), "node", "killing %v which is still in use", self)
	self.unlock()
	self.g.moveDeps(self)
	self.g.Stats.Killed++

	/* release inputs from the last one */
	for len(self.ins) != 0 {
		n := len(self.ins) - 1
		old := self.ins[n]
		self.ins = self.ins[:n]
		if old != nil {
			self.g.work.push(old)
			if old.delUse(self) {
				old.kill()
			}
		}
	}

	/* mark as dead */
	self.cfgChanged()
	self.ins = nil
	self.outs = nil
	self.typ = nil
	self.dead = true
}

// subsume redirects every user of this node to nn, then releases the node
// unless someone still holds it.
func (self *Node) subsume(nn *Node) {
	utils.Assert(nn != self, "node", "%v subsumed by itself", self)
	for len(self.outs) != 0 {
		n := len(self.outs) - 1
		u := self.outs[n]
		self.outs = self.outs[:n]
		u.unlock()
		u.ins[slices.Index(u.ins, self)] = nn
		u.cfgChanged()
		nn.addUse(u)
	}

	/* reclaim the node */
	if self.g.moveDeps(self); self.keep == 0 {
		self.kill()
	}
}

func (self *Node) hold() *Node {
	if self != nil {
		self.keep++
	}
	return self
}

func (self *Node) release() {
	if self == nil || self.dead {
		return
	}
	if self.keep--; self.isUnused() {
		self.kill()
	}
}
