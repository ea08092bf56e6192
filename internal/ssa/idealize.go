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
	"math"

	"github.com/SeaOfNodes/Simple-sub002/internal/types"
)

// idealize applies the local rewrite rules of the node kind. It returns nil
// when nothing changed, the node itself when it was mutated in place, or a
// replacement node.
func (self *Node) idealize() *Node {
	switch self.op {
	case OpStop:
		return self.idealizeStop()
	case OpRegion, OpLoop:
		return self.idealizeRegion()
	case OpCProj:
		return self.idealizeCProj()
	case OpPhi:
		return self.idealizePhi()
	case OpAdd, OpMul, OpAnd, OpOr, OpXor:
		return self.idealizeAssoc()
	case OpSub:
		return self.idealizeSub()
	case OpDiv, OpShl, OpShr:
		return self.idealizeIdentity()
	case OpMinus:
		return self.idealizeMinus()
	case OpNot:
		return self.idealizeNot()
	case OpEQ:
		return self.idealizeEQ()
	case OpLT, OpLE:
		return self.phiCon(false)
	case OpLoad:
		return self.idealizeLoad()
	case OpStore:
		return self.idealizeStore()
	default:
		return nil
	}
}

func (self *Node) idealizeStop() *Node {
	for i, in := range self.ins {
		if typeOf(in.In(0)) == types.XCtrl {
			return self.delDef(i)
		}
	}
	return nil
}

func (self *Node) hasPhi() bool {
	for _, u := range self.outs {
		if u.op == OpPhi && u.In(0) == self {
			return true
		}
	}
	return false
}

func (self *Node) findDeadInput() int {
	for i := 1; i < len(self.ins); i++ {
		if self.ins[i].typ == types.XCtrl {
			return i
		}
	}
	return 0
}

func (self *Node) idealizeRegion() *Node {
	if self.state != Closed {
		return nil
	}

	/* a dead entry kills the whole loop through its type */
	path := self.findDeadInput()
	if path == 1 && self.op == OpLoop {
		return nil
	}

	/* prune the dead path from the phis, then from the region */
	if path != 0 {
		for i := len(self.outs) - 1; i >= 0; i-- {
			if i < len(self.outs) {
				if u := self.outs[i]; u.op == OpPhi && u.In(0) == self && len(u.ins) > path {
					u.delDef(path)
				}
			}
		}

		/* a loop without backedge is a plain region */
		self.delDef(path)
		if self.op == OpLoop {
			self.op = OpRegion
		}
		return self
	}

	/* a single path without phis is the path itself */
	if len(self.ins) == 2 && !self.hasPhi() {
		return self.ins[1]
	} else {
		return nil
	}
}

func (self *Node) idealizeCProj() *Node {
	iff := self.In(0)
	if iff.op != OpIf {
		return nil
	}

	/* the other arm is dead, so is the branch */
	if t := iff.typ; t.Kind() == types.KTuple && t.At(1-self.idx) == types.XCtrl && t.At(self.idx) != types.XCtrl {
		return iff.In(0)
	} else {
		return nil
	}
}

// singleUniqueInput returns the only live input other than the phi itself.
func (self *Node) singleUniqueInput() *Node {
	var live *Node
	r := self.In(0)

	/* a loop with a dead entry is going away anyway */
	if r.op == OpLoop && r.In(1).typ == types.XCtrl {
		return nil
	}

	/* all the live inputs must agree */
	for i := 1; i < len(self.ins); i++ {
		if r.In(i).addDep(self).typ != types.XCtrl && self.ins[i] != self {
			if live == nil || live == self.ins[i] {
				live = self.ins[i]
			} else {
				return nil
			}
		}
	}
	return live
}

func (self *Node) idealizePhi() *Node {
	r := self.In(0)
	if (r.op != OpRegion && r.op != OpLoop) || r.state != Closed {
		return nil
	}

	/* collapse to the only value */
	if live := self.singleUniqueInput(); live != nil {
		return live
	}

	/* pull a common operator down through the phi, never around a backedge */
	if r.op == OpRegion {
		return self.pullDown()
	} else {
		return nil
	}
}

func (self *Node) pullDown() *Node {
	op := self.In(1)
	if op == nil || !op.op.IsBinary() {
		return nil
	}

	/* every input must be the same kind of operator */
	for _, in := range self.ins[1:] {
		if in == nil || in == self || in.op != op.op || in.In(0) != nil {
			return nil
		}
	}

	/* split into two phis */
	lhs := make([]*Node, len(self.ins))
	rhs := make([]*Node, len(self.ins))
	lhs[0], rhs[0] = self.In(0), self.In(0)
	for i := 1; i < len(self.ins); i++ {
		lhs[i] = self.ins[i].In(1)
		rhs[i] = self.ins[i].In(2)
	}

	/* rebuild the operator over the merged operands */
	g := self.g
	l := g.Peephole(g.newPhi(self.name, meetOf(lhs[1:]).Glb(), lhs...))
	r := g.Peephole(g.newPhi(self.name, meetOf(rhs[1:]).Glb(), rhs...))
	return g.newBinary(op.op, l, r)
}

func meetOf(ns []*Node) *types.Type {
	t := types.Top
	for _, n := range ns {
		t = t.Meet(typeOf(n))
	}
	return t
}

func isIdentity(op Op, t *types.Type) bool {
	if !t.IsInt() || !t.IsConstant() {
		return false
	}
	switch v := t.Value(); op {
	case OpAdd, OpSub, OpOr, OpXor, OpShl, OpShr:
		return v == 0
	case OpMul, OpDiv:
		return v == 1
	case OpAnd:
		return v == -1
	default:
		return false
	}
}

func (self *Node) idealizeIdentity() *Node {
	if isIdentity(self.op, typeOf(self.In(2))) {
		return self.In(1)
	} else {
		return nil
	}
}

// idealizeAssoc canonicalizes associative operators into a left-leaning
// spine with constants and phis of constants pushed to the right.
func (self *Node) idealizeAssoc() *Node {
	g := self.g
	op := self.op
	lhs, rhs := self.In(1), self.In(2)

	/* x op identity */
	if isIdentity(op, rhs.typ) {
		return lhs
	}

	/* x op x */
	if lhs == rhs {
		switch op {
		case OpAdd:
			return g.newBinary(OpMul, lhs, g.Con(2))
		case OpAnd, OpOr:
			return lhs
		}
	}

	/* move the non-spine side to the right */
	if lhs.op != op && rhs.op == op {
		return self.swap12()
	}

	/* x op (y op z) ==> (x op y) op z */
	if rhs.op == op {
		return g.newBinary(op, g.Peephole(g.newBinary(op, lhs, rhs.In(1))), rhs.In(2))
	}

	/* no spine on the left, order the two operands */
	if lhs.op != op {
		if splineCmp(lhs, rhs) {
			return self.swap12()
		} else {
			return self.phiCon(true)
		}
	}

	/* (x op c1) op c2 ==> x op (c1 op c2) */
	if lhs.In(2).typ.IsConstant() && rhs.typ.IsConstant() {
		return g.newBinary(op, lhs.In(1), g.Peephole(g.newBinary(op, lhs.In(2), rhs)))
	}

	/* push constants up through phis */
	if pc := self.phiCon(true); pc != nil {
		return pc
	}

	/* (x op y) op z ==> (x op z) op y when z sorts before y */
	if splineCmp(lhs.In(2), rhs) {
		return g.newBinary(op, g.Peephole(g.newBinary(op, lhs.In(1), rhs)), lhs.In(2))
	} else {
		return nil
	}
}

// splineCmp reports whether hi and lo should trade places in a spine.
// Constants sort last, phis of constants next, then everything else by id.
func splineCmp(hi *Node, lo *Node) bool {
	switch {
	case lo.typ.IsConstant():
		return false
	case hi.typ.IsConstant():
		return true
	case lo.op == OpPhi && lo.In(0).typ == types.XCtrl:
		return false
	case hi.op == OpPhi && hi.In(0).typ == types.XCtrl:
		return false
	case lo.op == OpPhi && lo.allCons(hi):
		return false
	case hi.op == OpPhi && hi.allCons(lo):
		return true
	case lo.op == OpPhi && hi.op != OpPhi:
		return true
	case hi.op == OpPhi && lo.op != OpPhi:
		return false
	default:
		return lo.id < hi.id
	}
}

// allCons reports whether every input of a phi is a constant. A phi of an
// unfinished region might get there later, so dep is told when it changes.
func (self *Node) allCons(dep *Node) bool {
	r := self.In(0)
	if r.op != OpRegion && r.op != OpLoop {
		return false
	}

	/* the backedge is not known yet */
	if self.addDep(dep); r.state != Closed {
		return false
	}

	/* check every input */
	for _, in := range self.ins[1:] {
		if in == nil || in.op != OpConstant {
			return false
		}
	}
	return true
}

func pcon(n *Node, dep *Node) *Node {
	if n.op == OpPhi && n.allCons(dep) {
		return n
	} else {
		return nil
	}
}

// phiCon rewrites (Phi(c1, c2) op c3) into Phi(c1 op c3, c2 op c3), which
// folds into a phi of constants. With rotate it also looks through the
// right leg of a spine: (x op Phi(...)) op c.
func (self *Node) phiCon(rotate bool) *Node {
	g := self.g
	lhs, rhs := self.In(1), self.In(2)
	if rhs.typ == types.IntTop {
		return nil
	}

	/* find the phi of constants */
	lphi := pcon(lhs, self)
	if rotate && lphi == nil && len(lhs.ins) > 2 {
		if lhs.op != self.op {
			return nil
		}
		lphi = pcon(lhs.In(2), self)
	}

	/* the other side must be constant too, over the same region */
	if lphi == nil {
		return nil
	}
	if rhs.op != OpConstant && pcon(rhs, self) == nil {
		return nil
	}
	if rhs.op == OpPhi && lphi.In(0) != rhs.In(0) {
		return nil
	}

	/* fold each arm */
	ins := make([]*Node, len(lphi.ins))
	ins[0] = lphi.In(0)
	for i := 1; i < len(ins); i++ {
		r := rhs
		if rhs.op == OpPhi {
			r = rhs.In(i)
		}
		ins[i] = g.Peephole(g.newBinary(self.op, lphi.In(i), r))
	}

	/* rebuild the phi */
	phi := g.Peephole(g.newPhi(lphi.name, meetOf(ins[1:]).Glb(), ins...))
	if lhs == lphi {
		return phi
	} else {
		return g.newBinary(lhs.op, lhs.In(1), phi)
	}
}

func (self *Node) idealizeSub() *Node {
	g := self.g
	lhs, rhs := self.In(1), self.In(2)

	/* x - 0 */
	if isIdentity(OpSub, rhs.typ) {
		return lhs
	}

	/* x - c ==> x + (-c) */
	if t := rhs.typ; t.IsInt() && t.IsConstant() && t.Value() != math.MinInt64 {
		return g.newBinary(OpAdd, lhs, g.Con(-t.Value()))
	}

	/* x - (-y) ==> x + y */
	if rhs.op == OpMinus {
		return g.newBinary(OpAdd, lhs, rhs.In(1))
	} else {
		return nil
	}
}

func (self *Node) idealizeMinus() *Node {
	if x := self.In(1); x.op == OpMinus {
		return x.In(1)
	} else {
		return nil
	}
}

func (self *Node) idealizeNot() *Node {
	if x := self.In(1); x.op == OpNot && x.In(1).op == OpNot {
		return x.In(1)
	} else {
		return nil
	}
}

func (self *Node) idealizeEQ() *Node {
	lhs, rhs := self.In(1), self.In(2)

	/* constants on the right, otherwise ascending ids */
	if lhs.typ.IsConstant() && !rhs.typ.IsConstant() {
		return self.swap12()
	}
	if !lhs.typ.IsConstant() && !rhs.typ.IsConstant() && lhs.id > rhs.id {
		return self.swap12()
	}
	return self.phiCon(false)
}
