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

// compute is the transfer function: the type of the node given the current
// types of its inputs. It never looks at the cached type of the node itself.
func (self *Node) compute() *types.Type {
	switch self.op {
	case OpStart:
		return types.Ctrl
	case OpStop:
		return types.Bottom
	case OpXCtrl:
		return types.XCtrl
	case OpConstant:
		return self.con
	case OpReturn:
		return types.Tuple(typeOf(self.In(0)), typeOf(self.In(1)))
	case OpRegion, OpLoop:
		return self.computeRegion()
	case OpIf:
		return self.computeIf()
	case OpNever:
		return self.computeNever()
	case OpCProj:
		return self.computeCProj()
	case OpProj:
		return self.computeProj()
	case OpPhi:
		return self.computePhi()
	case OpNew:
		return self.computeNew()
	case OpLoad:
		return self.con
	case OpStore:
		return types.Mem(self.alias)
	case OpMinus:
		return computeMinus(typeOf(self.In(1)))
	case OpNot:
		return computeNot(typeOf(self.In(1)))
	default:
		return self.computeBinary()
	}
}

func typeOf(n *Node) *types.Type {
	if n == nil || n.typ == nil {
		return types.Bottom
	} else {
		return n.typ
	}
}

func (self *Node) computeRegion() *types.Type {
	if self.op == OpLoop {
		if self.In(1) == nil {
			return types.Ctrl
		} else {
			return self.In(1).typ
		}
	}

	/* still collecting paths */
	if self.state == Building {
		return types.Ctrl
	}

	/* alive if any path is alive */
	t := types.XCtrl
	for _, in := range self.ins[1:] {
		if in != nil {
			t = t.Meet(in.typ)
		}
	}
	return t
}

func (self *Node) computeIf() *types.Type {
	if typeOf(self.In(0)) != types.Ctrl {
		return types.IfNeither
	}

	/* constant predicates */
	pred := self.In(1)
	t := typeOf(pred)
	switch t.Kind() {
	case types.KTop:
		return types.IfNeither
	case types.KInt:
		switch {
		case t.IsHigh():
			return types.IfNeither
		case t == types.Zero:
			return types.IfFalse
		case !t.Contains(0):
			return types.IfTrue
		}
	case types.KPtr:
		switch {
		case t == types.Null:
			return types.IfFalse
		case t.IsHigh():
			return types.IfNeither
		case !t.Nilable():
			return types.IfTrue
		}
	}

	/* the same test on a dominating branch decides this one */
	for prior, dom := self, self.IDom(); dom != nil; prior, dom = dom, dom.IDom() {
		if dom.addDep(self); dom.op == OpIf && dom.In(1) == pred && prior.op == OpCProj {
			if prior.idx == 0 {
				return types.IfTrue
			} else {
				return types.IfFalse
			}
		}
	}
	return types.IfBoth
}

func (self *Node) computeNever() *types.Type {
	if typeOf(self.In(0)) == types.Ctrl {
		return types.IfBoth
	} else {
		return types.IfNeither
	}
}

func (self *Node) computeCProj() *types.Type {
	if t := typeOf(self.In(0)); t.Kind() == types.KTuple && self.idx < t.Len() {
		return t.At(self.idx)
	} else {
		return types.XCtrl
	}
}

func (self *Node) computeProj() *types.Type {
	parent := self.In(0)
	if parent.op == OpStart {
		return self.con
	}

	/* element of the parent tuple */
	if t := typeOf(parent); t.Kind() == types.KTuple && self.idx < t.Len() {
		return t.At(self.idx)
	} else if t.IsHigh() {
		return types.Top
	} else {
		return self.con
	}
}

func (self *Node) computePhi() *types.Type {
	r := self.In(0)
	if r.op == OpXCtrl || r.typ == types.XCtrl {
		return types.Top
	}

	/* unfinished regions only know the declared type */
	if (r.op != OpRegion && r.op != OpLoop) || r.state != Closed {
		return self.con
	}

	/* merge the live paths */
	t := types.Top
	for i := 1; i < len(self.ins); i++ {
		if r.In(i).addDep(self).typ != types.XCtrl {
			t = t.Meet(typeOf(self.ins[i]))
		}
	}

	/* loop phis climb a finite ladder */
	if r.op == OpLoop {
		return t.Widen()
	} else {
		return t
	}
}

func (self *Node) computeNew() *types.Type {
	ret := make([]*types.Type, 0, len(self.ins))
	ret = append(ret, types.Ptr(self.name, false))
	for _, mem := range self.ins[1:] {
		ret = append(ret, types.Mem(mem.alias))
	}
	return types.Tuple(ret...)
}

func addOverflows(a int64, b int64) bool {
	s := a + b
	return (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0)
}

func subOverflows(a int64, b int64) bool {
	s := a - b
	return (a >= 0 && b < 0 && s < 0) || (a < 0 && b > 0 && s >= 0)
}

func boolType(v bool) *types.Type {
	if v {
		return types.One
	} else {
		return types.Zero
	}
}

func computeMinus(t *types.Type) *types.Type {
	switch {
	case t.IsHigh():
		return types.IntTop
	case !t.IsInt():
		return types.IntBot
	case t.IsConstant():
		return types.Int(-t.Value())
	case t.Lo() != math.MinInt64:
		return types.Range(-t.Hi(), -t.Lo())
	default:
		return types.IntBot
	}
}

func computeNot(t *types.Type) *types.Type {
	switch {
	case t.IsHigh():
		return types.IntTop
	case t.IsInt() && t.IsConstant():
		return boolType(t.Value() == 0)
	case t.IsInt() && !t.Contains(0):
		return types.Zero
	case t == types.Null:
		return types.One
	case t.IsPtr() && !t.Nilable():
		return types.Zero
	default:
		return types.Bool
	}
}

func (self *Node) computeBinary() *types.Type {
	lhs, rhs := self.In(1), self.In(2)
	l, r := typeOf(lhs), typeOf(rhs)

	/* pointer equality */
	if self.op == OpEQ && (l.IsPtr() || r.IsPtr()) {
		return computeEqPtr(l, r)
	}

	/* unreachable values */
	if l.IsHigh() || r.IsHigh() {
		return types.IntTop
	}

	/* the result is some int, or some boolean */
	if !l.IsInt() || !r.IsInt() {
		if self.op.IsCompare() {
			return types.Bool
		} else {
			return types.IntBot
		}
	}

	/* the same value on both sides */
	if lhs == rhs {
		switch self.op {
		case OpSub, OpXor, OpLT:
			return types.Zero
		case OpEQ, OpLE:
			return types.One
		case OpAnd, OpOr:
			return l
		}
	}

	/* fold constants */
	if l.IsConstant() && r.IsConstant() {
		if t := foldBinary(self.op, l.Value(), r.Value()); t != nil {
			return t
		}
	}

	/* range analysis */
	switch self.op {
	case OpAdd:
		if addOverflows(l.Lo(), r.Lo()) || addOverflows(l.Hi(), r.Hi()) {
			return types.IntBot
		} else {
			return types.Range(l.Lo()+r.Lo(), l.Hi()+r.Hi())
		}
	case OpSub:
		if subOverflows(l.Lo(), r.Hi()) || subOverflows(l.Hi(), r.Lo()) {
			return types.IntBot
		} else {
			return types.Range(l.Lo()-r.Hi(), l.Hi()-r.Lo())
		}
	case OpMul:
		if l == types.Zero || r == types.Zero {
			return types.Zero
		} else {
			return types.IntBot
		}
	case OpAnd:
		return computeAnd(l, r)
	case OpEQ:
		if l.Hi() < r.Lo() || r.Hi() < l.Lo() {
			return types.Zero
		} else {
			return types.Bool
		}
	case OpLT:
		switch {
		case l.Hi() < r.Lo():
			return types.One
		case l.Lo() >= r.Hi():
			return types.Zero
		default:
			return types.Bool
		}
	case OpLE:
		switch {
		case l.Hi() <= r.Lo():
			return types.One
		case l.Lo() > r.Hi():
			return types.Zero
		default:
			return types.Bool
		}
	default:
		return types.IntBot
	}
}

func foldBinary(op Op, x int64, y int64) *types.Type {
	switch op {
	case OpAdd:
		return types.Int(x + y)
	case OpSub:
		return types.Int(x - y)
	case OpMul:
		return types.Int(x * y)
	case OpDiv:
		if y == 0 {
			return nil
		} else {
			return types.Int(x / y)
		}
	case OpAnd:
		return types.Int(x & y)
	case OpOr:
		return types.Int(x | y)
	case OpXor:
		return types.Int(x ^ y)
	case OpShl:
		return types.Int(x << uint64(y&63))
	case OpShr:
		return types.Int(x >> uint64(y&63))
	case OpEQ:
		return boolType(x == y)
	case OpLT:
		return boolType(x < y)
	case OpLE:
		return boolType(x <= y)
	default:
		return nil
	}
}

// computeAnd bounds x & m by m for a non-negative constant mask m.
func computeAnd(l *types.Type, r *types.Type) *types.Type {
	switch {
	case r.IsConstant() && r.Value() >= 0:
		return types.Range(0, r.Value())
	case l.IsConstant() && l.Value() >= 0:
		return types.Range(0, l.Value())
	case l.Lo() >= 0 && r.Lo() >= 0:
		if l.Hi() < r.Hi() {
			return types.Range(0, l.Hi())
		} else {
			return types.Range(0, r.Hi())
		}
	default:
		return types.IntBot
	}
}

func computeEqPtr(l *types.Type, r *types.Type) *types.Type {
	switch {
	case l.IsHigh() || r.IsHigh():
		return types.IntTop
	case l == types.Null && r == types.Null:
		return types.One
	case l == types.Null && r.IsPtr() && !r.Nilable():
		return types.Zero
	case r == types.Null && l.IsPtr() && !l.Nilable():
		return types.Zero
	default:
		return types.Bool
	}
}
