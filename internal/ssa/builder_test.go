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
	"testing"

	"github.com/SeaOfNodes/Simple-sub002/internal/types"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

func declareS(g *Graph) *Struct {
	return g.DeclareStruct("S", Field{Name: "x", Type: types.IntBot}, Field{Name: "y", Type: types.IntBot})
}

func TestBuilder_IfElseConstant(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	b.Define("x", b.Con(0))
	b.IfElse(b.Con(1), func() {
		b.Set("x", b.Con(1))
	}, func() {
		b.Set("x", b.Con(2))
	})
	require.Equal(t, int64(1), b.Get("x").Value())
	require.Same(t, g.Start, b.Ctrl())
	b.Return(b.Get("x"))
	ret := b.Finish()
	g.Iterate()
	require.Same(t, g.Start, ret.In(0))
	require.Equal(t, int64(1), ret.In(1).Value())
}

func TestBuilder_IfElseMerge(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	b.Define("x", b.Con(0))
	b.IfElse(b.Arg(0, types.Bool, "c"), func() {
		b.Define("tmp", b.Con(5))
		b.Set("x", b.Con(1))
	}, func() {
		b.Set("x", b.Con(2))
	})
	x := b.Get("x")
	require.Equal(t, OpPhi, x.Op())
	require.Equal(t, types.Range(1, 2), x.Type())
	require.Equal(t, -1, b.slot("tmp"))
	b.Return(x)
	ret := b.Finish()
	g.Iterate()

	/* the return hangs off the merge */
	r := ret.In(0)
	require.Equal(t, OpRegion, r.Op())
	require.Same(t, r, x.In(0))
	require.Same(t, x, ret.In(1))
}

func TestBuilder_ElseIf(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	k := b.Arg(0, types.Bool, "k")
	m := b.Arg(1, types.Bool, "m")
	b.Define("a", b.Con(0))
	b.IfElse(k, func() {
		b.Set("a", b.Con(1))
	}, func() {
		b.IfElse(m, func() {
			b.Set("a", b.Con(2))
		}, func() {
			b.Set("a", b.Con(3))
		})
	})

	/* all three values reach the outer merge */
	a := b.Get("a")
	require.Equal(t, OpPhi, a.Op())
	require.Equal(t, types.Range(1, 3), a.Type())
	require.Equal(t, OpPhi, a.In(2).Op())
	require.Equal(t, types.Range(2, 3), a.In(2).Type())
	b.Return(a)
	b.Finish()
	g.Iterate()
	g.GCM()
}

func TestBuilder_LoopInElse(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	b.IfElse(b.Arg(0, types.Bool, "k"), nil, func() {
		b.Define("i", b.Con(0))
		b.While(func() *Node {
			return b.LT(b.Get("i"), b.Con(10))
		}, func() {
			b.Set("i", b.Add(b.Get("i"), b.Con(1)))
		})
	})

	/* the else path joins through the loop exit */
	r := b.Ctrl()
	require.Equal(t, OpRegion, r.Op())
	require.Equal(t, 3, r.NIns())
	require.Equal(t, OpCProj, r.In(2).Op())
	require.Equal(t, 1, r.In(2).Index())
	require.Equal(t, -1, b.slot("i"))
	b.Return(b.Con(3))
	ret := b.Finish()
	g.Iterate()
	g.GCM()
	require.Equal(t, int64(3), ret.In(1).Value())
	require.Zero(t, g.Stats.ForcedExits)
}

func TestBuilder_NoReturn(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	ret := b.Finish()
	g.Iterate()
	require.Equal(t, OpReturn, ret.Op())
	require.Equal(t, int64(0), ret.In(1).Value())
	require.Equal(t, 1, g.Stop.NIns())
}

func TestBuilder_Loop(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	b.Define("sum", b.Con(0))
	b.Define("i", b.Con(0))
	b.While(func() *Node {
		return b.LT(b.Get("i"), b.Con(10))
	}, func() {
		b.Set("sum", b.Add(b.Get("sum"), b.Get("i")))
		b.Set("i", b.Add(b.Get("i"), b.Con(1)))
	})
	sum := b.Get("sum")
	require.Equal(t, OpPhi, sum.Op())
	require.Equal(t, OpLoop, sum.In(0).Op())
	require.Equal(t, Closed, sum.In(0).State())
	b.Return(sum)
	ret := b.Finish()
	g.Iterate()
	require.Same(t, sum, ret.In(1))
	require.Equal(t, OpCProj, ret.In(0).Op())
	require.Equal(t, 1, ret.In(0).Index())
}

func TestBuilder_LoopInvariantPhiCollapses(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	n := b.Arg(0, types.IntBot, "n")
	b.Define("n", n)
	b.Define("i", b.Con(0))
	b.While(func() *Node {
		return b.LT(b.Get("i"), b.Get("n"))
	}, func() {
		b.Set("i", b.Add(b.Get("i"), b.Con(1)))
	})
	require.Same(t, n, b.Get("n"))
	require.Equal(t, OpPhi, b.Get("i").Op())
}

func TestBuilder_Break(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	n := b.Arg(0, types.IntBot, "n")
	lim := b.Add(n, b.Con(3))
	b.Define("i", b.Con(0))
	b.While(func() *Node {
		return b.LT(b.Get("i"), lim)
	}, func() {
		b.Set("i", b.Add(b.Get("i"), b.Con(1)))
		b.IfElse(b.EQ(b.Get("i"), b.Con(5)), func() {
			b.Break()
		}, nil)
	})

	/* both exits merge */
	i := b.Get("i")
	require.Equal(t, OpPhi, i.Op())
	require.Equal(t, OpRegion, i.In(0).Op())
	require.Equal(t, 3, i.NIns())
	b.Return(i)
	b.Finish()
	g.Iterate()
	g.GCM()
	require.Equal(t, 0, g.Stats.ForcedExits)

	/* the bound is computed once, the merge is after the loop */
	require.Equal(t, OpAdd, lim.Op())
	require.Same(t, g.Start, lim.In(0))
	require.Zero(t, lim.LoopDepth())
	require.Zero(t, i.LoopDepth())
	require.Equal(t, 1, i.In(1).LoopDepth())
}

func TestBuilder_BreakOutsideLoop(t *testing.T) {
	b := NewBuilder(newTestGraph())
	require.Panics(t, b.Break)
	require.Panics(t, func() { b.Get("nope") })
}

func TestMemory_StoreLoadForward(t *testing.T) {
	g := newTestGraph()
	st := declareS(g)
	b := NewBuilder(g)
	p := b.New(st)
	require.Equal(t, types.Ptr("S", false), p.Type())

	/* a fresh object is zeroed */
	require.Equal(t, int64(0), b.Load(st, "x", p).Value())

	/* a stored value is read back */
	b.Store(st, "x", p, b.Con(5))
	require.Equal(t, int64(5), b.Load(st, "x", p).Value())
	require.Equal(t, int64(0), b.Load(st, "y", p).Value())
}

func TestMemory_DisjointAllocations(t *testing.T) {
	g := newTestGraph()
	st := declareS(g)
	b := NewBuilder(g)
	q := b.Arg(0, types.Ptr("S", true), "q")
	p := b.New(st)
	b.Store(st, "x", p, b.Con(1))

	/* neither the store nor the allocation touch q */
	v := b.Load(st, "x", q)
	require.Equal(t, OpLoad, v.Op())
	require.Equal(t, OpProj, v.In(1).Op())
	require.Same(t, g.Start, v.In(1).In(0))
	require.Equal(t, st.Alias("x"), v.In(1).Alias())
}

func TestMemory_DeadStore(t *testing.T) {
	g := newTestGraph()
	st := declareS(g)
	b := NewBuilder(g)
	p := b.New(st)
	b.Store(st, "x", p, b.Con(1))
	b.Store(st, "x", p, b.Con(2))
	s := b.Mem(st.Alias("x"))
	require.Equal(t, OpStore, s.Op())
	require.Equal(t, OpProj, s.In(1).Op())
	require.Equal(t, OpNew, s.In(1).In(0).Op())
}

func TestMemory_UnknownPointers(t *testing.T) {
	g := newTestGraph()
	st := declareS(g)
	b := NewBuilder(g)
	q := b.Arg(0, types.Ptr("S", true), "q")
	r := b.Arg(1, types.Ptr("S", true), "r")
	b.Store(st, "x", q, b.Con(1))

	/* two arguments might be the same object */
	v := b.Load(st, "x", r)
	require.Equal(t, OpLoad, v.Op())
	require.Equal(t, OpStore, v.In(1).Op())

	/* other fields are other aliases */
	w := b.Load(st, "y", r)
	require.Equal(t, OpProj, w.In(1).Op())
}

// _ProgGen builds random structured programs over three variables and the
// fields of S.
type _ProgGen struct {
	f     *gofakeit.Faker
	b     *Builder
	st    *Struct
	ptrs  []*Node
	vars  []string
	loops int
	nloop int
}

func (self *_ProgGen) pick(n int) int {
	return self.f.Number(0, n-1)
}

func (self *_ProgGen) field() string {
	return self.st.Fields[self.pick(len(self.st.Fields))].Name
}

func (self *_ProgGen) leaf() *Node {
	switch self.pick(4) {
	case 0:
		return self.b.Con(int64(self.f.Number(-4, 4)))
	case 1:
		return self.b.Load(self.st, self.field(), self.ptrs[self.pick(len(self.ptrs))])
	default:
		return self.b.Get(self.vars[self.pick(len(self.vars))])
	}
}

var _ProgOps = []Op{OpAdd, OpSub, OpMul, OpAnd, OpEQ, OpLT, OpLE}

func (self *_ProgGen) expr(depth int) *Node {
	if depth == 0 || self.pick(3) == 0 {
		return self.leaf()
	}
	op := _ProgOps[self.pick(len(_ProgOps))]
	return self.b.Binary(op, self.expr(depth-1), self.expr(depth-1))
}

func (self *_ProgGen) block(depth int, n int) {
	for i := 0; i < n && !self.b.Dead(); i++ {
		self.stmt(depth)
	}
}

func (self *_ProgGen) stmt(depth int) {
	k := self.pick(2)
	if depth > 0 {
		k = self.pick(6)
	}
	switch k {
	case 0:
		self.b.Set(self.vars[self.pick(len(self.vars))], self.expr(2))
	case 1:
		self.b.Store(self.st, self.field(), self.ptrs[self.pick(len(self.ptrs))], self.expr(2))
	case 2, 3:
		self.b.IfElse(self.expr(2), func() { self.arm(depth - 1) }, func() { self.arm(depth - 1) })
	default:
		self.loop(depth - 1)
	}
}

func (self *_ProgGen) arm(depth int) {
	self.block(depth, self.pick(3))
	if self.loops != 0 && !self.b.Dead() && self.pick(4) == 0 {
		self.b.Break()
	}
}

func (self *_ProgGen) loop(depth int) {
	name := fmt.Sprintf("i%d", self.nloop)
	limit := int64(self.f.Number(1, 8))
	self.nloop++
	self.b.Define(name, self.b.Con(0))
	self.b.While(func() *Node {
		return self.b.LT(self.b.Get(name), self.b.Con(limit))
	}, func() {
		self.loops++
		self.block(depth, 1+self.pick(3))
		if !self.b.Dead() {
			self.b.Set(name, self.b.Add(self.b.Get(name), self.b.Con(1)))
		}
		self.loops--
	})
}

func TestBuilder_RandomPrograms(t *testing.T) {
	f := gofakeit.New(20240521)
	for i := 0; i < 200; i++ {
		g := newTestGraph()
		st := declareS(g)
		require.NotPanics(t, func() {
			b := NewBuilder(g)
			gen := &_ProgGen{f: f, b: b, st: st, vars: []string{"a", "b", "c"}}
			gen.ptrs = []*Node{b.New(st), b.Arg(0, types.Ptr("S", false), "p")}
			for j, name := range gen.vars {
				b.Define(name, b.Arg(j+1, types.IntBot, name))
			}
			gen.block(3, 4)
			if !b.Dead() {
				b.Return(gen.expr(2))
			}
			b.Finish()
			g.Iterate()
			g.GCM()
		}, "program %d", i)
	}
}
