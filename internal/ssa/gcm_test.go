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
	"testing"

	"github.com/SeaOfNodes/Simple-sub002/internal/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"
)

func TestDominators_Diamond(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	b.Define("x", b.Con(0))
	b.IfElse(b.Arg(0, types.Bool, "c"), func() {
		b.Set("x", b.Con(1))
	}, func() {
		b.Set("x", b.Con(2))
	})
	b.Return(b.Get("x"))
	ret := b.Finish()
	g.Iterate()

	/* Start -> If -> True/False -> Region */
	r := ret.In(0)
	iff := r.IDom()
	require.Equal(t, OpRegion, r.Op())
	require.Equal(t, OpIf, iff.Op())
	require.Same(t, iff, LCA(r.In(1), r.In(2)))
	require.Same(t, g.Start, iff.IDom())
	require.Equal(t, 0, g.Start.IDepth())
	require.Equal(t, 1, iff.IDepth())
	require.Equal(t, 2, r.IDepth())
	require.Equal(t, 2, r.In(1).IDepth())
	require.True(t, Dominates(g.Start, r))
	require.True(t, Dominates(iff, r.In(2)))
	require.False(t, Dominates(r.In(1), r.In(2)))
	require.False(t, Dominates(r, iff))
	require.Same(t, ret, g.Stop.IDom())
	g.CheckDominators()
}

func TestGCM_LoopInvariants(t *testing.T) {
	var inc *Node
	var lim *Node
	g := newTestGraph()
	b := NewBuilder(g)
	b.Define("sum", b.Con(0))
	b.Define("i", b.Con(0))
	b.While(func() *Node {
		lim = b.Con(10)
		return b.LT(b.Get("i"), lim)
	}, func() {
		b.Set("sum", b.Add(b.Get("sum"), b.Get("i")))
		inc = b.Add(b.Get("i"), b.Con(1))
		b.Set("i", inc)
	})
	sum := b.Get("sum")
	b.Return(sum)
	b.Finish()
	g.Iterate()
	g.GCM()

	/* the increment stays in the body, the constants are hoisted */
	loop := sum.In(0)
	require.Equal(t, OpLoop, loop.Op())
	require.Equal(t, OpCProj, inc.In(0).Op())
	require.Equal(t, 0, inc.In(0).Index())
	require.Equal(t, 1, inc.LoopDepth())
	require.Same(t, g.Start, lim.In(0))
	require.Equal(t, 0, lim.LoopDepth())
	require.Same(t, loop, inc.In(0).In(0).In(0))
	require.Equal(t, 1, loop.Loop().Depth())
	require.Same(t, g.LoopTree(), loop.Loop().Parent)
	require.NotZero(t, g.Stats.Scheduled)
}

func TestGCM_HoistOutOfNestedLoops(t *testing.T) {
	var mul *Node
	g := newTestGraph()
	b := NewBuilder(g)
	n := b.Arg(0, types.IntBot, "n")
	b.Define("i", b.Con(0))
	b.Define("acc", b.Con(0))
	b.While(func() *Node {
		return b.LT(b.Get("i"), n)
	}, func() {
		b.Define("j", b.Con(0))
		b.While(func() *Node {
			return b.LT(b.Get("j"), n)
		}, func() {
			mul = b.Mul(n, n)
			b.Set("acc", b.Add(b.Get("acc"), mul))
			b.Set("j", b.Add(b.Get("j"), b.Con(1)))
		})
		b.Set("i", b.Add(b.Get("i"), b.Con(1)))
	})
	b.Return(b.Get("acc"))
	b.Finish()
	g.Iterate()
	g.GCM()

	/* n * n only depends on the argument */
	require.Same(t, g.Start, mul.In(0))
	require.Equal(t, 0, mul.LoopDepth())
}

func TestGCM_AntiDependence(t *testing.T) {
	var st1 *Node
	g := newTestGraph()
	st := declareS(g)
	b := NewBuilder(g)
	q := b.Arg(0, types.Ptr("S", true), "q")
	v := b.Load(st, "x", q)
	b.IfElse(b.Arg(1, types.Bool, "c"), func() {
		b.Store(st, "x", q, b.Con(1))
		st1 = b.Mem(st.Alias("x"))
	}, nil)
	b.Return(v)
	b.Finish()
	g.Iterate()
	g.GCM()

	/* the load would sink to the merge, but the store is in the way */
	require.Equal(t, OpStore, st1.Op())
	require.Same(t, g.Start, v.In(0))
	require.True(t, Dominates(v.In(0), st1.In(0)))
}

func TestGCM_AntiDependenceEdge(t *testing.T) {
	g := newTestGraph()
	st := declareS(g)
	b := NewBuilder(g)
	q := b.Arg(0, types.Ptr("S", true), "q")
	v := b.Load(st, "x", q)
	b.Store(st, "x", q, b.Con(1))
	store := b.Mem(st.Alias("x"))
	b.Return(b.Add(v, b.Con(2)))
	b.Finish()
	g.Iterate()
	g.GCM()

	/* the load and the store share a block, the store waits for the load */
	require.Equal(t, OpLoad, v.Op())
	require.Equal(t, OpStore, store.Op())
	require.Same(t, g.Start, v.In(0))
	require.Same(t, store.In(0), v.In(0))
	require.True(t, slices.Contains(store.Ins(), v))
}

func TestGCM_Memory(t *testing.T) {
	g := newTestGraph()
	st := declareS(g)
	b := NewBuilder(g)
	p := b.New(st)
	b.Define("i", b.Con(0))
	b.While(func() *Node {
		return b.LT(b.Get("i"), b.Con(10))
	}, func() {
		b.Store(st, "x", p, b.Add(b.Load(st, "x", p), b.Get("i")))
		b.Set("i", b.Add(b.Get("i"), b.Con(1)))
	})
	b.Return(b.Load(st, "x", p))
	b.Finish()
	g.Iterate()
	g.GCM()
	require.Zero(t, g.Stats.ForcedExits)
}

func TestGCM_LoadBeforeLoopStore(t *testing.T) {
	g := newTestGraph()
	st := declareS(g)
	b := NewBuilder(g)
	q := b.Arg(0, types.Ptr("S", false), "q")
	n := b.Arg(1, types.IntBot, "n")
	v := b.Load(st, "x", q)
	b.Define("i", b.Con(0))
	b.While(func() *Node {
		return b.LT(b.Get("i"), n)
	}, func() {
		b.Store(st, "x", q, b.Get("i"))
		b.Set("i", b.Add(b.Get("i"), b.Con(1)))
	})
	b.Return(b.Add(v, b.Get("i")))
	b.Finish()
	g.Iterate()
	g.GCM()

	/* the only use is after the loop, but the loop overwrites the field */
	require.Equal(t, OpLoad, v.Op())
	require.Same(t, g.Start, v.In(0))
	require.Zero(t, v.LoopDepth())
}

func TestGCM_PhisInLoopBody(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	b.Define("a", b.Arg(0, types.IntBot, "a"))
	b.Define("b", b.Arg(1, types.IntBot, "b"))
	b.Define("c", b.Con(0))
	b.Define("i", b.Con(0))
	b.While(func() *Node {
		return b.LT(b.Get("i"), b.Con(10))
	}, func() {
		b.Set("c", b.Mul(b.Get("b"), b.Get("a")))
		b.IfElse(b.Sub(b.Get("b"), b.Get("a")), func() {
			b.Set("a", b.Mul(b.EQ(b.Get("a"), b.Get("c")), b.Get("b")))
		}, func() {
			b.Set("b", b.Sub(b.Get("a"), b.Get("c")))
		})
		b.Set("i", b.Add(b.Get("i"), b.Con(1)))
	})
	b.Return(b.Get("a"))
	b.Finish()
	g.Iterate()
	require.NotPanics(t, g.GCM)

	/* every live node got a block */
	nodes, _ := g.liveNodes()
	for _, n := range nodes {
		if n.op != OpStop {
			require.NotNil(t, n.Block(), "%v", n)
		}
	}
}
