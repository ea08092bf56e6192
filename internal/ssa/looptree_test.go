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
	"strings"
	"testing"

	"github.com/SeaOfNodes/Simple-sub002/internal/types"
	"github.com/stretchr/testify/require"
)

func TestLoopTree_Nested(t *testing.T) {
	var inner *Node
	g := newTestGraph()
	b := NewBuilder(g)
	n := b.Arg(0, types.IntBot, "n")
	b.Define("i", b.Con(0))
	b.While(func() *Node {
		return b.LT(b.Get("i"), n)
	}, func() {
		b.Define("j", b.Con(0))
		b.While(func() *Node {
			return b.LT(b.Get("j"), n)
		}, func() {
			inner = b.Ctrl().In(0).In(0)
			b.Set("j", b.Add(b.Get("j"), b.Con(1)))
		})
		b.Set("i", b.Add(b.Get("i"), b.Con(1)))
	})
	outer := b.Get("i").In(0)
	b.Return(b.Get("i"))
	b.Finish()
	g.Iterate()
	root := g.BuildLoopTree()

	/* root, outer loop, inner loop */
	require.Equal(t, OpLoop, outer.Op())
	require.Equal(t, OpLoop, inner.Op())
	require.Same(t, g.Start, root.Head)
	require.Equal(t, 0, root.Depth())
	require.Same(t, outer, outer.Loop().Head)
	require.Same(t, inner, inner.Loop().Head)
	require.Same(t, outer.Loop(), inner.Loop().Parent)
	require.Same(t, root, outer.Loop().Parent)
	require.Equal(t, 2, inner.LoopDepth())
	require.Equal(t, 1, outer.LoopDepth())
	require.Equal(t, 0, g.Stop.LoopDepth())
	require.True(t, strings.HasPrefix(inner.Loop().String(), "loop("))
	g.CheckLoops()
}

func TestLoopTree_ForceExit(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	b.Define("i", b.Con(0))
	b.While(func() *Node {
		return b.Con(1)
	}, func() {
		b.Set("i", b.Add(b.Get("i"), b.Con(1)))
	})
	loop := b.Get("i").In(0)
	require.True(t, b.Dead())
	require.Nil(t, b.Finish())
	require.Zero(t, g.Stop.NIns())
	g.Iterate()
	g.GCM()

	/* Never splits the backedge, the taken arm returns */
	require.Equal(t, 1, g.Stats.ForcedExits)
	require.Equal(t, 1, g.Stop.NIns())
	ret := g.Stop.In(0)
	require.Equal(t, OpReturn, ret.Op())
	require.Equal(t, OpCProj, ret.In(0).Op())
	require.Equal(t, 0, ret.In(0).Index())
	never := ret.In(0).In(0)
	require.Equal(t, OpNever, never.Op())
	require.Same(t, loop, never.In(0))
	require.Equal(t, OpCProj, loop.In(2).Op())
	require.Same(t, never, loop.In(2).In(0))
	require.Equal(t, 1, loop.LoopDepth())

	/* already fixed loops stay as they are */
	g.fixLoops()
	require.Equal(t, 1, g.Stats.ForcedExits)
}

func TestLoopTree_ForceExitMergesReturn(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	c := b.Arg(0, types.Bool, "c")
	b.IfElse(c, func() {
		b.Return(b.Con(7))
	}, func() {
		b.While(func() *Node { return b.Con(1) }, func() {})
	})
	ret := b.Finish()
	g.Iterate()
	g.GCM()

	/* the exit path joins the existing return */
	require.Equal(t, 1, g.Stats.ForcedExits)
	require.Equal(t, 1, g.Stop.NIns())
	require.Same(t, ret, g.Stop.In(0))
	r := ret.In(0)
	require.Equal(t, OpRegion, r.Op())
	require.Equal(t, 3, r.NIns())
	v := ret.In(1)
	require.Equal(t, OpPhi, v.Op())
	require.Same(t, r, v.In(0))
	require.Equal(t, int64(7), v.In(1).Value())
	require.Equal(t, types.Top, v.In(2).Type())
}

func TestDot(t *testing.T) {
	g := newTestGraph()
	b := NewBuilder(g)
	b.Return(b.Add(b.Arg(0, types.IntBot, "x"), b.Con(1)))
	b.Finish()
	g.Iterate()
	dot := g.Dot()
	require.True(t, strings.HasPrefix(dot, "digraph SoN {"))
	require.Contains(t, dot, "Return")
	require.Contains(t, dot, "Add")
	require.True(t, strings.HasSuffix(dot, "}"))
}
