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
    `github.com/SeaOfNodes/Simple-sub002/internal/utils`
)

// IDepth returns the depth of the node in the dominator tree, Start being 0.
func (self *Node) IDepth() int {
    self.domInfo()
    return self.idepth
}

// IDom returns the immediate dominator of a CFG node, nil for Start.
func (self *Node) IDom() *Node {
    self.domInfo()
    return self.idom
}

func (self *Node) domInfo() {
    if self.dver == self.g.cfgv {
        return
    }

    /* mark first, a malformed cycle must not recurse forever */
    self.dver = self.g.cfgv
    self.idom = nil
    self.idepth = 0

    /* find the immediate dominator */
    switch self.op {
        case OpStart  : return
        case OpXCtrl  : self.idom = self.g.Start
        case OpLoop   : self.idom = self.In(1)
        case OpRegion : self.idom = lcaOfLive(self.ins[1:])
        case OpStop   : self.idom = lcaOfLive(self.ins)
        default       : self.idom = self.In(0)
    }

    /* the dominator tree depth */
    if self.idom != nil {
        self.idepth = self.idom.IDepth() + 1
    }
}

// lcaOfLive merges the live predecessors, or all of them if none is live.
func lcaOfLive(preds []*Node) *Node {
    var lca *Node
    var all *Node

    /* skip dead paths */
    for _, p := range preds {
        if p != nil {
            if all = LCA(all, p); p.typ != nil && !p.typ.IsHigh() {
                lca = LCA(lca, p)
            }
        }
    }

    /* every path is dead */
    if lca == nil {
        return all
    } else {
        return lca
    }
}

// LCA returns the least common ancestor of two CFG nodes in the dominator
// tree, by stepping the deeper of the two chains until they meet.
func LCA(lhs *Node, rhs *Node) *Node {
    if lhs == nil { return rhs }
    if rhs == nil { return lhs }

    /* move them towards each other */
    for lhs != rhs {
        comp := lhs.IDepth() - rhs.IDepth()
        if comp >= 0 { lhs = lhs.IDom() }
        if comp <= 0 { rhs = rhs.IDom() }

        /* sanity check */
        if lhs == nil || rhs == nil {
            utils.Throw("dominator", "disconnected control flow graph")
        }
    }
    return lhs
}

// Dominates reports whether the CFG node a dominates the CFG node b.
func Dominates(a *Node, b *Node) bool {
    for d := a.IDepth(); b != nil && b.IDepth() > d; {
        b = b.IDom()
    }
    return b == a
}

/** This is an implementation of the Lengauer-Tarjan algorithm described in
 *  https://doi.org/10.1145%2F357062.357071, over the live control nodes.
 *  It is only used to verify the lazily computed dominators above.
 */

type _LtNode struct {
    semi     int
    node     *Node
    dom      *_LtNode
    label    *_LtNode
    parent   *_LtNode
    ancestor *_LtNode
    pred     []*_LtNode
    bucket   map[*_LtNode]struct{}
}

type _LengauerTarjan struct {
    nodes  []*_LtNode
    vertex map[int]int
}

func newLengauerTarjan() *_LengauerTarjan {
    return &_LengauerTarjan {
        vertex: make(map[int]int),
    }
}

func (self *_LengauerTarjan) dfs(n *Node) {
    i := len(self.nodes)
    self.vertex[n.id] = i

    /* create a new node */
    p := &_LtNode {
        semi   : i,
        node   : n,
        bucket : make(map[*_LtNode]struct{}),
    }

    /* add to node list */
    p.label = p
    self.nodes = append(self.nodes, p)

    /* traverse the successors */
    for _, w := range cfgSuccs(n) {
        idx, ok := self.vertex[w.id]

        /* not visited yet */
        if !ok {
            self.dfs(w)
            idx = self.vertex[w.id]
            self.nodes[idx].parent = p
        }

        /* add predecessors */
        q := self.nodes[idx]
        q.pred = append(q.pred, p)
    }
}

func (self *_LengauerTarjan) eval(p *_LtNode) *_LtNode {
    if p.ancestor == nil {
        return p
    } else {
        self.compress(p)
        return p.label
    }
}

func (self *_LengauerTarjan) link(p *_LtNode, q *_LtNode) {
    q.ancestor = p
}

func (self *_LengauerTarjan) compress(p *_LtNode) {
    if p.ancestor.ancestor != nil {
        self.compress(p.ancestor)
        if p.label.semi > p.ancestor.label.semi { p.label = p.ancestor.label }
        p.ancestor = p.ancestor.ancestor
    }
}

func minInt(a int, b int) int {
    if a < b {
        return a
    } else {
        return b
    }
}

// exactDominators maps the id of every live CFG node to its immediate
// dominator.
func exactDominators(root *Node) map[int]*Node {
    lt := newLengauerTarjan()
    lt.dfs(root)

    /* perform Step 2 and Step 3 simultaneously */
    for i := len(lt.nodes) - 1; i > 0; i-- {
        p := lt.nodes[i]
        q := (*_LtNode)(nil)

        /* Step 2: compute the semidominators in decreasing order by number */
        for _, v := range p.pred {
            q = lt.eval(v)
            p.semi = minInt(p.semi, q.semi)
        }

        /* link the ancestor */
        lt.link(p.parent, p)
        lt.nodes[p.semi].bucket[p] = struct{}{}

        /* Step 3: implicitly define the immediate dominators */
        for v := range p.parent.bucket {
            if q = lt.eval(v); q.semi < v.semi {
                v.dom = q
            } else {
                v.dom = p.parent
            }
        }

        /* clear the bucket */
        for v := range p.parent.bucket {
            delete(p.parent.bucket, v)
        }
    }

    /* Step 4: explicitly define the immediate dominators in increasing order by number */
    for _, p := range lt.nodes[1:] {
        if p.dom.node != lt.nodes[p.semi].node {
            p.dom = p.dom.dom
        }
    }

    /* map the dominator relations */
    ret := make(map[int]*Node, len(lt.nodes))
    for _, p := range lt.nodes[1:] {
        ret[p.node.id] = p.dom.node
    }
    return ret
}
