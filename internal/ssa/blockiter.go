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
    `github.com/SeaOfNodes/Simple-sub002/internal/types`
    `github.com/oleiade/lane`
    `golang.org/x/exp/slices`
)

// cfgSuccs returns the live control successors of a CFG node.
func cfgSuccs(n *Node) []*Node {
    var ret []*Node
    for _, u := range n.outs {
        if u.IsCFG() && u.op != OpXCtrl && u.typ != types.XCtrl && !slices.Contains(ret, u) {
            ret = append(ret, u)
        }
    }
    return ret
}

// cfgPreds returns the control predecessors of a CFG node.
func cfgPreds(n *Node) []*Node {
    switch n.op {
        case OpStart  : return nil
        case OpStop   : return n.ins
        case OpRegion : return n.ins[1:]
        case OpLoop   : return n.ins[1:]
        default       : return n.ins[:1]
    }
}

// CFGIter walks the live control nodes in post-order.
type CFGIter struct {
    n *Node
    s *lane.Stack
    v map[int]struct{}
}

func newCFGIter(root *Node) *CFGIter {
    return &CFGIter {
        s: stacknew(root),
        v: map[int]struct{}{ root.id: {} },
    }
}

func stacknew(v interface{}) (r *lane.Stack) {
    r = lane.NewStack()
    r.Push(v)
    return
}

func (self *CFGIter) Next() bool {
    var tail bool
    var this *Node

    /* scan until the stack is empty */
    for !self.s.Empty() {
        tail = true
        this = self.s.Head().(*Node)

        /* add all the successors */
        for _, p := range cfgSuccs(this) {
            if _, ok := self.v[p.id]; !ok {
                tail = false
                self.v[p.id] = struct{}{}
                self.s.Push(p)
                break
            }
        }

        /* all the successors are visited, pop the current node */
        if tail {
            self.n = self.s.Pop().(*Node)
            return true
        }
    }

    /* clear the node pointer to indicate no more nodes */
    self.n = nil
    return false
}

func (self *CFGIter) Reversed() []*Node {
    var ret []*Node

    /* dump all the nodes */
    for self.Next() {
        ret = append(ret, self.n)
    }

    /* reverse the order */
    for i, j := 0, len(ret) - 1; i < j; i, j = i + 1, j - 1 {
        ret[i], ret[j] = ret[j], ret[i]
    }
    return ret
}

// ReversePostOrder lists the live control nodes, defs before uses except
// along loop backedges.
func (self *Graph) ReversePostOrder() []*Node {
    return newCFGIter(self.Start).Reversed()
}
