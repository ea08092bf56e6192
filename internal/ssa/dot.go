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
    `fmt`
    `html`
    `strings`

    `github.com/oleiade/lane`
)

func dotnode(n *Node) string {
    var shape string
    var style string

    /* control nodes are boxes, data nodes are ellipses */
    if shape = "ellipse"; n.IsCFG() {
        shape = "box"
        style = ` style = "bold"`
    }

    /* mark the pinned data nodes */
    if !n.IsCFG() && n.Pinned() {
        style = ` style = "dashed"`
    }

    /* label with the type */
    label := html.EscapeString(n.String())
    if n.typ != nil {
        label += "<br/><font point-size=\"10\">" + html.EscapeString(n.typ.String()) + "</font>"
    }
    return fmt.Sprintf(`    n_%d [ shape = "%s"%s label = < %s > ]`, n.id, shape, style, label)
}

// Dot renders every node reachable from Stop as a graphviz digraph. Control
// edges are bold, edges into slot 0 of data nodes are dotted.
func (self *Graph) Dot() string {
    q := lane.NewQueue()
    n := make(map[int]bool)
    buf := []string {
        "digraph SoN {",
        `    graph [ fontname = "Fira Code" rankdir = "BT" ]`,
        `    node [ fontname = "Fira Code" fontsize = "14" ]`,
        `    edge [ fontname = "Fira Code" fontsize = "10" ]`,
    }

    /* breadth first over the inputs */
    n[self.Stop.id] = true
    for q.Enqueue(self.Stop); !q.Empty(); {
        p := q.Dequeue().(*Node)
        buf = append(buf, dotnode(p))

        /* add all the input edges */
        for i, in := range p.ins {
            if in == nil {
                continue
            }

            /* pick the edge style */
            attr := ""
            switch {
                case in.IsCFG() && p.IsCFG() : attr = ` [ style = "bold" ]`
                case i == 0                  : attr = ` [ style = "dotted" ]`
                case p.op == OpPhi           : attr = fmt.Sprintf(` [ label = "%d" ]`, i)
            }

            /* emit the edge */
            buf = append(buf, fmt.Sprintf(`    n_%d -> n_%d%s`, in.id, p.id, attr))
            if !n[in.id] {
                n[in.id] = true
                q.Enqueue(in)
            }
        }
    }

    /* close the graph */
    buf = append(buf, "}")
    return strings.Join(buf, "\n")
}
