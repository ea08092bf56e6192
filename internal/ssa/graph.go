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

	"github.com/SeaOfNodes/Simple-sub002/internal/opts"
	"github.com/SeaOfNodes/Simple-sub002/internal/types"
	"github.com/SeaOfNodes/Simple-sub002/internal/utils"
)

// Graph is one compilation session: it owns every node, the value-numbering
// table, the worklist and the counters that would otherwise be globals.
type Graph struct {
	Start *Node
	Stop  *Node
	Stats Stats

	nid       int
	cfgv      int
	nalias    int
	progress  int
	iterating bool
	xctrl     *Node
	ltree     *LoopTree
	work      *worklist
	opts      opts.Options
	gvn       map[uint64][]*Node
	structs   map[string]*Struct
}

// Field is a named and typed member of a Struct.
type Field struct {
	Name string
	Type *types.Type
}

// Struct is a declared record type. Every field gets its own memory alias.
type Struct struct {
	Name    string
	Fields  []Field
	aliases []int
}

func (self *Struct) field(name string) (int, Field) {
	for i, f := range self.Fields {
		if f.Name == name {
			return self.aliases[i], f
		}
	}
	panic(fmt.Sprintf("ssa: struct %s has no field %s", self.Name, name))
}

// Alias returns the memory alias of a field.
func (self *Struct) Alias(name string) int {
	alias, _ := self.field(name)
	return alias
}

func NewGraph(o opts.Options) *Graph {
	ret := &Graph{
		cfgv:    1,
		opts:    o,
		work:    newWorklist(o.WorklistSeed),
		gvn:     make(map[uint64][]*Node),
		structs: make(map[string]*Struct),
	}

	/* the entry, exit and dead control nodes live as long as the graph */
	ret.Start = ret.init(ret.newNode(OpStart)).hold()
	ret.Stop = ret.init(ret.newNode(OpStop)).hold()
	ret.xctrl = ret.init(ret.newNode(OpXCtrl, ret.Start)).hold()
	return ret
}

func (self *Graph) Options() opts.Options { return self.opts }
func (self *Graph) NumAliases() int { return self.nalias }
func (self *Graph) XCtrl() *Node { return self.xctrl }
func (self *Graph) LoopTree() *LoopTree { return self.ltree }

// DeclareStruct registers a struct and assigns one alias per field.
func (self *Graph) DeclareStruct(name string, fields ...Field) *Struct {
	if _, ok := self.structs[name]; ok {
		panic("ssa: duplicated struct " + name)
	}

	/* one memory slice per field */
	st := &Struct{Name: name, Fields: fields}
	for range fields {
		self.nalias++
		st.aliases = append(st.aliases, self.nalias)
	}

	/* add to the table */
	self.structs[name] = st
	return st
}

func (self *Graph) newNode(op Op, ins ...*Node) *Node {
	ret := &Node{id: self.nid, op: op, g: self}
	ret.ins = make([]*Node, 0, len(ins))
	self.nid++

	/* link all the inputs */
	for _, in := range ins {
		ret.ins = append(ret.ins, in)
		if in != nil {
			in.addUse(ret)
		}
	}

	/* new control invalidates the dominator caches */
	ret.cfgChanged()
	return ret
}

// init computes the initial type of a node without any rewriting.
func (self *Graph) init(n *Node) *Node {
	n.setType(n.compute())
	return n
}

func (self *Graph) newConstant(t *types.Type) *Node {
	ret := self.newNode(OpConstant, self.Start)
	ret.con = t
	return ret
}

func (self *Graph) newBinary(op Op, lhs *Node, rhs *Node) *Node {
	utils.Assert(op.IsBinary(), "ssa", "%v is not a binary operator", op)
	return self.newNode(op, nil, lhs, rhs)
}

func (self *Graph) newUnary(op Op, val *Node) *Node {
	return self.newNode(op, nil, val)
}

func (self *Graph) newPhi(name string, declared *types.Type, ins ...*Node) *Node {
	ret := self.newNode(OpPhi, ins...)
	ret.name = name
	ret.con = declared
	if declared.IsMem() {
		ret.alias = declared.Alias()
	}
	return ret
}

func (self *Graph) newRegion(ctrls ...*Node) *Node {
	return self.newNode(OpRegion, append([]*Node{nil}, ctrls...)...)
}

func (self *Graph) newLoop(entry *Node) *Node {
	ret := self.newNode(OpLoop, nil, entry, nil)
	ret.state = Open
	return ret
}

func (self *Graph) newIf(ctrl *Node, pred *Node) *Node {
	return self.newNode(OpIf, ctrl, pred)
}

func (self *Graph) newNever(ctrl *Node) *Node {
	return self.newNode(OpNever, ctrl)
}

func (self *Graph) newCProj(ctrl *Node, idx int, name string) *Node {
	ret := self.newNode(OpCProj, ctrl)
	ret.idx = idx
	ret.name = name
	return ret
}

func (self *Graph) newProj(parent *Node, idx int, declared *types.Type, name string) *Node {
	ret := self.newNode(OpProj, parent)
	ret.idx = idx
	ret.con = declared
	ret.name = name
	if declared.IsMem() {
		ret.alias = declared.Alias()
	}
	return ret
}

func (self *Graph) newReturn(ctrl *Node, val *Node, mems ...*Node) *Node {
	return self.newNode(OpReturn, append([]*Node{ctrl, val}, mems...)...)
}

func (self *Graph) newNew(ctrl *Node, st *Struct, mems ...*Node) *Node {
	ret := self.newNode(OpNew, append([]*Node{ctrl}, mems...)...)
	ret.name = st.Name
	return ret
}

func (self *Graph) newLoad(st *Struct, field string, mem *Node, ptr *Node) *Node {
	alias, f := st.field(field)
	ret := self.newNode(OpLoad, nil, mem, ptr)
	ret.name = field
	ret.alias = alias
	ret.con = f.Type.Glb()
	return ret
}

func (self *Graph) newStore(st *Struct, field string, ctrl *Node, mem *Node, ptr *Node, val *Node) *Node {
	alias, _ := st.field(field)
	ret := self.newNode(OpStore, ctrl, mem, ptr, val)
	ret.name = field
	ret.alias = alias
	return ret
}

// Con returns the integer constant v.
func (self *Graph) Con(v int64) *Node {
	return self.Peephole(self.newConstant(types.Int(v)))
}

// ConType returns a constant node of type t.
func (self *Graph) ConType(t *types.Type) *Node {
	return self.Peephole(self.newConstant(t))
}

// Arg returns the i-th function argument.
func (self *Graph) Arg(i int, t *types.Type, name string) *Node {
	return self.Peephole(self.newProj(self.Start, i+1, t, name))
}

// StartMem returns the memory state of an alias on function entry.
func (self *Graph) StartMem(alias int) *Node {
	return self.Peephole(self.newProj(self.Start, 0, types.Mem(alias), fmt.Sprintf("$mem%d", alias)))
}

func (self *Graph) moveDeps(n *Node) {
	for _, d := range n.deps {
		self.work.push(d)
	}
	n.deps = n.deps[:0]
}
