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

	"github.com/SeaOfNodes/Simple-sub002/internal/types"
	"github.com/SeaOfNodes/Simple-sub002/internal/utils"
)

// _Env is the state a front end threads through a function: the current
// control, the value of every variable and the memory state of every alias.
// Every node it refers to is held.
type _Env struct {
	ctrl *Node
	vars []*Node
	mem  []*Node
}

func (self *_Env) each(fn func(p **Node)) {
	fn(&self.ctrl)
	for i := range self.vars {
		fn(&self.vars[i])
	}
	for i := range self.mem {
		fn(&self.mem[i])
	}
}

func (self *_Env) dup() *_Env {
	ret := &_Env{
		ctrl: self.ctrl,
		vars: append([]*Node(nil), self.vars...),
		mem:  append([]*Node(nil), self.mem...),
	}
	ret.each(func(p **Node) { (*p).hold() })
	return ret
}

// drop lets go of every node without reclaiming any, the engine collects
// whatever ends up unused.
func (self *_Env) drop() {
	self.each(func(p **Node) {
		if n := *p; n != nil && !n.dead {
			n.keep--
		}
	})
}

func (self *_Env) set(p **Node, n *Node) {
	if old := *p; old != n {
		*p = n.hold()
		if old != nil && !old.dead {
			old.keep--
		}
	}
}

func (self *_Env) replace(old *Node, n *Node) {
	self.each(func(p **Node) {
		if *p == old {
			self.set(p, n)
		}
	})
}

type _LoopScope struct {
	head   *Node
	nvars  int
	phis   []*Node
	slots  []int
	breaks []*_Env
}

// Builder constructs a function graph the way a front end would: every node
// is handed to the peephole engine as soon as it is created, loops start out
// open and are closed once their backedge is known.
type Builder struct {
	g     *Graph
	env   *_Env
	names []string
	loops []*_LoopScope
	temps []*Node
	ret   *Node
	rval  *Node
	rmem  []*Node
}

// NewBuilder starts a function. Structs used by the function must be declared
// before, since the builder tracks the memory state of every known alias.
func NewBuilder(g *Graph) *Builder {
	ret := &Builder{g: g}
	ret.env = &_Env{ctrl: g.Start.hold(), mem: make([]*Node, g.NumAliases()+1)}

	/* entry memory of every alias */
	for i := 1; i < len(ret.env.mem); i++ {
		ret.env.mem[i] = g.StartMem(i).hold()
	}
	return ret
}

func (self *Builder) Graph() *Graph { return self.g }
func (self *Builder) Ctrl() *Node { return self.env.ctrl }

// Dead reports whether the current point is unreachable, after a Break or a
// Return.
func (self *Builder) Dead() bool {
	return self.env.ctrl == self.g.xctrl
}

func (self *Builder) keep(n *Node) *Node {
	self.temps = append(self.temps, n.hold())
	return n
}

func (self *Builder) peep(n *Node) *Node {
	return self.keep(self.g.Peephole(n))
}

func (self *Builder) slot(name string) int {
	for i := len(self.names) - 1; i >= 0; i-- {
		if self.names[i] == name {
			return i
		}
	}
	return -1
}

// Define introduces a new variable.
func (self *Builder) Define(name string, val *Node) {
	self.names = append(self.names, name)
	self.env.vars = append(self.env.vars, val.hold())
}

// Set assigns an existing variable.
func (self *Builder) Set(name string, val *Node) {
	i := self.slot(name)
	utils.Assert(i >= 0, "builder", "undefined variable %s", name)
	self.env.set(&self.env.vars[i], val)
}

// Get returns the current value of a variable.
func (self *Builder) Get(name string) *Node {
	i := self.slot(name)
	utils.Assert(i >= 0, "builder", "undefined variable %s", name)
	return self.env.vars[i]
}

func (self *Builder) Con(v int64) *Node { return self.keep(self.g.Con(v)) }
func (self *Builder) Null() *Node { return self.keep(self.g.ConType(types.Null)) }

// Arg returns the i-th argument of the function.
func (self *Builder) Arg(i int, t *types.Type, name string) *Node {
	return self.keep(self.g.Arg(i, t, name))
}

func (self *Builder) Binary(op Op, lhs *Node, rhs *Node) *Node {
	return self.peep(self.g.newBinary(op, lhs, rhs))
}

func (self *Builder) Add(lhs *Node, rhs *Node) *Node { return self.Binary(OpAdd, lhs, rhs) }
func (self *Builder) Sub(lhs *Node, rhs *Node) *Node { return self.Binary(OpSub, lhs, rhs) }
func (self *Builder) Mul(lhs *Node, rhs *Node) *Node { return self.Binary(OpMul, lhs, rhs) }
func (self *Builder) Div(lhs *Node, rhs *Node) *Node { return self.Binary(OpDiv, lhs, rhs) }
func (self *Builder) And(lhs *Node, rhs *Node) *Node { return self.Binary(OpAnd, lhs, rhs) }
func (self *Builder) Or(lhs *Node, rhs *Node) *Node { return self.Binary(OpOr, lhs, rhs) }
func (self *Builder) Xor(lhs *Node, rhs *Node) *Node { return self.Binary(OpXor, lhs, rhs) }
func (self *Builder) Shl(lhs *Node, rhs *Node) *Node { return self.Binary(OpShl, lhs, rhs) }
func (self *Builder) Shr(lhs *Node, rhs *Node) *Node { return self.Binary(OpShr, lhs, rhs) }
func (self *Builder) EQ(lhs *Node, rhs *Node) *Node { return self.Binary(OpEQ, lhs, rhs) }
func (self *Builder) LT(lhs *Node, rhs *Node) *Node { return self.Binary(OpLT, lhs, rhs) }
func (self *Builder) LE(lhs *Node, rhs *Node) *Node { return self.Binary(OpLE, lhs, rhs) }
func (self *Builder) NE(lhs *Node, rhs *Node) *Node { return self.Not(self.EQ(lhs, rhs)) }
func (self *Builder) GT(lhs *Node, rhs *Node) *Node { return self.LT(rhs, lhs) }
func (self *Builder) GE(lhs *Node, rhs *Node) *Node { return self.LE(rhs, lhs) }

func (self *Builder) Minus(val *Node) *Node { return self.peep(self.g.newUnary(OpMinus, val)) }
func (self *Builder) Not(val *Node) *Node { return self.peep(self.g.newUnary(OpNot, val)) }

// New allocates a zeroed object and returns the pointer to it.
func (self *Builder) New(st *Struct) *Node {
	g := self.g
	mems := make([]*Node, len(st.aliases))
	for i, a := range st.aliases {
		mems[i] = self.env.mem[a]
	}

	/* the allocation, then the pointer and one memory state per field */
	obj := self.peep(g.newNew(self.env.ctrl, st, mems...))
	ptr := self.peep(g.newProj(obj, 0, types.Ptr(st.Name, false), st.Name))
	for i, a := range st.aliases {
		self.env.set(&self.env.mem[a], self.peep(g.newProj(obj, i+1, types.Mem(a), fmt.Sprintf("$mem%d", a))))
	}
	return ptr
}

// Load reads a field through ptr.
func (self *Builder) Load(st *Struct, field string, ptr *Node) *Node {
	return self.peep(self.g.newLoad(st, field, self.env.mem[st.Alias(field)], ptr))
}

// Store writes val into a field through ptr.
func (self *Builder) Store(st *Struct, field string, ptr *Node, val *Node) {
	p := &self.env.mem[st.Alias(field)]
	self.env.set(p, self.peep(self.g.newStore(st, field, self.env.ctrl, *p, ptr, val)))
}

// Mem returns the current memory state of an alias.
func (self *Builder) Mem(alias int) *Node {
	return self.env.mem[alias]
}

func (self *Builder) branch(pred *Node) (*Node, *Node) {
	iff := self.peep(self.g.newIf(self.env.ctrl, pred))
	t := self.peep(self.g.newCProj(iff, 0, "True"))
	f := self.peep(self.g.newCProj(iff, 1, "False"))
	return t, f
}

func (self *Builder) truncate(env *_Env, n int) {
	for _, v := range env.vars[n:] {
		if v != nil && !v.dead {
			v.keep--
		}
	}
	env.vars = env.vars[:n]
}

// IfElse builds a two way branch. Variables defined inside either arm are
// gone afterwards, either arm may be nil.
func (self *Builder) IfElse(pred *Node, then func(), els func()) {
	nvars := len(self.names)
	t, f := self.branch(pred)

	/* the false arm starts from a copy */
	alt := self.env.dup()
	alt.set(&alt.ctrl, f)
	self.env.set(&self.env.ctrl, t)

	/* the true arm */
	if then != nil {
		then()
	}
	lhs := self.env
	self.truncate(lhs, nvars)

	/* the false arm */
	self.env = alt
	self.names = self.names[:nvars]
	if els != nil {
		els()
	}
	alt = self.env
	self.truncate(alt, nvars)
	self.names = self.names[:nvars]

	/* join both arms */
	self.env = self.merge(lhs, alt)
}

func (self *Builder) merge(envs ...*_Env) *_Env {
	g := self.g
	ctrls := make([]*Node, len(envs))
	for i, e := range envs {
		ctrls[i] = e.ctrl
	}

	/* a region closing all the paths */
	r := self.keep(g.init(g.newRegion(ctrls...)))
	ret := envs[0].dup()
	ret.set(&ret.ctrl, r)

	/* merge every value that differs between the paths */
	ret.each(func(p **Node) {
		if *p == r {
			return
		}
		i := self.offset(ret, p)
		ins := make([]*Node, len(envs)+1)
		ins[0] = r
		same := true
		for j, e := range envs {
			ins[j+1] = e.at(i)
			same = same && ins[j+1] == ins[1]
		}
		if !same {
			ret.set(p, self.peep(g.newPhi(self.nameOf(i), meetOf(ins[1:]).Glb(), ins...)))
		}
	})

	/* release the paths, then see what the region turns into */
	for _, e := range envs {
		e.drop()
	}
	ret.set(&ret.ctrl, self.peep(r))
	return ret
}

// offset maps a slot of env back to a flat index: 0 for control, then the
// variables, then the memory aliases.
func (self *Builder) offset(env *_Env, p **Node) int {
	if p == &env.ctrl {
		return 0
	}
	for i := range env.vars {
		if p == &env.vars[i] {
			return i + 1
		}
	}
	for i := range env.mem {
		if p == &env.mem[i] {
			return len(env.vars) + i + 1
		}
	}
	panic("builder: slot not in env")
}

func (self *_Env) at(i int) *Node {
	switch {
	case i == 0:
		return self.ctrl
	case i <= len(self.vars):
		return self.vars[i-1]
	default:
		return self.mem[i-len(self.vars)-1]
	}
}

func (self *Builder) nameOf(i int) string {
	if i <= len(self.names) {
		return self.names[i-1]
	} else {
		return fmt.Sprintf("$mem%d", i-len(self.names)-1)
	}
}

// While builds a loop that runs body as long as cond holds. The condition is
// evaluated at the loop head.
func (self *Builder) While(cond func() *Node, body func()) {
	g := self.g
	nvars := len(self.names)
	head := self.keep(g.init(g.newLoop(self.env.ctrl)))
	scope := &_LoopScope{head: head, nvars: nvars}

	/* every value gets a phi, unused ones collapse when the loop closes */
	self.env.set(&self.env.ctrl, head)
	self.env.each(func(p **Node) {
		if *p != head && *p != nil {
			i := self.offset(self.env, p)
			phi := self.keep(g.init(g.newPhi(self.nameOf(i), typeOf(*p).Glb(), head, *p, nil)))
			scope.phis = append(scope.phis, phi)
			scope.slots = append(scope.slots, i)
			self.env.set(p, phi)
		}
	})

	/* test at the head, the false arm leaves */
	t, f := self.branch(cond())
	exit := self.env.dup()
	exit.set(&exit.ctrl, f)
	self.truncate(exit, nvars)
	self.env.set(&self.env.ctrl, t)

	/* the body, with its own breaks */
	self.loops = append(self.loops, scope)
	body()
	self.loops = self.loops[:len(self.loops)-1]
	self.truncate(self.env, nvars)
	self.names = self.names[:nvars]

	/* fill in the backedge */
	back := self.env
	head.setDef(2, back.ctrl)
	for i, phi := range scope.phis {
		phi.setDef(2, back.at(scope.slots[i]))
	}
	back.drop()

	/* leave through the test and all the breaks */
	if self.env = exit; len(scope.breaks) != 0 {
		self.env = self.merge(append([]*_Env{exit}, scope.breaks...)...)
	}

	/* close the loop and let the phis settle */
	head.state = Closed
	self.env.replace(head, self.close(head))
	for _, phi := range scope.phis {
		self.env.replace(phi, self.close(phi))
	}
}

// close re-runs the peephole engine on a node whose inputs are complete, and
// moves its users over if it got replaced.
func (self *Builder) close(n *Node) *Node {
	if n.dead {
		return n
	}
	x := self.g.Peephole(n)
	if x != n {
		self.keep(x)
		n.subsume(x)
	}
	return x
}

// Break leaves the innermost loop.
func (self *Builder) Break() {
	utils.Assert(len(self.loops) != 0, "builder", "break outside of a loop")
	scope := self.loops[len(self.loops)-1]
	env := self.env.dup()
	self.truncate(env, scope.nvars)
	scope.breaks = append(scope.breaks, env)
	self.env.set(&self.env.ctrl, self.g.xctrl)
}

// Return leaves the function with val. All returns merge into a single
// Return node when the function is finished.
func (self *Builder) Return(val *Node) {
	g := self.g
	if self.ret == nil {
		self.ret = self.keep(g.init(g.newRegion()))
		self.ret.state = Building
		self.rval = self.keep(g.init(g.newPhi("$ret", types.Bottom, self.ret)))
		for i := 1; i < len(self.env.mem); i++ {
			self.rmem = append(self.rmem, self.keep(g.init(g.newPhi(fmt.Sprintf("$mem%d", i), types.Mem(i), self.ret))))
		}
	}

	/* one more path into the return region */
	self.ret.addDef(self.env.ctrl)
	self.rval.addDef(val)
	for i, phi := range self.rmem {
		phi.addDef(self.env.mem[i+1])
	}
	self.env.set(&self.env.ctrl, g.xctrl)
}

// Finish completes the function: a live fall through returns 0, the return
// region is closed and its Return hooked to Stop. Every hold taken by the
// builder is released.
func (self *Builder) Finish() *Node {
	g := self.g
	if !self.Dead() {
		self.Return(self.Con(0))
	}

	/* close the return region */
	var ret *Node
	if self.ret != nil {
		self.ret.state = Closed
		g.init(self.ret)
		val := self.close(self.rval)
		mems := make([]*Node, len(self.rmem))
		for i, phi := range self.rmem {
			mems[i] = self.close(phi)
		}
		ret = self.keep(g.Peephole(g.newReturn(self.close(self.ret), val, mems...)))
		g.Stop.addDef(ret)
		g.init(g.Stop)
	}

	/* release everything */
	self.env.drop()
	for _, n := range self.temps {
		n.release()
	}
	self.temps = nil
	return ret
}
