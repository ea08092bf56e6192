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
	"github.com/SeaOfNodes/Simple-sub002/internal/types"
)

// allocSite returns the node a pointer was created by: the New for a fresh
// allocation, Start for anything that existed on entry, or nil when unknown.
func allocSite(ptr *Node) *Node {
	if ptr.op != OpProj {
		return nil
	}
	switch p := ptr.In(0); {
	case p.op == OpNew && ptr.idx == 0:
		return p
	case p.op == OpStart:
		return p
	default:
		return nil
	}
}

// disjoint reports whether two pointers provably refer to different objects.
// Objects passed in on entry always predate a New, and two distinct New nodes
// never return the same object.
func disjoint(a *Node, b *Node) bool {
	sa := allocSite(a)
	sb := allocSite(b)
	return sa != nil && sb != nil && sa != sb && (sa.op == OpNew || sb.op == OpNew)
}

func zeroOf(t *types.Type) *types.Type {
	if t.IsPtr() {
		return types.Null
	} else {
		return types.Zero
	}
}

func (self *Node) idealizeLoad() *Node {
	g := self.g
	mem, ptr := self.In(1), self.In(2)

	/* forward the value of a store to the same field of the same object */
	if mem.op == OpStore && mem.In(2) == ptr && mem.alias == self.alias {
		return mem.In(3)
	}

	/* skip stores into other objects */
	if mem.op == OpStore && mem.alias == self.alias && disjoint(ptr, mem.In(2)) {
		return self.setDef(1, mem.In(1))
	}

	/* freshly allocated objects are zeroed */
	if mem.op != OpProj || mem.In(0).op != OpNew || mem.alias != self.alias {
		return nil
	}
	obj := mem.In(0)
	if allocSite(ptr) == obj {
		return g.ConType(zeroOf(self.con))
	}

	/* an allocation of some other object does not touch this one */
	if p := obj.outPtr(); p == nil || disjoint(ptr, p) {
		return self.setDef(1, obj.In(mem.idx))
	} else {
		return nil
	}
}

// outPtr returns the pointer projection of a New, if still around.
func (self *Node) outPtr() *Node {
	for _, u := range self.outs {
		if u.op == OpProj && u.idx == 0 {
			return u
		}
	}
	return nil
}

func (self *Node) memProj(alias int) *Node {
	for _, u := range self.outs {
		if u.op == OpProj && u.idx != 0 && u.alias == alias {
			return u
		}
	}
	return nil
}

// idealizeStore drops a store that is overwritten by this one before anyone
// could observe it.
func (self *Node) idealizeStore() *Node {
	st := self.In(1)
	if st.op != OpStore || st.alias != self.alias || st.In(2) != self.In(2) {
		return nil
	}

	/* the old store must only feed this one, under the same control */
	if len(st.outs) == 1 && st.In(0) == self.In(0) {
		return self.setDef(1, st.In(1))
	} else {
		return nil
	}
}
