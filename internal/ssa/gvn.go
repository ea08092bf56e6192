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

const (
	_HashPrime  = 1099511628211
	_HashOffset = 14695981039346656037
)

func mix(h uint64, v uint64) uint64 {
	return (h ^ v) * _HashPrime
}

// gvnable reports whether the node takes part in value numbering.
func (self *Node) gvnable() bool {
	switch self.op {
	case OpConstant, OpProj, OpMinus, OpNot, OpLoad:
		return true
	case OpPhi:
		r := self.In(0)
		return (r.op == OpRegion || r.op == OpLoop) && r.state == Closed
	default:
		return self.op.IsBinary()
	}
}

// vid hashes the op, the payload and the identity of every input.
func (self *Node) vid() uint64 {
	h := mix(_HashOffset, uint64(self.op))
	h = mix(h, uint64(self.alias))
	h = mix(h, uint64(self.idx))

	/* payload type */
	if self.con != nil {
		h = mix(h, self.con.Hash())
	}

	/* input identities */
	for _, in := range self.ins {
		if in == nil {
			h = mix(h, 0)
		} else {
			h = mix(h, uint64(in.id)+1)
		}
	}
	return h
}

func (self *Node) eq(other *Node) bool {
	if self.op != other.op || self.con != other.con || self.alias != other.alias || self.idx != other.idx {
		return false
	}

	/* inputs by identity */
	if len(self.ins) != len(other.ins) {
		return false
	}
	for i, in := range self.ins {
		if other.ins[i] != in {
			return false
		}
	}

	/* phis of unfinished regions are never equal */
	if self.op == OpPhi {
		return self.In(0).state == Closed
	} else {
		return true
	}
}

func (self *Graph) gvnFind(n *Node) *Node {
	for _, m := range self.gvn[n.vid()] {
		if m != n && m.eq(n) {
			return m
		}
	}
	return nil
}

func (self *Graph) gvnInsert(n *Node) {
	h := n.vid()
	n.inGVN = true
	self.gvn[h] = append(self.gvn[h], n)
}

// unlock takes the node out of the value numbering table, which must happen
// before any of its inputs change.
func (self *Node) unlock() {
	if !self.inGVN {
		return
	}

	/* remove from the bucket */
	h := self.vid()
	b := self.g.gvn[h]
	for i, m := range b {
		if m == self {
			b[i] = b[len(b)-1]
			b = b[:len(b)-1]
			break
		}
	}

	/* update the table */
	if self.inGVN = false; len(b) == 0 {
		delete(self.g.gvn, h)
	} else {
		self.g.gvn[h] = b
	}
}
