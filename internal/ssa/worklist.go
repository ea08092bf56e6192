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
	"math/rand"

	"github.com/oleiade/lane"
)

// worklist is a FIFO with set semantics: a node already pending is not
// queued twice. A non-zero seed randomizes the end each push goes to.
type worklist struct {
	q   *lane.Deque
	on  map[int]bool
	rng *rand.Rand
}

func newWorklist(seed int64) *worklist {
	ret := &worklist{
		q:  lane.NewDeque(),
		on: make(map[int]bool),
	}
	if seed != 0 {
		ret.rng = rand.New(rand.NewSource(seed))
	}
	return ret
}

func (self *worklist) push(n *Node) {
	if n == nil || n.dead || self.on[n.id] {
		return
	}

	/* add to the queue */
	self.on[n.id] = true
	if self.rng != nil && self.rng.Intn(2) == 0 {
		self.q.Prepend(n)
	} else {
		self.q.Append(n)
	}
}

func (self *worklist) pushAll(ns []*Node) {
	for _, n := range ns {
		self.push(n)
	}
}

func (self *worklist) pop() *Node {
	for !self.q.Empty() {
		n := self.q.Shift().(*Node)
		delete(self.on, n.id)
		if !n.dead {
			return n
		}
	}
	return nil
}

func (self *worklist) has(n *Node) bool {
	return self.on[n.id]
}

func (self *worklist) size() int {
	return self.q.Size()
}

func (self *worklist) reset() {
	for !self.q.Empty() {
		self.q.Shift()
	}
	self.on = make(map[int]bool)
}
