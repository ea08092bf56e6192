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
	"sync/atomic"
)

var (
	IterCount     int64
	GvnHitCount   int64
	RewriteCount  int64
	KillCount     int64
	ScheduleCount int64
	ExitCount     int64
)

// Stats counts the work done on one graph.
type Stats struct {
	Iterations  int
	GvnHits     int
	Rewrites    int
	Killed      int
	Scheduled   int
	ForcedExits int
	flushed     [6]int
}

// flush adds everything counted since the last flush to the process-wide
// counters.
func (self *Stats) flush() {
	vals := [...]int{self.Iterations, self.GvnHits, self.Rewrites, self.Killed, self.Scheduled, self.ForcedExits}
	ptrs := [...]*int64{&IterCount, &GvnHitCount, &RewriteCount, &KillCount, &ScheduleCount, &ExitCount}

	/* only the deltas are published */
	for i, v := range vals {
		if d := v - self.flushed[i]; d > 0 {
			atomic.AddInt64(ptrs[i], int64(d))
		}
		self.flushed[i] = v
	}
}
