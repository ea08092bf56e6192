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

package debug

import (
	"sync/atomic"

	"github.com/SeaOfNodes/Simple-sub002/internal/ssa"
)

// A Stats records process-wide statistics about the optimizer.
type Stats struct {
	Peephole PeepholeStats
	Schedule ScheduleStats
}

// A PeepholeStats records statistics about the peephole engine.
type PeepholeStats struct {
	Iterations int
	GvnHits    int
	Rewrites   int
	Killed     int
}

// A ScheduleStats records statistics about global code motion.
type ScheduleStats struct {
	Scheduled   int
	ForcedExits int
}

// GetStats returns statistics of every graph optimized so far.
func GetStats() Stats {
	return Stats{
		Peephole: PeepholeStats{
			Iterations: int(atomic.LoadInt64(&ssa.IterCount)),
			GvnHits:    int(atomic.LoadInt64(&ssa.GvnHitCount)),
			Rewrites:   int(atomic.LoadInt64(&ssa.RewriteCount)),
			Killed:     int(atomic.LoadInt64(&ssa.KillCount)),
		},
		Schedule: ScheduleStats{
			Scheduled:   int(atomic.LoadInt64(&ssa.ScheduleCount)),
			ForcedExits: int(atomic.LoadInt64(&ssa.ExitCount)),
		},
	}
}
