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

package simple

import (
	"fmt"

	"github.com/SeaOfNodes/Simple-sub002/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithMaxIterations limits the number of peephole steps a graph may take
// before the optimizer gives up with an InvariantError.
//
// Set this option to "0" disables this limit.
//
// The default value of this option is "1000000", and can also be configured
// with the `SIMPLE_MAX_ITERATIONS` environment variable.
func WithMaxIterations(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("simple: invalid iteration limit: %d", n))
	} else {
		return func(o *opts.Options) { o.MaxIterations = n }
	}
}

// WithWorklistSeed makes the peephole worklist visit nodes in a pseudo random
// order derived from seed. The result of the optimizer does not depend on the
// order, which this option is meant to exercise.
//
// The default value "0" keeps the worklist a plain FIFO.
func WithWorklistSeed(seed int64) Option {
	return func(o *opts.Options) { o.WorklistSeed = seed }
}

// WithVerify enables the consistency checks after every pass: use-def edges,
// dominators, the loop tree and the final schedule.
func WithVerify(v bool) Option {
	return func(o *opts.Options) { o.Verify = v }
}

// WithConfigFile loads options from a YAML file, on top of the defaults. Keys
// missing from the file keep their default values.
func WithConfigFile(path string) (Option, error) {
	if v, err := opts.LoadFile(path); err != nil {
		return nil, err
	} else {
		return func(o *opts.Options) { *o = v }, nil
	}
}
