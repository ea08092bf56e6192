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

package opts

import (
	"os"
	"strconv"
)

const (
	_DefaultMaxIterations = 1000000 // cutoff at 1M peephole steps per graph
	_DefaultWorklistSeed  = 0       // plain FIFO worklist
)

var (
	MaxIterations = parseOrDefault("SIMPLE_MAX_ITERATIONS", _DefaultMaxIterations, 1)
	WorklistSeed  = parseInt64OrDefault("SIMPLE_WORKLIST_SEED", _DefaultWorklistSeed)
	Verify        = parseBoolOrDefault("SIMPLE_VERIFY", false)
)

func parseOrDefault(key string, def int, min int) int {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseUint(env, 0, 64); err != nil {
		panic("simple: invalid value for " + key)
	} else if ret := int(val); ret < min {
		panic("simple: value too small for " + key)
	} else {
		return ret
	}
}

func parseInt64OrDefault(key string, def int64) int64 {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseInt(env, 0, 64); err != nil {
		panic("simple: invalid value for " + key)
	} else {
		return val
	}
}

func parseBoolOrDefault(key string, def bool) bool {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseBool(env); err != nil {
		panic("simple: invalid value for " + key)
	} else {
		return val
	}
}
