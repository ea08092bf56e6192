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

package utils

import (
    `fmt`

    `github.com/nikandfor/loc`
)

// InvariantError is raised by an optimizer pass that finds the graph in a
// state it can never legally be in.
type InvariantError struct {
    Pass   string
    Reason string
    Site   loc.PC
}

func (self *InvariantError) Error() string {
    return fmt.Sprintf("%s: %s (at %v)", self.Pass, self.Reason, self.Site)
}

// Throw panics with an InvariantError attributed to the caller of Throw.
func Throw(pass string, format string, args ...interface{}) {
    panic(&InvariantError {
        Pass   : pass,
        Reason : fmt.Sprintf(format, args...),
        Site   : loc.Caller(1),
    })
}

// Assert calls Throw when cond does not hold.
func Assert(cond bool, pass string, format string, args ...interface{}) {
    if !cond {
        panic(&InvariantError {
            Pass   : pass,
            Reason : fmt.Sprintf(format, args...),
            Site   : loc.Caller(1),
        })
    }
}
