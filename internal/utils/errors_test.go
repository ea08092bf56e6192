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
    `strings`
    `testing`

    `github.com/stretchr/testify/require`
)

func TestErrors_Invariant(t *testing.T) {
    defer func() {
        err := recover().(*InvariantError)
        require.Equal(t, "gcm", err.Pass)
        require.Equal(t, "node 7 visited twice", err.Reason)
        require.True(t, strings.HasPrefix(err.Error(), "gcm: node 7 visited twice"))
        require.Contains(t, err.Site.String(), "errors_test.go")
    }()
    Assert(false, "gcm", "node %d visited twice", 7)
}

func TestErrors_Throw(t *testing.T) {
    defer func() {
        v := recover()
        require.IsType(t, (*InvariantError)(nil), v)
        require.Contains(t, v.(*InvariantError).Site.String(), "errors_test.go")
    }()
    Assert(true, "peephole", "never")
    Throw("peephole", "iteration limit %d exceeded", 10)
}
