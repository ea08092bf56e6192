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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptions_Defaults(t *testing.T) {
	o := GetDefaultOptions()
	require.Equal(t, MaxIterations, o.MaxIterations)
	require.True(t, o.CanIterate(0))
	o.MaxIterations = 0
	require.True(t, o.CanIterate(1 << 30))
	o.MaxIterations = 10
	require.False(t, o.CanIterate(10))
}

func TestOptions_Parse(t *testing.T) {
	o := GetDefaultOptions()
	require.NoError(t, Parse([]byte("max-iterations: 500\nverify: true\n"), &o))
	require.Equal(t, 500, o.MaxIterations)
	require.True(t, o.Verify)
	require.Equal(t, WorklistSeed, o.WorklistSeed)
	require.Error(t, Parse([]byte("max-iterations: -1\n"), &o))
	require.Error(t, Parse([]byte("verify: [\n"), &o))
}

func TestOptions_LoadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "simple.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("worklist-seed: 42\n"), 0644))
	o, err := LoadFile(fn)
	require.NoError(t, err)
	require.Equal(t, int64(42), o.WorklistSeed)
	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
