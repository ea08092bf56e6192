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

	"github.com/nikandfor/errors"
	"gopkg.in/yaml.v3"
)

type Options struct {
	MaxIterations int   `yaml:"max-iterations"`
	WorklistSeed  int64 `yaml:"worklist-seed"`
	Verify        bool  `yaml:"verify"`
}

// CanIterate reports whether another peephole step is allowed after n steps.
func (self *Options) CanIterate(n int) bool {
	return self.MaxIterations > n || self.MaxIterations == 0
}

func GetDefaultOptions() Options {
	return Options{
		MaxIterations: MaxIterations,
		WorklistSeed:  WorklistSeed,
		Verify:        Verify,
	}
}

// Parse overlays the YAML document in buf onto o. Keys absent from the
// document keep their current values.
func Parse(buf []byte, o *Options) error {
	if err := yaml.Unmarshal(buf, o); err != nil {
		return errors.Wrap(err, "parse options")
	} else if o.MaxIterations < 0 {
		return errors.New("invalid max-iterations: %d", o.MaxIterations)
	} else {
		return nil
	}
}

// LoadFile reads the options file at path on top of the defaults.
func LoadFile(path string) (Options, error) {
	ret := GetDefaultOptions()
	buf, err := os.ReadFile(path)

	/* check for read errors */
	if err != nil {
		return ret, errors.Wrap(err, "read options %v", path)
	}

	/* parse the document */
	if err = Parse(buf, &ret); err != nil {
		return ret, errors.Wrap(err, "load options %v", path)
	} else {
		return ret, nil
	}
}
