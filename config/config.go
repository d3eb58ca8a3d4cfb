// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the settings of a colexec session from YAML.
package config

import (
	"os"
	"runtime"

	"github.com/apache/arrow/go/v8/arrow/memory"
	"github.com/pkg/errors"
	"github.com/zeroshade/colexec/compute"
	"sigs.k8s.io/yaml"
)

var ErrInvalidConfig = errors.New("invalid config")

// Columnar controls the columnar rewrite.
type Columnar struct {
	Enabled bool `json:"enabled"`
	// AddBias is added to every value produced by the vectorized add
	// kernel.
	AddBias int64 `json:"add_bias"`
}

// Config is the settings of a session.
//
//	columnar:
//	  enabled: true
//	  add_bias: 0
//	batch_size: 4096
//	parallelism: 8
type Config struct {
	Columnar    Columnar `json:"columnar"`
	BatchSize   int64    `json:"batch_size"`
	Parallelism int      `json:"parallelism"`
}

func Default() Config {
	return Config{
		Columnar:    Columnar{Enabled: true},
		BatchSize:   compute.DefaultBatchSize,
		Parallelism: runtime.NumCPU(),
	}
}

// Parse reads a YAML document. Keys missing from data keep their
// default; unknown keys are an error.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "loading config %s", path)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Parallelism <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "parallelism must be positive, got %d", c.Parallelism)
	}
	return nil
}

// ExecCtx returns the evaluation settings described by c.
func (c Config) ExecCtx(mem memory.Allocator) *compute.ExecCtx {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &compute.ExecCtx{Mem: mem, AddBias: c.Columnar.AddBias, BatchSize: c.BatchSize}
}

func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
