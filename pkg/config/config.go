// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the TOML configuration of the block layer and wires
// the memory stack it describes: breaker, allocator, pool and factory.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/matrixorigin/moblock/pkg/common/malloc"
	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/logutil"
)

const (
	AllocatorGo   = "go"
	AllocatorMmap = "mmap"

	defaultLogLevel      = "info"
	defaultLogFormat     = "console"
	defaultMmapThreshold = 1 * malloc.MB
	defaultPoolTag       = "block"
)

// Config is the configuration of a process using blocks.
type Config struct {
	Log    logutil.LogConfig `toml:"log"`
	Memory MemoryConfig      `toml:"memory"`
}

// MemoryConfig describes accounted block memory.
type MemoryConfig struct {
	//name of the memory pool. default: "block"
	PoolTag string `toml:"pool-tag"`

	//budget of accounted memory in bytes, 0 for unlimited. default: 0
	Limit int64 `toml:"limit"`

	//value buffer size from which builders switch to big arrays, 0 never
	//switches. default: 512KB
	MaxPrimitiveArrayBytes *int64 `toml:"max-primitive-array-bytes"`

	//"go" or "mmap". default: "go"
	Allocator string `toml:"allocator"`

	//allocations from this size are mapped when Allocator is "mmap". default: 1MB
	MmapThreshold uint64 `toml:"mmap-threshold"`

	//panic on double release. default: true
	CheckDoubleRelease *bool `toml:"check-double-release"`

	//export allocator metrics. default: false
	EnableMetrics bool `toml:"enable-metrics"`
}

// Parse decodes a TOML document and fills in the defaults.
func Parse(data string) (*Config, error) {
	cfg := &Config{}
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, moerr.NewBadConfigNoCtx("%v", err)
	}
	for _, key := range md.Undecoded() {
		logutil.Warn("unknown configuration key", zap.String("key", key.String()))
	}
	cfg.SetDefaults()
	return cfg, nil
}

// LoadFile reads, decodes and validates a configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load configuration %s", path)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "load configuration %s", path)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills in every unset field.
func (c *Config) SetDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
	m := &c.Memory
	if m.PoolTag == "" {
		m.PoolTag = defaultPoolTag
	}
	if m.MaxPrimitiveArrayBytes == nil {
		n := int64(512 * malloc.KB)
		m.MaxPrimitiveArrayBytes = &n
	}
	if m.Allocator == "" {
		m.Allocator = AllocatorGo
	}
	if m.MmapThreshold == 0 {
		m.MmapThreshold = defaultMmapThreshold
	}
	if m.CheckDoubleRelease == nil {
		check := true
		m.CheckDoubleRelease = &check
	}
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var err error
	switch c.Log.Level {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		err = multierr.Append(err, moerr.NewBadConfigNoCtx("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		err = multierr.Append(err, moerr.NewBadConfigNoCtx("unknown log format %q", c.Log.Format))
	}
	m := c.Memory
	if m.Limit < 0 {
		err = multierr.Append(err, moerr.NewBadConfigNoCtx("negative memory limit %d", m.Limit))
	}
	if m.MaxPrimitiveArrayBytes != nil && *m.MaxPrimitiveArrayBytes < 0 {
		err = multierr.Append(err, moerr.NewBadConfigNoCtx("negative max-primitive-array-bytes %d", *m.MaxPrimitiveArrayBytes))
	}
	switch m.Allocator {
	case AllocatorGo, AllocatorMmap:
	default:
		err = multierr.Append(err, moerr.NewBadConfigNoCtx("unknown allocator %q", m.Allocator))
	}
	return err
}
