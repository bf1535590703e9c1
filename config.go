// Copyright 2024 The gofuse Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fuse

import (
	"context"
	"time"

	"github.com/masnagam/gofuse/internal/fusekernel"
)

// KernelConfig is consumed once, at handshake time. Each EnableXxx bit is
// intersected against the same capability bit offered by the kernel's
// INIT_IN; a bit ends up set in the negotiated reply only if both sides
// agree.
type KernelConfig struct {
	MaxReadahead        uint32
	MaxWrite            uint32
	MaxBackground       uint16
	CongestionThreshold uint16
	TimeGran            uint32

	EnableAsyncRead        bool
	EnablePosixLocks       bool
	EnableFileOps          bool
	EnableAtomicOTrunc     bool
	EnableExportSupport    bool
	EnableBigWrites        bool
	EnableDontMask         bool
	EnableSpliceWrite      bool
	EnableSpliceMove       bool
	EnableSpliceRead       bool
	EnableFlockLocks       bool
	EnableHasIoctlDir      bool
	EnableAutoInvalData    bool
	EnableDoReaddirplus    bool
	EnableReaddirplusAuto  bool
	EnableAsyncDio         bool
	EnableWritebackCache   bool
	EnableNoOpenSupport    bool
	EnableParallelDirops   bool
	EnablePosixACL         bool
	EnableHandleKillpriv   bool
	EnableCacheSymlinks    bool
	EnableAbortError       bool
	EnableExplicitInvalData bool
}

// DefaultKernelConfig returns a conservative configuration: the writeback
// cache and big writes, which cost nothing and every caller wants, and
// library-side caps wide enough that the kernel's own values usually win.
func DefaultKernelConfig() KernelConfig {
	return KernelConfig{
		MaxReadahead:        1 << 20,
		MaxWrite:            1 << 20,
		MaxBackground:       12,
		CongestionThreshold: 9,
		TimeGran:            1,
		EnableBigWrites:      true,
		EnableWritebackCache: true,
	}
}

// wireFlags returns cfg's capability toggles as InitFlags, without
// intersecting against what the kernel offered; the handshake does that.
func (cfg *KernelConfig) wireFlags() fusekernel.InitFlags {
	var f fusekernel.InitFlags
	add := func(enabled bool, bit fusekernel.InitFlags) {
		if enabled {
			f |= bit
		}
	}
	add(cfg.EnableAsyncRead, fusekernel.InitAsyncRead)
	add(cfg.EnablePosixLocks, fusekernel.InitPosixLocks)
	add(cfg.EnableFileOps, fusekernel.InitFileOps)
	add(cfg.EnableAtomicOTrunc, fusekernel.InitAtomicOTrunc)
	add(cfg.EnableExportSupport, fusekernel.InitExportSupport)
	add(cfg.EnableBigWrites, fusekernel.InitBigWrites)
	add(cfg.EnableDontMask, fusekernel.InitDontMask)
	add(cfg.EnableSpliceWrite, fusekernel.InitSpliceWrite)
	add(cfg.EnableSpliceMove, fusekernel.InitSpliceMove)
	add(cfg.EnableSpliceRead, fusekernel.InitSpliceRead)
	add(cfg.EnableFlockLocks, fusekernel.InitFlockLocks)
	add(cfg.EnableHasIoctlDir, fusekernel.InitHasIoctlDir)
	add(cfg.EnableAutoInvalData, fusekernel.InitAutoInvalData)
	add(cfg.EnableDoReaddirplus, fusekernel.InitDoReaddirplus)
	add(cfg.EnableReaddirplusAuto, fusekernel.InitReaddirplusAuto)
	add(cfg.EnableAsyncDio, fusekernel.InitAsyncDio)
	add(cfg.EnableWritebackCache, fusekernel.InitWritebackCache)
	add(cfg.EnableNoOpenSupport, fusekernel.InitNoOpenSupport)
	add(cfg.EnableParallelDirops, fusekernel.InitParallelDirops)
	add(cfg.EnablePosixACL, fusekernel.InitPosixACL)
	add(cfg.EnableHandleKillpriv, fusekernel.InitHandleKillpriv)
	add(cfg.EnableCacheSymlinks, fusekernel.InitCacheSymlinks)
	add(cfg.EnableAbortError, fusekernel.InitAbortError)
	add(cfg.EnableExplicitInvalData, fusekernel.InitExplicitInvalData)
	return f
}

// DispatchMode selects one of the two scheduling models.
type DispatchMode int

const (
	// DispatchSingleThreaded serves requests synchronously, one at a
	// time, on the goroutine that calls Session.Serve.
	DispatchSingleThreaded DispatchMode = iota
	// DispatchConcurrent hands each decoded request to a goroutine
	// tracked by an errgroup.Group bound to the session's lifetime.
	DispatchConcurrent
)

// MountConfig is process-level configuration for a Mount call, as opposed
// to KernelConfig's protocol-level tunables.
type MountConfig struct {
	// Options is a comma-separated key=value mount option string, passed
	// through to the mount helper unchanged.
	Options string

	Kernel KernelConfig
	Mode   DispatchMode

	// Logger defaults to a discard-level entry if nil.
	Logger Logger
	// Metrics defaults to an unregistered SessionMetrics if nil.
	Metrics *SessionMetrics

	// OpContext is the parent context for every dispatched request;
	// defaults to context.Background().
	OpContext context.Context

	// ReadTimeout, if nonzero, bounds how long a single read(2) against
	// the device may block before the connection is considered wedged.
	ReadTimeout time.Duration
}

func (c *MountConfig) logger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return discardLogger()
}

func (c *MountConfig) metrics() *SessionMetrics {
	if c.Metrics != nil {
		return c.Metrics
	}
	return noopMetrics()
}

func (c *MountConfig) opContext() context.Context {
	if c.OpContext != nil {
		return c.OpContext
	}
	return context.Background()
}
