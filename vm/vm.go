// This file is part of glulx - https://github.com/db47h/glulx
//
// Copyright 2016 Denis Bernard <db047h@gmail.com>
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

package vm

import (
	"os"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/db47h/glulx/glk"
	"github.com/db47h/glulx/isaac"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
)

// Instance represents a Glulx VM instance.
type Instance struct {
	PC  uint32 // Program Counter
	hdr Header

	story      []byte // original story file
	mem        []byte
	origEndMem uint32

	stack        []byte
	sp, fp       uint32
	valstackbase uint32
	localsbase   uint32

	// decoded operands of the current instruction
	opPC uint32
	arg  [8]uint32
	dst  [2]dest

	iosysMode   uint32
	iosysRock   uint32
	stringTable uint32

	rng       *isaac.Rand
	seed      []uint32
	heapStart uint32

	protectStart, protectLen uint32
	undo                     [][]byte
	undoDepth                int

	natives     map[uint32]AccelFunc // known accelerated functions
	accel       map[uint32]AccelFunc // by story address
	accelParams [accelParamCount]uint32

	glk      *glk.Library
	glkWarn  map[uint32]bool
	log      btclog.Logger
	trace    func(i *Instance, pc uint32)
	reg      metrics.Registry
	stats    stats
	insCount int64
	started  bool
	halted   bool
}

type stats struct {
	instructions, glkCalls  metrics.Counter
	saves, restores         metrics.Counter
	undoSaves, undoRestores metrics.Counter
	accelCalls              metrics.Counter
	endMem, heapBlocks      metrics.Gauge
}

// Option interface
type Option func(*Instance) error

// StackSize overrides the stack size given in the story header. It must be a
// multiple of 256. A zero size keeps the header value.
func StackSize(size uint32) Option {
	return func(i *Instance) error {
		if size == 0 {
			return nil
		}
		if size&0xff != 0 {
			return errors.Errorf("stack size %d is not a multiple of 256", size)
		}
		i.hdr.StackSize = size
		return nil
	}
}

// UndoDepth sets the number of undo states kept by saveundo. The default is
// 1. Stories can change it with accelparam 0x100.
func UndoDepth(depth int) Option {
	return func(i *Instance) error {
		if depth < 0 {
			return errors.Errorf("negative undo depth %d", depth)
		}
		i.undoDepth = depth
		return nil
	}
}

// IO sets the Glk library used for all input and output. The library's
// memory is bound to the instance. By default, a glk.TextScreen on the
// standard input and output is used.
func IO(l *glk.Library) Option {
	return func(i *Instance) error {
		i.glk = l
		return nil
	}
}

// Logger sets the logger. The default is btclog.Disabled.
func Logger(log btclog.Logger) Option {
	return func(i *Instance) error {
		i.log = log
		return nil
	}
}

// Tracer sets a function called before each instruction is executed.
func Tracer(fn func(i *Instance, pc uint32)) Option {
	return func(i *Instance) error {
		i.trace = fn
		return nil
	}
}

// Seed seeds the random number generator. By default it is seeded from the
// clock.
func Seed(seed ...uint32) Option {
	return func(i *Instance) error {
		i.seed = append([]uint32{}, seed...)
		return nil
	}
}

// Metrics sets the registry where the VM counters are registered. By
// default, each instance uses its own registry.
func Metrics(r metrics.Registry) Option {
	return func(i *Instance) error {
		i.reg = r
		return nil
	}
}

// SetOptions sets the provided options.
func (i *Instance) SetOptions(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return err
		}
	}
	return nil
}

// New creates a new Glulx Virtual Machine instance for the given story file.
// Load errors are returned as *Error with Kind BadImage.
//
// Options will be set by calling SetOptions.
func New(story []byte, opts ...Option) (*Instance, error) {
	hdr, err := ParseHeader(story)
	if err != nil {
		return nil, err
	}
	i := &Instance{
		hdr:       *hdr,
		story:     story,
		undoDepth: 1,
		log:       btclog.Disabled,
		glkWarn:   make(map[uint32]bool),
		accel:     make(map[uint32]AccelFunc),
	}
	if err = i.SetOptions(opts...); err != nil {
		return nil, err
	}
	if i.glk == nil {
		if i.glk, err = glk.New(glk.NewTextScreen(os.Stdin, os.Stdout)); err != nil {
			return nil, err
		}
	}
	if err = i.glk.SetOptions(glk.WithMemory(i)); err != nil {
		return nil, err
	}
	if i.reg == nil {
		i.reg = metrics.NewRegistry()
	}
	i.stats = stats{
		instructions: metrics.GetOrRegisterCounter("vm.instructions", i.reg),
		glkCalls:     metrics.GetOrRegisterCounter("vm.glk_calls", i.reg),
		saves:        metrics.GetOrRegisterCounter("vm.saves", i.reg),
		restores:     metrics.GetOrRegisterCounter("vm.restores", i.reg),
		undoSaves:    metrics.GetOrRegisterCounter("vm.undo.saves", i.reg),
		undoRestores: metrics.GetOrRegisterCounter("vm.undo.restores", i.reg),
		accelCalls:   metrics.GetOrRegisterCounter("vm.accel_calls", i.reg),
		endMem:       metrics.GetOrRegisterGauge("vm.endmem", i.reg),
		heapBlocks:   metrics.GetOrRegisterGauge("vm.heap.blocks", i.reg),
	}
	if i.seed != nil {
		i.rng = isaac.New(i.seed...)
	} else {
		i.rng = isaac.New(clockSeed())
	}
	i.stack = make([]byte, i.hdr.StackSize)
	i.origEndMem = i.hdr.EndMem
	i.resetMemory()
	i.stringTable = i.hdr.StringTable
	i.log.Infof("loaded story: version %s, RAM %#x-%#x, stack %d bytes",
		versionString(i.hdr.Version), i.hdr.RAMStart, i.hdr.EndMem, i.hdr.StackSize)
	return i, nil
}

func clockSeed() uint32 {
	return uint32(time.Now().UnixNano())
}

// Header returns the story header.
func (i *Instance) Header() Header {
	return i.hdr
}

// IOSystem returns the Glk library used by the instance.
func (i *Instance) IOSystem() *glk.Library {
	return i.glk
}

// Registry returns the metrics registry of the instance.
func (i *Instance) Registry() metrics.Registry {
	return i.reg
}

// InstructionCount returns the number of instructions executed so far.
func (i *Instance) InstructionCount() int64 {
	return i.insCount
}

// Verify reports whether the story file checksum is valid.
func (i *Instance) Verify() bool {
	return Checksum(i.story, i.hdr.ExtStart) == i.hdr.Checksum
}
