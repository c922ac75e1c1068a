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
	"github.com/db47h/glulx/internal/glx"
)

func (i *Instance) checkRead(addr, n uint32) {
	if uint64(addr)+uint64(n) > uint64(len(i.mem)) {
		i.fault(MemoryFault, "read of %d bytes at %#x is out of memory (ENDMEM %#x)", n, addr, len(i.mem))
	}
}

func (i *Instance) checkWrite(addr, n uint32) {
	if addr < i.hdr.RAMStart {
		i.fault(MemoryFault, "write to ROM at %#x", addr)
	}
	if uint64(addr)+uint64(n) > uint64(len(i.mem)) {
		i.fault(MemoryFault, "write of %d bytes at %#x is out of memory (ENDMEM %#x)", n, addr, len(i.mem))
	}
}

// Load8 returns the byte at addr. Like all memory accessors, it panics with
// a MemoryFault *Error if addr is out of memory. Accessors are meant to be
// called while the VM is running (from accelerated functions), where Run
// recovers the fault.
func (i *Instance) Load8(addr uint32) uint32 {
	i.checkRead(addr, 1)
	return uint32(i.mem[addr])
}

// Load16 returns the 16 bits big-endian value at addr.
func (i *Instance) Load16(addr uint32) uint32 {
	i.checkRead(addr, 2)
	return uint32(glx.RP2(i.mem[addr:]))
}

// Load32 returns the 32 bits big-endian value at addr.
func (i *Instance) Load32(addr uint32) uint32 {
	i.checkRead(addr, 4)
	return glx.RP4(i.mem[addr:])
}

// Store8 writes the low byte of v at addr. Writes below RAMSTART fail.
func (i *Instance) Store8(addr, v uint32) {
	i.checkWrite(addr, 1)
	i.mem[addr] = byte(v)
}

// Store16 writes the low 16 bits of v at addr.
func (i *Instance) Store16(addr, v uint32) {
	i.checkWrite(addr, 2)
	glx.WP2(i.mem[addr:], uint16(v))
}

// Store32 writes v at addr.
func (i *Instance) Store32(addr, v uint32) {
	i.checkWrite(addr, 4)
	glx.WP4(i.mem[addr:], v)
}

// Load implements glk.Memory.
func (i *Instance) Load(addr uint32, p []byte) {
	i.checkRead(addr, uint32(len(p)))
	copy(p, i.mem[addr:])
}

// Store implements glk.Memory.
func (i *Instance) Store(addr uint32, p []byte) {
	i.checkWrite(addr, uint32(len(p)))
	copy(i.mem[addr:], p)
}

// Mem returns the VM memory. The slice is only valid until the next memory
// resize.
func (i *Instance) Mem() []byte {
	return i.mem
}

// MemSize returns the current size of memory (ENDMEM).
func (i *Instance) MemSize() uint32 {
	return uint32(len(i.mem))
}

// setMemSize changes the size of memory. New bytes are zeroed.
func (i *Instance) setMemSize(size uint32) {
	switch {
	case size < uint32(len(i.mem)):
		i.mem = i.mem[:size:size]
	case size > uint32(len(i.mem)):
		m := make([]byte, size)
		copy(m, i.mem)
		i.mem = m
	}
	i.stats.endMem.Update(int64(size))
}

// resize implements setmemsize. It returns 0 on success and 1 if the heap is
// active.
func (i *Instance) resize(size uint32) uint32 {
	if size == uint32(len(i.mem)) {
		return 0
	}
	if i.heapStart != 0 {
		i.log.Debugf("setmemsize %#x refused: heap is active", size)
		return 1
	}
	if size < i.origEndMem {
		i.fault(MemoryFault, "cannot shrink memory to %#x, below its original size %#x", size, i.origEndMem)
	}
	if size&0xff != 0 {
		i.fault(MemoryFault, "memory size %#x is not a multiple of 256", size)
	}
	i.log.Debugf("memory resized from %#x to %#x", len(i.mem), size)
	i.setMemSize(size)
	return 0
}

// protected returns the protected range clipped to [RAMSTART, limit).
func (i *Instance) protected(limit uint32) (start, end uint32) {
	if i.protectLen == 0 {
		return 0, 0
	}
	start, end = i.protectStart, i.protectStart+i.protectLen
	if end < start {
		end = ^uint32(0)
	}
	if start < i.hdr.RAMStart {
		start = i.hdr.RAMStart
	}
	if end > limit {
		end = limit
	}
	if start >= end {
		return 0, 0
	}
	return start, end
}

// resetMemory restores memory to its state after load, keeping the bytes in
// the protected range, and deactivates the heap.
func (i *Instance) resetMemory() {
	m := make([]byte, i.origEndMem)
	copy(m, i.story[:i.hdr.ExtStart])
	limit := uint32(len(i.mem))
	if limit > i.origEndMem {
		limit = i.origEndMem
	}
	if start, end := i.protected(limit); end > start {
		copy(m[start:end], i.mem[start:end])
	}
	i.mem = m
	i.heapStart = 0
	i.stats.endMem.Update(int64(len(m)))
	i.stats.heapBlocks.Update(0)
}

// origRAM returns the initial contents of RAM.
func (i *Instance) origRAM() []byte {
	return i.story[i.hdr.RAMStart:i.hdr.ExtStart]
}
