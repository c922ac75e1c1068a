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

// Heap blocks live in VM memory after the heap start, each with an 8 bytes
// header: total block length (header included) and a used flag.
const (
	blockHeader = 8
	blockUsed   = 1

	// MaxMemSize is the largest memory size the heap may grow to.
	MaxMemSize = 0x7fffff00
)

func (i *Instance) block(b uint32) (n uint32, used bool) {
	end := uint32(len(i.mem))
	if b+blockHeader > end || b < i.heapStart {
		i.fault(MemoryFault, "heap block %#x out of heap", b)
	}
	n = glx.RP4(i.mem[b:])
	if n < blockHeader || uint64(b)+uint64(n) > uint64(end) {
		i.fault(MemoryFault, "heap corrupted at %#x", b)
	}
	return n, glx.RP4(i.mem[b+4:])&blockUsed != 0
}

func (i *Instance) putBlock(b, n uint32, used bool) {
	glx.WP4(i.mem[b:], n)
	var flags uint32
	if used {
		flags = blockUsed
	}
	glx.WP4(i.mem[b+4:], flags)
}

// split marks the free block b of length n as used, keeping need bytes and
// turning the rest into a new free block if it is large enough.
func (i *Instance) split(b, n, need uint32) {
	if n-need >= blockHeader+4 {
		i.putBlock(b, need, true)
		i.putBlock(b+need, n-need, false)
	} else {
		i.putBlock(b, n, true)
	}
	i.stats.heapBlocks.Update(int64(len(i.heapBlocks())))
}

// malloc allocates size bytes on the heap and returns the address of the
// block, or 0 on failure. The heap is activated by the first allocation.
func (i *Instance) malloc(size uint32) uint32 {
	if size == 0 || size > MaxMemSize {
		return 0
	}
	need := glx.Align(size, 4) + blockHeader
	end := uint32(len(i.mem))
	if i.heapStart == 0 {
		i.heapStart = end
		i.log.Debugf("heap activated at %#x", end)
	}
	var last uint32
	for b := i.heapStart; b < end; {
		n, used := i.block(b)
		if !used && n >= need {
			i.split(b, n, need)
			return b + blockHeader
		}
		last = b
		b += n
	}
	b, have := end, uint32(0)
	if last != 0 {
		if n, used := i.block(last); !used {
			b, have = last, n
		}
	}
	grow := glx.Align(need-have, 256)
	if uint64(end)+uint64(grow) > MaxMemSize {
		if i.heapStart == end {
			i.heapStart = 0
		}
		return 0
	}
	i.setMemSize(end + grow)
	i.putBlock(b, have+grow, false)
	i.split(b, have+grow, need)
	return b + blockHeader
}

// mfree releases a block returned by malloc. Freeing anything else is a
// MemoryFault. When the last block is freed, the heap is deactivated and
// memory shrinks back to the heap start.
func (i *Instance) mfree(addr uint32) {
	if i.heapStart == 0 || addr < i.heapStart+blockHeader {
		i.fault(MemoryFault, "mfree of %#x: not a heap block", addr)
	}
	target := addr - blockHeader
	end := uint32(len(i.mem))
	var prev, prevLen uint32
	prevFree, found, inUse := false, false, false
	for b := i.heapStart; b < end; {
		n, used := i.block(b)
		if b == target {
			if !used {
				i.fault(MemoryFault, "mfree of %#x: block already free", addr)
			}
			found = true
			start, length := b, n
			if nx := b + n; nx < end {
				if nn, nu := i.block(nx); !nu {
					length += nn
				}
			}
			if prevFree {
				start, length = prev, length+prevLen
			}
			i.putBlock(start, length, false)
			b = start + length
			prevFree = false
			continue
		}
		if used {
			inUse = true
		}
		prev, prevLen, prevFree = b, n, !used
		b += n
	}
	if !found {
		i.fault(MemoryFault, "mfree of %#x: not a heap block", addr)
	}
	if !inUse {
		i.log.Debugf("heap deactivated, memory back to %#x", i.heapStart)
		i.setMemSize(i.heapStart)
		i.heapStart = 0
	}
	i.stats.heapBlocks.Update(int64(len(i.heapBlocks())))
}

// heapBlocks returns the address and size of all used blocks.
func (i *Instance) heapBlocks() [][2]uint32 {
	if i.heapStart == 0 {
		return nil
	}
	var blocks [][2]uint32
	for b, end := i.heapStart, uint32(len(i.mem)); b < end; {
		n, used := i.block(b)
		if used {
			blocks = append(blocks, [2]uint32{b + blockHeader, n - blockHeader})
		}
		b += n
	}
	return blocks
}
