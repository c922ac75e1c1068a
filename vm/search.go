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
	"bytes"
)

// Search options.
const (
	SearchKeyIndirect       = 0x01
	SearchZeroKeyTerminates = 0x02
	SearchReturnIndex       = 0x04
)

// searchKey returns the key bytes for a search. Direct keys are the low
// keysize bytes of key, big-endian.
func (i *Instance) searchKey(key, keysize, options uint32) []byte {
	if options&SearchKeyIndirect != 0 {
		i.checkRead(key, keysize)
		return append([]byte(nil), i.mem[key:key+keysize]...)
	}
	switch keysize {
	case 1:
		return []byte{byte(key)}
	case 2:
		return []byte{byte(key >> 8), byte(key)}
	case 4:
		return []byte{byte(key >> 24), byte(key >> 16), byte(key >> 8), byte(key)}
	}
	i.fault(DecodeFault, "direct search key of size %d (must be 1, 2 or 4)", keysize)
	return nil
}

// field returns the size bytes of memory at addr.
func (i *Instance) field(addr, size uint32) []byte {
	i.checkRead(addr, size)
	return i.mem[addr : addr+size]
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func notFound(options uint32) uint32 {
	if options&SearchReturnIndex != 0 {
		return 0xFFFFFFFF
	}
	return 0
}

// linearSearch returns the address (or index) of the first struct whose key
// matches. A numstructs of -1 searches until a zero key when
// SearchZeroKeyTerminates is set.
func (i *Instance) linearSearch(key, keysize, start, structsize, numstructs, keyoffset, options uint32) uint32 {
	k := i.searchKey(key, keysize, options)
	for n := uint32(0); numstructs == 0xFFFFFFFF || n < numstructs; n++ {
		addr := start + n*structsize
		f := i.field(addr+keyoffset, keysize)
		if bytes.Equal(f, k) {
			if options&SearchReturnIndex != 0 {
				return n
			}
			return addr
		}
		if options&SearchZeroKeyTerminates != 0 && isZero(f) {
			break
		}
	}
	return notFound(options)
}

// binarySearch searches a table sorted by ascending key, compared as
// unsigned big-endian numbers. If several structs match, the one with the
// lowest index is returned.
func (i *Instance) binarySearch(key, keysize, start, structsize, numstructs, keyoffset, options uint32) uint32 {
	k := i.searchKey(key, keysize, options)
	lo, hi := uint32(0), numstructs
	for lo < hi {
		mid := lo + (hi-lo)/2
		if bytes.Compare(i.field(start+mid*structsize+keyoffset, keysize), k) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < numstructs && bytes.Equal(i.field(start+lo*structsize+keyoffset, keysize), k) {
		if options&SearchReturnIndex != 0 {
			return lo
		}
		return start + lo*structsize
	}
	return notFound(options)
}

// linkedSearch follows the linked list starting at start through the next
// pointer at nextoffset until a null pointer.
func (i *Instance) linkedSearch(key, keysize, start, keyoffset, nextoffset, options uint32) uint32 {
	k := i.searchKey(key, keysize, options)
	for addr := start; addr != 0; addr = i.Load32(addr + nextoffset) {
		f := i.field(addr+keyoffset, keysize)
		if bytes.Equal(f, k) {
			return addr
		}
		if options&SearchZeroKeyTerminates != 0 && isZero(f) {
			break
		}
	}
	return 0
}

func opLinearSearch(i *Instance) {
	a := i.arg
	i.store(i.dst[0], i.linearSearch(a[0], a[1], a[2], a[3], a[4], a[5], a[6]))
}

func opBinarySearch(i *Instance) {
	a := i.arg
	if a[6]&SearchZeroKeyTerminates != 0 {
		i.fault(DecodeFault, "binarysearch does not support the ZeroKeyTerminates option")
	}
	i.store(i.dst[0], i.binarySearch(a[0], a[1], a[2], a[3], a[4], a[5], a[6]))
}

func opLinkedSearch(i *Instance) {
	a := i.arg
	i.store(i.dst[0], i.linkedSearch(a[0], a[1], a[2], a[3], a[4], a[5]))
}
