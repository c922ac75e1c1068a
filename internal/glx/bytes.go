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

package glx

import "encoding/binary"

// RP2 reads an unaligned big-endian 16 bits value from b.
func RP2(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

// WP2 writes v as an unaligned big-endian 16 bits value to b.
func WP2(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }

// RP4 reads an unaligned big-endian 32 bits value from b.
func RP4(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// WP4 writes v as an unaligned big-endian 32 bits value to b.
func WP4(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }

// SignExtend8 and SignExtend16 return the two's complement 32 bits value of
// their argument.
func SignExtend8(v uint32) uint32 { return uint32(int32(int8(v))) }

// SignExtend16 is the 16 bits version of SignExtend8.
func SignExtend16(v uint32) uint32 { return uint32(int32(int16(v))) }

// Align rounds v up to the next multiple of n, n being a power of 2.
func Align(v, n uint32) uint32 {
	return (v + n - 1) &^ (n - 1)
}
