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

// Package isaac implements Bob Jenkins' ISAAC pseudo random number generator
// with 32 bits words.
//
// The generator state can be saved and restored with State and SetState, the
// binary layout being the count, the a, b and c accumulators, then the
// interleaved result and memory words, all big-endian.
package isaac

import (
	"github.com/db47h/glulx/internal/glx"
	"github.com/pkg/errors"
)

const (
	sizeL = 8
	size  = 1 << sizeL

	golden = 0x9e3779b9
)

// StateSize is the size in bytes of a serialized generator state.
const StateSize = 16 + 8*size

// Rand is an ISAAC generator. The zero value is not seeded; use New.
type Rand struct {
	cnt     uint32
	a, b, c uint32
	rsl     [size]uint32
	mem     [size]uint32
}

// New returns a new generator. If seed is not empty, its words are placed
// into the result array before initialization; only the first 256 words are
// used. With no seed, the generator is initialized from the golden ratio
// alone.
func New(seed ...uint32) *Rand {
	r := new(Rand)
	r.Seed(seed...)
	return r
}

// Seed re-initializes the generator. See New.
func (r *Rand) Seed(seed ...uint32) {
	r.rsl = [size]uint32{}
	copy(r.rsl[:], seed)
	r.init(len(seed) > 0)
}

func mix(x *[8]uint32) {
	a, b, c, d, e, f, g, h := x[0], x[1], x[2], x[3], x[4], x[5], x[6], x[7]
	a ^= b << 11
	d += a
	b += c
	b ^= c >> 2
	e += b
	c += d
	c ^= d << 8
	f += c
	d += e
	d ^= e >> 16
	g += d
	e += f
	e ^= f << 10
	h += e
	f += g
	f ^= g >> 4
	a += f
	g += h
	g ^= h << 8
	b += g
	h += a
	h ^= a >> 9
	c += h
	a += b
	x[0], x[1], x[2], x[3], x[4], x[5], x[6], x[7] = a, b, c, d, e, f, g, h
}

func (r *Rand) init(flag bool) {
	var x [8]uint32
	r.a, r.b, r.c = 0, 0, 0
	for i := range x {
		x[i] = golden
	}
	for i := 0; i < 4; i++ {
		mix(&x)
	}
	for i := 0; i < size; i += 8 {
		if flag {
			for j := range x {
				x[j] += r.rsl[i+j]
			}
		}
		mix(&x)
		copy(r.mem[i:i+8], x[:])
	}
	if flag {
		// second pass makes all of the seed affect all of mem
		for i := 0; i < size; i += 8 {
			for j := range x {
				x[j] += r.mem[i+j]
			}
			mix(&x)
			copy(r.mem[i:i+8], x[:])
		}
	}
	r.refill()
	r.cnt = size
}

// refill produces the next 256 results.
func (r *Rand) refill() {
	mm := &r.mem
	r.c++
	a, b := r.a, r.b+r.c
	for i := 0; i < size; i++ {
		x := mm[i]
		switch i & 3 {
		case 0:
			a ^= a << 13
		case 1:
			a ^= a >> 6
		case 2:
			a ^= a << 2
		case 3:
			a ^= a >> 16
		}
		a += mm[(i+size/2)&(size-1)]
		y := mm[(x>>2)&(size-1)] + a + b
		mm[i] = y
		b = mm[(y>>(sizeL+2))&(size-1)] + x
		r.rsl[i] = b
	}
	r.a, r.b = a, b
}

// Uint32 returns the next 32 bits value.
func (r *Rand) Uint32() uint32 {
	if r.cnt == 0 {
		r.refill()
		r.cnt = size
	}
	r.cnt--
	return r.rsl[r.cnt]
}

// State serializes the generator state into buf and returns the number of
// bytes written. If buf is nil, State only returns the required size.
func (r *Rand) State(buf []byte) int {
	if buf == nil {
		return StateSize
	}
	if len(buf) < StateSize {
		panic("isaac: state buffer too small")
	}
	glx.WP4(buf[0:], r.cnt)
	glx.WP4(buf[4:], r.a)
	glx.WP4(buf[8:], r.b)
	glx.WP4(buf[12:], r.c)
	p := buf[16:]
	for i := 0; i < size; i++ {
		glx.WP4(p[8*i:], r.rsl[i])
		glx.WP4(p[8*i+4:], r.mem[i])
	}
	return StateSize
}

// SetState restores a state serialized by State. The count is clamped into
// [0, 256].
func (r *Rand) SetState(buf []byte) error {
	if len(buf) < StateSize {
		return errors.Errorf("isaac: state too short: %d bytes, need %d", len(buf), StateSize)
	}
	r.cnt = glx.RP4(buf[0:])
	if r.cnt > size {
		r.cnt = size
	}
	r.a = glx.RP4(buf[4:])
	r.b = glx.RP4(buf[8:])
	r.c = glx.RP4(buf[12:])
	p := buf[16:]
	for i := 0; i < size; i++ {
		r.rsl[i] = glx.RP4(p[8*i:])
		r.mem[i] = glx.RP4(p[8*i+4:])
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r *Rand) MarshalBinary() ([]byte, error) {
	b := make([]byte, StateSize)
	r.State(b)
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *Rand) UnmarshalBinary(data []byte) error {
	return r.SetState(data)
}
