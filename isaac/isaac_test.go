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

package isaac_test

import (
	"testing"

	"github.com/db47h/glulx/isaac"
)

func TestGolden(t *testing.T) {
	data := []struct {
		name string
		seed []uint32
		exp  []uint32
	}{
		{"seed42", []uint32{42}, []uint32{0x6487456d, 0x0f2e6a22, 0xfbda435a, 0x49021cad}},
		{"unseeded", nil, []uint32{0x71d71fd2, 0xb54adae7, 0xd4788559}},
		{"seq", []uint32{1, 2, 3}, []uint32{0x8c7cd361, 0x5341e1bb}},
	}
	for _, d := range data {
		r := isaac.New(d.seed...)
		for n, exp := range d.exp {
			if got := r.Uint32(); got != exp {
				t.Errorf("%s: output %d: expected %#08x, got %#08x", d.name, n, exp, got)
			}
		}
	}
}

func TestRefill(t *testing.T) {
	r := isaac.New(42)
	var v uint32
	for n := 0; n < 1024; n++ {
		v = r.Uint32()
	}
	if v != 0xfd9b703d {
		t.Errorf("1024th output: expected 0xfd9b703d, got %#08x", v)
	}
}

func TestModulo(t *testing.T) {
	r := isaac.New(42)
	exp := []uint32{33, 66, 6}
	for n, e := range exp {
		if got := r.Uint32() % 100; got != e {
			t.Errorf("output %d: expected %d, got %d", n, e, got)
		}
	}
}

func TestState(t *testing.T) {
	r := isaac.New(7, 11)
	for n := 0; n < 300; n++ {
		r.Uint32()
	}
	if isaac.StateSize != 2064 {
		t.Fatalf("StateSize is %d, expected 2064", isaac.StateSize)
	}
	if sz := r.State(nil); sz != isaac.StateSize {
		t.Fatalf("bad state size %d", sz)
	}
	b, _ := r.MarshalBinary()
	var c isaac.Rand
	if err := c.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}
	for n := 0; n < 600; n++ {
		if x, y := r.Uint32(), c.Uint32(); x != y {
			t.Fatalf("output %d: %#08x != %#08x", n, x, y)
		}
	}
	if err := c.SetState(b[:100]); err == nil {
		t.Error("expected error on short state")
	}
	// clamped count
	b[0], b[1], b[2], b[3] = 0xFF, 0xFF, 0xFF, 0xFF
	if err := c.SetState(b); err != nil {
		t.Fatal(err)
	}
	c.State(b)
	if b[2] != 1 || b[3] != 0 {
		t.Errorf("count not clamped: % x", b[:4])
	}
}
