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

package inform_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/db47h/glulx/asm"
	"github.com/db47h/glulx/glk"
	"github.com/db47h/glulx/lang/inform"
	"github.com/db47h/glulx/vm"
)

// objects is a small Inform object tree with 7 attribute bytes per object.
// The property id 6 of obj is private.
const objects = `
	.org 0x400
	.ram
Class:	.byte 0x70
	.org 0x420
Object:	.byte 0x70
	.org 0x440
Routine: .byte 0x70
	.org 0x460
String:	.byte 0x70
	.org 0x480
Lamp:	.byte 0x70
	.org 0x490
	.word lampprops
	.word Class
	.org 0x4A0
obj:	.byte 0x70
	.org 0x4B0
	.word objprops
	.org 0x500
objprops: .word 3
	.short 2, 1
	.word list
	.short 0
	.short 5, 1
	.word d5
	.short 0
	.short 6, 1
	.word d6
	.short 1
lampprops: .word 1
	.short 5, 1
	.word d5l
	.short 0
list:	.word Lamp
d5:	.word 0x1234
d6:	.word 0x5678
d5l:	.word 0x9999
self:	.word 0
	.org 0x550
cpv:	.word 0, 0, 0, 0xABCD
classes: .word Lamp
`

// prog calls every function. The function numbers are set with fmt.
const prog = `
	.equ INDIV 64
main:	.func
	accelparam 0 classes
	accelparam 1 INDIV
	accelparam 2 Class
	accelparam 3 Object
	accelparam 4 Routine
	accelparam 5 String
	accelparam 6 self
	accelparam 7 7
	accelparam 8 cpv
	accelfunc 1 zregion
	accelfunc %d cptab
	accelfunc %d rapr
	accelfunc %d rlpr
	accelfunc %d ocl
	accelfunc %d rvpr
	accelfunc %d oppr

	callfi zregion main sp
	callfi zregion str sp
	callfi zregion obj sp
	callfi zregion 0 sp
	callfi zregion 0x7FFFFFFF sp

	callfii cptab obj 5 sp
	callfii rapr obj 5 sp
	callfii rlpr obj 5 sp
	callfii rvpr obj 5 sp
	callfii rvpr obj 3 sp
	callfii rvpr obj 0x50000 sp
	callfii rapr obj 6 sp

	callfii ocl obj Class sp
	callfii ocl Lamp Class sp
	callfii ocl Class Class sp
	callfii ocl obj Object sp
	callfii ocl Lamp Object sp
	callfii ocl obj Lamp sp
	callfii ocl main Routine sp
	callfii ocl str String sp
	callfii ocl obj String sp

	callfii oppr obj 5 sp
	callfii oppr obj 6 sp
	callfii oppr obj 65 sp
	callfii oppr Lamp 65 sp
	callfii oppr main 69 sp
	callfii oppr str 70 sp

	copy obj *self
	callfii rapr obj 6 sp
	quit

zregion: .func 1
	return 0x7777
cptab:	.func 2
	return 0x7777
rapr:	.func 2
	return 0x7777
rlpr:	.func 2
	return 0x7777
ocl:	.func 2
	return 0x7777
rvpr:	.func 2
	return 0x7777
oppr:	.func 2
	return 0x7777
str:	.string "x"
` + objects

func run(t *testing.T, code string) (*vm.Instance, string) {
	t.Helper()
	img, err := asm.Assemble(t.Name(), strings.NewReader(code))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	l, err := glk.New(glk.NewTextScreen(strings.NewReader(""), &out))
	if err != nil {
		t.Fatal(err)
	}
	i, err := vm.New(img, vm.IO(l), inform.Accelerate())
	if err != nil {
		t.Fatal(err)
	}
	if err = i.Run(); err != nil {
		t.Fatalf("%+v", err)
	}
	return i, out.String()
}

func TestVeneer(t *testing.T) {
	want := []uint32{
		2, 3, 1, 0, 0,
		0x50E, 0x534, 4, 0x1234, 0xABCD, 0x9999, 0,
		0, 1, 1, 1, 0, 1, 1, 1, 0,
		1, 0, 0, 1, 1, 1,
		0x538,
	}
	for _, fn := range [][6]interface{}{{2, 3, 4, 5, 6, 7}, {8, 9, 10, 11, 12, 13}} {
		t.Run(fmt.Sprint(fn[0]), func(t *testing.T) {
			i, out := run(t, fmt.Sprintf(prog, fn[:]...))
			if out != "" {
				t.Errorf("unexpected output %q", out)
			}
			got := i.Stack()
			if len(got) != len(want) {
				t.Fatalf("expected %d results, got %d\n%s", len(want), len(got), spew.Sdump(got))
			}
			for k := range want {
				if got[k] != want[k] {
					t.Errorf("result %d: expected %#x, got %#x", k, want[k], got[k])
				}
			}
		})
	}
}

func TestProgrammingErrors(t *testing.T) {
	i, out := run(t, `
	.equ INDIV 64
main:	.func
	setiosys 2 0
	copy 0 sp
	copy 3 sp
	copy 0 sp
	copy 0 sp
	copy 0 sp
	glk 0x23 5 sp
	glk 0x2F 1 0
	accelparam 1 INDIV
	accelparam 2 Class
	accelparam 3 Object
	accelparam 7 7
	accelfunc 8 cptab
	accelfunc 11 ocl
	accelfunc 12 rvpr
	callfii cptab 0 5 sp
	callfii ocl obj obj sp
	callfii rvpr obj 99 sp
	quit
cptab:	.func 2
	return 0x7777
ocl:	.func 2
	return 0x7777
rvpr:	.func 2
	return 0x7777
`+objects)
	want := "\n[** Programming error: tried to find the \".\" of (something) **]\n" +
		"\n[** Programming error: tried to apply 'ofclass' with non-class **]\n" +
		"\n[** Programming error: tried to read (something) **]\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
	s := i.Stack()
	if len(s) != 3 || s[0] != 0 || s[1] != 0 || s[2] != 0 {
		t.Errorf("expected 3 zero results, got %v", s)
	}
}

func TestFuncs(t *testing.T) {
	f := inform.Funcs()
	for n := uint32(1); n <= 13; n++ {
		if f[n] == nil {
			t.Errorf("function %d missing", n)
		}
	}
	if len(f) != 13 {
		t.Errorf("expected 13 functions, got %d", len(f))
	}
}
