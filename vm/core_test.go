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

package vm_test

import (
	"testing"

	"github.com/db47h/glulx/vm"
	metrics "github.com/rcrowley/go-metrics"
)

func TestCalls(t *testing.T) {
	i, _ := runAsm(t, `
main:	.func
	callfii sum 1 1 sp
	copy 3 sp
	copy 4 sp
	call sum 2 sp
	copy 100 sp
	copy 4 sp
	callfii args 1 2 sp
	callfi tail 3 sp
	callfi fact 5 sp
	quit

sum:	.func 2
	add $0 $4 sp
	return sp

// stack arguments: count on top, then the arguments in order
args:	.stkfunc
	add sp sp sp	// count + first argument
	add sp sp sp
	return sp

tail:	.func 1
	copy 5 sp
	copy $0 sp
	tailcall sum 2

fact:	.func 1
	jgt $0 1 rec
	return 1
rec:
	sub $0 1 sp
	callfi fact sp sp
	mul $0 sp sp
	return sp
`, "")
	checkStack(t, i, 2, 7, 100, 4, 5, 8, 120)
}

func TestLocals(t *testing.T) {
	i, _ := runAsm(t, `
main:	.func
	callfiii mixed 0x1FF 0x12345 7 sp
	quit

// one byte local, then a short (aligned to 2) and a word (aligned to 4)
mixed:	.byte 0xC1, 1, 1, 2, 1, 4, 1, 0, 0
	copyb $0 sp
	copys $2 sp
	add sp sp sp
	add sp $4 sp
	return sp
`, "")
	checkStack(t, i, 0xFF+0x2345+7)
}

func TestCatchThrow(t *testing.T) {
	i, _ := runAsm(t, `
main:	.func
	catch sp body
	quit
body:
	callfi thrower sp 0
	copy 1 sp
	quit

thrower: .func 1
	throw 99 $0
`, "")
	checkStack(t, i, 99)

	// a catch with a local destination, and a throw from a nested call
	i, _ = runAsm(t, `
main:	.func 1
	catch $0 body
	copy $0 sp
	quit
body:
	callfi f1 $0 sp
	return 5
f1:	.func 1
	callfi f2 $0 sp
	return 6
f2:	.func 1
	throw 42 $0
`, "")
	checkStack(t, i, 42)
}

func TestBranches(t *testing.T) {
	i, _ := runAsm(t, `
main:	.func
	callfi retbr 0 sp
	callfi retbr 7 sp
	jlt -1 0 l1
	copy 0xBAD sp
l1:	jltu -1 0 bad
	jgeu -1 0 l2
bad:	copy 0xBAD sp
l2:	jumpabs l3
	copy 0xBAD sp
l3:	copy 0x600D sp
	quit

// branch offsets 0 and 1 return from the function
retbr:	.func 1
	jz $0 1
	jump 0
`, "")
	checkStack(t, i, 1, 0, 0x600D)
}

func TestStackOps(t *testing.T) {
	i, _ := runAsm(t, `
main:	.func
	copy 1 sp
	copy 2 sp
	copy 3 sp
	copy 4 sp
	copy 5 sp
	stkroll 3 1
	stkswap
	stkcopy 2
	stkpeek 0 sp
	stkcount sp
	quit
`, "")
	checkStack(t, i, 1, 2, 5, 4, 3, 4, 3, 3, 8)

	i, _ = runAsm(t, `
main:	.func
	copy 1 sp
	copy 2 sp
	copy 3 sp
	copy 4 sp
	stkroll 4 -1
	stkroll 4 5
	stkroll 4 -6
	quit
`, "")
	checkStack(t, i, 3, 4, 1, 2)
}

func TestArithmetic(t *testing.T) {
	i, _ := runAsm(t, `
main:	.func
	div -7 2 sp
	mod -7 2 sp
	mod 7 -2 sp
	sub 10 3 sp
	mul -3 5 sp
	neg 5 sp
	sshiftr -8 40 sp
	sshiftr -8 1 sp
	ushiftr 0x80000000 31 sp
	ushiftr -1 32 sp
	shiftl 1 32 sp
	shiftl 3 4 sp
	sexb 0xFF sp
	sexs 0x8000 sp
	bitnot 0 sp
	bitand 0xF0 0x3C sp
	bitor 0xF0 0x0F sp
	bitxor 0xFF 0x0F sp
	quit
`, "")
	checkStack(t, i,
		0xFFFFFFFD, 0xFFFFFFFF, 1, 7, 0xFFFFFFF1, 0xFFFFFFFB,
		0xFFFFFFFF, 0xFFFFFFFC, 1, 0, 0, 0x30,
		0xFFFFFFFF, 0xFFFF8000, 0xFFFFFFFF, 0x30, 0xFF, 0xF0)

	// the lowest negative number divided by -1 wraps around
	i, _ = runAsm(t, `
main:	.func
	div 0x80000000 -1 sp
	mod 0x80000000 -1 sp
	quit
`, "")
	checkStack(t, i, 0x80000000, 0)
}

func TestMemoryOps(t *testing.T) {
	i, _ := runAsm(t, `
main:	.func
	astorebit arr 9 1
	astorebit arr -1 1
	aloadbit arr 9 sp
	aloadbit arr 8 sp
	astores arr 1 0x1234
	aloadb arr 2 sp
	aloads arr 1 sp
	astoreb arr 0 0x1FF
	mcopy 4 src dst
	mzero 1 dst
	copys 0x12345678 *dst2
	copyb *src sp
	copys sp sp
	quit
src:	.byte 9, 8, 7, 6
	.ram
pad:	.byte 0
arr:	.byte 0, 0, 0, 0, 0
dst:	.byte 0, 0, 0, 0
dst2:	.word 0
`, "")
	ram := i.Header().RAMStart
	checkStack(t, i, 1, 0, 0x12, 0x1234, 9)
	if v := i.Load8(ram); v != 0x80 {
		t.Errorf("bit -1: expected 0x80, got %#x", v)
	}
	// arr[0] = 0xFF, arr[1] = 0x02 (bit 9), arr[2:4] = 0x1234
	check32(t, i, ram+1, 0xFF021234)
	check32(t, i, ram+6, 0x00080706)
	check32(t, i, ram+10, 0x56780000)
}

func TestFloat(t *testing.T) {
	i, _ := runAsm(t, `
main:	.func
	numtof 3 sp
	fmul 0x40400000 0x40000000 sp
	ftonumz 0x40C00000 sp
	ftonumn 0x40200000 sp
	ftonumz 0x7FC00000 sp
	ftonumz 0xFF800000 sp
	sqrt 0x41800000 sp
	fmod 0x40E00000 0x40000000 sp sp
	callfi isnan 0x7FC00000 sp
	callfi isnan 0x3F800000 sp
	callfiii feq 0x3F800000 0x3F800001 0x34000000 sp
	callfiii feq 0x3F800000 0x3F800000 0x7FC00000 sp
	callfiii feq 0x7F800000 0x7F800000 0 sp
	quit

isnan:	.func 1
	jisnan $0 1
	return 0

feq:	.func 3
	jfeq $0 $4 $8 1
	return 0
`, "")
	checkStack(t, i,
		0x40400000, 0x40C00000, 6, 3, 0x7FFFFFFF, 0x80000000,
		0x40800000, 0x3F800000, 0x40400000,
		1, 0, 1, 0, 1)
}

func TestSearch(t *testing.T) {
	// five 8 bytes structs: key, next pointer
	const table = `
table:	.word 10, s1
s1:	.word 20, s2
s2:	.word 30, s3
s3:	.word 40, s4
s4:	.word 50, 0
key:	.word 30
`
	i, _ := runAsm(t, `
main:	.func
	linearsearch 30 4 table 8 5 0 0 sp
	binarysearch 30 4 table 8 5 0 0 sp
	linkedsearch 30 4 table 0 4 0 sp
	linearsearch 30 4 table 8 5 0 4 sp
	binarysearch 30 4 table 8 5 0 4 sp
	linearsearch 35 4 table 8 5 0 0 sp
	binarysearch 35 4 table 8 5 0 4 sp
	linkedsearch 35 4 table 0 4 0 sp
	linearsearch key 4 table 8 -1 0 3 sp
	binarysearch 50 1 table 8 5 3 4 sp
	linearsearch 0 4 table 8 -1 4 6 sp
	quit
`+table, "")
	tbl := i.Stack()[0] - 16
	checkStack(t, i,
		tbl+16, tbl+16, tbl+16, 2, 2,
		0, 0xFFFFFFFF, 0,
		tbl+16, 4, 4)

	runFatal(t, `
main:	.func
	binarysearch 30 4 table 8 5 0 2 sp
	quit
`+table, vm.DecodeFault)
}

func TestHeap(t *testing.T) {
	i, _ := runAsm(t, `
	.endmem 0x200
main:	.func 2
	getmemsize sp
	malloc 16 $0
	malloc 100 $4
	copy $0 sp
	copy $4 sp
	getmemsize sp
	gestalt 8 0 sp
	setmemsize 0x1000 sp
	mfree $0
	mfree $4
	getmemsize sp
	gestalt 8 0 sp
	malloc 0 sp
	setmemsize 0x1000 sp
	getmemsize sp
	quit
`, "")
	checkStack(t, i, 0x200, 0x208, 0x220, 0x300, 0x200, 1, 0x200, 0, 0, 0, 0x1000)

	// freed blocks are reused
	i, _ = runAsm(t, `
	.endmem 0x200
main:	.func 2
	malloc 8 $0
	malloc 8 $4
	mfree $0
	malloc 4 sp
	malloc 300 sp
	getmemsize sp
	quit
`, "")
	checkStack(t, i, 0x208, 0x228, 0x400)
}

func TestGestalt(t *testing.T) {
	i, _ := runAsm(t, `
main:	.func
	gestalt 0 0 sp
	gestalt 1 0 sp
	gestalt 4 2 sp
	gestalt 4 20 sp
	gestalt 7 0 sp
	gestalt 11 0 sp
	gestalt 13 0 sp
	gestalt 99 0 sp
	setiosys 1 filt
	getiosys sp sp
	setiosys 7 3
	getiosys sp sp
	getstringtbl sp
	setstringtbl 0x1234
	getstringtbl sp
	quit
filt:	.func 1
	return 0
`, "")
	s := i.Stack()
	checkStack(t, i, vm.GlulxVersion, vm.TerpVersion, 1, 0, 1, 1, 0, 0, 1, s[9], 0, 0, 0, 0x1234)
}

func TestAccelerate(t *testing.T) {
	dbl := func(i *vm.Instance, args []uint32) uint32 {
		if len(args) == 0 {
			return 0
		}
		return args[0] * 2
	}
	i, _ := runAsm(t, `
main:	.func
	callfi f 21 sp
	accelfunc 1 f
	callfi f 21 sp
	gestalt 10 1 sp
	gestalt 10 2 sp
	accelparam 3 0x77
	accelfunc 0 f
	callfi f 21 sp
	quit
f:	.func 1
	add $0 1 sp
	return sp
`, "", vm.Accelerate(map[uint32]vm.AccelFunc{1: dbl}))
	checkStack(t, i, 22, 42, 1, 0, 22)
	if v := i.AccelParam(3); v != 0x77 {
		t.Errorf("accelparam 3: expected 0x77, got %#x", v)
	}
	if n := i.Registry().Get("vm.accel_calls").(metrics.Counter).Count(); n != 1 {
		t.Errorf("expected 1 accelerated call, got %d", n)
	}
}
