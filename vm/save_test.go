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
	"fmt"
	"testing"

	"github.com/db47h/glulx/vm"
	metrics "github.com/rcrowley/go-metrics"
)

func TestSaveRestore(t *testing.T) {
	i, out := runAsm(t, `
main:	.func 1
	copy 0 sp
	copy 3 sp	// read/write
	copy 0x2000 sp
	copy buf sp
	glk 0x43 4 *str
	protect r1 4
	copy 7 *counter
	malloc 32 *block
	save *str $0
	jeq $0 -1 restored
	copy $0 *saveres
	copy 99 *counter
	random 0 *r1
	mfree *block
	copy 0 sp
	copy 0 sp	// seek start
	copy *str sp
	glk 0x45 3 0
	restore *str $0
	copy 1 *failed
	quit
restored:
	random 0 *r2
	copy *counter *result
	gestalt 8 0 *heap
	quit
	.org 0x400
	.ram
str:	.word 0
counter: .word 0
result:	.word 0
failed:	.word 0
saveres: .word 0xFF
r1:	.word 0
r2:	.word 0
block:	.word 0
heap:	.word 0
buf:
	.endmem 0x3000
`, "")
	if out != "" {
		t.Errorf("unexpected output %q", out)
	}
	check32(t, i, 0x404, 7) // counter
	check32(t, i, 0x408, 7) // result
	check32(t, i, 0x40C, 0) // failed
	check32(t, i, 0x410, 0xFF)
	check32(t, i, 0x420, 0x3000)
	if r1, r2 := i.Load32(0x414), i.Load32(0x418); r1 != r2 {
		t.Errorf("random generator state not restored: %#x != %#x", r1, r2)
	}
	if n := i.Registry().Get("vm.restores").(metrics.Counter).Count(); n != 1 {
		t.Errorf("expected 1 restore, got %d", n)
	}
}

func TestRestoreErrors(t *testing.T) {
	i, _ := runAsm(t, `
main:	.func
	copy 0 sp
	copy 2 sp	// read
	copy 16 sp
	copy junk sp
	glk 0x43 4 sp
	restore sp sp
	restore 42 sp
	save 42 sp
	quit
junk:	.byte 'F', 'O', 'R', 'M', 0, 0, 0, 4, 'X', 'X', 'X', 'X'
`, "")
	checkStack(t, i, 1, 1, 1)
}

// corruptStks saves to a memory stream, overwrites a word of the call stub
// at the top of the saved stack and restores.
const corruptStks = `
main:	.func 1
	copy 0 sp
	copy 3 sp
	copy 0x2000 sp
	copy buf sp
	glk 0x43 4 *str
	save *str $0
	jeq $0 -1 restored
	copy $0 *saveres
	linearsearch 0x53746B73 4 buf 1 0x2000 0 0 *p	// "Stks"
	add *p 4 *q
	aload *q 0 sp
	add *q sp sp
	add sp %d sp
	astore sp 0 %#x
	copy 0 sp
	copy 0 sp
	copy *str sp
	glk 0x45 3 0
	restore *str $0
	copy $0 *res
	quit
restored:
	copy 1 *back
	quit
	.org 0x400
	.ram
str:	.word 0
saveres: .word 0xFF
p:	.word 0
q:	.word 0
res:	.word 0xFF
back:	.word 0
buf:
	.endmem 0x3000
`

func TestRestoreCorruptStack(t *testing.T) {
	data := []struct {
		name string
		off  int
		v    uint32
	}{
		{"fp", 0, 0xFFFF0000},
		{"pc", -4, 0xFFFFFF00},
		{"dest", -8, 0x7FFFFFF0},
		{"type", -12, 0x42},
		{"frame", 0, 2},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			i, out := runAsm(t, fmt.Sprintf(corruptStks, d.off, d.v), "")
			if out != "" {
				t.Errorf("unexpected output %q", out)
			}
			check32(t, i, 0x404, 0) // saveres
			if i.Load32(0x408) == 0 {
				t.Fatal("saved stack not found")
			}
			check32(t, i, 0x410, 1) // res
			check32(t, i, 0x414, 0) // back
		})
	}
}

func TestUndoDepth(t *testing.T) {
	i, _ := runAsm(t, `
main:	.func 1
	protect n 16
	copy 1 *v
	saveundo $0
	jeq $0 -1 back
	copy 2 *v
	saveundo $0
	jeq $0 -1 back
	copy 3 *v
	saveundo $0
	jeq $0 -1 back
	copy 4 *v
loop:
	restoreundo $0
	copy $0 *fail
	quit
back:
	astore log *n *v
	add *n 1 *n
	jump loop
	.org 0x400
	.ram
n:	.word 0
log:	.word 0, 0, 0
v:	.word 0
fail:	.word 0
`, "", vm.UndoDepth(2))
	for k, want := range []uint32{2, 3, 2, 0, 2, 1} {
		check32(t, i, 0x400+4*uint32(k), want)
	}
}

func TestUndoOps(t *testing.T) {
	i, _ := runAsm(t, `
main:	.func 1
	hasundo sp
	saveundo $0
	hasundo sp
	discardundo
	hasundo sp
	restoreundo sp
	accelparam 0x100 0
	saveundo sp
	hasundo sp
	quit
`, "")
	checkStack(t, i, 1, 0, 1, 1, 1, 1)
	if d := i.AccelParam(vm.AccelParamUndoDepth); d != 0 {
		t.Errorf("expected undo depth 0, got %d", d)
	}
}
