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
	"strings"
	"testing"

	"github.com/db47h/glulx/vm"
)

// strings is a program printing the same text through all kinds of string
// objects. %s is replaced by the I/O system setup.
const stringsProg = `
main:	.func
%s
	streamstr ab
	streamnum -12
	streamchar 'c'
	streamunichar 'd'
	streamstr hi
	streamstr ef
	setstringtbl tbl2
	streamstr s2
	quit

filter:	.func 1
	astoreb buf *pos $0
	add *pos 1 *pos
	return 0

bang:	.func
	streamchar '!'
	return 0

ab:	.string "ab"
ef:	.ustring "ef"

// "hi": h=0, i=10, end=11
	.strtbl tbl
hi:	.byte 0xE1, 0x1A
tbl:	.word 0, 5, root
root:	.byte 0
	.word nh, nb
nh:	.byte 2, 'h'
nb:	.byte 0
	.word ni, nend
ni:	.byte 2, 'i'
nend:	.byte 1

// "wor", call bang, 'x'
s2:	.byte 0xE1, 0xD8
tbl2:	.word 0, 7, r2
r2:	.byte 0
	.word n0, n1
n0:	.byte 0
	.word lstr, lfn
n1:	.byte 0
	.word lx, lend
lstr:	.byte 3, 'w', 'o', 'r', 0
lfn:	.byte 8
	.word bang
lx:	.byte 2, 'x'
lend:	.byte 1

	.org 0x400
	.ram
pos:	.word 0
buf:
	.endmem 0x800
`

const stringsOut = "ab-12cdhiefwor!x"

func TestStreamGlk(t *testing.T) {
	_, out := runAsm(t, fmt.Sprintf(stringsProg, glkInit), "")
	if out != stringsOut {
		t.Errorf("expected %q, got %q", stringsOut, out)
	}
}

func TestStreamFilter(t *testing.T) {
	i, out := runAsm(t, fmt.Sprintf(stringsProg, "\tsetiosys 1 filter"), "")
	if out != "" {
		t.Errorf("unexpected output %q", out)
	}
	n := i.Load32(0x400)
	if n != uint32(len(stringsOut)) {
		t.Fatalf("expected %d characters, got %d", len(stringsOut), n)
	}
	b := make([]byte, n)
	i.Load(0x404, b)
	if string(b) != stringsOut {
		t.Errorf("expected %q, got %q", stringsOut, b)
	}
}

func TestStreamNull(t *testing.T) {
	i, out := runAsm(t, fmt.Sprintf(stringsProg, "\tsetiosys 0 0"), "")
	if out != "" || i.Load32(0x400) != 0 {
		t.Errorf("null I/O system printed something: %q", out)
	}
}

func TestStreamUnicode(t *testing.T) {
	_, out := runAsm(t, `
main:	.func
`+glkInit+`
	streamstr s
	streamunichar 0x263A
	streamchar 0x1E9
	quit
s:	.ustring "héllo "
`, "")
	if want := "héllo ☺é"; out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestGlkStreams(t *testing.T) {
	i, out := runAsm(t, `
main:	.func
	setiosys 2 0
	copy 0 sp	// rock
	copy 1 sp	// write
	copy 16 sp
	copy membuf sp
	glk 0x43 4 *str
	copy *str sp
	glk 0x47 1 0
	streamstr hello
	streamnum 42
	glk 0x48 0 sp
	copy -1 sp
	copy *str sp
	glk 0x44 2 0
	copy 0 sp
	copy 2 sp	// read
	copy 4 sp
	copy text sp
	glk 0x43 4 *str
	copy *str sp
	glk 0x90 1 sp
	copy *str sp
	glk 0x90 1 sp
	copy *str sp
	glk 0x46 1 sp
	copy 'a' sp
	glk 0xA1 1 sp
	glk 0x999 0 sp
	copy 99 sp
	glk 0x21 1 sp
	quit
hello:	.string "hello"
text:	.byte 't', 'e', 'x', 't'
	.org 0x400
	.ram
str:	.word 0
membuf:
	.endmem 0x800
`, "")
	if out != "" {
		t.Errorf("unexpected output %q", out)
	}
	s := i.Stack()
	if s[0] == 0 {
		t.Error("no current stream")
	}
	checkStack(t, i, s[0], 0, 7, 't', 'e', 2, 'A', 0, 0)
	b := make([]byte, 7)
	i.Load(0x404, b)
	if string(b) != "hello42" {
		t.Errorf("expected %q in memory stream, got %q", "hello42", b)
	}
}

const inputProg = `
main:	.func
	copy 0 sp
	copy 3 sp
	copy 0 sp
	copy 0 sp
	copy 0 sp
	glk 0x23 5 *win
	copy *win sp
	glk 0x2F 1 0
	copy 0 sp
	copy 64 sp
	copy linebuf sp
	copy *win sp
	glk 0xD0 4 0
	copy event sp
	glk 0xC0 1 0
	copy *win sp
	glk 0xD2 1 0
	copy event2 sp
	glk 0xC0 1 0
	copy 1 *done
	quit
	.org 0x400
	.ram
win:	.word 0
event:	.word 0, 0, 0, 0
event2:	.word 0, 0, 0, 0
done:	.word 0
linebuf:
	.endmem 0x800
`

func TestGlkInput(t *testing.T) {
	i, out := runAsm(t, inputProg, "look\nx")
	if out != "" {
		t.Errorf("unexpected output %q", out)
	}
	win := i.Load32(0x400)
	if win == 0 {
		t.Fatal("window_open failed")
	}
	for k, want := range []uint32{3, win, 4, 0, 2, win, 'x', 0, 1} {
		check32(t, i, 0x404+4*uint32(k), want)
	}
	b := make([]byte, 4)
	i.Load(0x428, b)
	if string(b) != "look" {
		t.Errorf("expected %q in line buffer, got %q", "look", b)
	}
}

func TestGlkEndOfInput(t *testing.T) {
	i, out := runAsm(t, inputProg, "")
	if out != "" {
		t.Errorf("unexpected output %q", out)
	}
	// the VM stops inside the first select
	check32(t, i, 0x404, 0)
	check32(t, i, 0x424, 0)

	// no pending request: select has nothing to wait for
	i, _ = runAsm(t, `
main:	.func
	copy ev sp
	glk 0xC0 1 0
	copy 1 *done
	quit
	.ram
ev:	.word 0, 0, 0, 0
done:	.word 0
`, "")
	check32(t, i, i.Header().RAMStart+16, 0)
}

func TestGlkExit(t *testing.T) {
	i, out := runAsm(t, `
main:	.func
`+glkInit+`
	streamstr bye
	glk 0x01 0 0
	streamstr bye
	quit
bye:	.string "bye"
`, "")
	if out != "bye" {
		t.Errorf("expected %q, got %q", "bye", out)
	}
	if i.IOSystem().Current() != nil {
		t.Error("streams still open after exit")
	}
}

func TestGlkBadArgs(t *testing.T) {
	_, out := runFatal(t, `
main:	.func
`+glkInit+`
	glk 0x21 0 sp
	quit
`, vm.DecodeFault)
	if !strings.HasPrefix(out, "\n*** fatal error: DecodeFault: glk call needs at least 1 arguments") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestGlkRuneBufferBounds(t *testing.T) {
	// 0x40000001 characters wrap around to 4 bytes when counted in 32 bits
	e, _ := runFatal(t, `
main:	.func
`+glkInit+`
	copy 0x40000001 sp
	copy 0x400 sp
	glk 0x12A 2 0	// put_buffer_uni
	quit
	.org 0x400
	.ram
	.word 'a'
`, vm.MemoryFault)
	if !strings.Contains(e.Msg, "out of memory") {
		t.Errorf("unexpected error %v", e)
	}
}
