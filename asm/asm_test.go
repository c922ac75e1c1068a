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

package asm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/db47h/glulx/asm"
	"github.com/db47h/glulx/internal/glx"
	"github.com/db47h/glulx/vm"
)

// check some errors. We're not checking the full messages, rather that they
// point at the correct place.
func TestAssemble_errors(t *testing.T) {
	data := []struct {
		name string
		code string
		errs []struct {
			line int
			msg  string
		}
	}{
		{"parse", `
main:	.func
	add 1 2 3
	frob 1
	jump nowhere
	.bogus
`, []struct {
			line int
			msg  string
		}{
			{3, "constant store operand"},
			{4, "unknown instruction frob"},
			{4, "unexpected 1"},
			{6, "unknown directive .bogus"},
		}},
		{"link", "main: .func\n\tjump nowhere\n", []struct {
			line int
			msg  string
		}{
			{2, "undefined label nowhere"},
		}},
		{"labels", "main: .func\nmain: return 0\n.equ main 3\n", []struct {
			line int
			msg  string
		}{
			{2, "label main redefined"},
			{3, ".equ: main already defined as a label"},
		}},
		{"values", ".byte 256\n.short -40000\n.string \"Ā\"\n", []struct {
			line int
			msg  string
		}{
			{1, "256 does not fit in 1 bytes"},
			{2, "does not fit in 2 bytes"},
			{3, "is not a Latin-1 character"},
		}},
	}

	for _, test := range data {
		_, err := asm.Assemble(test.name, strings.NewReader(test.code))
		if err == nil {
			t.Errorf("%s: expected errors", test.name)
			continue
		}
		errs := err.(asm.ErrAsm)
		if len(errs) != len(test.errs) {
			t.Errorf("%s: expected %d errors, got:\n%v", test.name, len(test.errs), err)
			continue
		}
		for k, e := range errs {
			want := test.errs[k]
			if e.Pos.Line != want.line || !strings.Contains(e.Msg, want.msg) {
				t.Errorf("%s: expected %q on line %d, got %q on line %d", test.name, want.msg, want.line, e.Msg, e.Pos.Line)
			}
		}
	}

	_, err := asm.Assemble("nomain", strings.NewReader("foo: .func return 0"))
	if err == nil || !strings.Contains(err.Error(), "no start function") {
		t.Errorf("expected missing start function error, got %v", err)
	}
}

func TestAssemble_header(t *testing.T) {
	code := `
	.stack 0x300
	.endmem 0x1000
main:	.func
	return 0
	.ram
data:	.word main, -1
`
	img, err := asm.Assemble("header", strings.NewReader(code))
	if err != nil {
		t.Fatal(err)
	}
	h, err := vm.ParseHeader(img)
	if err != nil {
		t.Fatal(err)
	}
	want := vm.Header{
		Version:   0x00030102,
		RAMStart:  0x100,
		ExtStart:  0x200,
		EndMem:    0x1000,
		StackSize: 0x300,
		StartFunc: 0x24,
		Checksum:  h.Checksum,
	}
	if *h != want {
		t.Errorf("expected header %+v, got %+v", want, *h)
	}
	if len(img) != 0x200 {
		t.Errorf("expected image length 0x200, got %#x", len(img))
	}
	if sum := vm.Checksum(img, h.ExtStart); sum != h.Checksum {
		t.Errorf("bad checksum %#x, expected %#x", h.Checksum, sum)
	}
	if v := glx.RP4(img[0x100:]); v != 0x24 {
		t.Errorf("expected main address at 0x100, got %#x", v)
	}
	if v := glx.RP4(img[0x104:]); v != 0xFFFFFFFF {
		t.Errorf("expected -1 at 0x104, got %#x", v)
	}
}

// code for each instruction starts at 0x27, right after the header and an
// empty function header.
func TestAssemble_encoding(t *testing.T) {
	data := []struct {
		src  string
		code []byte
		dis  string
	}{
		{"nop", []byte{0x00}, "nop"},
		{"add sp 0x1234 *0x10", []byte{0x10, 0x28, 0x05, 0x12, 0x34, 0x10}, "add sp 4660 *0x10"},
		{"copy -1, $8", []byte{0x40, 0x91, 0xFF, 0x08}, "copy -1 $8"},
		{"copy 0x100000 sp", []byte{0x40, 0x83, 0x00, 0x10, 0x00, 0x00}, "copy 1048576 sp"},
		{"getmemsize ^0x104", []byte{0x81, 0x02, 0x0E, 0x01, 0x04}, "getmemsize ^0x104"},
		{"jump main", []byte{0x20, 0x03, 0xFF, 0xFF, 0xFF, 0xF9}, "jump =>0x24"},
		{"jz sp 1", []byte{0x22, 0x18, 0x01}, "jz sp 1"},
		{"quit", []byte{0x81, 0x20}, "quit"},
		{"streamchar 'A'", []byte{0x70, 0x01, 0x41}, "streamchar 65"},
		{"add 1 2 0", []byte{0x10, 0x11, 0x00, 0x01, 0x02}, "add 1 2 0"},
	}

	for _, test := range data {
		img, err := asm.Assemble(test.src, strings.NewReader("main: .func\n"+test.src+"\n"))
		if err != nil {
			t.Errorf("%s: %v", test.src, err)
			continue
		}
		got := img[0x27 : 0x27+len(test.code)]
		if !bytes.Equal(got, test.code) {
			t.Errorf("%s: expected % x, got % x", test.src, test.code, got)
		}
		var b bytes.Buffer
		next, err := asm.Disassemble(img, 0x27, &b)
		if err != nil {
			t.Errorf("%s: %v", test.src, err)
		}
		if b.String() != test.dis {
			t.Errorf("%s: expected disassembly %q, got %q", test.src, test.dis, b.String())
		}
		if int(next) != 0x27+len(test.code) {
			t.Errorf("%s: expected next at %#x, got %#x", test.src, 0x27+len(test.code), next)
		}
	}
}

func TestDisassemble_truncated(t *testing.T) {
	var b bytes.Buffer
	next, _ := asm.Disassemble([]byte{0x10, 0x11}, 0, &b)
	if b.String() != "add ???" || next != 2 {
		t.Errorf("expected \"add ???\" and 2, got %q and %d", b.String(), next)
	}
	b.Reset()
	next, _ = asm.Disassemble([]byte{0x7F, 0x00}, 0, &b)
	if b.String() != "??? 0x7f" || next != 1 {
		t.Errorf("expected \"??? 0x7f\" and 1, got %q and %d", b.String(), next)
	}
}
