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

package asm

import (
	"fmt"
	"io"
	"strings"
	"text/scanner"

	"github.com/db47h/glulx/internal/glx"
	"github.com/db47h/glulx/vm"
)

// Error is an assembly error at a given position in the source.
type Error struct {
	Pos scanner.Position
	Msg string
}

func newError(pos scanner.Position, format string, args ...interface{}) Error {
	return Error{pos, fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

// ErrAsm is the error type returned by Assemble. It lists at most 10 errors.
type ErrAsm []Error

func (e ErrAsm) Error() string {
	var b strings.Builder
	for k := range e {
		if k > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e[k].Error())
	}
	return b.String()
}

// Assemble compiles assembly read from the supplied io.Reader and returns the
// resulting story file, header included.
//
// The name parameter is used only in error messages to name the source of the
// error. If the io.Reader is a file, name should be the file name.
//
// The returned error, if not nil, is of type ErrAsm.
func Assemble(name string, r io.Reader) ([]byte, error) {
	p := newParser()
	p.parse(name, r)
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	img := p.link()
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return img, nil
}

// Disassemble writes a disassembly of the instruction at address pc in mem to
// the specified io.Writer and returns the address of the next instruction and
// any write error. Truncated instructions are printed as "???".
func Disassemble(mem []byte, pc uint32, w io.Writer) (next uint32, err error) {
	ew := glx.NewErrWriter(w)
	end := uint32(len(mem))

	read := func(n uint32) (uint32, bool) {
		if pc+n > end || pc+n < pc {
			return 0, false
		}
		var v uint32
		for ; n > 0; n-- {
			v = v<<8 | uint32(mem[pc])
			pc++
		}
		return v, true
	}

	b, ok := read(1)
	code := b
	switch {
	case !ok:
	case b >= 0xC0:
		var lo uint32
		lo, ok = read(3)
		code = (b-0xC0)<<24 | lo
	case b >= 0x80:
		var lo uint32
		lo, ok = read(1)
		code = (b-0x80)<<8 | lo
	}
	if !ok {
		io.WriteString(ew, "???")
		return end, ew.Err
	}
	op, ok := vm.LookupOpcode(code)
	if !ok {
		fmt.Fprintf(ew, "??? %#x", code)
		return pc, ew.Err
	}
	io.WriteString(ew, op.Name)

	n := uint32(len(op.Format))
	modes := pc
	if pc+(n+1)/2 > end {
		io.WriteString(ew, " ???")
		return end, ew.Err
	}
	pc += (n + 1) / 2
	for k := uint32(0); k < n; k++ {
		m := mem[modes+k/2] >> (4 * (k & 1)) & 0xF
		sz := operandSize(m)
		v, ok := read(sz)
		if !ok {
			io.WriteString(ew, " ???")
			return end, ew.Err
		}
		io.WriteString(ew, " ")
		switch m {
		case modeConst0, modeConst1, modeConst1 + 1, modeConst1 + 2:
			switch sz {
			case 1:
				v = glx.SignExtend8(v)
			case 2:
				v = glx.SignExtend16(v)
			}
			if op.Branch() && k == n-1 && v > 1 {
				fmt.Fprintf(ew, "=>%#x", pc+v-2)
				break
			}
			fmt.Fprintf(ew, "%d", int32(v))
		case modeStack:
			io.WriteString(ew, "sp")
		case modeMem1, modeMem1 + 1, modeMem1 + 2:
			fmt.Fprintf(ew, "*%#x", v)
		case modeLocal1, modeLocal1 + 1, modeLocal1 + 2:
			fmt.Fprintf(ew, "$%d", v)
		case modeRAM1, modeRAM1 + 1, modeRAM1 + 2:
			fmt.Fprintf(ew, "^%#x", v)
		default:
			io.WriteString(ew, "???")
		}
	}
	return pc, ew.Err
}

// DisassembleAll writes a disassembly of the instructions between addresses
// start and end in mem to the specified io.Writer, one per line. It will
// return any write error.
func DisassembleAll(mem []byte, start, end uint32, w io.Writer) error {
	ew := glx.NewErrWriter(w)
	for pc := start; pc < end; {
		fmt.Fprintf(ew, "%08x\t", pc)
		pc, _ = Disassemble(mem, pc, ew)
		ew.Write([]byte{'\n'})
		if ew.Err != nil {
			return ew.Err
		}
	}
	return nil
}
