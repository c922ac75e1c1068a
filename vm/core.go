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
	"github.com/db47h/glulx/internal/glx"
)

// call stub destination types.
const (
	destNone  = 0x00
	destMem   = 0x01
	destLocal = 0x02
	destStack = 0x03

	stubResumeString = 0x10 // resume a compressed string at bit DestAddr
	stubResumeFunc   = 0x11 // resume function code after a filtered string
	stubResumeNum    = 0x12 // resume printing a number at digit DestAddr
	stubResumeCStr   = 0x13 // resume a Latin-1 string
	stubResumeUStr   = 0x14 // resume a unicode string

	callStubSize = 16
)

// dest is a decoded store operand.
type dest struct {
	typ   uint32
	addr  uint32
	width uint8
}

func (i *Instance) stackOverflow() {
	i.fault(StackFault, "stack overflow (stack size %d)", len(i.stack))
}

func (i *Instance) push(v uint32) {
	if i.sp+4 > uint32(len(i.stack)) {
		i.stackOverflow()
	}
	glx.WP4(i.stack[i.sp:], v)
	i.sp += 4
}

func (i *Instance) pop() uint32 {
	if i.sp < i.valstackbase+4 {
		i.fault(StackFault, "stack underflow")
	}
	i.sp -= 4
	return glx.RP4(i.stack[i.sp:])
}

// peek returns the value n positions below the top of the value stack.
func (i *Instance) peek(n uint32) uint32 {
	if uint64(n) >= uint64(i.stackCount()) {
		i.fault(StackFault, "stkpeek %d beyond stack depth %d", n, i.stackCount())
	}
	return glx.RP4(i.stack[i.sp-4*(n+1):])
}

func (i *Instance) stackCount() uint32 {
	return (i.sp - i.valstackbase) / 4
}

// popArgs pops n function arguments. The first value popped is the first
// argument.
func (i *Instance) popArgs(n uint32) []uint32 {
	if n > i.stackCount() {
		i.fault(StackFault, "call with %d arguments, only %d on stack", n, i.stackCount())
	}
	args := make([]uint32, n)
	for k := range args {
		args[k] = i.pop()
	}
	return args
}

// Stack returns a copy of the value stack of the current function, bottom
// first.
func (i *Instance) Stack() []uint32 {
	n := i.stackCount()
	s := make([]uint32, n)
	for k := range s {
		s[k] = glx.RP4(i.stack[i.valstackbase+4*uint32(k):])
	}
	return s
}

func (i *Instance) pushCallStub(typ, addr uint32) {
	i.push(typ)
	i.push(addr)
	i.push(i.PC)
	i.push(i.fp)
}

// setFrame points the frame registers at the frame starting at fp.
func (i *Instance) setFrame(fp uint32) {
	if uint64(fp)+8 > uint64(len(i.stack)) {
		i.fault(StackFault, "frame pointer %#x out of stack", fp)
	}
	i.fp = fp
	i.localsbase = fp + glx.RP4(i.stack[fp+4:])
	i.valstackbase = fp + glx.RP4(i.stack[fp:])
	if i.valstackbase > uint32(len(i.stack)) || i.localsbase > i.valstackbase {
		i.fault(StackFault, "corrupted frame at %#x", fp)
	}
}

// readStub removes the call stub on top of the stack.
func (i *Instance) readStub() (typ, addr, pc, fp uint32) {
	if i.sp < callStubSize {
		i.fault(StackFault, "stack underflow in return")
	}
	i.sp -= callStubSize
	s := i.stack[i.sp:]
	return glx.RP4(s), glx.RP4(s[4:]), glx.RP4(s[8:]), glx.RP4(s[12:])
}

// popCallStub resumes execution at the call stub on top of the stack,
// storing val according to its destination type.
func (i *Instance) popCallStub(val uint32) {
	typ, addr, pc, fp := i.readStub()
	i.PC = pc
	i.setFrame(fp)
	switch typ {
	case stubResumeFunc:
		i.fault(StackFault, "function return in the middle of a string")
	case stubResumeString:
		i.streamString(i.PC, 0xE1, addr)
	case stubResumeNum:
		i.streamNum(i.PC, true, addr)
	case stubResumeCStr:
		i.streamString(i.PC, 0xE0, 0)
	case stubResumeUStr:
		i.streamString(i.PC, 0xE2, 0)
	default:
		i.store(dest{typ: typ, addr: addr, width: 4}, val)
	}
}

// popCallStubString pops the stub saved while printing a string. It returns
// the address to resume the string at, or 0 and resumes function code if the
// string is done.
func (i *Instance) popCallStubString() (pc, bitnum uint32) {
	typ, addr, pc, fp := i.readStub()
	i.PC = pc
	i.setFrame(fp)
	switch typ {
	case stubResumeFunc:
		return 0, 0
	case stubResumeString:
		return pc, addr
	}
	i.fault(StackFault, "function-terminator call stub at end of string")
	return 0, 0
}

// enterFunction calls the function at addr. A call stub must have been
// pushed. Accelerated functions are executed natively and return at once.
func (i *Instance) enterFunction(addr uint32, args []uint32) {
	if f := i.accel[addr]; f != nil {
		i.stats.accelCalls.Inc(1)
		i.popCallStub(f(i, args))
		return
	}
	typ := i.Load8(addr)
	switch {
	case typ == 0xC0 || typ == 0xC1:
	case typ >= 0xC0 && typ <= 0xDF:
		i.fault(DecodeFault, "call to unknown type of function (%#x) at %#x", typ, addr)
	default:
		i.fault(DecodeFault, "call to non-function at %#x", addr)
	}

	// locals format
	var format []byte
	var localLen uint32
	p := addr + 1
	for {
		t, n := byte(i.Load8(p)), byte(i.Load8(p+1))
		p += 2
		format = append(format, t, n)
		if t == 0 {
			break
		}
		switch t {
		case 1:
		case 2, 4:
			localLen = glx.Align(localLen, uint32(t))
		default:
			i.fault(DecodeFault, "illegal local type %d in function at %#x", t, addr)
		}
		localLen += uint32(t) * uint32(n)
	}
	if len(format)&2 != 0 {
		format = append(format, 0, 0)
	}
	localLen = glx.Align(localLen, 4)

	fp := i.sp
	localsPos := 8 + uint32(len(format))
	frameLen := localsPos + localLen
	if uint64(fp)+uint64(frameLen) > uint64(len(i.stack)) {
		i.stackOverflow()
	}
	s := i.stack[fp:]
	glx.WP4(s, frameLen)
	glx.WP4(s[4:], localsPos)
	copy(s[8:], format)
	clear(s[localsPos:frameLen])
	i.fp = fp
	i.localsbase = fp + localsPos
	i.valstackbase = fp + frameLen
	i.sp = i.valstackbase
	i.PC = p

	if typ == 0xC0 {
		for k := len(args) - 1; k >= 0; k-- {
			i.push(args[k])
		}
		i.push(uint32(len(args)))
		return
	}
	var off uint32
	for k := 0; k+1 < len(format) && len(args) > 0; k += 2 {
		t, n := uint32(format[k]), format[k+1]
		if t == 0 {
			break
		}
		off = glx.Align(off, t)
		for ; n > 0 && len(args) > 0; n-- {
			i.writeLocal(off, args[0], uint8(t))
			args = args[1:]
			off += t
		}
	}
}

// leaveFunction discards the current frame.
func (i *Instance) leaveFunction() {
	i.sp = i.fp
}

// callFunction pushes a call stub for d and enters the function at addr.
func (i *Instance) callFunction(addr uint32, args []uint32, d dest) {
	i.pushCallStub(d.typ, d.addr)
	i.enterFunction(addr, args)
}

// ret returns val from the current function. Returning from the top level
// function stops the VM.
func (i *Instance) ret(val uint32) {
	i.leaveFunction()
	if i.sp == 0 {
		i.halted = true
		return
	}
	i.popCallStub(val)
}

func (i *Instance) localAddr(off uint32, width uint8) uint32 {
	a := i.localsbase + off
	if off > i.valstackbase-i.localsbase || a+uint32(width) > i.valstackbase {
		i.fault(StackFault, "local at offset %d out of frame", off)
	}
	return a
}

func (i *Instance) readLocal(off uint32, width uint8) uint32 {
	a := i.localAddr(off, width)
	switch width {
	case 1:
		return uint32(i.stack[a])
	case 2:
		return uint32(glx.RP2(i.stack[a:]))
	}
	return glx.RP4(i.stack[a:])
}

func (i *Instance) writeLocal(off, v uint32, width uint8) {
	a := i.localAddr(off, width)
	switch width {
	case 1:
		i.stack[a] = byte(v)
	case 2:
		glx.WP2(i.stack[a:], uint16(v))
	default:
		glx.WP4(i.stack[a:], v)
	}
}

// catchToken pushes a call stub for d, stores the catch token in d and
// returns it.
func (i *Instance) catchToken(d dest) uint32 {
	i.pushCallStub(d.typ, d.addr)
	tok := i.sp
	i.store(d, tok)
	return tok
}

// throw unwinds the stack to the catch token tok and returns val to its
// catch.
func (i *Instance) throw(val, tok uint32) {
	if tok < callStubSize || tok > i.sp || tok&3 != 0 {
		i.fault(StackFault, "invalid catch token %#x (stack pointer %#x)", tok, i.sp)
	}
	i.sp = tok
	i.popCallStub(val)
}
