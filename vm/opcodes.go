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

// Opcode describes a Glulx instruction.
type Opcode struct {
	Code uint32
	Name string
	// Format lists the operands in encoding order: 'L' for a load operand,
	// 'S' for a store operand.
	Format string
	// Width is the size in bytes of memory and local operands: 4 except for
	// copys (2) and copyb (1).
	Width uint8
	fn    func(i *Instance)
}

// Branch reports whether the last operand of op is a branch offset.
func (op *Opcode) Branch() bool {
	switch op.Code {
	case 0x20, 0x32:
		return true
	}
	return op.Code >= 0x22 && op.Code <= 0x2D || op.Code >= 0x1C0 && op.Code <= 0x1C9
}

var opcodes = []Opcode{
	{Code: 0x00, Name: "nop", fn: func(i *Instance) {}},

	{Code: 0x10, Name: "add", Format: "LLS", fn: func(i *Instance) { i.store(i.dst[0], i.arg[0]+i.arg[1]) }},
	{Code: 0x11, Name: "sub", Format: "LLS", fn: func(i *Instance) { i.store(i.dst[0], i.arg[0]-i.arg[1]) }},
	{Code: 0x12, Name: "mul", Format: "LLS", fn: func(i *Instance) { i.store(i.dst[0], i.arg[0]*i.arg[1]) }},
	{Code: 0x13, Name: "div", Format: "LLS", fn: opDiv},
	{Code: 0x14, Name: "mod", Format: "LLS", fn: opMod},
	{Code: 0x15, Name: "neg", Format: "LS", fn: func(i *Instance) { i.store(i.dst[0], -i.arg[0]) }},
	{Code: 0x18, Name: "bitand", Format: "LLS", fn: func(i *Instance) { i.store(i.dst[0], i.arg[0]&i.arg[1]) }},
	{Code: 0x19, Name: "bitor", Format: "LLS", fn: func(i *Instance) { i.store(i.dst[0], i.arg[0]|i.arg[1]) }},
	{Code: 0x1A, Name: "bitxor", Format: "LLS", fn: func(i *Instance) { i.store(i.dst[0], i.arg[0]^i.arg[1]) }},
	{Code: 0x1B, Name: "bitnot", Format: "LS", fn: func(i *Instance) { i.store(i.dst[0], ^i.arg[0]) }},
	{Code: 0x1C, Name: "shiftl", Format: "LLS", fn: opShiftl},
	{Code: 0x1D, Name: "sshiftr", Format: "LLS", fn: opSshiftr},
	{Code: 0x1E, Name: "ushiftr", Format: "LLS", fn: opUshiftr},

	{Code: 0x20, Name: "jump", Format: "L", fn: func(i *Instance) { i.branch(i.arg[0]) }},
	{Code: 0x22, Name: "jz", Format: "LL", fn: func(i *Instance) { i.branchIf(i.arg[0] == 0, i.arg[1]) }},
	{Code: 0x23, Name: "jnz", Format: "LL", fn: func(i *Instance) { i.branchIf(i.arg[0] != 0, i.arg[1]) }},
	{Code: 0x24, Name: "jeq", Format: "LLL", fn: func(i *Instance) { i.branchIf(i.arg[0] == i.arg[1], i.arg[2]) }},
	{Code: 0x25, Name: "jne", Format: "LLL", fn: func(i *Instance) { i.branchIf(i.arg[0] != i.arg[1], i.arg[2]) }},
	{Code: 0x26, Name: "jlt", Format: "LLL", fn: func(i *Instance) { i.branchIf(int32(i.arg[0]) < int32(i.arg[1]), i.arg[2]) }},
	{Code: 0x27, Name: "jge", Format: "LLL", fn: func(i *Instance) { i.branchIf(int32(i.arg[0]) >= int32(i.arg[1]), i.arg[2]) }},
	{Code: 0x28, Name: "jgt", Format: "LLL", fn: func(i *Instance) { i.branchIf(int32(i.arg[0]) > int32(i.arg[1]), i.arg[2]) }},
	{Code: 0x29, Name: "jle", Format: "LLL", fn: func(i *Instance) { i.branchIf(int32(i.arg[0]) <= int32(i.arg[1]), i.arg[2]) }},
	{Code: 0x2A, Name: "jltu", Format: "LLL", fn: func(i *Instance) { i.branchIf(i.arg[0] < i.arg[1], i.arg[2]) }},
	{Code: 0x2B, Name: "jgeu", Format: "LLL", fn: func(i *Instance) { i.branchIf(i.arg[0] >= i.arg[1], i.arg[2]) }},
	{Code: 0x2C, Name: "jgtu", Format: "LLL", fn: func(i *Instance) { i.branchIf(i.arg[0] > i.arg[1], i.arg[2]) }},
	{Code: 0x2D, Name: "jleu", Format: "LLL", fn: func(i *Instance) { i.branchIf(i.arg[0] <= i.arg[1], i.arg[2]) }},

	{Code: 0x30, Name: "call", Format: "LLS", fn: func(i *Instance) { i.callFunction(i.arg[0], i.popArgs(i.arg[1]), i.dst[0]) }},
	{Code: 0x31, Name: "return", Format: "L", fn: func(i *Instance) { i.ret(i.arg[0]) }},
	{Code: 0x32, Name: "catch", Format: "SL", fn: func(i *Instance) { i.catchToken(i.dst[0]); i.branch(i.arg[0]) }},
	{Code: 0x33, Name: "throw", Format: "LL", fn: func(i *Instance) { i.throw(i.arg[0], i.arg[1]) }},
	{Code: 0x34, Name: "tailcall", Format: "LL", fn: opTailcall},

	{Code: 0x40, Name: "copy", Format: "LS", fn: opCopy},
	{Code: 0x41, Name: "copys", Format: "LS", Width: 2, fn: opCopy},
	{Code: 0x42, Name: "copyb", Format: "LS", Width: 1, fn: opCopy},
	{Code: 0x44, Name: "sexs", Format: "LS", fn: func(i *Instance) { i.store(i.dst[0], glx.SignExtend16(i.arg[0])) }},
	{Code: 0x45, Name: "sexb", Format: "LS", fn: func(i *Instance) { i.store(i.dst[0], glx.SignExtend8(i.arg[0])) }},
	{Code: 0x48, Name: "aload", Format: "LLS", fn: func(i *Instance) { i.store(i.dst[0], i.Load32(i.arg[0]+4*i.arg[1])) }},
	{Code: 0x49, Name: "aloads", Format: "LLS", fn: func(i *Instance) { i.store(i.dst[0], i.Load16(i.arg[0]+2*i.arg[1])) }},
	{Code: 0x4A, Name: "aloadb", Format: "LLS", fn: func(i *Instance) { i.store(i.dst[0], i.Load8(i.arg[0]+i.arg[1])) }},
	{Code: 0x4B, Name: "aloadbit", Format: "LLS", fn: opAloadbit},
	{Code: 0x4C, Name: "astore", Format: "LLL", fn: func(i *Instance) { i.Store32(i.arg[0]+4*i.arg[1], i.arg[2]) }},
	{Code: 0x4D, Name: "astores", Format: "LLL", fn: func(i *Instance) { i.Store16(i.arg[0]+2*i.arg[1], i.arg[2]) }},
	{Code: 0x4E, Name: "astoreb", Format: "LLL", fn: func(i *Instance) { i.Store8(i.arg[0]+i.arg[1], i.arg[2]) }},
	{Code: 0x4F, Name: "astorebit", Format: "LLL", fn: opAstorebit},

	{Code: 0x50, Name: "stkcount", Format: "S", fn: func(i *Instance) { i.store(i.dst[0], i.stackCount()) }},
	{Code: 0x51, Name: "stkpeek", Format: "LS", fn: func(i *Instance) { i.store(i.dst[0], i.peek(i.arg[0])) }},
	{Code: 0x52, Name: "stkswap", fn: opStkswap},
	{Code: 0x53, Name: "stkroll", Format: "LL", fn: opStkroll},
	{Code: 0x54, Name: "stkcopy", Format: "L", fn: opStkcopy},

	{Code: 0x70, Name: "streamchar", Format: "L", fn: func(i *Instance) { i.streamChar(i.arg[0] & 0xff) }},
	{Code: 0x71, Name: "streamnum", Format: "L", fn: func(i *Instance) { i.streamNum(i.arg[0], false, 0) }},
	{Code: 0x72, Name: "streamstr", Format: "L", fn: func(i *Instance) { i.streamString(i.arg[0], 0, 0) }},
	{Code: 0x73, Name: "streamunichar", Format: "L", fn: func(i *Instance) { i.streamUniChar(i.arg[0]) }},

	{Code: 0x100, Name: "gestalt", Format: "LLS", fn: func(i *Instance) { i.store(i.dst[0], i.gestalt(i.arg[0], i.arg[1])) }},
	{Code: 0x101, Name: "debugtrap", Format: "L", fn: func(i *Instance) { i.fault(DecodeFault, "debugtrap %#x", i.arg[0]) }},
	{Code: 0x102, Name: "getmemsize", Format: "S", fn: func(i *Instance) { i.store(i.dst[0], i.MemSize()) }},
	{Code: 0x103, Name: "setmemsize", Format: "LS", fn: func(i *Instance) { i.store(i.dst[0], i.resize(i.arg[0])) }},
	{Code: 0x104, Name: "jumpabs", Format: "L", fn: func(i *Instance) { i.PC = i.arg[0] }},

	{Code: 0x110, Name: "random", Format: "LS", fn: opRandom},
	{Code: 0x111, Name: "setrandom", Format: "L", fn: opSetrandom},

	{Code: 0x120, Name: "quit", fn: func(i *Instance) { i.halted = true }},
	{Code: 0x121, Name: "verify", Format: "S", fn: func(i *Instance) { i.store(i.dst[0], b2u(!i.Verify())) }},
	{Code: 0x122, Name: "restart", fn: func(i *Instance) { i.restart() }},
	{Code: 0x123, Name: "save", Format: "LS", fn: opSave},
	{Code: 0x124, Name: "restore", Format: "LS", fn: opRestore},
	{Code: 0x125, Name: "saveundo", Format: "S", fn: opSaveUndo},
	{Code: 0x126, Name: "restoreundo", Format: "S", fn: opRestoreUndo},
	{Code: 0x127, Name: "protect", Format: "LL", fn: func(i *Instance) { i.protectStart, i.protectLen = i.arg[0], i.arg[1] }},
	{Code: 0x128, Name: "hasundo", Format: "S", fn: func(i *Instance) { i.store(i.dst[0], b2u(len(i.undo) == 0)) }},
	{Code: 0x129, Name: "discardundo", fn: func(i *Instance) { i.discardUndo() }},

	{Code: 0x130, Name: "glk", Format: "LLS", fn: func(i *Instance) { i.store(i.dst[0], i.glkCall(i.arg[0], i.popArgs(i.arg[1]))) }},

	{Code: 0x140, Name: "getstringtbl", Format: "S", fn: func(i *Instance) { i.store(i.dst[0], i.stringTable) }},
	{Code: 0x141, Name: "setstringtbl", Format: "L", fn: func(i *Instance) { i.stringTable = i.arg[0] }},
	{Code: 0x148, Name: "getiosys", Format: "SS", fn: func(i *Instance) { i.store(i.dst[0], i.iosysMode); i.store(i.dst[1], i.iosysRock) }},
	{Code: 0x149, Name: "setiosys", Format: "LL", fn: func(i *Instance) { i.setIOSys(i.arg[0], i.arg[1]) }},

	{Code: 0x150, Name: "linearsearch", Format: "LLLLLLLS", fn: opLinearSearch},
	{Code: 0x151, Name: "binarysearch", Format: "LLLLLLLS", fn: opBinarySearch},
	{Code: 0x152, Name: "linkedsearch", Format: "LLLLLLS", fn: opLinkedSearch},

	{Code: 0x160, Name: "callf", Format: "LS", fn: func(i *Instance) { i.callFunction(i.arg[0], nil, i.dst[0]) }},
	{Code: 0x161, Name: "callfi", Format: "LLS", fn: func(i *Instance) { i.callFunction(i.arg[0], []uint32{i.arg[1]}, i.dst[0]) }},
	{Code: 0x162, Name: "callfii", Format: "LLLS", fn: func(i *Instance) { i.callFunction(i.arg[0], []uint32{i.arg[1], i.arg[2]}, i.dst[0]) }},
	{Code: 0x163, Name: "callfiii", Format: "LLLLS", fn: func(i *Instance) {
		i.callFunction(i.arg[0], []uint32{i.arg[1], i.arg[2], i.arg[3]}, i.dst[0])
	}},

	{Code: 0x170, Name: "mzero", Format: "LL", fn: opMzero},
	{Code: 0x171, Name: "mcopy", Format: "LLL", fn: opMcopy},
	{Code: 0x178, Name: "malloc", Format: "LS", fn: func(i *Instance) { i.store(i.dst[0], i.malloc(i.arg[0])) }},
	{Code: 0x179, Name: "mfree", Format: "L", fn: func(i *Instance) { i.mfree(i.arg[0]) }},

	{Code: 0x180, Name: "accelfunc", Format: "LL", fn: func(i *Instance) { i.accelFunc(i.arg[0], i.arg[1]) }},
	{Code: 0x181, Name: "accelparam", Format: "LL", fn: func(i *Instance) { i.accelParam(i.arg[0], i.arg[1]) }},

	{Code: 0x190, Name: "numtof", Format: "LS", fn: opNumtof},
	{Code: 0x191, Name: "ftonumz", Format: "LS", fn: opFtonumz},
	{Code: 0x192, Name: "ftonumn", Format: "LS", fn: opFtonumn},
	{Code: 0x198, Name: "ceil", Format: "LS", fn: opCeil},
	{Code: 0x199, Name: "floor", Format: "LS", fn: opFloor},
	{Code: 0x1A0, Name: "fadd", Format: "LLS", fn: opFadd},
	{Code: 0x1A1, Name: "fsub", Format: "LLS", fn: opFsub},
	{Code: 0x1A2, Name: "fmul", Format: "LLS", fn: opFmul},
	{Code: 0x1A3, Name: "fdiv", Format: "LLS", fn: opFdiv},
	{Code: 0x1A4, Name: "fmod", Format: "LLSS", fn: opFmod},
	{Code: 0x1A8, Name: "sqrt", Format: "LS", fn: opSqrt},
	{Code: 0x1A9, Name: "exp", Format: "LS", fn: opExp},
	{Code: 0x1AA, Name: "log", Format: "LS", fn: opLog},
	{Code: 0x1AB, Name: "pow", Format: "LLS", fn: opPow},
	{Code: 0x1B0, Name: "sin", Format: "LS", fn: opSin},
	{Code: 0x1B1, Name: "cos", Format: "LS", fn: opCos},
	{Code: 0x1B2, Name: "tan", Format: "LS", fn: opTan},
	{Code: 0x1B3, Name: "asin", Format: "LS", fn: opAsin},
	{Code: 0x1B4, Name: "acos", Format: "LS", fn: opAcos},
	{Code: 0x1B5, Name: "atan", Format: "LS", fn: opAtan},
	{Code: 0x1B6, Name: "atan2", Format: "LLS", fn: opAtan2},
	{Code: 0x1C0, Name: "jfeq", Format: "LLLL", fn: opJfeq},
	{Code: 0x1C1, Name: "jfne", Format: "LLLL", fn: opJfne},
	{Code: 0x1C2, Name: "jflt", Format: "LLL", fn: opJflt},
	{Code: 0x1C3, Name: "jfle", Format: "LLL", fn: opJfle},
	{Code: 0x1C4, Name: "jfgt", Format: "LLL", fn: opJfgt},
	{Code: 0x1C5, Name: "jfge", Format: "LLL", fn: opJfge},
	{Code: 0x1C8, Name: "jisnan", Format: "LL", fn: opJisnan},
	{Code: 0x1C9, Name: "jisinf", Format: "LL", fn: opJisinf},
}

const maxOpcode = 0x1CA

var (
	dispatch [maxOpcode]*Opcode
	byName   = make(map[string]*Opcode, len(opcodes))
)

func init() {
	for k := range opcodes {
		op := &opcodes[k]
		if op.Width == 0 {
			op.Width = 4
		}
		dispatch[op.Code] = op
		byName[op.Name] = op
	}
}

// LookupOpcode returns the instruction with the given opcode number.
func LookupOpcode(code uint32) (Opcode, bool) {
	if code >= maxOpcode || dispatch[code] == nil {
		return Opcode{}, false
	}
	return *dispatch[code], true
}

// OpcodeByName returns the instruction with the given name.
func OpcodeByName(name string) (Opcode, bool) {
	op := byName[name]
	if op == nil {
		return Opcode{}, false
	}
	return *op, true
}

// Opcodes returns all the instructions known to the VM, by opcode number.
func Opcodes() []Opcode {
	return append([]Opcode(nil), opcodes...)
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func opDiv(i *Instance) {
	if i.arg[1] == 0 {
		i.fault(ArithFault, "division by zero")
	}
	i.store(i.dst[0], uint32(int32(i.arg[0])/int32(i.arg[1])))
}

func opMod(i *Instance) {
	if i.arg[1] == 0 {
		i.fault(ArithFault, "division by zero doing remainder")
	}
	i.store(i.dst[0], uint32(int32(i.arg[0])%int32(i.arg[1])))
}

func opShiftl(i *Instance) {
	var v uint32
	if i.arg[1] < 32 {
		v = i.arg[0] << i.arg[1]
	}
	i.store(i.dst[0], v)
}

func opUshiftr(i *Instance) {
	var v uint32
	if i.arg[1] < 32 {
		v = i.arg[0] >> i.arg[1]
	}
	i.store(i.dst[0], v)
}

func opSshiftr(i *Instance) {
	s := i.arg[1]
	if s > 31 {
		s = 31
	}
	i.store(i.dst[0], uint32(int32(i.arg[0])>>s))
}

func opTailcall(i *Instance) {
	args := i.popArgs(i.arg[1])
	i.leaveFunction()
	i.enterFunction(i.arg[0], args)
}

func opCopy(i *Instance) {
	i.store(i.dst[0], i.arg[0])
}

// bitAddr returns the byte address and bit index of a signed bit number
// relative to addr.
func bitAddr(addr, bit uint32) (uint32, uint32) {
	b := int32(bit)
	if b >= 0 {
		return addr + uint32(b>>3), uint32(b & 7)
	}
	return addr - uint32((-1-b)>>3) - 1, uint32(b & 7)
}

func opAloadbit(i *Instance) {
	a, b := bitAddr(i.arg[0], i.arg[1])
	i.store(i.dst[0], i.Load8(a)>>b&1)
}

func opAstorebit(i *Instance) {
	a, b := bitAddr(i.arg[0], i.arg[1])
	v := i.Load8(a)
	if i.arg[2] != 0 {
		v |= 1 << b
	} else {
		v &^= 1 << b
	}
	i.Store8(a, v)
}

func opStkswap(i *Instance) {
	a, b := i.pop(), i.pop()
	i.push(a)
	i.push(b)
}

// opStkroll rotates the top arg0 values of the stack by arg1 positions
// towards the top.
func opStkroll(i *Instance) {
	n, shift := int32(i.arg[0]), int32(i.arg[1])
	if n < 0 || uint32(n) > i.stackCount() {
		i.fault(StackFault, "stkroll of %d values beyond stack depth %d", n, i.stackCount())
	}
	if n == 0 {
		return
	}
	s := shift % n
	if s < 0 {
		s += n
	}
	if s == 0 {
		return
	}
	base := i.sp - 4*uint32(n)
	vals := make([]uint32, n)
	for k := int32(0); k < n; k++ {
		vals[(k+s)%n] = glx.RP4(i.stack[base+4*uint32(k):])
	}
	for k, v := range vals {
		glx.WP4(i.stack[base+4*uint32(k):], v)
	}
}

func opStkcopy(i *Instance) {
	n := i.arg[0]
	if n > i.stackCount() {
		i.fault(StackFault, "stkcopy of %d values beyond stack depth %d", n, i.stackCount())
	}
	base := i.sp - 4*n
	for k := uint32(0); k < n; k++ {
		i.push(glx.RP4(i.stack[base+4*k:]))
	}
}

func opRandom(i *Instance) {
	n := int32(i.arg[0])
	var v uint32
	switch {
	case n == 0:
		v = i.rng.Uint32()
	case n > 0:
		v = i.rng.Uint32() % uint32(n)
	default:
		v = -(i.rng.Uint32() % uint32(-n))
	}
	i.store(i.dst[0], v)
}

func opSetrandom(i *Instance) {
	seed := i.arg[0]
	if seed == 0 {
		seed = clockSeed()
	}
	i.rng.Seed(seed)
	i.log.Debugf("random generator seeded with %#x", seed)
}

func opMzero(i *Instance) {
	n, addr := i.arg[0], i.arg[1]
	i.checkWrite(addr, n)
	clear(i.mem[addr : addr+n])
}

func opMcopy(i *Instance) {
	n, src, dst := i.arg[0], i.arg[1], i.arg[2]
	i.checkRead(src, n)
	i.checkWrite(dst, n)
	copy(i.mem[dst:dst+n], i.mem[src:src+n])
}
