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
	"github.com/pkg/errors"
)

// Run starts or resumes execution of the story until it quits, returns from
// its start function, calls glk_exit, or runs out of input.
//
// Fatal errors are returned as an *Error (possibly wrapped, use
// errors.Cause), after printing a one line diagnostic on the current Glk
// stream. In both cases, all Glk streams are closed when Run returns.
//
// If an error occurs, PC will point to the instruction that triggered it.
func (i *Instance) Run() (err error) {
	count := i.insCount
	defer func() {
		i.stats.instructions.Inc(i.insCount - count)
		if e := recover(); e != nil {
			ve, ok := e.(*Error)
			if !ok {
				panic(e)
			}
			if ve.Kind != Halt {
				i.log.Errorf("%v", ve)
				i.printFatal(ve)
				err = errors.WithStack(ve)
			}
			i.halted = true
		}
		if cerr := i.glk.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "glk close")
		}
	}()
	if i.halted {
		return nil
	}
	if !i.started {
		i.started = true
		i.start()
	}
	for !i.halted {
		i.step()
	}
	i.log.Debugf("halted after %d instructions", i.insCount)
	return nil
}

// printFatal writes the fatal error message to the current output stream.
// Errors raised while doing so are ignored.
func (i *Instance) printFatal(e *Error) {
	defer func() { recover() }()
	i.glk.PutString(nil, []byte("\n"+e.Fatal()+"\n"))
}

// start calls the start function with an empty stack.
func (i *Instance) start() {
	i.sp, i.fp, i.valstackbase, i.localsbase = 0, 0, 0, 0
	i.enterFunction(i.hdr.StartFunc, nil)
}

// restart resets memory, keeping the protected range, and calls the start
// function again. The protected range is cleared.
func (i *Instance) restart() {
	i.log.Info("restart")
	i.resetMemory()
	i.protectStart, i.protectLen = 0, 0
	i.iosysMode, i.iosysRock = 0, 0
	i.stringTable = i.hdr.StringTable
	i.undo = nil
	i.start()
}

// step executes a single instruction.
func (i *Instance) step() {
	i.opPC = i.PC
	if i.trace != nil {
		i.trace(i, i.PC)
	}
	code := i.fetchOpcode()
	var op *Opcode
	if code < maxOpcode {
		op = dispatch[code]
	}
	if op == nil {
		i.fault(DecodeFault, "unknown opcode %#x", code)
	}
	i.decode(op)
	op.fn(i)
	i.insCount++
}

func (i *Instance) fetchOpcode() uint32 {
	b := i.Load8(i.PC)
	switch {
	case b < 0x80:
		i.PC++
		return b
	case b < 0xC0:
		v := i.Load16(i.PC) - 0x8000
		i.PC += 2
		return v
	}
	v := i.Load32(i.PC) - 0xC0000000
	i.PC += 4
	return v
}

// decode reads the operands of op. Load operands are evaluated in order
// into i.arg; store operands are decoded into i.dst.
func (i *Instance) decode(op *Opcode) {
	n := uint32(len(op.Format))
	modes := i.PC
	i.PC += (n + 1) / 2
	var nl, ns int
	for k := uint32(0); k < n; k++ {
		m := i.Load8(modes + k/2)
		if k&1 != 0 {
			m >>= 4
		}
		m &= 0x0f
		if op.Format[k] == 'L' {
			i.arg[nl] = i.loadOperand(m, op.Width)
			nl++
		} else {
			i.dst[ns] = i.storeOperand(m, op.Width)
			ns++
		}
	}
}

// operandAddr reads an unsigned 1, 2 or 4 bytes operand.
func (i *Instance) operandAddr(size uint32) uint32 {
	var v uint32
	switch size {
	case 1:
		v = i.Load8(i.PC)
	case 2:
		v = i.Load16(i.PC)
	default:
		v, size = i.Load32(i.PC), 4
	}
	i.PC += size
	return v
}

func (i *Instance) loadWidth(addr uint32, width uint8) uint32 {
	switch width {
	case 1:
		return i.Load8(addr)
	case 2:
		return i.Load16(addr)
	}
	return i.Load32(addr)
}

func (i *Instance) loadOperand(mode uint32, width uint8) uint32 {
	switch mode {
	case 0x0:
		return 0
	case 0x1:
		return glx.SignExtend8(i.operandAddr(1))
	case 0x2:
		return glx.SignExtend16(i.operandAddr(2))
	case 0x3:
		return i.operandAddr(4)
	case 0x5, 0x6, 0x7:
		return i.loadWidth(i.operandAddr(mode-4), width)
	case 0x8:
		return i.pop()
	case 0x9, 0xA, 0xB:
		return i.readLocal(i.operandAddr(mode-8), width)
	case 0xD, 0xE, 0xF:
		return i.loadWidth(i.operandAddr(mode-0xC)+i.hdr.RAMStart, width)
	}
	i.fault(DecodeFault, "illegal load operand mode %#x", mode)
	return 0
}

func (i *Instance) storeOperand(mode uint32, width uint8) dest {
	switch mode {
	case 0x0:
		return dest{typ: destNone}
	case 0x5, 0x6, 0x7:
		return dest{typ: destMem, addr: i.operandAddr(mode - 4), width: width}
	case 0x8:
		return dest{typ: destStack, width: width}
	case 0x9, 0xA, 0xB:
		return dest{typ: destLocal, addr: i.operandAddr(mode - 8), width: width}
	case 0xD, 0xE, 0xF:
		return dest{typ: destMem, addr: i.operandAddr(mode-0xC) + i.hdr.RAMStart, width: width}
	}
	i.fault(DecodeFault, "illegal store operand mode %#x", mode)
	return dest{}
}

// store writes v to the destination d, truncated to its width.
func (i *Instance) store(d dest, v uint32) {
	switch d.typ {
	case destNone:
	case destMem:
		switch d.width {
		case 1:
			i.Store8(d.addr, v)
		case 2:
			i.Store16(d.addr, v)
		default:
			i.Store32(d.addr, v)
		}
	case destLocal:
		i.writeLocal(d.addr, v, d.width)
	case destStack:
		switch d.width {
		case 1:
			v &= 0xff
		case 2:
			v &= 0xffff
		}
		i.push(v)
	default:
		i.fault(StackFault, "bad call stub destination type %#x", d.typ)
	}
}

// branch jumps to PC+off-2. Offsets 0 and 1 return 0 or 1 from the current
// function instead.
func (i *Instance) branch(off uint32) {
	if off == 0 || off == 1 {
		i.ret(off)
		return
	}
	i.PC += off - 2
}

func (i *Instance) branchIf(cond bool, off uint32) {
	if cond {
		i.branch(off)
	}
}
