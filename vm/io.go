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
	"strconv"
)

// I/O systems selected by setiosys.
const (
	IOSysNull   = 0
	IOSysFilter = 1
	IOSysGlk    = 2
)

func (i *Instance) setIOSys(mode, rock uint32) {
	switch mode {
	case IOSysFilter:
	case IOSysNull, IOSysGlk:
		rock = 0
	default:
		i.log.Debugf("unknown iosys %d, falling back to null", mode)
		mode, rock = IOSysNull, 0
	}
	i.iosysMode, i.iosysRock = mode, rock
}

// filter calls the filter function with ch. The caller must have pushed a
// call stub.
func (i *Instance) filter(ch uint32) {
	i.enterFunction(i.iosysRock, []uint32{ch})
}

func (i *Instance) streamChar(ch uint32) {
	switch i.iosysMode {
	case IOSysGlk:
		i.glk.PutChar(nil, byte(ch))
	case IOSysFilter:
		i.pushCallStub(destNone, 0)
		i.filter(ch)
	}
}

func (i *Instance) streamUniChar(ch uint32) {
	switch i.iosysMode {
	case IOSysGlk:
		i.glk.PutRune(nil, rune(ch))
	case IOSysFilter:
		i.pushCallStub(destNone, 0)
		i.filter(ch)
	}
}

// streamNum prints val as a signed decimal number, starting at digit
// charnum. inmiddle is set when resuming after the filter function returns.
func (i *Instance) streamNum(val uint32, inmiddle bool, charnum uint32) {
	digits := strconv.AppendInt(nil, int64(int32(val)), 10)
	switch i.iosysMode {
	case IOSysGlk:
		if charnum < uint32(len(digits)) {
			i.glk.PutString(nil, digits[charnum:])
		}
	case IOSysFilter:
		if !inmiddle {
			i.pushCallStub(stubResumeFunc, 0)
			inmiddle = true
		}
		if charnum < uint32(len(digits)) {
			i.PC = val
			i.pushCallStub(stubResumeNum, charnum+1)
			i.filter(uint32(digits[charnum]))
			return
		}
	}
	if inmiddle {
		if pc, _ := i.popCallStubString(); pc != 0 {
			i.fault(StackFault, "string-on-string call stub while printing number")
		}
	}
}

// streamString prints the string object at addr. When resuming a string
// interrupted by a function call, inmiddle is the string type (0xE0, 0xE1 or
// 0xE2) and bitnum the bit position in compressed strings.
//
// Nested strings and function calls embedded in compressed strings never
// recurse on the Go stack: the resumption point is pushed as a call stub so
// that the VM state can be saved at any time.
func (i *Instance) streamString(addr, inmiddle, bitnum uint32) {
	substring := inmiddle != 0
	enterSub := func() {
		if !substring {
			i.pushCallStub(stubResumeFunc, 0)
			substring = true
		}
	}
	// resume pushes the stub that resumes the compressed string.
	resume := func(pc, bit uint32) {
		enterSub()
		i.PC = pc
		i.pushCallStub(stubResumeString, bit)
	}

outer:
	for {
		typ := inmiddle
		if typ == 0 {
			typ = i.Load8(addr)
			if typ == 0xE2 {
				addr += 4
			} else {
				addr++
			}
			bitnum = 0
		}
		inmiddle = 0

		switch typ {
		case 0xE1:
			if i.stringTable == 0 {
				i.fault(DecodeFault, "compressed string at %#x with no decoding table", addr-1)
			}
			root := i.Load32(i.stringTable + 8)
			node := root
		tree:
			for {
				nt := i.Load8(node)
				switch nt {
				case 0x00:
					b := i.Load8(addr) >> bitnum & 1
					if bitnum++; bitnum == 8 {
						bitnum = 0
						addr++
					}
					node = i.Load32(node + 1 + 4*b)
					continue
				case 0x01:
					break tree
				case 0x02, 0x04:
					var ch uint32
					if nt == 0x02 {
						ch = i.Load8(node + 1)
					} else {
						ch = i.Load32(node + 1)
					}
					switch i.iosysMode {
					case IOSysGlk:
						i.glk.PutRune(nil, rune(ch))
					case IOSysFilter:
						resume(addr, bitnum)
						i.filter(ch)
						return
					}
				case 0x03, 0x05:
					switch i.iosysMode {
					case IOSysGlk:
						if nt == 0x03 {
							i.glk.PutString(nil, i.cString(node+1))
						} else {
							i.glk.PutRunes(nil, i.uniString(node+1))
						}
					case IOSysFilter:
						resume(addr, bitnum)
						inmiddle, addr = 0xE0, node+1
						if nt == 0x05 {
							inmiddle = 0xE2
						}
						continue outer
					}
				case 0x08, 0x09, 0x0A, 0x0B:
					target := i.Load32(node + 1)
					if nt == 0x09 || nt == 0x0B {
						target = i.Load32(target)
					}
					var args []uint32
					if nt >= 0x0A {
						args = make([]uint32, i.Load32(node+5))
						for k := range args {
							args[k] = i.Load32(node + 9 + 4*uint32(k))
						}
					}
					switch t := i.Load8(target); {
					case t >= 0xE0:
						resume(addr, bitnum)
						addr = target
						continue outer
					case t >= 0xC0 && t <= 0xDF:
						resume(addr, bitnum)
						i.enterFunction(target, args)
						return
					default:
						i.fault(DecodeFault, "unknown object %#x while decoding string indirect reference", target)
					}
				default:
					i.fault(DecodeFault, "unknown node type %#x in string decoding table", nt)
				}
				node = root
			}

		case 0xE0:
			switch i.iosysMode {
			case IOSysGlk:
				i.glk.PutString(nil, i.cString(addr))
			case IOSysFilter:
				enterSub()
				if ch := i.Load8(addr); ch != 0 {
					i.PC = addr + 1
					i.pushCallStub(stubResumeCStr, 0)
					i.filter(ch)
					return
				}
			}

		case 0xE2:
			switch i.iosysMode {
			case IOSysGlk:
				i.glk.PutRunes(nil, i.uniString(addr))
			case IOSysFilter:
				enterSub()
				if ch := i.Load32(addr); ch != 0 {
					i.PC = addr + 4
					i.pushCallStub(stubResumeUStr, 0)
					i.filter(ch)
					return
				}
			}

		default:
			i.fault(DecodeFault, "streamstr of non-string object at %#x (type %#x)", addr-1, typ)
		}

		if !substring {
			return
		}
		pc, bn := i.popCallStubString()
		if pc == 0 {
			return
		}
		addr, bitnum, inmiddle = pc, bn, 0xE1
	}
}

// cString returns the NUL terminated Latin-1 string at addr.
func (i *Instance) cString(addr uint32) []byte {
	var s []byte
	for ; ; addr++ {
		c := i.Load8(addr)
		if c == 0 {
			return s
		}
		s = append(s, byte(c))
	}
}

// uniString returns the zero terminated string of 32 bits characters at
// addr.
func (i *Instance) uniString(addr uint32) []rune {
	var s []rune
	for ; ; addr += 4 {
		c := i.Load32(addr)
		if c == 0 {
			return s
		}
		s = append(s, rune(c))
	}
}

// Print writes s to the current Glk stream, regardless of the current I/O
// system. Accelerated functions use it to report errors.
func (i *Instance) Print(s string) {
	i.glk.PutRunes(nil, []rune(s))
}
