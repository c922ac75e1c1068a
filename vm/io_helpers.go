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
	"fmt"

	"github.com/db47h/glulx/glk"
)

// glkError is raised by the argument helpers when a Glk call gets an
// invalid argument. The call returns 0 and execution continues.
type glkError string

func glkErrorf(format string, args ...interface{}) glkError {
	return glkError(fmt.Sprintf(format, args...))
}

// glkArgs gives typed access to the arguments of a glk call.
type glkArgs struct {
	i    *Instance
	args []uint32
}

// refStack is the reference argument value meaning "on the stack".
const refStack = 0xFFFFFFFF

func (a glkArgs) u(k int) uint32 {
	if k >= len(a.args) {
		a.i.fault(DecodeFault, "glk call needs at least %d arguments, got %d", k+1, len(a.args))
	}
	return a.args[k]
}

func (a glkArgs) win(k int) *glk.Window {
	id := a.u(k)
	if id == 0 {
		return nil
	}
	w, ok := a.i.glk.Window(id)
	if !ok {
		panic(glkErrorf("reference to nonexistent window %d", id))
	}
	return w
}

func (a glkArgs) str(k int) *glk.Stream {
	id := a.u(k)
	if id == 0 {
		return nil
	}
	s, ok := a.i.glk.Stream(id)
	if !ok {
		panic(glkErrorf("reference to nonexistent stream %d", id))
	}
	return s
}

func (a glkArgs) fref(k int) *glk.Fileref {
	id := a.u(k)
	if id == 0 {
		return nil
	}
	f, ok := a.i.glk.Fileref(id)
	if !ok {
		panic(glkErrorf("reference to nonexistent fileref %d", id))
	}
	return f
}

// mustWin is win for calls where a nil window is invalid.
func (a glkArgs) mustWin(k int) *glk.Window {
	w := a.win(k)
	if w == nil {
		panic(glkErrorf("null window"))
	}
	return w
}

func (a glkArgs) mustStr(k int) *glk.Stream {
	s := a.str(k)
	if s == nil {
		panic(glkErrorf("null stream"))
	}
	return s
}

func (a glkArgs) mustFref(k int) *glk.Fileref {
	f := a.fref(k)
	if f == nil {
		panic(glkErrorf("null fileref"))
	}
	return f
}

// text returns the string object argument k as runes. Latin-1 (E0) and
// unicode (E2) strings are accepted.
func (a glkArgs) text(k int) []rune {
	addr := a.u(k)
	switch t := a.i.Load8(addr); t {
	case 0xE0:
		b := a.i.cString(addr + 1)
		rs := make([]rune, len(b))
		for n, c := range b {
			rs[n] = rune(c)
		}
		return rs
	case 0xE2:
		return a.i.uniString(addr + 4)
	default:
		panic(glkErrorf("string argument at %#x is not an unencoded string (type %#x)", addr, t))
	}
}

// out stores the results of a reference argument k: nothing if the
// reference is 0, pushed on the stack in order if it is 0xFFFFFFFF, and
// consecutive words in memory otherwise.
func (a glkArgs) out(k int, vals ...uint32) {
	addr := a.u(k)
	switch addr {
	case 0:
	case refStack:
		for _, v := range vals {
			a.i.push(v)
		}
	default:
		for n, v := range vals {
			a.i.Store32(addr+4*uint32(n), v)
		}
	}
}

// in reads n words from the reference argument k: popped from the stack
// (last field first) if the reference is 0xFFFFFFFF, from memory otherwise.
func (a glkArgs) in(k int, n int) []uint32 {
	addr := a.u(k)
	vals := make([]uint32, n)
	switch addr {
	case 0:
		panic(glkErrorf("null struct argument"))
	case refStack:
		for j := n - 1; j >= 0; j-- {
			vals[j] = a.i.pop()
		}
	default:
		for j := range vals {
			vals[j] = a.i.Load32(addr + 4*uint32(j))
		}
	}
	return vals
}

func (a glkArgs) date(k int) glk.Date {
	v := a.in(k, 8)
	return glk.Date{
		Year: int32(v[0]), Month: int32(v[1]), Day: int32(v[2]), Weekday: int32(v[3]),
		Hour: int32(v[4]), Minute: int32(v[5]), Second: int32(v[6]), Micros: int32(v[7]),
	}
}

func (a glkArgs) outDate(k int, d glk.Date) {
	a.out(k, uint32(d.Year), uint32(d.Month), uint32(d.Day), uint32(d.Weekday),
		uint32(d.Hour), uint32(d.Minute), uint32(d.Second), uint32(d.Micros))
}

func (a glkArgs) timeVal(k int) glk.TimeVal {
	v := a.in(k, 3)
	return glk.TimeVal{High: int32(v[0]), Low: v[1], Micro: int32(v[2])}
}

func (a glkArgs) outTimeVal(k int, t glk.TimeVal) {
	a.out(k, uint32(t.High), t.Low, uint32(t.Micro))
}

func (a glkArgs) outEvent(k int, ev glk.Event) {
	a.out(k, ev.Type, winID(ev.Win), ev.Val1, ev.Val2)
}

// bytes returns n bytes of memory at the address in argument k.
func (a glkArgs) bytes(k int, n uint32) []byte {
	addr := a.u(k)
	a.i.checkRead(addr, n)
	return append([]byte(nil), a.i.mem[addr:addr+n]...)
}

// runes returns n 32 bits characters from memory at the address in
// argument k.
func (a glkArgs) runes(k int, n uint32) []rune {
	addr := a.u(k)
	if uint64(addr)+4*uint64(n) > uint64(len(a.i.mem)) {
		a.i.fault(MemoryFault, "read of %d characters at %#x is out of memory (ENDMEM %#x)", n, addr, len(a.i.mem))
	}
	rs := make([]rune, n)
	for j := range rs {
		rs[j] = rune(a.i.Load32(addr + 4*uint32(j)))
	}
	return rs
}

// storeRunes writes at most max characters of rs at the address in argument
// k and returns len(rs).
func (a glkArgs) storeRunes(k int, rs []rune, max uint32) uint32 {
	addr := a.u(k)
	for j, r := range rs {
		if uint32(j) >= max {
			break
		}
		a.i.Store32(addr+4*uint32(j), uint32(r))
	}
	return uint32(len(rs))
}

func winID(w *glk.Window) uint32 {
	if w == nil {
		return 0
	}
	return w.ID()
}

func strID(s *glk.Stream) uint32 {
	if s == nil {
		return 0
	}
	return s.ID()
}

func frefID(f *glk.Fileref) uint32 {
	if f == nil {
		return 0
	}
	return f.ID()
}
