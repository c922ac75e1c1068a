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

// Package inform provides the accelerated functions for the veneer routines
// of the Inform 6 library. Stories compiled with Inform bind them to their
// own veneer routines with the accelfunc opcode.
//
// Functions 1 to 7 are the original set, which assumes 7 attribute bytes per
// object. Functions 8 to 13 are the same routines, reading the number of
// attribute bytes from accelparam 7.
package inform

import (
	"github.com/db47h/glulx/vm"
)

// accelparam indices.
const (
	ClassesTable = iota
	IndivPropStart
	ClassMetaclass
	ObjectMetaclass
	RoutineMetaclass
	StringMetaclass
	Self
	NumAttrBytes
	CPVStart
)

// Programming error messages.
const (
	errDot     = "[** Programming error: tried to find the \".\" of (something) **]"
	errOfclass = "[** Programming error: tried to apply 'ofclass' with non-class **]"
	errRead    = "[** Programming error: tried to read (something) **]"
)

// Funcs returns the accelerated functions, by function number.
func Funcs() map[uint32]vm.AccelFunc {
	return map[uint32]vm.AccelFunc{
		1:  zRegion,
		2:  oldFunc(cpTab),
		3:  oldFunc(raPr),
		4:  oldFunc(rlPr),
		5:  oldFunc(ocCl),
		6:  oldFunc(rvPr),
		7:  oldFunc(opPr),
		8:  newFunc(cpTab),
		9:  newFunc(raPr),
		10: newFunc(rlPr),
		11: newFunc(ocCl),
		12: newFunc(rvPr),
		13: newFunc(opPr),
	}
}

// Accelerate returns a vm.Option enabling the functions returned by Funcs.
func Accelerate() vm.Option {
	return vm.Accelerate(Funcs())
}

// veneer gives access to the Inform objects in story memory.
type veneer struct {
	i         *vm.Instance
	attrBytes uint32
}

func oldFunc(fn func(v *veneer, obj, id uint32) uint32) vm.AccelFunc {
	return func(i *vm.Instance, args []uint32) uint32 {
		v := &veneer{i, 7}
		return fn(v, arg(args, 0), arg(args, 1))
	}
}

func newFunc(fn func(v *veneer, obj, id uint32) uint32) vm.AccelFunc {
	return func(i *vm.Instance, args []uint32) uint32 {
		v := &veneer{i, i.AccelParam(NumAttrBytes)}
		return fn(v, arg(args, 0), arg(args, 1))
	}
}

// arg returns argument n. Missing arguments are 0.
func arg(args []uint32, n int) uint32 {
	if n < len(args) {
		return args[n]
	}
	return 0
}

func (v *veneer) param(n uint32) uint32 { return v.i.AccelParam(n) }

func (v *veneer) error(msg string) {
	v.i.Print("\n" + msg + "\n")
}

// region returns 1 for objects, 2 for functions, 3 for strings and 0 for
// anything else.
func region(i *vm.Instance, addr uint32) uint32 {
	if addr < vm.HeaderSize || addr >= i.MemSize() {
		return 0
	}
	switch t := i.Load8(addr); {
	case t >= 0xE0:
		return 3
	case t >= 0xC0:
		return 2
	case t >= 0x70 && t <= 0x7F && addr >= i.Header().RAMStart:
		return 1
	}
	return 0
}

func zRegion(i *vm.Instance, args []uint32) uint32 {
	return region(i, arg(args, 0))
}

// inClass reports whether obj is a class, i.e. a child of Class.
func (v *veneer) inClass(obj uint32) bool {
	return v.i.Load32(obj+13+v.attrBytes) == v.param(ClassMetaclass)
}

// cpTab returns the address of the property table entry id of obj, or 0.
// Entries are 10 bytes long, sorted by their 16 bits id.
func cpTab(v *veneer, obj, id uint32) uint32 {
	if region(v.i, obj) != 1 {
		v.error(errDot)
		return 0
	}
	otab := v.i.Load32(obj + 4*(3+v.attrBytes/4))
	if otab == 0 {
		return 0
	}
	lo, hi := uint32(0), v.i.Load32(otab)
	otab += 4
	for lo < hi {
		mid := lo + (hi-lo)/2
		switch k := v.i.Load16(otab + 10*mid); {
		case k == id:
			return otab + 10*mid
		case k < id:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// prop returns the property entry of id visible from obj. The high 16 bits of
// id select a class in the classes table, in which case the property is the
// one obj inherits from that class.
func (v *veneer) prop(obj, id uint32) uint32 {
	var cla uint32
	if id&0xFFFF0000 != 0 {
		cla = v.i.Load32(v.param(ClassesTable) + 4*(id&0xFFFF))
		if ocCl(v, obj, cla) == 0 {
			return 0
		}
		id >>= 16
		obj = cla
	}
	p := cpTab(v, obj, id)
	if p == 0 {
		return 0
	}
	if v.inClass(obj) && cla == 0 {
		if start := v.param(IndivPropStart); id < start || id >= start+8 {
			return 0
		}
	}
	if v.i.Load32(v.param(Self)) != obj && v.i.Load8(p+9)&1 != 0 {
		// private property
		return 0
	}
	return p
}

func raPr(v *veneer, obj, id uint32) uint32 {
	p := v.prop(obj, id)
	if p == 0 {
		return 0
	}
	return v.i.Load32(p + 4)
}

func rlPr(v *veneer, obj, id uint32) uint32 {
	p := v.prop(obj, id)
	if p == 0 {
		return 0
	}
	return 4 * v.i.Load16(p+2)
}

// ocCl implements ofclass.
func ocCl(v *veneer, obj, cla uint32) uint32 {
	switch region(v.i, obj) {
	case 3:
		return b2u(cla == v.param(StringMetaclass))
	case 2:
		return b2u(cla == v.param(RoutineMetaclass))
	case 1:
	default:
		return 0
	}
	isMeta := v.inClass(obj) ||
		obj == v.param(ClassMetaclass) ||
		obj == v.param(StringMetaclass) ||
		obj == v.param(RoutineMetaclass) ||
		obj == v.param(ObjectMetaclass)
	switch cla {
	case v.param(ClassMetaclass):
		return b2u(isMeta)
	case v.param(ObjectMetaclass):
		return b2u(!isMeta)
	case v.param(StringMetaclass), v.param(RoutineMetaclass):
		return 0
	}
	if !v.inClass(cla) {
		v.error(errOfclass)
		return 0
	}
	// property 2 holds the list of classes of obj
	p := v.prop(obj, 2)
	if p == 0 {
		return 0
	}
	list := v.i.Load32(p + 4)
	if list == 0 {
		return 0
	}
	for k, n := uint32(0), v.i.Load16(p+2); k < n; k++ {
		if v.i.Load32(list+4*k) == cla {
			return 1
		}
	}
	return 0
}

func rvPr(v *veneer, obj, id uint32) uint32 {
	addr := raPr(v, obj, id)
	if addr == 0 {
		if id > 0 && id < v.param(IndivPropStart) {
			// common property default value
			return v.i.Load32(v.param(CPVStart) + 4*id)
		}
		v.error(errRead)
		return 0
	}
	return v.i.Load32(addr)
}

// opPr implements provides.
func opPr(v *veneer, obj, id uint32) uint32 {
	start := v.param(IndivPropStart)
	switch region(v.i, obj) {
	case 3:
		// print and print_to_array
		return b2u(id == start+6 || id == start+7)
	case 2:
		// call
		return b2u(id == start+5)
	case 1:
	default:
		return 0
	}
	if id >= start && id < start+8 && v.inClass(obj) {
		return 1
	}
	return b2u(raPr(v, obj, id) != 0)
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
