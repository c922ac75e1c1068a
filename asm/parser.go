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
	"io"
	"math"
	"strconv"
	"text/scanner"

	"github.com/db47h/glulx/internal/glx"
	"github.com/db47h/glulx/vm"
)

// Operand addressing modes.
const (
	modeConst0 = 0x0
	modeConst1 = 0x1
	modeMem1   = 0x5
	modeStack  = 0x8
	modeLocal1 = 0x9
	modeRAM1   = 0xD
)

const (
	maxErrors      = 10
	defaultStack   = 0x1000
	defaultVersion = 0x00030102
)

type labelSite struct {
	pos     scanner.Position
	address uint32
}

type fixup struct {
	labelSite
	name string
	// branch offsets are relative to the end of the instruction
	rel  bool
	base uint32
}

type value struct {
	n     uint32
	label string
	pos   scanner.Position
}

type operand struct {
	value
	mode byte
}

type parser struct {
	s      scanner.Scanner
	tok    rune
	text   string
	pos    scanner.Position
	img    []byte
	pc     uint32
	labels map[string]labelSite
	consts map[string]uint32
	fixups []fixup
	errs   ErrAsm

	ramStart  uint32
	hasRAM    bool
	endMem    uint32
	stackSize uint32
	version   uint32
	start     *value
	strTbl    *value
}

func newParser() *parser {
	return &parser{
		pc:        vm.HeaderSize,
		labels:    make(map[string]labelSite),
		consts:    make(map[string]uint32),
		stackSize: defaultStack,
		version:   defaultVersion,
	}
}

func (p *parser) errorf(pos scanner.Position, format string, args ...interface{}) {
	if len(p.errs) < maxErrors {
		p.errs = append(p.errs, newError(pos, format, args...))
	}
}

func (p *parser) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
	p.pos = p.s.Position
}

func (p *parser) grow(n uint32) {
	if l := uint32(len(p.img)); l < n {
		p.img = append(p.img, make([]byte, n-l)...)
	}
}

func (p *parser) write(b ...byte) {
	if p.pc < vm.HeaderSize {
		p.errorf(p.pos, "address %#x overlaps the header", p.pc)
	}
	p.grow(p.pc + uint32(len(b)))
	copy(p.img[p.pc:], b)
	p.pc += uint32(len(b))
}

// put writes the width bytes big-endian representation of v.
func (p *parser) put(width uint32, v uint32) {
	switch width {
	case 1:
		p.write(byte(v))
	case 2:
		p.write(byte(v>>8), byte(v))
	case 4:
		p.write(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
}

func (p *parser) pad(to uint32) {
	p.grow(to)
	p.pc = to
}

func fits(n, width uint32) bool {
	switch width {
	case 1:
		return n <= 0xFF || n >= 0xFFFFFF80
	case 2:
		return n <= 0xFFFF || n >= 0xFFFF8000
	}
	return true
}

func (p *parser) parse(name string, r io.Reader) {
	p.s.Init(r)
	p.s.Filename = name
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanChars |
		scanner.ScanStrings | scanner.ScanRawStrings | scanner.ScanComments | scanner.SkipComments
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.errorf(s.Pos(), "%s", msg)
	}

	p.next()
	for p.tok != scanner.EOF && len(p.errs) < maxErrors {
		switch p.tok {
		case '.':
			p.next()
			p.directive()
		case scanner.Ident:
			if p.s.Peek() == ':' {
				p.defineLabel(p.text, p.pos)
				p.next()
				p.next()
				continue
			}
			p.instruction()
		default:
			p.errorf(p.pos, "unexpected %s", p.text)
			p.next()
		}
	}
}

func (p *parser) defineLabel(name string, pos scanner.Position) {
	if _, ok := p.consts[name]; ok {
		p.errorf(pos, "label %s already defined as a constant", name)
		return
	}
	if l, ok := p.labels[name]; ok {
		p.errorf(pos, "label %s redefined, previous definition here: %s", name, l.pos)
		return
	}
	p.labels[name] = labelSite{pos, p.pc}
}

// value parses an integer, a character, a constant or a label.
func (p *parser) value() (v value, ok bool) {
	v.pos = p.pos
	neg := false
	if p.tok == '-' {
		neg = true
		p.next()
	}
	switch p.tok {
	case scanner.Int:
		n, err := strconv.ParseInt(p.text, 0, 64)
		switch {
		case err != nil || n > math.MaxUint32:
			p.errorf(v.pos, "integer out of range: %s", p.text)
		case neg && n > -math.MinInt32:
			p.errorf(v.pos, "integer out of range: -%s", p.text)
		default:
			v.n = uint32(n)
			ok = true
		}
	case scanner.Char:
		s, err := strconv.Unquote(p.text)
		if err != nil || s == "" {
			p.errorf(v.pos, "bad character literal %s", p.text)
			break
		}
		v.n = uint32([]rune(s)[0])
		ok = true
	case scanner.Ident:
		if n, found := p.consts[p.text]; found {
			v.n = n
		} else {
			v.label = p.text
		}
		ok = true
	default:
		p.errorf(v.pos, "expected value, got %s", p.text)
		return v, false
	}
	p.next()
	if neg {
		if v.label != "" {
			p.errorf(v.pos, "cannot negate label %s", v.label)
			return v, false
		}
		v.n = -v.n
	}
	return v, ok
}

// number parses a value that must be known right away.
func (p *parser) number() (uint32, bool) {
	v, ok := p.value()
	if ok && v.label != "" {
		p.errorf(v.pos, "undefined constant %s", v.label)
		return 0, false
	}
	return v.n, ok
}

func (p *parser) directive() {
	name, pos := p.text, p.pos
	if p.tok != scanner.Ident {
		p.errorf(pos, "expected directive, got %s", p.text)
		return
	}
	p.next()
	switch name {
	case "org":
		if v, ok := p.number(); ok {
			p.pc = v
		}
	case "align":
		if v, ok := p.number(); ok {
			if v == 0 || v&(v-1) != 0 {
				p.errorf(pos, ".align: %d is not a power of 2", v)
				return
			}
			p.pad(glx.Align(p.pc, v))
		}
	case "byte":
		p.data(1)
	case "short":
		p.data(2)
	case "word":
		p.data(4)
	case "string":
		p.str(false)
	case "ustring":
		p.str(true)
	case "func":
		p.function(0xC1)
	case "stkfunc":
		p.function(0xC0)
	case "ram":
		if p.hasRAM {
			p.errorf(pos, ".ram: RAM already starts at %#x", p.ramStart)
			return
		}
		p.pad(glx.Align(p.pc, 256))
		p.ramStart = p.pc
		p.hasRAM = true
	case "endmem":
		if v, ok := p.number(); ok {
			p.endMem = v
		}
	case "stack":
		if v, ok := p.number(); ok {
			p.stackSize = v
		}
	case "version":
		if v, ok := p.number(); ok {
			p.version = v
		}
	case "start":
		if v, ok := p.value(); ok {
			p.start = &v
		}
	case "strtbl":
		if v, ok := p.value(); ok {
			p.strTbl = &v
		}
	case "equ":
		if p.tok != scanner.Ident {
			p.errorf(p.pos, ".equ: expected identifier, got %s", p.text)
			return
		}
		cst, cpos := p.text, p.pos
		p.next()
		v, ok := p.number()
		if !ok {
			return
		}
		if l, found := p.labels[cst]; found {
			p.errorf(cpos, ".equ: %s already defined as a label here: %s", cst, l.pos)
			return
		}
		if _, found := p.consts[cst]; found {
			p.errorf(cpos, ".equ: %s redefined", cst)
			return
		}
		p.consts[cst] = v
	default:
		p.errorf(pos, "unknown directive .%s", name)
	}
}

func (p *parser) data(width uint32) {
	for {
		v, ok := p.value()
		if !ok {
			return
		}
		switch {
		case v.label != "" && width != 4:
			p.errorf(v.pos, "label %s does not fit in %d bytes", v.label, width)
		case v.label != "":
			p.fixups = append(p.fixups, fixup{labelSite: labelSite{v.pos, p.pc}, name: v.label})
		case !fits(v.n, width):
			p.errorf(v.pos, "%d does not fit in %d bytes", v.n, width)
		}
		p.put(width, v.n)
		if p.tok != ',' {
			return
		}
		p.next()
	}
}

func (p *parser) str(uni bool) {
	pos := p.pos
	if p.tok != scanner.String && p.tok != scanner.RawString {
		p.errorf(pos, "expected string, got %s", p.text)
		return
	}
	s, err := strconv.Unquote(p.text)
	p.next()
	if err != nil {
		p.errorf(pos, "bad string literal: %v", err)
		return
	}
	if uni {
		p.write(0xE2, 0, 0, 0)
		for _, r := range s {
			p.put(4, uint32(r))
		}
		p.put(4, 0)
		return
	}
	p.write(0xE0)
	for _, r := range s {
		if r > 0xFF {
			p.errorf(pos, "%q is not a Latin-1 character", r)
			return
		}
		p.write(byte(r))
	}
	p.write(0)
}

// function writes a function header with n 4 bytes locals.
func (p *parser) function(typ byte) {
	var n uint32
	if _, cst := p.consts[p.text]; p.tok == scanner.Int || p.tok == scanner.Ident && cst {
		v, ok := p.number()
		if !ok {
			return
		}
		n = v
	}
	p.write(typ)
	for n > 0 {
		c := n
		if c > 255 {
			c = 255
		}
		p.write(4, byte(c))
		n -= c
	}
	p.write(0, 0)
}

func (p *parser) instruction() {
	name, pos := p.text, p.pos
	p.next()
	op, ok := vm.OpcodeByName(name)
	if !ok {
		p.errorf(pos, "unknown instruction %s", name)
		return
	}
	ops := make([]operand, 0, len(op.Format))
	for k, f := range op.Format {
		if k > 0 && p.tok == ',' {
			p.next()
		}
		o, ok := p.operand(f == 'S')
		if !ok {
			return
		}
		ops = append(ops, o)
	}
	p.emit(&op, ops)
}

// sizeIndex returns 0, 1 or 2 for operands of 1, 2 or 4 bytes.
func sizeIndex(v *value, signed bool) byte {
	switch {
	case v.label != "":
		return 2
	case signed && (v.n < 0x80 || v.n >= 0xFFFFFF80):
		return 0
	case signed && (v.n < 0x8000 || v.n >= 0xFFFF8000):
		return 1
	case signed:
		return 2
	case v.n <= 0xFF:
		return 0
	case v.n <= 0xFFFF:
		return 1
	}
	return 2
}

func (p *parser) operand(store bool) (o operand, ok bool) {
	pos := p.pos
	var base byte
	switch p.tok {
	case scanner.Ident:
		if p.text == "sp" {
			p.next()
			return operand{value{pos: pos}, modeStack}, true
		}
	case '*':
		base = modeMem1
	case '$':
		base = modeLocal1
	case '^':
		base = modeRAM1
	}
	if base != 0 {
		p.next()
	}
	v, ok := p.value()
	if !ok {
		return o, false
	}
	o.value = v
	o.pos = pos
	switch {
	case base != 0:
		o.mode = base + sizeIndex(&v, false)
	case store && (v.label != "" || v.n != 0):
		p.errorf(pos, "constant store operand")
		return o, false
	case v.label == "" && v.n == 0:
		o.mode = modeConst0
	default:
		o.mode = modeConst1 + sizeIndex(&v, true)
	}
	return o, true
}

func operandSize(mode byte) uint32 {
	switch mode & 3 {
	case 1:
		return 1
	case 2:
		return 2
	case 3:
		return 4
	}
	return 0
}

func (p *parser) emit(op *vm.Opcode, ops []operand) {
	switch {
	case op.Code < 0x80:
		p.write(byte(op.Code))
	case op.Code < 0x4000:
		p.put(2, op.Code|0x8000)
	default:
		p.put(4, op.Code|0xC0000000)
	}
	modes := make([]byte, (len(ops)+1)/2)
	for k := range ops {
		modes[k/2] |= ops[k].mode << (4 * uint(k&1))
	}
	p.write(modes...)
	rel := false
	for k := range ops {
		o := &ops[k]
		if o.label != "" {
			rel = op.Branch() && k == len(ops)-1
			p.fixups = append(p.fixups, fixup{labelSite: labelSite{o.pos, p.pc}, name: o.label, rel: rel})
		}
		p.put(operandSize(o.mode), o.n)
	}
	if rel {
		p.fixups[len(p.fixups)-1].base = p.pc
	}
}

func (p *parser) resolve(v *value) uint32 {
	if v.label == "" {
		return v.n
	}
	l, ok := p.labels[v.label]
	if !ok {
		p.errorf(v.pos, "undefined label %s", v.label)
	}
	return l.address
}

// link resolves labels and builds the header.
func (p *parser) link() []byte {
	for _, f := range p.fixups {
		l, ok := p.labels[f.name]
		if !ok {
			p.errorf(f.pos, "undefined label %s", f.name)
			continue
		}
		v := l.address
		if f.rel {
			v = v - f.base + 2
		}
		glx.WP4(p.img[f.address:], v)
	}

	ext := glx.Align(uint32(len(p.img)), 256)
	if ext < 256 {
		ext = 256
	}
	p.grow(ext)
	ram := ext
	if p.hasRAM {
		ram = p.ramStart
	}
	end := glx.Align(p.endMem, 256)
	if end < ext {
		end = ext
	}
	var start uint32
	switch {
	case p.start != nil:
		start = p.resolve(p.start)
	default:
		l, ok := p.labels["main"]
		if !ok {
			p.errorf(p.s.Pos(), "no start function: define main or use .start")
		}
		start = l.address
	}
	var strTbl uint32
	if p.strTbl != nil {
		strTbl = p.resolve(p.strTbl)
	}

	copy(p.img, vm.Magic)
	glx.WP4(p.img[4:], p.version)
	glx.WP4(p.img[8:], ram)
	glx.WP4(p.img[12:], ext)
	glx.WP4(p.img[16:], end)
	glx.WP4(p.img[20:], glx.Align(p.stackSize, 256))
	glx.WP4(p.img[24:], start)
	glx.WP4(p.img[28:], strTbl)
	glx.WP4(p.img[32:], vm.Checksum(p.img, ext))
	return p.img
}
