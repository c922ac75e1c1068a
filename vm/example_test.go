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
	"io"
	"os"
	"strings"

	"github.com/db47h/glulx/asm"
	"github.com/db47h/glulx/glk"
	"github.com/db47h/glulx/vm"
)

// Shows how to setup the VM with a Glk library writing to os.Stdout.
func ExampleInstance_Run() {
	img, err := asm.Assemble("hello", strings.NewReader(`
main:	.func
	setiosys 2 0
	copy 0 sp
	copy 3 sp
	copy 0 sp
	copy 0 sp
	copy 0 sp
	glk 0x23 5 sp	// window_open
	glk 0x2F 1 0	// set_window
	streamstr hello
	streamnum 42
	streamchar '\n'
	return 0
hello:	.string "Hello, World! "
`))
	if err != nil {
		panic(err)
	}

	l, err := glk.New(glk.NewTextScreen(strings.NewReader(""), os.Stdout))
	if err != nil {
		panic(err)
	}
	i, err := vm.New(img, vm.IO(l))
	if err == nil {
		err = i.Run()
	}
	if err != nil {
		panic(err)
	}

	// Output:
	// Hello, World! 42
}

// A tracer that disassembles each instruction before it is executed.
func ExampleTracer() {
	img, err := asm.Assemble("trace", strings.NewReader(`
main:	.func
	add 1 2 sp
	return sp
`))
	if err != nil {
		panic(err)
	}

	tracer := func(i *vm.Instance, pc uint32) {
		fmt.Printf("%08x\t", pc)
		asm.Disassemble(i.Mem(), pc, os.Stdout)
		fmt.Println()
	}
	l, _ := glk.New(glk.NewTextScreen(strings.NewReader(""), io.Discard))
	i, err := vm.New(img, vm.IO(l), vm.Tracer(tracer))
	if err != nil {
		panic(err)
	}
	if err = i.Run(); err != nil {
		panic(err)
	}

	// Output:
	// 00000027	add 1 2 sp
	// 0000002c	return sp
}

// Accelerated functions replace story functions with native code once the
// story binds them with accelfunc.
func ExampleAccelerate() {
	img, err := asm.Assemble("accel", strings.NewReader(`
main:	.func
	accelfunc 1 sum
	callfii sum 20 22 sp
	quit
sum:	.func 2
	return 0
`))
	if err != nil {
		panic(err)
	}

	sum := func(i *vm.Instance, args []uint32) uint32 {
		var s uint32
		for _, v := range args {
			s += v
		}
		return s
	}
	l, _ := glk.New(glk.NewTextScreen(strings.NewReader(""), io.Discard))
	i, err := vm.New(img, vm.IO(l), vm.Accelerate(map[uint32]vm.AccelFunc{1: sum}))
	if err != nil {
		panic(err)
	}
	if err = i.Run(); err != nil {
		panic(err)
	}
	fmt.Println(i.Stack())

	// Output:
	// [42]
}
