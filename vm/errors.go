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

import "fmt"

// Kind classifies VM errors.
type Kind int

// Error kinds.
const (
	BadImage Kind = iota + 1
	MemoryFault
	StackFault
	DecodeFault
	ArithFault
	IOFault
	SaveFault
	// Halt is not an error: it stops the VM from deep inside a Glk call
	// (glk_exit, end of input).
	Halt
)

var kindNames = [...]string{
	BadImage:    "BadImage",
	MemoryFault: "MemoryFault",
	StackFault:  "StackFault",
	DecodeFault: "DecodeFault",
	ArithFault:  "ArithFault",
	IOFault:     "IOFault",
	SaveFault:   "SaveFault",
	Halt:        "Halt",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the error type returned by New and Run. PC is the address of the
// instruction that failed, or 0 for load errors.
type Error struct {
	Kind Kind
	PC   uint32
	Msg  string
}

func (e *Error) Error() string {
	if e.PC != 0 {
		return fmt.Sprintf("%v: %s (pc %#x)", e.Kind, e.Msg, e.PC)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
}

// Fatal returns the single line message printed when the VM aborts.
func (e *Error) Fatal() string {
	return "*** fatal error: " + e.Error() + " ***"
}

// fault aborts execution. It is recovered by Run.
func (i *Instance) fault(k Kind, format string, args ...interface{}) {
	panic(&Error{Kind: k, PC: i.opPC, Msg: fmt.Sprintf(format, args...)})
}

func imageError(format string, args ...interface{}) error {
	return &Error{Kind: BadImage, Msg: fmt.Sprintf(format, args...)}
}
