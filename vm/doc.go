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

// Package vm implements the Glulx virtual machine.
//
// Please visit https://www.eblong.com/zarf/glulx/ for the Glulx
// specification. Stories are loaded with New and executed with Run. All
// input and output goes through a glk.Library, which renders to a
// glk.Screen supplied by the host (see the glk and glk/tui packages).
//
// The VM core panics with an *Error when it hits a fatal condition (illegal
// opcode, memory or stack fault, division by zero). Panics are recovered in
// Run, which prints a diagnostic of the form
//
//	*** fatal error: MemoryFault: write to ROM at 0x24 (pc 0x104) ***
//
// on the current Glk stream and returns the error. Story level failures
// (failed save, invalid Glk arguments) are reported to the story as status
// codes and execution continues.
//
// Call stubs on the VM stack keep the whole execution state, including
// strings printed through a filter function and compressed strings that call
// back into story code. Save files and undo states are Quetzal IFZS forms
// (see package quetzal).
//
// Language specific accelerated functions are injected with the Accelerate
// option. Package lang/inform provides the functions of the Inform 6
// library.
package vm
