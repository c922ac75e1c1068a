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

// Package asm provides utility functions to assemble and disassemble Glulx
// VM code.
//
// Source format:
//
// Input is split into tokens by a Go text/scanner. Comments use the Go
// syntax (// and /* */). Line breaks have no special meaning: since each
// instruction has a fixed number of operands, several instructions may appear
// on the same line. Operands may optionally be separated by commas.
//
// Instructions use the mnemonics of the Glulx specification (add, jz,
// callfii, glk...). Each operand is written in one of these forms:
//
//	42, -1, 0x1F, 'a'	constant (the shortest encoding is used)
//	label			constant with the address of label (4 bytes)
//	sp			push to or pop from the stack
//	*addr			memory at address addr (a number or label)
//	$off			local variable at byte offset off in the call frame
//	^off			memory at offset off from the start of RAM
//
// A store operand written as 0 discards the result. Other constants are
// rejected as store operands.
//
// For branch instructions (jump, jz, jeq, ..., catch), a label as the last
// operand is converted to a branch offset relative to the end of the
// instruction. The constants 0 and 1 keep their special meaning of "return
// 0" and "return 1".
//
// Labels:
//
// Labels are defined by an identifier immediately followed by a colon:
//
//	main:	.func 2		// function with 2 locals
//		add $0 $4 sp
//		return sp
//
// Forward references are fine. A label name cannot also be a constant name.
//
// Directives:
//
//	.org addr		set the assembly address
//	.align n		pad with zeroes up to a multiple of n
//	.byte v, ...		1 byte values
//	.short v, ...		2 bytes values
//	.word v, ...		4 bytes values, labels allowed
//	.string "text"		E0 string (Latin-1)
//	.ustring "text"	E2 string (Unicode)
//	.func [n]		function header, arguments in locals, n 4 bytes locals
//	.stkfunc [n]		function header, arguments on the stack
//	.ram			pad to a 256 bytes boundary and start RAM here
//	.endmem n		minimum memory size
//	.stack n		stack size (default 4096)
//	.version n		story version (default 0x00030102)
//	.start label		start function (default: main)
//	.strtbl label		string decoding table
//	.equ name value		define a constant
//
// Assembly starts at address 36, right after the header, which is built by
// Assemble together with the checksum. Everything before .ram is ROM. If .ram
// is not used, the whole image is ROM and ENDMEM may be raised with .endmem
// to get some zero filled RAM past the end of the file.
//
// Example:
//
//		.stack 0x400
//	main:	.func 1
//		add 2 3 $0
//		jz $0 done
//		streamnum $0
//	done:	return 0
//		.ram
//	counter: .word 0
package asm
