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

package asm_test

import (
	"fmt"
	"os"
	"strings"

	"github.com/db47h/glulx/asm"
)

func ExampleAssemble() {
	code := `
		.stack 0x400
		.equ LOCAL 0	// a constant

main:	.func 1			// one local
		add 2 3 $LOCAL
		jz $LOCAL done	// branch to a label
		streamnum $LOCAL
done:	return 0
`
	img, err := asm.Assemble("raw_string", strings.NewReader(code))
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("% x\n", img[0x24:0x29])
	asm.DisassembleAll(img, 0x29, 0x3B, os.Stdout)

	// Output:
	// c1 04 01 00 00
	// 00000029	add 2 3 $0
	// 0000002f	jz $0 =>0x39
	// 00000036	streamnum $0
	// 00000039	return 0
}
