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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/db47h/glulx/asm"
	"github.com/db47h/glulx/blorb"
	"github.com/db47h/glulx/internal/glx"
	"github.com/db47h/glulx/quetzal"
)

const hello = `
main:	.func
	setiosys 2 0
	copy 0 sp
	copy 3 sp
	copy 0 sp
	copy 0 sp
	copy 0 sp
	glk 0x23 5 sp
	glk 0x2F 1 0
	streamstr msg
	add 1 2 sp
	quit
msg:	.string "Hello\n"
`

const crash = `
main:	.func
	setiosys 2 0
	copy 0 sp
	copy 3 sp
	copy 0 sp
	copy 0 sp
	copy 0 sp
	glk 0x23 5 sp
	glk 0x2F 1 0
	div 1 0 sp
	quit
`

func story(t *testing.T, name, code string) string {
	t.Helper()
	img, err := asm.Assemble(name, strings.NewReader(code))
	if err != nil {
		t.Fatal(err)
	}
	return writeFile(t, name, img)
}

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(fn, b, 0644); err != nil {
		t.Fatal(err)
	}
	return fn
}

func runMain(env map[string]string, args ...string) (code int, stdout, stderr string) {
	if env == nil {
		env = map[string]string{}
	}
	var o, e bytes.Buffer
	code = run(args, env, strings.NewReader(""), &o, &e)
	return code, o.String(), e.String()
}

func TestRun(t *testing.T) {
	fn := story(t, "hello.ulx", hello)
	code, out, errs := runMain(nil, fn)
	if code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, errs)
	}
	if out != "Hello\n" {
		t.Errorf("expected %q, got %q", "Hello\n", out)
	}
}

func TestBlorb(t *testing.T) {
	img, err := asm.Assemble("hello", strings.NewReader(hello))
	if err != nil {
		t.Fatal(err)
	}
	idx := make([]byte, 16)
	glx.WP4(idx, 1)
	copy(idx[4:], blorb.Exec)
	glx.WP4(idx[12:], uint32(12+8+len(idx)))
	f := quetzal.NewForm("IFRS")
	f.Add("RIdx", idx)
	f.Add("GLUL", img)
	fn := writeFile(t, "hello.gblorb", f.Bytes())

	code, out, errs := runMain(nil, fn)
	if code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, errs)
	}
	if out != "Hello\n" {
		t.Errorf("expected %q, got %q", "Hello\n", out)
	}
}

func TestExitCodes(t *testing.T) {
	good := story(t, "hello.ulx", hello)
	bad := writeFile(t, "bad.ulx", []byte("not a story file"))
	fatal := story(t, "crash.ulx", crash)
	data := []struct {
		name string
		env  map[string]string
		args []string
		code int
		err  string
	}{
		{"noargs", nil, nil, exitUsage, "missing story file"},
		{"nofile", nil, []string{filepath.Join(t.TempDir(), "none.ulx")}, exitUsage, "none.ulx"},
		{"badimage", nil, []string{bad}, exitUsage, "BadImage"},
		{"badstack", nil, []string{"-stack", "100", good}, exitUsage, "stack"},
		{"badundo", nil, []string{"-undo", "-1", good}, exitUsage, "undo"},
		{"badlevel", nil, []string{"-loglevel", "loud", good}, exitUsage, "invalid log level"},
		{"badenv", map[string]string{"GLULX_UNDO_DEPTH": "many"}, []string{good}, exitUsage, "environment"},
		{"baddir", map[string]string{"GLULX_SAVE_DIR": filepath.Join(t.TempDir(), "none")}, []string{good}, exitUsage, "directory"},
		{"fatal", nil, []string{fatal}, exitFatal, "ArithFault"},
		{"help", nil, []string{"-h"}, exitOK, "usage: glulxe"},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			code, _, errs := runMain(d.env, d.args...)
			if code != d.code {
				t.Errorf("expected exit code %d, got %d", d.code, code)
			}
			if !strings.Contains(errs, d.err) {
				t.Errorf("expected %q in stderr, got %q", d.err, errs)
			}
		})
	}
}

func TestFatalOutput(t *testing.T) {
	fn := story(t, "crash.ulx", crash)
	_, out, _ := runMain(nil, fn)
	if !strings.Contains(out, "*** fatal error: ArithFault: division by zero") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestStats(t *testing.T) {
	fn := story(t, "hello.ulx", hello)
	code, _, errs := runMain(nil, "-stats", fn)
	if code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, errs)
	}
	for _, s := range []string{"counter vm.instructions", "counter vm.glk_calls", "gauge vm.endmem"} {
		if !strings.Contains(errs, s) {
			t.Errorf("%q missing from stats:\n%s", s, errs)
		}
	}
}

func TestTrace(t *testing.T) {
	fn := story(t, "hello.ulx", hello)
	code, _, errs := runMain(nil, "-trace", fn)
	if code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, errs)
	}
	for _, s := range []string{"[TRC] VM:", "\tadd 1 2 sp", "\tquit", "[INF] HOST:"} {
		if !strings.Contains(errs, s) {
			t.Errorf("%q missing from trace:\n%s", s, errs)
		}
	}
}

func TestEnvironment(t *testing.T) {
	o, err := parseArgs([]string{"-undo", "3", "x.ulx"}, map[string]string{
		"GLULX_STACK_SIZE": "8192",
		"GLULX_UNDO_DEPTH": "5",
	}, new(bytes.Buffer))
	if err != nil {
		t.Fatal(err)
	}
	if o.StackSize != 8192 || o.UndoDepth != 3 || o.story != "x.ulx" {
		t.Errorf("unexpected options %+v", o)
	}
}
