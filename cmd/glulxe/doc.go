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

// The glulxe command runs Glulx stories, either plain Glulx files (.ulx) or
// Blorb files embedding a Glulx executable (.gblorb).
//
// Usage:
//
//	glulxe [flags] story
//
//	-dir directory
//		  directory for save and data files
//	-loglevel level
//		  diagnostics level (trace, debug, info, warn, error, critical, off) (default "off")
//	-noraw
//		  disable raw terminal IO
//	-stack bytes
//		  stack size in bytes, a multiple of 256 (0: use the story's)
//	-stats
//		  print VM statistics to stderr upon exit
//	-trace
//		  log every instruction (implies -loglevel trace)
//	-tui
//		  use the full screen terminal interface
//	-undo int
//		  maximum number of undo states (default 1)
//
// By default, glulxe uses a line oriented interface on stdin and stdout. Only
// the main text buffer window is displayed. Unless stdin has been redirected
// or -noraw is given, the terminal is switched to raw mode so that single
// keystrokes can be read. In raw mode, CTRL-D on an empty line ends the
// input.
//
// -tui: switches to a full screen interface where all text windows are
// displayed. This is the interface to use with stories that draw a status
// line.
//
// -loglevel: diagnostics are written to stderr with the subsystem tags VM,
// GLK and HOST. With -trace, every instruction is disassembled and logged
// before execution, which is very slow.
//
// -stack, -undo and -dir can also be set with the environment variables
// GLULX_STACK_SIZE, GLULX_UNDO_DEPTH and GLULX_SAVE_DIR. Flags take
// precedence.
//
// Exit status is 0 when the story quits, 1 if the VM stopped on a fatal error
// and 2 if the story could not be started.
package main
