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

// Package glk implements the Glk I/O capability set used by Glulx stories:
// a tree of windows, output and input streams (window, memory, file and
// resource), file references, and event requests completed by Select.
//
// Rendering and raw input are delegated to a Screen. This package provides
// a line oriented TextScreen over an io.Reader / io.Writer pair; package
// github.com/db47h/glulx/glk/tui provides a full screen implementation.
//
// The story memory is reached through the Memory interface: memory streams
// and line input buffers live in the story's address space and are read and
// written in place.
//
// A Library is not safe for concurrent use. The VM calls it from a single
// goroutine and Select is the only blocking call.
package glk
