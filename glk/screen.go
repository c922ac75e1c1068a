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

package glk

import "context"

// Request is an armed input request passed to Screen.Poll.
type Request struct {
	Win         *Window
	Line        bool // line input, char input otherwise
	Uni         bool
	Init        []rune // initial contents of the line
	Max         int    // maximum line length
	Echo        bool   // leave the entered line visible
	Terminators []uint32
}

// Input kinds returned by Screen.Poll.
const (
	InputChar = iota + 1
	InputLine
	InputResize
)

// Input is the result of Screen.Poll.
type Input struct {
	Kind int
	Win  *Window
	// Key is the character or key code for InputChar and the terminating
	// key for InputLine (0 for the return key).
	Key  uint32
	Text []rune
}

// Screen renders windows and collects player input. The Library computes
// the window layout; Screen implementations read it from Window.Rect.
type Screen interface {
	// Size returns the screen size in character cells.
	Size() (width, height int)
	// Arrange is called after any layout change. root may be nil.
	Arrange(root *Window)
	// Print outputs text to a text buffer or text grid window. Text grid
	// output starts at the window cursor set by MoveCursor.
	Print(w *Window, text []rune, style uint32)
	Clear(w *Window)
	MoveCursor(w *Window, x, y int)
	Flush() error
	// Poll waits for one of the requests to complete, for a resize, or for
	// ctx to be done, in which case it returns ctx.Err(). It returns io.EOF
	// when no more input is available.
	Poll(ctx context.Context, reqs []Request) (Input, error)
	// PromptFile asks the player for a file name. An empty name cancels.
	PromptFile(usage, mode uint32) (string, error)
	Close() error
}

// StyleAttr describes how a style is rendered by the screens of this package.
type StyleAttr struct {
	Bold, Italic, Fixed, Reverse, Dim bool
}

// StyleAttrs maps styles to attributes.
var StyleAttrs = [StyleCount]StyleAttr{
	StyleNormal:       {},
	StyleEmphasized:   {Italic: true},
	StylePreformatted: {Fixed: true},
	StyleHeader:       {Bold: true},
	StyleSubheader:    {Bold: true},
	StyleAlert:        {Bold: true, Reverse: true},
	StyleNote:         {Italic: true},
	StyleBlockQuote:   {Dim: true},
	StyleInput:        {Bold: true},
	StyleUser1:        {},
	StyleUser2:        {},
}
