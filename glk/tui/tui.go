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

// Package tui implements a full screen glk.Screen on top of tcell.
//
// Text buffer windows keep a scrollback of logical lines that is wrapped to
// the window width when drawn. Text grid windows are plain cell arrays.
// Styles are rendered with the attributes listed in glk.StyleAttrs.
package tui

import (
	"context"
	"io"

	"github.com/db47h/glulx/glk"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/pkg/errors"
)

// MaxScrollback is the number of logical lines kept per text buffer window.
var MaxScrollback = 1000

type cell struct {
	r     rune
	style uint32
}

type pane struct {
	lines [][]cell // text buffers
	grid  [][]cell // text grids
}

// Screen is a glk.Screen drawing to a tcell screen.
type Screen struct {
	s      tcell.Screen
	events chan tcell.Event
	quit   chan struct{}
	root   *glk.Window
	panes  map[*glk.Window]*pane

	// line being edited
	edit    []rune
	editWin *glk.Window
	status  string
}

// New initializes s and returns a Screen using it. If s is nil, a terminal
// screen is created.
func New(s tcell.Screen) (*Screen, error) {
	if s == nil {
		var err error
		if s, err = tcell.NewScreen(); err != nil {
			return nil, errors.Wrap(err, "tui")
		}
	}
	if err := s.Init(); err != nil {
		return nil, errors.Wrap(err, "tui")
	}
	t := &Screen{
		s:      s,
		events: make(chan tcell.Event, 16),
		quit:   make(chan struct{}),
		panes:  make(map[*glk.Window]*pane),
	}
	go s.ChannelEvents(t.events, t.quit)
	return t, nil
}

// Size implements glk.Screen.
func (t *Screen) Size() (int, int) {
	return t.s.Size()
}

// Arrange implements glk.Screen.
func (t *Screen) Arrange(root *glk.Window) {
	t.root = root
	live := make(map[*glk.Window]bool)
	var walk func(w *glk.Window)
	walk = func(w *glk.Window) {
		if w == nil {
			return
		}
		live[w] = true
		if w.Type() == glk.Pair {
			c1, c2 := w.Children()
			walk(c1)
			walk(c2)
			return
		}
		p := t.pane(w)
		if w.Type() == glk.TextGrid {
			p.resize(w.Rect())
		}
	}
	walk(root)
	for w := range t.panes {
		if !live[w] {
			delete(t.panes, w)
		}
	}
	t.draw()
}

func (t *Screen) pane(w *glk.Window) *pane {
	p := t.panes[w]
	if p == nil {
		p = &pane{lines: [][]cell{nil}}
		t.panes[w] = p
	}
	return p
}

func (p *pane) resize(r glk.Rect) {
	g := make([][]cell, r.H)
	for y := range g {
		g[y] = make([]cell, r.W)
		for x := range g[y] {
			g[y][x].r = ' '
		}
		if y < len(p.grid) {
			copy(g[y], p.grid[y])
		}
	}
	p.grid = g
}

// Print implements glk.Screen.
func (t *Screen) Print(w *glk.Window, text []rune, style uint32) {
	p := t.pane(w)
	switch w.Type() {
	case glk.TextBuffer:
		for _, r := range text {
			if r == '\n' {
				p.lines = append(p.lines, nil)
				continue
			}
			n := len(p.lines) - 1
			p.lines[n] = append(p.lines[n], cell{r, style})
		}
		if over := len(p.lines) - MaxScrollback; over > 0 {
			p.lines = append(p.lines[:0], p.lines[over:]...)
		}
	case glk.TextGrid:
		x, y := w.Cursor()
		r := w.Rect()
		for _, c := range text {
			if c == '\n' {
				x, y = 0, y+1
				continue
			}
			if x >= r.W {
				x, y = 0, y+1
			}
			if y >= r.H || y >= len(p.grid) {
				break
			}
			p.grid[y][x] = cell{c, style}
			x++
		}
	}
}

// Clear implements glk.Screen.
func (t *Screen) Clear(w *glk.Window) {
	p := t.pane(w)
	switch w.Type() {
	case glk.TextBuffer:
		p.lines = [][]cell{nil}
	case glk.TextGrid:
		p.grid = nil
		p.resize(w.Rect())
	}
}

// MoveCursor implements glk.Screen. Grid output reads the cursor from the
// window itself.
func (t *Screen) MoveCursor(w *glk.Window, x, y int) {}

// Flush implements glk.Screen.
func (t *Screen) Flush() error {
	t.draw()
	return nil
}

// Close implements glk.Screen. It restores the terminal.
func (t *Screen) Close() error {
	select {
	case <-t.quit:
	default:
		close(t.quit)
		t.s.Fini()
	}
	return nil
}

func attrs(style uint32) tcell.Style {
	st := tcell.StyleDefault
	if style >= glk.StyleCount {
		return st
	}
	a := glk.StyleAttrs[style]
	return st.Bold(a.Bold).Italic(a.Italic).Reverse(a.Reverse).Dim(a.Dim)
}

// wrap splits a logical line into rows of at most width cells, breaking at
// spaces when possible.
func wrap(line []cell, width int) [][]cell {
	if width <= 0 {
		return nil
	}
	var rows [][]cell
	for {
		w, brk := 0, -1
		i := 0
		for ; i < len(line); i++ {
			cw := runewidth.RuneWidth(line[i].r)
			if w+cw > width {
				break
			}
			if line[i].r == ' ' {
				brk = i
			}
			w += cw
		}
		if i == len(line) {
			return append(rows, line)
		}
		if brk > 0 {
			rows = append(rows, line[:brk])
			line = line[brk+1:]
		} else {
			if i == 0 {
				i = 1
			}
			rows = append(rows, line[:i])
			line = line[i:]
		}
	}
}

// draw redraws all windows. The cursor is placed at the end of the line being
// edited, if any.
func (t *Screen) draw() {
	t.s.Clear()
	t.s.HideCursor()
	for w, p := range t.panes {
		r := w.Rect()
		switch w.Type() {
		case glk.TextBuffer:
			lines := p.lines
			if w == t.editWin {
				n := len(lines) - 1
				last := append(append([]cell(nil), lines[n]...), input(t.edit)...)
				lines = append(append([][]cell(nil), lines[:n]...), last)
			}
			var rows [][]cell
			// only wrap what can be seen
			for i := len(lines) - 1; i >= 0 && len(rows) < r.H; i-- {
				rows = append(wrap(lines[i], r.W), rows...)
			}
			if len(rows) > r.H {
				rows = rows[len(rows)-r.H:]
			}
			for y, row := range rows {
				x := r.X
				for _, c := range row {
					t.s.SetContent(x, r.Y+y, c.r, nil, attrs(c.style))
					x += runewidth.RuneWidth(c.r)
				}
				if w == t.editWin && y == len(rows)-1 {
					t.s.ShowCursor(x, r.Y+y)
				}
			}
		case glk.TextGrid:
			for y, row := range p.grid {
				for x, c := range row {
					if x < r.W && y < r.H {
						t.s.SetContent(r.X+x, r.Y+y, c.r, nil, attrs(c.style))
					}
				}
			}
			if w == t.editWin {
				x, y := w.Cursor()
				t.s.ShowCursor(r.X+x+runewidth.StringWidth(string(t.edit)), r.Y+y)
			}
		}
	}
	if t.status != "" {
		_, h := t.s.Size()
		x := 0
		for _, c := range t.status + string(t.edit) {
			t.s.SetContent(x, h-1, c, nil, tcell.StyleDefault.Reverse(true))
			x += runewidth.RuneWidth(c)
		}
		t.s.ShowCursor(x, h-1)
	}
	t.s.Show()
}

func input(rs []rune) []cell {
	cs := make([]cell, len(rs))
	for i, r := range rs {
		cs[i] = cell{r, glk.StyleInput}
	}
	return cs
}

// key maps a tcell key event to a glk key code.
func key(ev *tcell.EventKey) uint32 {
	switch k := ev.Key(); k {
	case tcell.KeyRune:
		return uint32(ev.Rune())
	case tcell.KeyEnter, tcell.KeyLF:
		return glk.KeyReturn
	case tcell.KeyBackspace, tcell.KeyBackspace2, tcell.KeyDelete:
		return glk.KeyDelete
	case tcell.KeyEscape:
		return glk.KeyEscape
	case tcell.KeyTab:
		return glk.KeyTab
	case tcell.KeyLeft:
		return glk.KeyLeft
	case tcell.KeyRight:
		return glk.KeyRight
	case tcell.KeyUp:
		return glk.KeyUp
	case tcell.KeyDown:
		return glk.KeyDown
	case tcell.KeyPgUp:
		return glk.KeyPageUp
	case tcell.KeyPgDn:
		return glk.KeyPageDown
	case tcell.KeyHome:
		return glk.KeyHome
	case tcell.KeyEnd:
		return glk.KeyEnd
	default:
		if k >= tcell.KeyF1 && k <= tcell.KeyF12 {
			return glk.KeyFunc1 - uint32(k-tcell.KeyF1)
		}
	}
	return glk.KeyUnknown
}

// editKey processes one key of line input. It reports whether the line is
// complete and the terminating key. Ctrl-D on an empty line returns io.EOF.
func (t *Screen) editKey(ev *tcell.EventKey, max int, terms []uint32) (done bool, term uint32, err error) {
	switch ev.Key() {
	case tcell.KeyEnter, tcell.KeyLF:
		return true, 0, nil
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(t.edit); n > 0 {
			t.edit = t.edit[:n-1]
		}
	case tcell.KeyCtrlD:
		if len(t.edit) == 0 {
			return false, 0, io.EOF
		}
	case tcell.KeyRune:
		if max <= 0 || len(t.edit) < max {
			t.edit = append(t.edit, ev.Rune())
		}
	default:
		k := key(ev)
		for _, x := range terms {
			if x == k {
				return true, k, nil
			}
		}
	}
	return false, 0, nil
}

// Poll implements glk.Screen.
func (t *Screen) Poll(ctx context.Context, reqs []glk.Request) (glk.Input, error) {
	var req *glk.Request
	for i := range reqs {
		if req == nil || reqs[i].Line && !req.Line {
			req = &reqs[i]
		}
	}
	switch {
	case req == nil || !req.Line:
		t.edit, t.editWin = nil, nil
	case t.editWin != req.Win:
		t.editWin = req.Win
		t.edit = append([]rune(nil), req.Init...)
	}
	t.draw()
	for {
		var ev tcell.Event
		select {
		case <-ctx.Done():
			return glk.Input{}, ctx.Err()
		case ev = <-t.events:
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			t.s.Sync()
			return glk.Input{Kind: glk.InputResize}, nil
		case *tcell.EventKey:
			if req == nil {
				continue
			}
			if !req.Line {
				if ev.Key() == tcell.KeyCtrlD {
					return glk.Input{}, io.EOF
				}
				return glk.Input{Kind: glk.InputChar, Win: req.Win, Key: key(ev)}, nil
			}
			done, term, err := t.editKey(ev, req.Max, req.Terminators)
			if err != nil {
				return glk.Input{}, err
			}
			if done {
				return t.endLine(req, term), nil
			}
			t.draw()
		}
	}
}

func (t *Screen) endLine(req *glk.Request, term uint32) glk.Input {
	text := t.edit
	t.edit, t.editWin = nil, nil
	if req.Echo && req.Win.Type() == glk.TextBuffer {
		t.Print(req.Win, append(append([]rune(nil), text...), '\n'), glk.StyleInput)
	}
	return glk.Input{Kind: glk.InputLine, Win: req.Win, Key: term, Text: text}
}

// PromptFile implements glk.Screen. The prompt is shown on the bottom line;
// escape cancels.
func (t *Screen) PromptFile(usage, mode uint32) (string, error) {
	saveEdit, saveWin := t.edit, t.editWin
	defer func() {
		t.edit, t.editWin, t.status = saveEdit, saveWin, ""
		t.draw()
	}()
	t.edit, t.editWin = nil, nil
	t.status = "File name: "
	if usage&glk.UsageTypeMask == glk.UsageSavedGame {
		if mode == glk.FileModeRead {
			t.status = "Restore from: "
		} else {
			t.status = "Save to: "
		}
	}
	t.draw()
	for ev := range t.events {
		k, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		if k.Key() == tcell.KeyEscape {
			return "", nil
		}
		done, _, err := t.editKey(k, 0, nil)
		if err != nil {
			return "", err
		}
		if done {
			return string(t.edit), nil
		}
		t.draw()
	}
	return "", io.EOF
}
