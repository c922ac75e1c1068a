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

import "github.com/pkg/errors"

// Rect is a window's position and size in character cells.
type Rect struct {
	X, Y, W, H int
}

// Window is a Glk window.
type Window struct {
	id, rock uint32
	typ      uint32
	parent   *Window
	rect     Rect
	str      *Stream
	echo     *Stream

	// pair windows
	child1, child2 *Window
	key            *Window
	method, size   uint32

	// grid cursor
	curX, curY int

	// input requests
	charReq  bool
	lineReq  bool
	uni      bool
	lineAddr uint32
	lineMax  uint32
	lineInit []rune
	noEcho   bool
	terms    []uint32
}

// ID returns the window's opaque identifier.
func (w *Window) ID() uint32 { return w.id }

// Rock returns the window's rock.
func (w *Window) Rock() uint32 { return w.rock }

// Type returns the window type.
func (w *Window) Type() uint32 { return w.typ }

// Parent returns the parent pair window, or nil for the root.
func (w *Window) Parent() *Window { return w.parent }

// Rect returns the window's position and size.
func (w *Window) Rect() Rect { return w.rect }

// Stream returns the window stream. Pair windows have none.
func (w *Window) Stream() *Stream { return w.str }

// EchoStream returns the window's echo stream.
func (w *Window) EchoStream() *Stream { return w.echo }

// Cursor returns the cursor position of a text grid window.
func (w *Window) Cursor() (x, y int) { return w.curX, w.curY }

// Children returns the children of a pair window.
func (w *Window) Children() (child1, child2 *Window) { return w.child1, w.child2 }

// Sibling returns the other child of the window's parent.
func (w *Window) Sibling() *Window {
	p := w.parent
	if p == nil {
		return nil
	}
	if p.child1 == w {
		return p.child2
	}
	return p.child1
}

// Root returns the root window.
func (l *Library) Root() *Window { return l.root }

// Window returns the window with the given id.
func (l *Library) Window(id uint32) (*Window, bool) {
	for _, w := range l.windows {
		if w.id == id {
			return w, true
		}
	}
	return nil, false
}

// IterateWindows returns the window following w, or the first window if w
// is nil. It returns nil at the end of the list.
func (l *Library) IterateWindows(w *Window) *Window {
	return iterate(l.windows, w)
}

func iterate[T comparable](list []T, cur T) T {
	var zero T
	if cur == zero {
		if len(list) > 0 {
			return list[0]
		}
		return zero
	}
	for i, o := range list {
		if o == cur && i+1 < len(list) {
			return list[i+1]
		}
	}
	return zero
}

// OpenWindow opens a new window by splitting split. split must be nil when
// there is no root window and non-nil otherwise.
func (l *Library) OpenWindow(split *Window, method, size, typ, rock uint32) (*Window, error) {
	switch typ {
	case Blank, TextBuffer, TextGrid, Graphics:
	default:
		return nil, errors.Errorf("glk: cannot open window of type %d", typ)
	}
	if l.root == nil {
		if split != nil {
			return nil, errors.Wrap(ErrBadArg, "glk: split window given with no root")
		}
	} else {
		if split == nil {
			return nil, errors.Wrap(ErrBadArg, "glk: a root window is already open")
		}
		switch method & MethodDivisionMask {
		case MethodFixed, MethodProportional:
		default:
			return nil, errors.Errorf("glk: bad window method %#x", method)
		}
	}

	w := l.newWindow(typ, rock)
	if l.root == nil {
		l.root = w
	} else {
		p := &Window{
			id:     l.newID(classWindow),
			typ:    Pair,
			parent: split.parent,
			child1: split,
			child2: w,
			key:    w,
			method: method,
			size:   size,
		}
		l.windows = append(l.windows, p)
		l.replaceChild(split.parent, split, p)
		split.parent = p
		w.parent = p
	}
	l.arrange()
	l.log.Debugf("window %d opened: type %d, rock %d", w.id, typ, rock)
	return w, nil
}

func (l *Library) newWindow(typ, rock uint32) *Window {
	w := &Window{id: l.newID(classWindow), typ: typ, rock: rock}
	w.str = l.newStream(streamWindow, FileModeWrite, 0, false)
	w.str.win = w
	l.windows = append(l.windows, w)
	return w
}

func (l *Library) replaceChild(p, old, nw *Window) {
	switch {
	case p == nil:
		l.root = nw
	case p.child1 == old:
		p.child1 = nw
	default:
		p.child2 = nw
	}
}

// CloseWindow closes w and all its children. The sibling of w takes the
// place of their parent. It returns the read and write counts of the window
// stream.
func (l *Library) CloseWindow(w *Window) (StreamResult, error) {
	if w == nil {
		return StreamResult{}, errors.Wrap(ErrBadArg, "glk: close nil window")
	}
	var res StreamResult
	if w.str != nil {
		res = w.str.result()
	}
	if p := w.parent; p != nil {
		sib := w.Sibling()
		l.replaceChild(p.parent, p, sib)
		sib.parent = p.parent
		l.destroyWindow(p, false)
	} else {
		l.root = nil
	}
	l.destroyWindow(w, true)
	for _, o := range l.windows {
		if o.typ == Pair && o.key != nil && !l.alive(o.key) {
			o.key = nil
		}
	}
	l.arrange()
	return res, nil
}

func (l *Library) alive(w *Window) bool {
	for _, o := range l.windows {
		if o == w {
			return true
		}
	}
	return false
}

func (l *Library) destroyWindow(w *Window, recurse bool) {
	if recurse && w.typ == Pair {
		l.destroyWindow(w.child1, true)
		l.destroyWindow(w.child2, true)
	}
	if w.str != nil {
		if l.cur == w.str {
			l.cur = nil
		}
		l.removeStream(w.str)
	}
	for i, o := range l.windows {
		if o == w {
			l.windows = append(l.windows[:i], l.windows[i+1:]...)
			break
		}
	}
	l.log.Debugf("window %d closed", w.id)
}

// GetSize returns the size of w in character cells.
func (l *Library) GetSize(w *Window) (width, height uint32) {
	if w.typ == Pair || w.typ == Blank {
		return 0, 0
	}
	return uint32(w.rect.W), uint32(w.rect.H)
}

// SetArrangement changes the split method of a pair window. A nil keywin
// keeps the current key window.
func (l *Library) SetArrangement(w *Window, method, size uint32, keywin *Window) error {
	if w == nil || w.typ != Pair {
		return errors.Wrap(ErrBadArg, "glk: set_arrangement on a non pair window")
	}
	if keywin != nil {
		if keywin.typ == Pair || !isDescendant(keywin, w) {
			return errors.Wrap(ErrBadArg, "glk: bad key window")
		}
		w.key = keywin
	}
	w.method, w.size = method, size
	l.arrange()
	return nil
}

func isDescendant(w, of *Window) bool {
	for ; w != nil; w = w.parent {
		if w == of {
			return true
		}
	}
	return false
}

// GetArrangement returns the split method, size and key window of a pair
// window.
func (l *Library) GetArrangement(w *Window) (method, size uint32, keywin *Window) {
	if w == nil || w.typ != Pair {
		return 0, 0, nil
	}
	return w.method, w.size, w.key
}

// ClearWindow clears w. For a text grid, the cursor moves to 0,0.
func (l *Library) ClearWindow(w *Window) {
	w.curX, w.curY = 0, 0
	l.screen.Clear(w)
}

// MoveCursor moves the cursor of a text grid window.
func (l *Library) MoveCursor(w *Window, x, y uint32) {
	if w.typ != TextGrid {
		return
	}
	w.curX, w.curY = int(x), int(y)
	l.screen.MoveCursor(w, w.curX, w.curY)
}

// SetEchoStream sets the stream that receives a copy of everything printed
// to w. A nil s disables echo.
func (l *Library) SetEchoStream(w *Window, s *Stream) {
	w.echo = s
}

// SetWindow sets the current stream to the window's stream.
func (l *Library) SetWindow(w *Window) {
	if w == nil {
		l.cur = nil
		return
	}
	l.cur = w.str
}

// arrange recomputes the window layout from the screen size.
func (l *Library) arrange() {
	if l.root == nil {
		l.screen.Arrange(nil)
		return
	}
	width, height := l.screen.Size()
	layout(l.root, Rect{0, 0, width, height})
	for _, w := range l.windows {
		if w.typ == TextGrid {
			if w.curX > w.rect.W {
				w.curX = w.rect.W
			}
			if w.curY >= w.rect.H && w.rect.H > 0 {
				w.curY = w.rect.H - 1
			}
		}
	}
	l.screen.Arrange(l.root)
}

func layout(w *Window, r Rect) {
	w.rect = r
	if w.typ != Pair {
		return
	}
	dir := w.method & MethodDirMask
	vertical := dir == MethodLeft || dir == MethodRight
	backward := dir == MethodLeft || dir == MethodAbove
	origin, total := r.Y, r.H
	if vertical {
		origin, total = r.X, r.W
	}
	var split int
	switch w.method & MethodDivisionMask {
	case MethodProportional:
		split = total * int(w.size) / 100
	case MethodFixed:
		if w.key != nil && w.key.typ != Blank && w.key.typ != Pair {
			split = int(w.size)
		}
	default:
		split = total / 2
	}
	if split > total {
		split = total
	}
	if split < 0 {
		split = 0
	}
	// child2 takes split cells on the side given by dir
	var first int
	if backward {
		first = split
	} else {
		first = total - split
	}
	r1, r2 := r, r
	if vertical {
		r1.W = first
		r2.X, r2.W = origin+first, total-first
	} else {
		r1.H = first
		r2.Y, r2.H = origin+first, total-first
	}
	if backward {
		layout(w.child2, r1)
		layout(w.child1, r2)
	} else {
		layout(w.child1, r1)
		layout(w.child2, r2)
	}
}
