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

import (
	"bufio"
	"context"
	"io"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

type flusher interface {
	Flush() error
}

type readResult struct {
	r   rune
	err error
}

// TextScreen is a line oriented Screen over an io.Reader and an io.Writer.
// Only text buffer windows are displayed; other windows are kept but not
// rendered. Timers are supported: input is read by a separate goroutine.
type TextScreen struct {
	in      *bufio.Reader
	out     io.Writer
	size    func() (int, int)
	raw     bool
	runes   chan readResult
	done    chan struct{}
	partial []rune
	unread  []readResult
	err     error
}

// TextOption configures a TextScreen.
type TextOption func(*TextScreen)

// RawInput tells the screen that the input is a terminal in raw mode: line
// input is then echoed and edited by the screen itself.
func RawInput(raw bool) TextOption {
	return func(s *TextScreen) { s.raw = raw }
}

// ConsoleSize sets the function returning the console size. A zero size is
// replaced by 80x24.
func ConsoleSize(size func() (width, height int)) TextOption {
	return func(s *TextScreen) { s.size = size }
}

// NewTextScreen returns a TextScreen reading from r and writing to w. If w
// has a Flush method, it is called by Flush.
func NewTextScreen(r io.Reader, w io.Writer, opts ...TextOption) *TextScreen {
	s := &TextScreen{in: bufio.NewReader(r), out: w, done: make(chan struct{})}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Size implements Screen.
func (s *TextScreen) Size() (int, int) {
	if s.size != nil {
		if w, h := s.size(); w > 0 && h > 0 {
			return w, h
		}
	}
	return 80, 24
}

// Arrange implements Screen.
func (s *TextScreen) Arrange(root *Window) {}

// Print implements Screen.
func (s *TextScreen) Print(w *Window, text []rune, style uint32) {
	if w.Type() != TextBuffer {
		return
	}
	io.WriteString(s.out, string(text))
}

// Clear implements Screen. Clearing a text buffer window prints a blank line.
func (s *TextScreen) Clear(w *Window) {
	if w.Type() == TextBuffer {
		io.WriteString(s.out, "\n")
	}
}

// MoveCursor implements Screen.
func (s *TextScreen) MoveCursor(w *Window, x, y int) {}

// Flush implements Screen.
func (s *TextScreen) Flush() error {
	if f, ok := s.out.(flusher); ok {
		return errors.Wrap(f.Flush(), "flush failed")
	}
	return nil
}

// Close implements Screen. It stops the input reader once its pending read
// returns.
func (s *TextScreen) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.Flush()
}

func (s *TextScreen) start() {
	if s.runes != nil {
		return
	}
	s.runes = make(chan readResult, 64)
	go func() {
		defer close(s.runes)
		for {
			select {
			case <-s.done:
				return
			default:
			}
			r, _, err := s.in.ReadRune()
			select {
			case s.runes <- readResult{r, err}:
			case <-s.done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
}

// next returns the next input rune, waiting at most until ctx is done.
func (s *TextScreen) next(ctx context.Context) (rune, error) {
	if n := len(s.unread); n > 0 {
		rr := s.unread[n-1]
		s.unread = s.unread[:n-1]
		return rr.r, rr.err
	}
	if s.err != nil {
		return 0, s.err
	}
	s.start()
	select {
	case rr, ok := <-s.runes:
		if !ok {
			if s.err == nil {
				// closed
				s.err = io.EOF
			}
			return 0, s.err
		}
		if rr.err != nil {
			if rr.err != io.EOF {
				rr.err = errors.Wrap(rr.err, "read failed")
			}
			s.err = rr.err
		}
		return rr.r, rr.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// peek returns the next rune if it arrives within d.
func (s *TextScreen) peek(d time.Duration) (rune, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	r, err := s.next(ctx)
	if err != nil {
		if err != context.DeadlineExceeded {
			s.unread = append(s.unread, readResult{r, err})
		}
		return 0, false
	}
	return r, true
}

// Poll implements Screen. Line requests take precedence over char requests.
func (s *TextScreen) Poll(ctx context.Context, reqs []Request) (Input, error) {
	var req *Request
	for i := range reqs {
		if req == nil || reqs[i].Line && !req.Line {
			req = &reqs[i]
		}
	}
	if req == nil {
		<-ctx.Done()
		return Input{}, ctx.Err()
	}
	s.Flush()
	if req.Line {
		return s.readLine(ctx, req)
	}
	return s.readChar(ctx, req)
}

func (s *TextScreen) readChar(ctx context.Context, req *Request) (Input, error) {
	r, err := s.next(ctx)
	if err != nil {
		return Input{}, err
	}
	key := uint32(r)
	switch r {
	case '\r', '\n':
		key = KeyReturn
	case 8, 127:
		key = KeyDelete
	case '\t':
		key = KeyTab
	case 4:
		if s.raw {
			return Input{}, io.EOF
		}
	case 27:
		key = s.escape()
	}
	return Input{Kind: InputChar, Win: req.Win, Key: key}, nil
}

// escape decodes the ANSI cursor key sequences sent by terminals in raw
// mode.
func (s *TextScreen) escape() uint32 {
	if !s.raw {
		return KeyEscape
	}
	r, ok := s.peek(20 * time.Millisecond)
	if !ok {
		return KeyEscape
	}
	if r != '[' && r != 'O' {
		s.unread = append(s.unread, readResult{r: r})
		return KeyEscape
	}
	r, ok = s.peek(20 * time.Millisecond)
	if !ok {
		return KeyEscape
	}
	switch r {
	case 'A':
		return KeyUp
	case 'B':
		return KeyDown
	case 'C':
		return KeyRight
	case 'D':
		return KeyLeft
	case 'H':
		return KeyHome
	case 'F':
		return KeyEnd
	}
	return KeyUnknown
}

func (s *TextScreen) readLine(ctx context.Context, req *Request) (Input, error) {
	if s.partial == nil {
		s.partial = append([]rune{}, req.Init...)
	}
	for {
		r, err := s.next(ctx)
		if err != nil {
			if err == io.EOF && len(s.partial) > 0 {
				break
			}
			return Input{}, err
		}
		switch {
		case r == '\n' || r == '\r':
			if s.raw {
				io.WriteString(s.out, "\n")
			}
			return s.endLine(req, 0), nil
		case r == 27 && s.raw:
			if key := s.escape(); key == KeyEscape && hasKey(req.Terminators, KeyEscape) {
				io.WriteString(s.out, "\n")
				return s.endLine(req, KeyEscape), nil
			}
		case r == 4 && s.raw:
			if len(s.partial) == 0 {
				return Input{}, io.EOF
			}
		case (r == 8 || r == 127) && s.raw:
			if n := len(s.partial); n > 0 {
				s.partial = s.partial[:n-1]
				io.WriteString(s.out, "\b \b")
				s.Flush()
			}
		case r < 0x20:
		default:
			if req.Max > 0 && len(s.partial) >= req.Max {
				continue
			}
			s.partial = append(s.partial, r)
			if s.raw {
				var b [utf8.UTFMax]byte
				s.out.Write(b[:utf8.EncodeRune(b[:], r)])
				s.Flush()
			}
		}
	}
	return s.endLine(req, 0), nil
}

func (s *TextScreen) endLine(req *Request, term uint32) Input {
	in := Input{Kind: InputLine, Win: req.Win, Key: term, Text: s.partial}
	s.partial = nil
	return in
}

func hasKey(keys []uint32, k uint32) bool {
	for _, x := range keys {
		if x == k {
			return true
		}
	}
	return false
}

// PromptFile implements Screen.
func (s *TextScreen) PromptFile(usage, mode uint32) (string, error) {
	prompt := "Enter file name: "
	switch {
	case usage&UsageTypeMask == UsageSavedGame && mode == FileModeRead:
		prompt = "Restore from file: "
	case usage&UsageTypeMask == UsageSavedGame:
		prompt = "Save to file: "
	case usage&UsageTypeMask == UsageTranscript:
		prompt = "Transcript file: "
	}
	io.WriteString(s.out, prompt)
	in, err := s.readLine(context.Background(), &Request{Line: true})
	if err != nil && err != io.EOF {
		return "", err
	}
	return string(in.Text), nil
}
