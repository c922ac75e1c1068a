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
	"io"
	"os"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

type streamKind int

const (
	streamWindow streamKind = iota
	streamMemory
	streamFile
	streamResource
)

// StreamResult holds the character counts of a closed stream.
type StreamResult struct {
	ReadCount, WriteCount uint32
}

// Stream is a Glk stream.
type Stream struct {
	id, rock uint32
	kind     streamKind
	mode     uint32
	uni      bool
	rcount   uint32
	wcount   uint32
	style    uint32
	link     uint32

	win *Window

	// memory streams: size and pos in characters
	addr, size, pos uint32

	// resources: pos in bytes
	data []byte
	rpos int
	bin  bool

	f    *os.File
	text bool
}

// ID returns the stream's opaque identifier.
func (s *Stream) ID() uint32 { return s.id }

// Rock returns the stream's rock.
func (s *Stream) Rock() uint32 { return s.rock }

// Unicode reports whether s was opened with a unicode open call.
func (s *Stream) Unicode() bool { return s.uni }

// Window returns the window of a window stream.
func (s *Stream) Window() *Window { return s.win }

func (s *Stream) result() StreamResult {
	return StreamResult{s.rcount, s.wcount}
}

func (s *Stream) canRead() bool  { return s.mode&FileModeRead != 0 }
func (s *Stream) canWrite() bool { return s.mode&FileModeWrite != 0 }

func (l *Library) newStream(kind streamKind, mode, rock uint32, uni bool) *Stream {
	s := &Stream{id: l.newID(classStream), kind: kind, mode: mode, rock: rock, uni: uni}
	l.streams = append(l.streams, s)
	return s
}

func (l *Library) removeStream(s *Stream) {
	for i, o := range l.streams {
		if o == s {
			l.streams = append(l.streams[:i], l.streams[i+1:]...)
			break
		}
	}
	for _, w := range l.windows {
		if w.echo == s {
			w.echo = nil
		}
	}
	if l.cur == s {
		l.cur = nil
	}
}

// Stream returns the stream with the given id.
func (l *Library) Stream(id uint32) (*Stream, bool) {
	for _, s := range l.streams {
		if s.id == id {
			return s, true
		}
	}
	return nil, false
}

// IterateStreams returns the stream following s, or the first stream if s is
// nil.
func (l *Library) IterateStreams(s *Stream) *Stream {
	return iterate(l.streams, s)
}

// Current returns the current output stream.
func (l *Library) Current() *Stream { return l.cur }

// SetCurrent sets the current output stream. s may be nil.
func (l *Library) SetCurrent(s *Stream) { l.cur = s }

// OpenMemory opens a stream over size characters of story memory at addr.
// Unicode streams use 4 bytes per character.
func (l *Library) OpenMemory(addr, size, mode, rock uint32, uni bool) (*Stream, error) {
	if mode == FileModeWriteAppend {
		return nil, errors.Wrap(ErrBadArg, "glk: memory streams cannot be opened in append mode")
	}
	if addr == 0 && size != 0 {
		return nil, errors.Wrap(ErrBadArg, "glk: null memory stream buffer with non zero length")
	}
	s := l.newStream(streamMemory, mode, rock, uni)
	s.addr, s.size = addr, size
	return s, nil
}

// OpenFile opens a stream on the file named by f.
func (l *Library) OpenFile(f *Fileref, mode, rock uint32, uni bool) (*Stream, error) {
	var flags int
	switch mode {
	case FileModeRead:
		flags = os.O_RDONLY
	case FileModeWrite:
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case FileModeReadWrite:
		flags = os.O_RDWR | os.O_CREATE
	case FileModeWriteAppend:
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return nil, errors.Errorf("glk: bad file mode %d", mode)
	}
	fd, err := os.OpenFile(f.path, flags, 0666)
	if err != nil {
		l.log.Warnf("open %s: %v", f.path, err)
		return nil, errors.Wrap(err, "glk")
	}
	s := l.newStream(streamFile, mode, rock, uni)
	s.f = fd
	s.text = f.usage&UsageTextMode != 0
	return s, nil
}

// OpenResource opens a read only stream on data resource num.
func (l *Library) OpenResource(num, rock uint32, uni bool) (*Stream, error) {
	if l.res == nil {
		return nil, errors.New("glk: no resource map")
	}
	data, bin, ok := l.res.DataResource(num)
	if !ok {
		return nil, errors.Errorf("glk: no data resource %d", num)
	}
	s := l.newStream(streamResource, FileModeRead, rock, uni)
	s.data, s.bin = data, bin
	return s, nil
}

// CloseStream closes s. Window streams are closed with their window.
func (l *Library) CloseStream(s *Stream) (StreamResult, error) {
	if s == nil {
		return StreamResult{}, errors.Wrap(ErrBadArg, "glk: close nil stream")
	}
	if s.kind == streamWindow {
		return StreamResult{}, errors.Wrap(ErrBadArg, "glk: cannot close a window stream")
	}
	var err error
	if s.f != nil {
		err = errors.Wrap(s.f.Close(), "glk")
		s.f = nil
	}
	l.removeStream(s)
	return s.result(), err
}

// Position returns the stream position: characters for memory streams,
// bytes for files and resources.
func (l *Library) Position(s *Stream) uint32 {
	switch s.kind {
	case streamMemory:
		return s.pos
	case streamFile:
		n, err := s.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0
		}
		return uint32(n)
	case streamResource:
		return uint32(s.rpos)
	}
	return 0
}

// SetPosition moves the stream position.
func (l *Library) SetPosition(s *Stream, pos int32, mode uint32) {
	switch s.kind {
	case streamMemory:
		s.pos = uint32(clamp(seekBase(mode, int64(s.pos), int64(s.size))+int64(pos), int64(s.size)))
	case streamResource:
		end := int64(len(s.data))
		s.rpos = int(clamp(seekBase(mode, int64(s.rpos), end)+int64(pos), end))
	case streamFile:
		if _, err := s.f.Seek(int64(pos), int(mode)); err != nil {
			l.log.Debugf("seek: %v", err)
		}
	}
}

func seekBase(mode uint32, cur, end int64) int64 {
	switch mode {
	case SeekCurrent:
		return cur
	case SeekEnd:
		return end
	}
	return 0
}

func clamp(v, limit int64) int64 {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

// SetStyle sets the style of s, or of the current stream if s is nil.
func (l *Library) SetStyle(s *Stream, style uint32) {
	if s = l.orCurrent(s); s != nil && style < StyleCount {
		s.style = style
	}
}

// SetHyperlink sets the hyperlink value of s, or of the current stream if s
// is nil. Hyperlinks are recorded but not rendered.
func (l *Library) SetHyperlink(s *Stream, link uint32) {
	if s = l.orCurrent(s); s != nil {
		s.link = link
	}
}

func (l *Library) orCurrent(s *Stream) *Stream {
	if s == nil {
		return l.cur
	}
	return s
}

// PutChar writes a Latin-1 character to s, or to the current stream if s is
// nil.
func (l *Library) PutChar(s *Stream, ch byte) {
	l.PutRunes(s, []rune{rune(ch)})
}

// PutRune writes a unicode character to s, or to the current stream if s is
// nil.
func (l *Library) PutRune(s *Stream, r rune) {
	l.PutRunes(s, []rune{r})
}

// PutString writes a Latin-1 string.
func (l *Library) PutString(s *Stream, str []byte) {
	rs := make([]rune, len(str))
	for i, c := range str {
		rs[i] = rune(c)
	}
	l.PutRunes(s, rs)
}

// PutRunes writes unicode characters to s, or to the current stream if s is
// nil. Writing to a nil current stream does nothing.
func (l *Library) PutRunes(s *Stream, rs []rune) {
	if s = l.orCurrent(s); s == nil || len(rs) == 0 {
		return
	}
	if !s.canWrite() {
		l.log.Debugf("write to read only stream %d", s.id)
		return
	}
	s.wcount += uint32(len(rs))
	switch s.kind {
	case streamWindow:
		w := s.win
		if w.typ == TextBuffer || w.typ == TextGrid {
			l.screen.Print(w, rs, s.style)
		}
		if w.typ == TextGrid {
			w.advance(rs)
		}
		if w.echo != nil && w.echo != s {
			e := w.echo
			w.echo = nil // guard against echo loops
			l.PutRunes(e, rs)
			w.echo = e
		}
	case streamMemory:
		m := l.memory()
		for _, r := range rs {
			if s.pos >= s.size {
				break
			}
			if s.uni {
				var b [4]byte
				putRuneBE(b[:], r)
				m.Store(s.addr+4*s.pos, b[:])
			} else {
				m.Store(s.addr+s.pos, []byte{latin1(r)})
			}
			s.pos++
		}
	case streamFile:
		b := make([]byte, 0, len(rs))
		for _, r := range rs {
			switch {
			case s.text && s.uni:
				b = append(b, string(r)...)
			case s.text:
				c, ok := charmap.ISO8859_1.EncodeRune(r)
				if !ok {
					c = '?'
				}
				b = append(b, c)
			case s.uni:
				b = append(b, byte(r>>24), byte(r>>16), byte(r>>8), byte(r))
			default:
				b = append(b, latin1(r))
			}
		}
		if _, err := s.f.Write(b); err != nil {
			l.log.Warnf("stream %d: %v", s.id, err)
		}
	}
}

func latin1(r rune) byte {
	if r < 0 || r > 0xff {
		return '?'
	}
	return byte(r)
}

func putRuneBE(b []byte, r rune) {
	b[0], b[1], b[2], b[3] = byte(r>>24), byte(r>>16), byte(r>>8), byte(r)
}

// advance moves the grid cursor past rs.
func (w *Window) advance(rs []rune) {
	for _, r := range rs {
		if r == '\n' {
			w.curX = 0
			w.curY++
			continue
		}
		w.curX++
		if w.curX >= w.rect.W {
			w.curX = 0
			w.curY++
		}
	}
}

// readRune reads the next character from s.
func (l *Library) readRune(s *Stream) (rune, bool) {
	switch s.kind {
	case streamMemory:
		if s.pos >= s.size {
			return 0, false
		}
		m := l.memory()
		var r rune
		if s.uni {
			var b [4]byte
			m.Load(s.addr+4*s.pos, b[:])
			r = rune(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
		} else {
			var b [1]byte
			m.Load(s.addr+s.pos, b[:])
			r = rune(b[0])
		}
		s.pos++
		return r, true
	case streamResource:
		r, n := decodeRune(s.data[s.rpos:], !s.bin, s.uni)
		if n == 0 {
			return 0, false
		}
		s.rpos += n
		return r, true
	case streamFile:
		return readFileRune(s.f, s.text, s.uni)
	}
	return 0, false
}

// decodeRune decodes one character from b in the stream's encoding. It
// returns 0 bytes read at end of data.
func decodeRune(b []byte, text, uni bool) (rune, int) {
	switch {
	case len(b) == 0:
		return 0, 0
	case text && uni:
		return utf8.DecodeRune(b)
	case text:
		return charmap.ISO8859_1.DecodeByte(b[0]), 1
	case uni:
		if len(b) < 4 {
			return 0, 0
		}
		return rune(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])), 4
	}
	return rune(b[0]), 1
}

func readFileRune(f *os.File, text, uni bool) (rune, bool) {
	var buf [utf8.UTFMax]byte
	n := 1
	if uni && !text {
		n = 4
	}
	if _, err := io.ReadFull(f, buf[:n]); err != nil {
		return 0, false
	}
	if text && uni {
		for !utf8.FullRune(buf[:n]) && n < utf8.UTFMax {
			if _, err := f.Read(buf[n : n+1]); err != nil {
				break
			}
			n++
		}
	}
	r, _ := decodeRune(buf[:n], text, uni)
	return r, true
}

// GetChar reads one character from s. It returns -1 at end of stream.
// Characters above 0xFF read with uni false are returned as '?'.
func (l *Library) GetChar(s *Stream, uni bool) int32 {
	if s == nil || !s.canRead() {
		return -1
	}
	r, ok := l.readRune(s)
	if !ok {
		return -1
	}
	s.rcount++
	if !uni && r > 0xff {
		r = '?'
	}
	return int32(r)
}

// GetLine reads characters from s into the story memory at addr until a
// newline, the end of stream, or size-1 characters are read. The result is
// NUL terminated. It returns the number of characters read.
func (l *Library) GetLine(s *Stream, addr, size uint32, uni bool) uint32 {
	if size == 0 {
		return 0
	}
	var rs []rune
	for uint32(len(rs)) < size-1 {
		c := l.GetChar(s, uni)
		if c < 0 {
			break
		}
		rs = append(rs, rune(c))
		if c == '\n' {
			break
		}
	}
	l.storeRunes(addr, append(rs, 0), uni)
	return uint32(len(rs))
}

// GetBuffer reads up to size characters from s into the story memory at
// addr. It returns the number of characters read.
func (l *Library) GetBuffer(s *Stream, addr, size uint32, uni bool) uint32 {
	var rs []rune
	for uint32(len(rs)) < size {
		c := l.GetChar(s, uni)
		if c < 0 {
			break
		}
		rs = append(rs, rune(c))
	}
	l.storeRunes(addr, rs, uni)
	return uint32(len(rs))
}

// storeRunes writes rs to story memory as bytes or 32 bits words.
func (l *Library) storeRunes(addr uint32, rs []rune, uni bool) {
	if len(rs) == 0 {
		return
	}
	var b []byte
	if uni {
		b = make([]byte, 4*len(rs))
		for i, r := range rs {
			putRuneBE(b[4*i:], r)
		}
	} else {
		b = make([]byte, len(rs))
		for i, r := range rs {
			b[i] = latin1(r)
		}
	}
	l.memory().Store(addr, b)
}

// loadRunes reads n characters from story memory.
func (l *Library) loadRunes(addr, n uint32, uni bool) []rune {
	rs := make([]rune, n)
	if n == 0 {
		return rs
	}
	if uni {
		b := make([]byte, 4*n)
		l.memory().Load(addr, b)
		for i := range rs {
			rs[i] = rune(uint32(b[4*i])<<24 | uint32(b[4*i+1])<<16 | uint32(b[4*i+2])<<8 | uint32(b[4*i+3]))
		}
		return rs
	}
	b := make([]byte, n)
	l.memory().Load(addr, b)
	for i, c := range b {
		rs[i] = rune(c)
	}
	return rs
}

// Write writes p to s, one Latin-1 character per byte. Binary file streams
// receive the bytes as is. It is used for save files.
func (l *Library) Write(s *Stream, p []byte) (int, error) {
	if s == nil || !s.canWrite() {
		return 0, errors.Wrap(ErrBadArg, "glk: stream not open for writing")
	}
	if s.kind == streamFile && !s.text && !s.uni {
		n, err := s.f.Write(p)
		s.wcount += uint32(n)
		return n, errors.Wrap(err, "glk")
	}
	l.PutString(s, p)
	return len(p), nil
}

// ReadAll reads the remaining characters of s as bytes.
func (l *Library) ReadAll(s *Stream) ([]byte, error) {
	if s == nil || !s.canRead() {
		return nil, errors.Wrap(ErrBadArg, "glk: stream not open for reading")
	}
	if s.kind == streamFile && !s.text && !s.uni {
		b, err := io.ReadAll(s.f)
		s.rcount += uint32(len(b))
		return b, errors.Wrap(err, "glk")
	}
	var b []byte
	for c := l.GetChar(s, false); c >= 0; c = l.GetChar(s, false) {
		b = append(b, byte(c))
	}
	return b, nil
}
