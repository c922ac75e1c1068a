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
	"os"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/pkg/errors"
)

// Memory gives streams and input requests access to the story memory.
// Implementations may panic on out of bounds accesses.
type Memory interface {
	Load(addr uint32, p []byte)
	Store(addr uint32, p []byte)
}

// Resources is a source of data resources for resource streams. It is
// implemented by *blorb.File.
type Resources interface {
	DataResource(num uint32) (data []byte, binary bool, ok bool)
}

// Errors returned by Library methods.
var (
	ErrNoInput = errors.New("glk: select with no input request and no timer")
	ErrBadArg  = errors.New("glk: invalid argument")
)

// Library is the Glk implementation bound to a Screen.
type Library struct {
	screen Screen
	mem    Memory
	res    Resources
	log    btclog.Logger
	dir    string

	root    *Window
	cur     *Stream
	windows []*Window
	streams []*Stream
	frefs   []*Fileref
	ids     [3]uint32

	timer     time.Duration
	timerNext time.Time
	pending   []Event

	hints map[hintKey]int32
	now   func() time.Time
}

type hintKey struct {
	wintype, style, hint uint32
}

// object classes, used for id allocation.
const (
	classWindow = iota
	classStream
	classFileref
)

// Option configures a Library.
type Option func(*Library) error

// Dir sets the directory where named and prompted files are created. The
// default is the current directory.
func Dir(dir string) Option {
	return func(l *Library) error {
		if dir == "" {
			return nil
		}
		st, err := os.Stat(dir)
		if err != nil {
			return errors.Wrap(err, "glk: bad file directory")
		}
		if !st.IsDir() {
			return errors.Errorf("glk: %s is not a directory", dir)
		}
		l.dir = dir
		return nil
	}
}

// Logger sets the logger. The default is btclog.Disabled.
func Logger(log btclog.Logger) Option {
	return func(l *Library) error {
		l.log = log
		return nil
	}
}

// WithResources sets the resource map used by resource streams.
func WithResources(r Resources) Option {
	return func(l *Library) error {
		l.res = r
		return nil
	}
}

// WithMemory sets the story memory. The VM sets it when the library is
// attached to it.
func WithMemory(m Memory) Option {
	return func(l *Library) error {
		l.mem = m
		return nil
	}
}

// Clock overrides the time source used by the timer and date functions.
func Clock(now func() time.Time) Option {
	return func(l *Library) error {
		l.now = now
		return nil
	}
}

// New returns a new Library rendering to screen s.
func New(s Screen, opts ...Option) (*Library, error) {
	if s == nil {
		return nil, errors.New("glk: nil screen")
	}
	l := &Library{
		screen: s,
		log:    btclog.Disabled,
		dir:    ".",
		hints:  make(map[hintKey]int32),
		now:    time.Now,
	}
	if err := l.SetOptions(opts...); err != nil {
		return nil, err
	}
	return l, nil
}

// SetOptions sets the provided options.
func (l *Library) SetOptions(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return err
		}
	}
	return nil
}

// Screen returns the library's screen.
func (l *Library) Screen() Screen { return l.screen }

func (l *Library) newID(class int) uint32 {
	l.ids[class]++
	return l.ids[class]
}

func (l *Library) memory() Memory {
	if l.mem == nil {
		panic(errors.New("glk: no story memory attached"))
	}
	return l.mem
}

// Close closes all streams and windows and flushes the screen. It is called
// when the story exits.
func (l *Library) Close() error {
	for len(l.streams) > 0 {
		s := l.streams[len(l.streams)-1]
		if s.kind == streamWindow {
			l.removeStream(s)
			continue
		}
		l.CloseStream(s)
	}
	l.windows = nil
	l.root = nil
	l.cur = nil
	err := l.screen.Flush()
	if cerr := l.screen.Close(); err == nil {
		err = cerr
	}
	return err
}

// Tick yields to the host. It only flushes pending output.
func (l *Library) Tick() {
	l.screen.Flush()
}

// Gestalt answers capability queries. arr receives extra results for the
// selectors that return some.
func (l *Library) Gestalt(sel, val uint32, arr []uint32) uint32 {
	switch sel {
	case GestaltVersion:
		return Version
	case GestaltCharInput:
		if val >= 0x20 && val < 0x7f || val >= 0xa0 && val < 0x110000 {
			return 1
		}
		return b2u(val >= KeyFunc12 || val == 8 || val == 10 || val == 13)
	case GestaltLineInput:
		return b2u(val >= 0x20 && val < 0x7f || val >= 0xa0 && val < 0x110000)
	case GestaltCharOutput:
		if len(arr) > 0 {
			arr[0] = 1
		}
		if val < 0x20 && val != 10 || val >= 0x7f && val < 0xa0 || val >= 0x110000 {
			if len(arr) > 0 {
				arr[0] = 0
			}
			return CharOutputCannotPrint
		}
		return CharOutputExactPrint
	case GestaltTimer, GestaltUnicode, GestaltUnicodeNorm, GestaltLineInputEcho,
		GestaltLineTerminators, GestaltDateTime, GestaltResourceStream:
		return 1
	case GestaltLineTerminatorKey:
		return b2u(val == KeyEscape || val <= KeyFunc1 && val >= KeyFunc12)
	}
	return 0
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
