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
	"context"
	"time"

	"github.com/pkg/errors"
)

// Event is a completed event returned by Select.
type Event struct {
	Type       uint32
	Win        *Window
	Val1, Val2 uint32
}

// RequestCharEvent arms character input on w.
func (l *Library) RequestCharEvent(w *Window, uni bool) error {
	if w.charReq || w.lineReq {
		return errors.Errorf("glk: window %d already has an input request", w.id)
	}
	if w.typ != TextBuffer && w.typ != TextGrid {
		return errors.Errorf("glk: window %d does not accept input", w.id)
	}
	w.charReq, w.uni = true, uni
	return nil
}

// CancelCharEvent disarms character input on w.
func (l *Library) CancelCharEvent(w *Window) {
	w.charReq = false
}

// RequestLineEvent arms line input on w. The line is stored in story memory
// at addr, holding at most maxlen characters, and initially contains initlen
// characters.
func (l *Library) RequestLineEvent(w *Window, addr, maxlen, initlen uint32, uni bool) error {
	if w.charReq || w.lineReq {
		return errors.Errorf("glk: window %d already has an input request", w.id)
	}
	if w.typ != TextBuffer && w.typ != TextGrid {
		return errors.Errorf("glk: window %d does not accept input", w.id)
	}
	if initlen > maxlen {
		initlen = maxlen
	}
	w.lineReq, w.uni = true, uni
	w.lineAddr, w.lineMax = addr, maxlen
	w.lineInit = l.loadRunes(addr, initlen, uni)
	return nil
}

// CancelLineEvent disarms line input on w and returns the line input event
// for the text entered so far, which is the initial text.
func (l *Library) CancelLineEvent(w *Window) Event {
	if !w.lineReq {
		return Event{}
	}
	w.lineReq = false
	return Event{Type: EvLineInput, Win: w, Val1: uint32(len(w.lineInit))}
}

// SetEchoLineEvent sets whether completed line input stays visible in w.
func (l *Library) SetEchoLineEvent(w *Window, echo bool) {
	w.noEcho = !echo
}

// SetTerminatorsLineEvent sets the extra keys that terminate line input
// in w. Unsupported keys are dropped.
func (l *Library) SetTerminatorsLineEvent(w *Window, keys []uint32) {
	w.terms = w.terms[:0]
	for _, k := range keys {
		if l.Gestalt(GestaltLineTerminatorKey, k, nil) != 0 {
			w.terms = append(w.terms, k)
		}
	}
}

// RequestTimerEvents starts a repeating timer. A zero interval stops it.
func (l *Library) RequestTimerEvents(millis uint32) {
	l.timer = time.Duration(millis) * time.Millisecond
	if l.timer > 0 {
		l.timerNext = l.now().Add(l.timer)
	}
}

func (l *Library) requests() []Request {
	var reqs []Request
	for _, w := range l.windows {
		switch {
		case w.lineReq:
			reqs = append(reqs, Request{
				Win:         w,
				Line:        true,
				Uni:         w.uni,
				Init:        w.lineInit,
				Max:         int(w.lineMax),
				Echo:        !w.noEcho,
				Terminators: w.terms,
			})
		case w.charReq:
			reqs = append(reqs, Request{Win: w, Uni: w.uni})
		}
	}
	return reqs
}

func (l *Library) timerEvent() Event {
	l.timerNext = l.now().Add(l.timer)
	return Event{Type: EvTimer}
}

// Select waits for an event. It returns ErrNoInput if nothing can complete,
// and io.EOF (possibly wrapped) when the screen runs out of input.
func (l *Library) Select() (Event, error) {
	if len(l.pending) > 0 {
		ev := l.pending[0]
		l.pending = l.pending[1:]
		return ev, nil
	}
	if err := l.screen.Flush(); err != nil {
		return Event{}, errors.Wrap(err, "glk: flush")
	}
	reqs := l.requests()
	if len(reqs) == 0 && l.timer == 0 {
		return Event{}, ErrNoInput
	}
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if l.timer > 0 {
		if !l.now().Before(l.timerNext) {
			return l.timerEvent(), nil
		}
		ctx, cancel = context.WithTimeout(ctx, l.timerNext.Sub(l.now()))
	}
	in, err := l.screen.Poll(ctx, reqs)
	cancel()
	if err != nil {
		if errors.Cause(err) == context.DeadlineExceeded {
			return l.timerEvent(), nil
		}
		return Event{}, err
	}
	return l.complete(in), nil
}

// SelectPoll returns a timer event if the timer is due, and an empty event
// otherwise. It never waits for input.
func (l *Library) SelectPoll() Event {
	if len(l.pending) > 0 {
		ev := l.pending[0]
		l.pending = l.pending[1:]
		return ev
	}
	if l.timer > 0 && !l.now().Before(l.timerNext) {
		return l.timerEvent()
	}
	return Event{}
}

// complete turns screen input into an event, storing line input into story
// memory.
func (l *Library) complete(in Input) Event {
	w := in.Win
	switch in.Kind {
	case InputResize:
		l.arrange()
		return Event{Type: EvArrange}
	case InputChar:
		w.charReq = false
		key := in.Key
		if !w.uni && key < KeyFunc12 && key > 0xff {
			key = '?'
		}
		return Event{Type: EvCharInput, Win: w, Val1: key}
	case InputLine:
		w.lineReq = false
		text := in.Text
		if uint32(len(text)) > w.lineMax {
			text = text[:w.lineMax]
		}
		l.storeRunes(w.lineAddr, text, w.uni)
		if w.echo != nil && !w.noEcho {
			l.PutRunes(w.echo, append(append([]rune(nil), text...), '\n'))
		}
		return Event{Type: EvLineInput, Win: w, Val1: uint32(len(text)), Val2: in.Key}
	}
	return Event{}
}
