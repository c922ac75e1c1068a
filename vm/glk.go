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

package vm

import (
	"io"

	"github.com/db47h/glulx/glk"
	"github.com/pkg/errors"
)

// halt stops the VM cleanly from inside a Glk call.
func (i *Instance) halt() {
	panic(&Error{Kind: Halt, PC: i.opPC, Msg: "halted"})
}

// ioError handles errors from calls that wait for the player. The end of
// input stops the VM, other errors are fatal.
func (i *Instance) ioError(err error) {
	switch errors.Cause(err) {
	case io.EOF, glk.ErrNoInput:
		i.log.Debugf("stopping: %v", err)
		i.halt()
	}
	i.fault(IOFault, "%v", err)
}

// glkCall dispatches the glk opcode. Invalid arguments make the call return
// 0; unknown selectors are logged once and return 0.
func (i *Instance) glkCall(sel uint32, args []uint32) (ret uint32) {
	i.stats.glkCalls.Inc(1)
	defer func() {
		if e := recover(); e != nil {
			ge, ok := e.(glkError)
			if !ok {
				panic(e)
			}
			i.log.Warnf("glk %#x: %s", sel, ge)
			ret = 0
		}
	}()
	a := glkArgs{i, args}
	l := i.glk

	switch sel {
	case 0x01: // exit
		i.halt()
	case 0x03: // tick
		l.Tick()
	case 0x04: // gestalt
		return l.Gestalt(a.u(0), a.u(1), nil)
	case 0x05: // gestalt_ext
		n := a.u(3)
		if a.u(2) == 0 {
			n = 0
		}
		arr := make([]uint32, n)
		r := l.Gestalt(a.u(0), a.u(1), arr)
		for k, v := range arr {
			i.Store32(a.u(2)+4*uint32(k), v)
		}
		return r

	// windows
	case 0x20: // window_iterate
		w := l.IterateWindows(a.win(0))
		if w != nil {
			a.out(1, w.Rock())
		} else {
			a.out(1, 0)
		}
		return winID(w)
	case 0x21: // window_get_rock
		return a.mustWin(0).Rock()
	case 0x22: // window_get_root
		return winID(l.Root())
	case 0x23: // window_open
		w, err := l.OpenWindow(a.win(0), a.u(1), a.u(2), a.u(3), a.u(4))
		if err != nil {
			i.log.Warnf("window_open: %v", err)
			return 0
		}
		return w.ID()
	case 0x24: // window_close
		res, err := l.CloseWindow(a.mustWin(0))
		if err != nil {
			panic(glkErrorf("%v", err))
		}
		a.out(1, res.ReadCount, res.WriteCount)
	case 0x25: // window_get_size
		width, height := l.GetSize(a.mustWin(0))
		a.out(1, width)
		a.out(2, height)
	case 0x26: // window_set_arrangement
		if err := l.SetArrangement(a.mustWin(0), a.u(1), a.u(2), a.win(3)); err != nil {
			panic(glkErrorf("%v", err))
		}
	case 0x27: // window_get_arrangement
		method, size, key := l.GetArrangement(a.mustWin(0))
		a.out(1, method)
		a.out(2, size)
		a.out(3, winID(key))
	case 0x28: // window_get_type
		return a.mustWin(0).Type()
	case 0x29: // window_get_parent
		return winID(a.mustWin(0).Parent())
	case 0x2A: // window_clear
		l.ClearWindow(a.mustWin(0))
	case 0x2B: // window_move_cursor
		l.MoveCursor(a.mustWin(0), a.u(1), a.u(2))
	case 0x2C: // window_get_stream
		return strID(a.mustWin(0).Stream())
	case 0x2D: // window_set_echo_stream
		l.SetEchoStream(a.mustWin(0), a.str(1))
	case 0x2E: // window_get_echo_stream
		return strID(a.mustWin(0).EchoStream())
	case 0x2F: // set_window
		l.SetWindow(a.win(0))
	case 0x30: // window_get_sibling
		return winID(a.mustWin(0).Sibling())

	// streams
	case 0x40: // stream_iterate
		s := l.IterateStreams(a.str(0))
		if s != nil {
			a.out(1, s.Rock())
		} else {
			a.out(1, 0)
		}
		return strID(s)
	case 0x41: // stream_get_rock
		return a.mustStr(0).Rock()
	case 0x42, 0x138: // stream_open_file, stream_open_file_uni
		s, err := l.OpenFile(a.mustFref(0), a.u(1), a.u(2), sel == 0x138)
		if err != nil {
			i.log.Warnf("stream_open_file: %v", err)
			return 0
		}
		return s.ID()
	case 0x43, 0x139: // stream_open_memory, stream_open_memory_uni
		s, err := l.OpenMemory(a.u(0), a.u(1), a.u(2), a.u(3), sel == 0x139)
		if err != nil {
			panic(glkErrorf("%v", err))
		}
		return s.ID()
	case 0x44: // stream_close
		res, err := l.CloseStream(a.mustStr(0))
		if err != nil {
			panic(glkErrorf("%v", err))
		}
		a.out(1, res.ReadCount, res.WriteCount)
	case 0x45: // stream_set_position
		l.SetPosition(a.mustStr(0), int32(a.u(1)), a.u(2))
	case 0x46: // stream_get_position
		return l.Position(a.mustStr(0))
	case 0x47: // stream_set_current
		l.SetCurrent(a.str(0))
	case 0x48: // stream_get_current
		return strID(l.Current())
	case 0x49, 0x13A: // stream_open_resource, stream_open_resource_uni
		s, err := l.OpenResource(a.u(0), a.u(1), sel == 0x13A)
		if err != nil {
			i.log.Debugf("stream_open_resource: %v", err)
			return 0
		}
		return s.ID()

	// file references
	case 0x60: // fileref_create_temp
		f, err := l.CreateTemp(a.u(0), a.u(1))
		if err != nil {
			i.log.Warnf("fileref_create_temp: %v", err)
			return 0
		}
		return f.ID()
	case 0x61: // fileref_create_by_name
		return l.CreateByName(a.u(0), string(a.text(1)), a.u(2)).ID()
	case 0x62: // fileref_create_by_prompt
		f, err := l.CreateByPrompt(a.u(0), a.u(1), a.u(2))
		if err != nil {
			if errors.Cause(err) == io.EOF {
				i.halt()
			}
			i.log.Warnf("fileref_create_by_prompt: %v", err)
		}
		return frefID(f)
	case 0x63: // fileref_destroy
		l.DestroyFileref(a.mustFref(0))
	case 0x64: // fileref_iterate
		f := l.IterateFilerefs(a.fref(0))
		if f != nil {
			a.out(1, f.Rock())
		} else {
			a.out(1, 0)
		}
		return frefID(f)
	case 0x65: // fileref_get_rock
		return a.mustFref(0).Rock()
	case 0x66: // fileref_delete_file
		if err := l.DeleteFile(a.mustFref(0)); err != nil {
			i.log.Debugf("fileref_delete_file: %v", err)
		}
	case 0x67: // fileref_does_file_exist
		return b2u(l.FileExists(a.mustFref(0)))
	case 0x68: // fileref_create_from_fileref
		return l.CreateFromFileref(a.u(0), a.mustFref(1), a.u(2)).ID()

	// output
	case 0x80: // put_char
		l.PutChar(nil, byte(a.u(0)))
	case 0x81: // put_char_stream
		l.PutChar(a.mustStr(0), byte(a.u(1)))
	case 0x82, 0x129: // put_string, put_string_uni
		l.PutRunes(nil, a.text(0))
	case 0x83, 0x12C: // put_string_stream, put_string_stream_uni
		l.PutRunes(a.mustStr(0), a.text(1))
	case 0x84: // put_buffer
		l.PutString(nil, a.bytes(0, a.u(1)))
	case 0x85: // put_buffer_stream
		l.PutString(a.mustStr(0), a.bytes(1, a.u(2)))
	case 0x86: // set_style
		l.SetStyle(nil, a.u(0))
	case 0x87: // set_style_stream
		l.SetStyle(a.mustStr(0), a.u(1))
	case 0x128: // put_char_uni
		l.PutRune(nil, rune(a.u(0)))
	case 0x12A: // put_buffer_uni
		l.PutRunes(nil, a.runes(0, a.u(1)))
	case 0x12B: // put_char_stream_uni
		l.PutRune(a.mustStr(0), rune(a.u(1)))
	case 0x12D: // put_buffer_stream_uni
		l.PutRunes(a.mustStr(0), a.runes(1, a.u(2)))
	case 0x100: // set_hyperlink
		l.SetHyperlink(nil, a.u(0))
	case 0x101: // set_hyperlink_stream
		l.SetHyperlink(a.mustStr(0), a.u(1))

	// input from streams
	case 0x90: // get_char_stream
		return uint32(l.GetChar(a.mustStr(0), false))
	case 0x130: // get_char_stream_uni
		return uint32(l.GetChar(a.mustStr(0), true))
	case 0x91, 0x132: // get_line_stream, get_line_stream_uni
		return l.GetLine(a.mustStr(0), a.u(1), a.u(2), sel == 0x132)
	case 0x92, 0x131: // get_buffer_stream, get_buffer_stream_uni
		return l.GetBuffer(a.mustStr(0), a.u(1), a.u(2), sel == 0x131)

	// characters and styles
	case 0xA0: // char_to_lower
		return glk.CharToLower(a.u(0))
	case 0xA1: // char_to_upper
		return glk.CharToUpper(a.u(0))
	case 0x120: // buffer_to_lower_case_uni
		return a.storeRunes(0, glk.ToLower(a.runes(0, a.u(2))), a.u(1))
	case 0x121: // buffer_to_upper_case_uni
		return a.storeRunes(0, glk.ToUpper(a.runes(0, a.u(2))), a.u(1))
	case 0x122: // buffer_to_title_case_uni
		return a.storeRunes(0, glk.ToTitle(a.runes(0, a.u(2)), a.u(3) != 0), a.u(1))
	case 0x123: // buffer_canon_decompose_uni
		return a.storeRunes(0, glk.Decompose(a.runes(0, a.u(2))), a.u(1))
	case 0x124: // buffer_canon_normalize_uni
		return a.storeRunes(0, glk.Normalize(a.runes(0, a.u(2))), a.u(1))
	case 0xB0: // stylehint_set
		l.StyleHintSet(a.u(0), a.u(1), a.u(2), int32(a.u(3)))
	case 0xB1: // stylehint_clear
		l.StyleHintClear(a.u(0), a.u(1), a.u(2))
	case 0xB2: // style_distinguish
		return b2u(l.StyleDistinguish(a.mustWin(0), a.u(1), a.u(2)))
	case 0xB3: // style_measure
		v, ok := l.StyleMeasure(a.mustWin(0), a.u(1), a.u(2))
		if ok {
			a.out(3, v)
		}
		return b2u(ok)

	// events
	case 0xC0: // select
		ev, err := l.Select()
		if err != nil {
			i.ioError(err)
		}
		a.outEvent(0, ev)
	case 0xC1: // select_poll
		a.outEvent(0, l.SelectPoll())
	case 0xD0, 0x141: // request_line_event, request_line_event_uni
		if err := l.RequestLineEvent(a.mustWin(0), a.u(1), a.u(2), a.u(3), sel == 0x141); err != nil {
			panic(glkErrorf("%v", err))
		}
	case 0xD1: // cancel_line_event
		a.outEvent(1, l.CancelLineEvent(a.mustWin(0)))
	case 0xD2, 0x140: // request_char_event, request_char_event_uni
		if err := l.RequestCharEvent(a.mustWin(0), sel == 0x140); err != nil {
			panic(glkErrorf("%v", err))
		}
	case 0xD3: // cancel_char_event
		l.CancelCharEvent(a.mustWin(0))
	case 0xD4, 0xD5, 0x102, 0x103: // mouse and hyperlink requests: never delivered
		a.mustWin(0)
	case 0xD6: // request_timer_events
		l.RequestTimerEvents(a.u(0))
	case 0x150: // set_echo_line_event
		l.SetEchoLineEvent(a.mustWin(0), a.u(1) != 0)
	case 0x151: // set_terminators_line_event
		n := a.u(2)
		if a.u(1) == 0 {
			n = 0
		}
		keys := make([]uint32, n)
		for k := range keys {
			keys[k] = i.Load32(a.u(1) + 4*uint32(k))
		}
		l.SetTerminatorsLineEvent(a.mustWin(0), keys)

	// date and time
	case 0x160: // current_time
		a.outTimeVal(0, l.CurrentTime())
	case 0x161: // current_simple_time
		return uint32(l.CurrentSimpleTime(a.u(0)))
	case 0x168, 0x169: // time_to_date_utc, time_to_date_local
		a.outDate(1, l.TimeToDate(a.timeVal(0), sel == 0x169))
	case 0x16A, 0x16B: // simple_time_to_date_utc, simple_time_to_date_local
		a.outDate(2, l.SimpleTimeToDate(int32(a.u(0)), a.u(1), sel == 0x16B))
	case 0x16C, 0x16D: // date_to_time_utc, date_to_time_local
		a.outTimeVal(1, l.DateToTime(a.date(0), sel == 0x16D))
	case 0x16E, 0x16F: // date_to_simple_time_utc, date_to_simple_time_local
		return uint32(l.DateToSimpleTime(a.date(0), a.u(1), sel == 0x16F))

	default:
		if !i.glkWarn[sel] {
			i.glkWarn[sel] = true
			i.log.Warnf("unsupported glk selector %#x", sel)
		}
	}
	return 0
}
