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

package glk_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/db47h/glulx/glk"
)

type resources map[uint32]string

func (r resources) DataResource(num uint32) ([]byte, bool, bool) {
	s, ok := r[num]
	return []byte(s), num >= 10, ok
}

func TestFileStreams(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	l, err := glk.New(glk.NewTextScreen(bytes.NewReader(nil), &out), glk.Dir(dir))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		usage uint32
		uni   bool
		data  string
	}{
		{"latin1", glk.UsageData | glk.UsageTextMode, false, "\xe9?\n"},
		{"utf8", glk.UsageData | glk.UsageTextMode, true, "é☺\n"},
		{"bin", glk.UsageData | glk.UsageBinaryMode, false, "\xe9?\n"},
		{"binuni", glk.UsageData | glk.UsageBinaryMode, true, "\x00\x00\x00\xe9\x00\x00\x26\x3a\x00\x00\x00\x0a"},
	}
	for _, test := range tests {
		f := l.CreateByName(test.usage, test.name+".ext", 0)
		assertEqual(t, test.name+" path", filepath.Join(dir, test.name+".glkdata"), f.Path())
		if l.FileExists(f) {
			t.Errorf("%s: file should not exist yet", test.name)
		}
		s, err := l.OpenFile(f, glk.FileModeWrite, 0, test.uni)
		if err != nil {
			t.Fatal(err)
		}
		l.PutRunes(s, []rune{0xe9, 0x263a, '\n'})
		if _, err = l.CloseStream(s); err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(f.Path())
		if err != nil {
			t.Fatal(err)
		}
		assertEqual(t, test.name+" contents", test.data, string(b))

		s, _ = l.OpenFile(f, glk.FileModeRead, 0, test.uni)
		assertEqual(t, test.name+" read", int32(0xe9), l.GetChar(s, true))
		l.PutChar(s, 'x') // read only, ignored
		if test.uni {
			assertEqual(t, test.name+" read uni", int32(0x263a), l.GetChar(s, true))
		}
		res, _ := l.CloseStream(s)
		assertEqual(t, test.name+" write count", uint32(0), res.WriteCount)
		if err = l.DeleteFile(f); err != nil {
			t.Error(err)
		}
		l.DestroyFileref(f)
	}
	if f := l.IterateFilerefs(nil); f != nil {
		t.Errorf("fileref %d left over", f.ID())
	}
}

func TestAppendAndSeek(t *testing.T) {
	l, _, _ := setup(t, "")
	f, err := l.CreateTemp(glk.UsageData|glk.UsageBinaryMode, 3)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := l.OpenFile(f, glk.FileModeWrite, 0, false)
	l.PutString(s, []byte("abc"))
	l.CloseStream(s)
	s, _ = l.OpenFile(f, glk.FileModeWriteAppend, 0, false)
	l.PutString(s, []byte("def"))
	l.CloseStream(s)
	s, _ = l.OpenFile(f, glk.FileModeRead, 0, false)
	l.SetPosition(s, -2, glk.SeekEnd)
	assertEqual(t, "position", uint32(4), l.Position(s))
	assertEqual(t, "char", int32('e'), l.GetChar(s, false))
	l.CloseStream(s)
	path := f.Path()
	l.DestroyFileref(f)
	if _, err = os.Stat(path); !os.IsNotExist(err) {
		t.Error("temporary file should be removed")
	}
}

func TestResourceStream(t *testing.T) {
	var out bytes.Buffer
	l, _ := glk.New(glk.NewTextScreen(bytes.NewReader(nil), &out),
		glk.WithMemory(make(mem, 64)),
		glk.WithResources(resources{3: "héllo\nworld", 10: "\x00\x00\x26\x3a"}))
	if _, err := l.OpenResource(4, 0, false); err == nil {
		t.Error("missing resource should fail")
	}
	s, err := l.OpenResource(3, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, "first", int32('h'), l.GetChar(s, true))
	// TEXT resources are UTF-8 in unicode streams
	assertEqual(t, "second", int32(0xe9), l.GetChar(s, true))
	l.SetPosition(s, 0, glk.SeekStart)
	n := l.GetBuffer(s, 0, 100, false)
	assertEqual(t, "buffer", uint32(11), n)

	s, _ = l.OpenResource(10, 0, true)
	assertEqual(t, "binary uni", int32(0x263a), l.GetChar(s, true))
	assertEqual(t, "eof", int32(-1), l.GetChar(s, true))
}

func TestCase(t *testing.T) {
	assertEqual(t, "lower", uint32('a'), glk.CharToLower('A'))
	assertEqual(t, "upper latin1", uint32(0xc9), glk.CharToUpper(0xe9))
	assertEqual(t, "upper y diaeresis", uint32(0xff), glk.CharToUpper(0xff))
	assertEqual(t, "upper sharp s", uint32(0xdf), glk.CharToUpper(0xdf))

	assertEqual(t, "ToUpper", "STRASSE", string(glk.ToUpper([]rune("straße"))))
	assertEqual(t, "ToLower", "élan", string(glk.ToLower([]rune("ÉLAN"))))
	assertEqual(t, "ToTitle", "Hello WORLD", string(glk.ToTitle([]rune("hello WORLD"), false)))
	assertEqual(t, "ToTitle lower", "Hello world", string(glk.ToTitle([]rune("hello WORLD"), true)))
	assertEqual(t, "Decompose", "é", string(glk.Decompose([]rune("é"))))
	assertEqual(t, "Normalize", "é", string(glk.Normalize([]rune("é"))))
}

func TestDates(t *testing.T) {
	now := time.Date(2016, time.March, 1, 12, 30, 15, 250000000, time.UTC)
	l, _ := glk.New(glk.NewTextScreen(bytes.NewReader(nil), io.Discard), glk.Clock(func() time.Time { return now }))

	tv := l.CurrentTime()
	assertEqual(t, "time", glk.TimeVal{High: 0, Low: uint32(now.Unix()), Micro: 250000}, tv)
	d := l.TimeToDate(tv, false)
	assertEqual(t, "date", glk.Date{Year: 2016, Month: 3, Day: 1, Weekday: 2, Hour: 12, Minute: 30, Second: 15, Micros: 250000}, d)
	assertEqual(t, "round trip", tv, l.DateToTime(d, false))

	assertEqual(t, "simple", int32(now.Unix()/60), l.CurrentSimpleTime(60))
	assertEqual(t, "simple zero factor", int32(0), l.CurrentSimpleTime(0))
	assertEqual(t, "negative simple", int32(-1), l.DateToSimpleTime(glk.Date{Year: 1969, Month: 12, Day: 31, Hour: 23, Minute: 59, Second: 30}, 60, false))

	// out of range fields are normalized
	d = l.SimpleTimeToDate(l.DateToSimpleTime(glk.Date{Year: 2016, Month: 2, Day: 30}, 1, false), 1, false)
	assertEqual(t, "normalized", glk.Date{Year: 2016, Month: 3, Day: 1, Weekday: 2}, d)
}
