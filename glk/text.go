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
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// CharToLower converts a Latin-1 character to lower case.
func CharToLower(ch uint32) uint32 {
	return latin1Case(ch, unicode.ToLower)
}

// CharToUpper converts a Latin-1 character to upper case.
func CharToUpper(ch uint32) uint32 {
	return latin1Case(ch, unicode.ToUpper)
}

func latin1Case(ch uint32, f func(rune) rune) uint32 {
	ch &= 0xff
	if r := f(rune(ch)); r <= 0xff {
		return uint32(r)
	}
	return ch
}

var (
	lower = cases.Lower(language.Und)
	upper = cases.Upper(language.Und)
	title = cases.Title(language.Und, cases.NoLower)
)

// ToLower returns the lower case conversion of rs. The result may be longer
// than rs.
func ToLower(rs []rune) []rune {
	return []rune(lower.String(string(rs)))
}

// ToUpper returns the upper case conversion of rs.
func ToUpper(rs []rune) []rune {
	return []rune(upper.String(string(rs)))
}

// ToTitle converts the first character of rs to title case. The other
// characters are converted to lower case if lowerRest is true.
func ToTitle(rs []rune, lowerRest bool) []rune {
	if len(rs) == 0 {
		return rs
	}
	out := []rune(title.String(string(rs[:1])))
	rest := rs[1:]
	if lowerRest {
		rest = ToLower(rest)
	}
	return append(out, rest...)
}

// Decompose returns the canonical decomposition (NFD) of rs.
func Decompose(rs []rune) []rune {
	return []rune(norm.NFD.String(string(rs)))
}

// Normalize returns the canonical composition (NFC) of rs.
func Normalize(rs []rune) []rune {
	return []rune(norm.NFC.String(string(rs)))
}

// TimeVal is a Glk time value: seconds since the Unix epoch split in two
// 32 bits words, and microseconds.
type TimeVal struct {
	High  int32
	Low   uint32
	Micro int32
}

// Date is a broken down Glk date.
type Date struct {
	Year, Month, Day, Weekday    int32
	Hour, Minute, Second, Micros int32
}

// CurrentTime returns the current time.
func (l *Library) CurrentTime() TimeVal {
	return toTimeVal(l.now())
}

func toTimeVal(t time.Time) TimeVal {
	s := t.Unix()
	return TimeVal{High: int32(s >> 32), Low: uint32(s), Micro: int32(t.Nanosecond() / 1000)}
}

func (tv TimeVal) time() time.Time {
	return time.Unix(int64(tv.High)<<32|int64(tv.Low), int64(tv.Micro)*1000)
}

// CurrentSimpleTime returns the current time in seconds divided by factor,
// rounded toward negative infinity.
func (l *Library) CurrentSimpleTime(factor uint32) int32 {
	if factor == 0 {
		return 0
	}
	return simpleTime(l.now().Unix(), factor)
}

func simpleTime(s int64, factor uint32) int32 {
	f := int64(factor)
	if s >= 0 {
		return int32(s / f)
	}
	return int32(-((-s + f - 1) / f))
}

// TimeToDate converts a time value to a date in UTC or local time.
func (l *Library) TimeToDate(tv TimeVal, local bool) Date {
	return toDate(tv.time(), local)
}

// SimpleTimeToDate converts a simple time to a date.
func (l *Library) SimpleTimeToDate(t int32, factor uint32, local bool) Date {
	return toDate(time.Unix(int64(t)*int64(factor), 0), local)
}

func toDate(t time.Time, local bool) Date {
	if local {
		t = t.Local()
	} else {
		t = t.UTC()
	}
	return Date{
		Year:    int32(t.Year()),
		Month:   int32(t.Month()),
		Day:     int32(t.Day()),
		Weekday: int32(t.Weekday()),
		Hour:    int32(t.Hour()),
		Minute:  int32(t.Minute()),
		Second:  int32(t.Second()),
		Micros:  int32(t.Nanosecond() / 1000),
	}
}

func (d Date) time(local bool) time.Time {
	loc := time.UTC
	if local {
		loc = time.Local
	}
	// out of range fields are normalized by time.Date
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), int(d.Hour), int(d.Minute), int(d.Second), int(d.Micros)*1000, loc)
}

// DateToTime converts a date to a time value.
func (l *Library) DateToTime(d Date, local bool) TimeVal {
	return toTimeVal(d.time(local))
}

// DateToSimpleTime converts a date to a simple time.
func (l *Library) DateToSimpleTime(d Date, factor uint32, local bool) int32 {
	if factor == 0 {
		return 0
	}
	return simpleTime(d.time(local).Unix(), factor)
}

// StyleHintSet records a style hint. Hints are not rendered.
func (l *Library) StyleHintSet(wintype, style, hint uint32, val int32) {
	l.hints[hintKey{wintype, style, hint}] = val
}

// StyleHintClear removes a style hint.
func (l *Library) StyleHintClear(wintype, style, hint uint32) {
	delete(l.hints, hintKey{wintype, style, hint})
}

// StyleDistinguish reports whether two styles render differently in w.
func (l *Library) StyleDistinguish(w *Window, s1, s2 uint32) bool {
	if s1 >= StyleCount || s2 >= StyleCount {
		return false
	}
	return StyleAttrs[s1] != StyleAttrs[s2]
}

// StyleMeasure is not supported: style attributes cannot be measured.
func (l *Library) StyleMeasure(w *Window, style, hint uint32) (uint32, bool) {
	return 0, false
}
