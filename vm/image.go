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
	"fmt"
	"os"

	"github.com/db47h/glulx/internal/glx"
	"github.com/pkg/errors"
)

// Header field offsets.
const (
	hdrMagic       = 0
	hdrVersion     = 4
	hdrRAMStart    = 8
	hdrExtStart    = 12
	hdrEndMem      = 16
	hdrStackSize   = 20
	hdrStartFunc   = 24
	hdrStringTable = 28
	hdrChecksum    = 32

	// HeaderSize is the size of a Glulx header in bytes.
	HeaderSize = 36
)

// Magic is the tag at the start of every Glulx story file.
const Magic = "Glul"

// Supported story file versions.
const (
	MinVersion = 0x00020000
	MaxVersion = 0x000301FF
)

// Header is the decoded header of a story file.
type Header struct {
	Version     uint32
	RAMStart    uint32
	ExtStart    uint32
	EndMem      uint32
	StackSize   uint32
	StartFunc   uint32
	StringTable uint32
	Checksum    uint32
}

// ParseHeader decodes and validates the header of story file b. Errors are
// of type *Error with Kind BadImage.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < HeaderSize {
		return nil, imageError("file too short (%d bytes)", len(b))
	}
	if string(b[hdrMagic:hdrMagic+4]) != Magic {
		return nil, imageError("bad magic %q", b[hdrMagic:hdrMagic+4])
	}
	h := &Header{
		Version:     glx.RP4(b[hdrVersion:]),
		RAMStart:    glx.RP4(b[hdrRAMStart:]),
		ExtStart:    glx.RP4(b[hdrExtStart:]),
		EndMem:      glx.RP4(b[hdrEndMem:]),
		StackSize:   glx.RP4(b[hdrStackSize:]),
		StartFunc:   glx.RP4(b[hdrStartFunc:]),
		StringTable: glx.RP4(b[hdrStringTable:]),
		Checksum:    glx.RP4(b[hdrChecksum:]),
	}
	switch {
	case h.Version < MinVersion:
		return nil, imageError("version %s is too old", versionString(h.Version))
	case h.Version > MaxVersion:
		return nil, imageError("version %s is too new", versionString(h.Version))
	case h.RAMStart < HeaderSize || h.RAMStart > h.ExtStart || h.ExtStart > h.EndMem:
		return nil, imageError("bad memory layout: RAMSTART %#x, EXTSTART %#x, ENDMEM %#x", h.RAMStart, h.ExtStart, h.EndMem)
	case h.RAMStart&0xff != 0 || h.ExtStart&0xff != 0 || h.EndMem&0xff != 0:
		return nil, imageError("memory boundaries are not multiples of 256")
	case h.StackSize&0xff != 0 || h.StackSize == 0:
		return nil, imageError("bad stack size %#x", h.StackSize)
	case uint64(h.ExtStart) > uint64(len(b)):
		return nil, imageError("EXTSTART %#x is past the end of the file (%d bytes)", h.ExtStart, len(b))
	case h.StartFunc >= h.EndMem:
		return nil, imageError("start function %#x is out of memory", h.StartFunc)
	}
	return h, nil
}

func versionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>16, v>>8&0xff, v&0xff)
}

// Checksum computes the checksum of a story file: the sum of all 32 bits
// words before ExtStart, the checksum field excluded.
func Checksum(b []byte, extStart uint32) uint32 {
	var sum uint32
	for p := uint32(0); p+4 <= extStart && int(p+4) <= len(b); p += 4 {
		if p == hdrChecksum {
			continue
		}
		sum += glx.RP4(b[p:])
	}
	return sum
}

// Load reads a story file. Blorb files must be unwrapped by the caller.
func Load(fileName string) ([]byte, error) {
	b, err := os.ReadFile(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "load failed")
	}
	return b, nil
}
