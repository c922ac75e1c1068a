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

// Package quetzal reads and writes IFF FORM containers and implements the
// memory compression scheme of Quetzal save files.
//
// Glulx save files are IFF forms of type IFZS. Blorb resource files share
// the same container and are parsed with ParseForm as well.
package quetzal

import (
	"bytes"
	"io"

	"github.com/db47h/glulx/internal/glx"
	"github.com/pkg/errors"
)

// Chunk IDs used in Glulx save files.
const (
	FormType  = "IFZS"
	IDHeader  = "IFhd"
	IDCMem    = "CMem"
	IDUMem    = "UMem"
	IDStacks  = "Stks"
	IDHeap    = "MAll"
	IDRandom  = "RNGS"
	IDProtect = "Prot"
)

// Chunk is a single IFF chunk.
type Chunk struct {
	ID     string
	Data   []byte
	Offset int // offset of the chunk header from the start of the file, set by ParseForm
}

// Form is an IFF FORM: a type tag and a list of chunks in file order.
type Form struct {
	Type   string
	Chunks []Chunk
}

// NewForm returns an empty form of the given type.
func NewForm(typ string) *Form {
	return &Form{Type: typ}
}

// Add appends a chunk. id must be 4 bytes long.
func (f *Form) Add(id string, data []byte) {
	if len(id) != 4 {
		panic("quetzal: bad chunk id " + id)
	}
	f.Chunks = append(f.Chunks, Chunk{ID: id, Data: data})
}

// Chunk returns the data of the first chunk with the given id.
func (f *Form) Chunk(id string) ([]byte, bool) {
	for i := range f.Chunks {
		if f.Chunks[i].ID == id {
			return f.Chunks[i].Data, true
		}
	}
	return nil, false
}

// ChunkAt returns the chunk whose header starts at file offset off.
func (f *Form) ChunkAt(off int) (*Chunk, bool) {
	for i := range f.Chunks {
		if f.Chunks[i].Offset == off {
			return &f.Chunks[i], true
		}
	}
	return nil, false
}

func (f *Form) size() int {
	sz := 4
	for i := range f.Chunks {
		l := len(f.Chunks[i].Data)
		sz += 8 + l + l&1
	}
	return sz
}

// WriteTo writes the form to w. Odd length chunks are padded with a zero
// byte.
func (f *Form) WriteTo(w io.Writer) (int64, error) {
	if len(f.Type) != 4 {
		return 0, errors.Errorf("quetzal: bad form type %q", f.Type)
	}
	ew := glx.NewErrWriter(w)
	n := ew.N
	io.WriteString(ew, "FORM")
	ew.Write32(uint32(f.size()))
	io.WriteString(ew, f.Type)
	for i := range f.Chunks {
		c := &f.Chunks[i]
		io.WriteString(ew, c.ID)
		ew.Write32(uint32(len(c.Data)))
		ew.Write(c.Data)
		if len(c.Data)&1 != 0 {
			ew.Write([]byte{0})
		}
	}
	return ew.N - n, ew.Err
}

// Bytes returns the serialized form.
func (f *Form) Bytes() []byte {
	var b bytes.Buffer
	f.WriteTo(&b)
	return b.Bytes()
}

// ReadForm reads a whole form from r.
func ReadForm(r io.Reader) (*Form, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "quetzal: read failed")
	}
	return ParseForm(b)
}

// ParseForm parses an IFF FORM. Chunk data slices alias b.
func ParseForm(b []byte) (*Form, error) {
	if len(b) < 12 || string(b[:4]) != "FORM" {
		return nil, errors.New("quetzal: not an IFF FORM")
	}
	end := int(glx.RP4(b[4:])) + 8
	if end > len(b) || end < 12 {
		return nil, errors.Errorf("quetzal: FORM length %d exceeds file size %d", end-8, len(b))
	}
	f := &Form{Type: string(b[8:12])}
	for pos := 12; pos < end; {
		if pos+8 > end {
			return nil, errors.Errorf("quetzal: truncated chunk header at offset %d", pos)
		}
		l := int(glx.RP4(b[pos+4:]))
		if l < 0 || pos+8+l > end {
			return nil, errors.Errorf("quetzal: chunk %q at offset %d overflows the form", b[pos:pos+4], pos)
		}
		f.Chunks = append(f.Chunks, Chunk{
			ID:     string(b[pos : pos+4]),
			Data:   b[pos+8 : pos+8+l],
			Offset: pos,
		})
		pos += 8 + l + l&1
	}
	return f, nil
}

// CompressMem returns the run-length encoded XOR of cur against orig. Bytes
// of cur beyond len(orig) are compared against zero. A zero byte in the
// output is followed by a count byte: the number of unchanged bytes minus
// one. Trailing unchanged bytes are not encoded.
func CompressMem(orig, cur []byte) []byte {
	var out []byte
	run := 0
	for i, c := range cur {
		if i < len(orig) {
			c ^= orig[i]
		}
		if c == 0 {
			run++
			continue
		}
		for ; run > 0; run -= 0x100 {
			n := run
			if n > 0x100 {
				n = 0x100
			}
			out = append(out, 0, byte(n-1))
		}
		run = 0
		out = append(out, c)
	}
	return out
}

// DecompressMem reverses CompressMem. It returns a buffer of size bytes.
func DecompressMem(orig, data []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	copy(out, orig)
	pos := 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == 0 {
			i++
			if i >= len(data) {
				return nil, errors.New("quetzal: truncated run in compressed memory")
			}
			pos += int(data[i]) + 1
			continue
		}
		if pos >= size {
			return nil, errors.New("quetzal: compressed memory overflows memory size")
		}
		out[pos] ^= c
		pos++
	}
	if pos > size {
		return nil, errors.New("quetzal: compressed memory overflows memory size")
	}
	return out, nil
}
