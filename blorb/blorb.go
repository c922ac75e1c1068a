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

// Package blorb reads Blorb resource files: IFF forms of type IFRS bundling
// a story executable with pictures, sounds and data resources.
package blorb

import (
	"os"

	"github.com/db47h/glulx/internal/glx"
	"github.com/db47h/glulx/quetzal"
	"github.com/pkg/errors"
)

// Resource usages.
const (
	Exec  = "Exec"
	Pict  = "Pict"
	Sound = "Snd "
	Data  = "Data"
)

// Resource is an indexed resource.
type Resource struct {
	Usage  string
	Number uint32
	Type   string // chunk type: GLUL, TEXT, BINA, PNG ...
	Data   []byte
}

type key struct {
	usage string
	num   uint32
}

// File is a parsed Blorb file.
type File struct {
	res   map[key]*Resource
	order []*Resource
}

// IsBlorb reports whether b starts with a Blorb FORM header.
func IsBlorb(b []byte) bool {
	return len(b) >= 12 && string(b[:4]) == "FORM" && string(b[8:12]) == "IFRS"
}

// Parse parses a Blorb file held in memory. Resource data aliases b.
func Parse(b []byte) (*File, error) {
	if !IsBlorb(b) {
		return nil, errors.New("blorb: not a blorb file")
	}
	form, err := quetzal.ParseForm(b)
	if err != nil {
		return nil, errors.Wrap(err, "blorb")
	}
	idx, ok := form.Chunk("RIdx")
	if !ok {
		return nil, errors.New("blorb: missing resource index")
	}
	if len(idx) < 4 {
		return nil, errors.New("blorb: truncated resource index")
	}
	n := int(glx.RP4(idx))
	if len(idx) < 4+12*n {
		return nil, errors.Errorf("blorb: resource index too short for %d entries", n)
	}
	f := &File{res: make(map[key]*Resource, n)}
	for i := 0; i < n; i++ {
		e := idx[4+12*i:]
		usage := string(e[:4])
		num := glx.RP4(e[4:])
		off := int(glx.RP4(e[8:]))
		c, ok := form.ChunkAt(off)
		if !ok {
			return nil, errors.Errorf("blorb: resource %s %d: no chunk at offset %d", usage, num, off)
		}
		r := &Resource{Usage: usage, Number: num, Type: c.ID, Data: c.Data}
		f.res[key{usage, num}] = r
		f.order = append(f.order, r)
	}
	return f, nil
}

// Open reads and parses the named Blorb file.
func Open(name string) (*File, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "blorb")
	}
	return Parse(b)
}

// Resource looks up a resource by usage and number.
func (f *File) Resource(usage string, num uint32) (*Resource, bool) {
	r, ok := f.res[key{usage, num}]
	return r, ok
}

// Resources returns all indexed resources in index order.
func (f *File) Resources() []*Resource {
	return f.order
}

// Executable returns the Glulx story image. It fails if the executable
// resource is missing or is not a GLUL chunk.
func (f *File) Executable() ([]byte, error) {
	for _, r := range f.order {
		if r.Usage != Exec {
			continue
		}
		if r.Type != "GLUL" {
			return nil, errors.Errorf("blorb: executable resource is %q, not a Glulx story", r.Type)
		}
		return r.Data, nil
	}
	return nil, errors.New("blorb: no executable resource")
}

// DataResource returns the data resource number num and whether it is
// binary (BINA chunk) rather than text (TEXT chunk).
func (f *File) DataResource(num uint32) (data []byte, binary bool, ok bool) {
	r, ok := f.Resource(Data, num)
	if !ok {
		return nil, false, false
	}
	return r.Data, r.Type != "TEXT", true
}
