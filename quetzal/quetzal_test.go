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

package quetzal_test

import (
	"bytes"
	"testing"

	"github.com/db47h/glulx/quetzal"
)

func TestForm(t *testing.T) {
	f := quetzal.NewForm(quetzal.FormType)
	f.Add(quetzal.IDHeader, []byte("Glul"))
	f.Add(quetzal.IDStacks, []byte{1, 2, 3})
	f.Add("XtRa", nil)
	b := f.Bytes()
	// 12 + (8+4) + (8+3+1) + 8
	if len(b) != 44 {
		t.Fatalf("bad form length %d", len(b))
	}
	if b[35] != 0 {
		t.Errorf("missing pad byte")
	}
	g, err := quetzal.ReadForm(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if g.Type != quetzal.FormType || len(g.Chunks) != 3 {
		t.Fatalf("bad form %q with %d chunks", g.Type, len(g.Chunks))
	}
	if d, ok := g.Chunk(quetzal.IDStacks); !ok || !bytes.Equal(d, []byte{1, 2, 3}) {
		t.Errorf("bad Stks chunk % x", d)
	}
	if c, ok := g.ChunkAt(24); !ok || c.ID != quetzal.IDStacks {
		t.Errorf("ChunkAt(24) failed: %v", c)
	}
	if _, ok := g.Chunk(quetzal.IDCMem); ok {
		t.Error("unexpected CMem chunk")
	}
}

func TestParseErrors(t *testing.T) {
	for _, b := range [][]byte{
		[]byte("FORX\x00\x00\x00\x04IFZS"),
		[]byte("FORM\x00\x00\x01\x00IFZS"),
		[]byte("FORM\x00\x00\x00\x0CIFZSIFhd\x00\x00"),
		[]byte("FORM\x00\x00\x00\x0CIFZSIFhd\x00\x00\x00\x08"),
	} {
		if _, err := quetzal.ParseForm(b); err == nil {
			t.Errorf("expected error for % x", b)
		}
	}
}

func TestMemCompression(t *testing.T) {
	orig := make([]byte, 700)
	for i := range orig {
		orig[i] = byte(i * 7)
	}
	cur := make([]byte, 1024)
	copy(cur, orig)
	cur[3] ^= 0x55
	cur[600] = 0
	cur[1000] = 42
	c := quetzal.CompressMem(orig, cur)
	// byte 3, run of 596 split as 256+256+84, byte 600, run of 399, byte 1000
	if len(c) < 10 || c[0] != 0 || c[1] != 2 || c[2] != 0x55 {
		t.Fatalf("bad compressed data % x", c)
	}
	d, err := quetzal.DecompressMem(orig, c, len(cur))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(d, cur) {
		t.Fatal("round trip failed")
	}
	if _, err = quetzal.DecompressMem(orig, c, 900); err == nil {
		t.Error("expected overflow error")
	}
	if _, err = quetzal.DecompressMem(orig, []byte{0}, 10); err == nil {
		t.Error("expected truncated run error")
	}
	if c = quetzal.CompressMem(orig, orig); len(c) != 0 {
		t.Errorf("identical memory should compress to nothing, got % x", c)
	}
}
