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
	"bytes"
	"fmt"

	"github.com/db47h/glulx/internal/glx"
	"github.com/db47h/glulx/isaac"
	"github.com/db47h/glulx/quetzal"
)

// story identifier: the first 128 bytes of the story file.
const storyIDSize = 128

func saveError(format string, args ...interface{}) error {
	return &Error{Kind: SaveFault, Msg: fmt.Sprintf(format, args...)}
}

// snapshot serializes the VM state as a Quetzal form. The call stub that
// the restore operation pops must have been pushed.
func (i *Instance) snapshot() *quetzal.Form {
	f := quetzal.NewForm(quetzal.FormType)
	f.Add(quetzal.IDHeader, i.story[:storyIDSize])

	ram := i.mem[i.hdr.RAMStart:]
	cmem := make([]byte, 4, 4+len(ram)/4)
	glx.WP4(cmem, uint32(len(i.mem)))
	f.Add(quetzal.IDCMem, append(cmem, quetzal.CompressMem(i.origRAM(), ram)...))

	f.Add(quetzal.IDStacks, append([]byte(nil), i.stack[:i.sp]...))

	if i.heapStart != 0 {
		blocks := i.heapBlocks()
		mall := make([]byte, 8+8*len(blocks))
		glx.WP4(mall, i.heapStart)
		glx.WP4(mall[4:], uint32(len(blocks)))
		for k, b := range blocks {
			glx.WP4(mall[8+8*k:], b[0])
			glx.WP4(mall[12+8*k:], b[1])
		}
		f.Add(quetzal.IDHeap, mall)
	}

	rng := make([]byte, i.rng.State(nil))
	i.rng.State(rng)
	f.Add(quetzal.IDRandom, rng)

	if i.protectLen != 0 {
		prot := make([]byte, 8)
		glx.WP4(prot, i.protectStart)
		glx.WP4(prot[4:], i.protectLen)
		f.Add(quetzal.IDProtect, prot)
	}
	return f
}

// restoreForm restores the VM state from a Quetzal form. The form is fully
// validated before any change is made. The bytes in the protected range are
// kept. On success, the caller must pop the call stub saved with the state.
func (i *Instance) restoreForm(f *quetzal.Form) error {
	if f.Type != quetzal.FormType {
		return saveError("not a save file (form type %q)", f.Type)
	}
	if id, ok := f.Chunk(quetzal.IDHeader); !ok || !bytes.Equal(id, i.story[:storyIDSize]) {
		return saveError("save file is for a different story")
	}

	var (
		endMem uint32
		ram    []byte
		err    error
	)
	ramSize := func(c []byte) (uint32, error) {
		if len(c) < 4 {
			return 0, saveError("truncated memory chunk")
		}
		n := glx.RP4(c)
		if n < i.origEndMem || n&0xff != 0 || n > MaxMemSize {
			return 0, saveError("invalid memory size %#x", n)
		}
		return n, nil
	}
	if c, ok := f.Chunk(quetzal.IDCMem); ok {
		if endMem, err = ramSize(c); err != nil {
			return err
		}
		if ram, err = quetzal.DecompressMem(i.origRAM(), c[4:], int(endMem-i.hdr.RAMStart)); err != nil {
			return saveError("%v", err)
		}
	} else if c, ok := f.Chunk(quetzal.IDUMem); ok {
		if endMem, err = ramSize(c); err != nil {
			return err
		}
		if ram = c[4:]; uint32(len(ram)) != endMem-i.hdr.RAMStart {
			return saveError("memory chunk size %d does not match memory size %#x", len(ram), endMem)
		}
	} else {
		return saveError("no memory chunk")
	}

	stk, ok := f.Chunk(quetzal.IDStacks)
	if !ok {
		return saveError("no stack chunk")
	}
	if len(stk)&3 != 0 || len(stk) < callStubSize || len(stk) > len(i.stack) {
		return saveError("invalid stack chunk of %d bytes", len(stk))
	}
	if err = checkStub(stk, endMem); err != nil {
		return err
	}

	var heapStart uint32
	if c, ok := f.Chunk(quetzal.IDHeap); ok {
		if len(c) < 8 || uint32(len(c)) != 8+8*glx.RP4(c[4:]) {
			return saveError("invalid heap chunk")
		}
		heapStart = glx.RP4(c)
		if heapStart != 0 && (heapStart < i.origEndMem || heapStart > endMem) {
			return saveError("heap start %#x out of memory", heapStart)
		}
	}

	rng, hasRNG := f.Chunk(quetzal.IDRandom)
	if hasRNG && len(rng) != isaac.StateSize {
		return saveError("invalid random generator state")
	}

	m := make([]byte, endMem)
	copy(m, i.mem[:i.hdr.RAMStart])
	copy(m[i.hdr.RAMStart:], ram)
	limit := uint32(len(i.mem))
	if limit > endMem {
		limit = endMem
	}
	if start, end := i.protected(limit); end > start {
		copy(m[start:end], i.mem[start:end])
	}
	i.mem = m
	i.stats.endMem.Update(int64(endMem))
	copy(i.stack, stk)
	i.sp = uint32(len(stk))
	i.heapStart = heapStart
	if hasRNG {
		i.rng.SetState(rng)
	}
	i.stats.heapBlocks.Update(int64(len(i.heapBlocks())))
	return nil
}

// checkStub validates the call stub on top of a saved stack and the frame it
// resumes.
func checkStub(stk []byte, endMem uint32) error {
	top := uint64(len(stk) - callStubSize)
	s := stk[top:]
	typ, addr, pc, fp := glx.RP4(s), glx.RP4(s[4:]), glx.RP4(s[8:]), glx.RP4(s[12:])
	if pc >= endMem {
		return saveError("resume address %#x out of memory", pc)
	}
	if fp&3 != 0 || uint64(fp)+8 > top {
		return saveError("frame pointer %#x out of saved stack", fp)
	}
	frameLen, localsPos := uint64(glx.RP4(stk[fp:])), uint64(glx.RP4(stk[fp+4:]))
	if localsPos < 8 || localsPos > frameLen || uint64(fp)+frameLen > top {
		return saveError("corrupted frame at %#x", fp)
	}
	switch typ {
	case destNone, destStack:
	case destMem:
		if uint64(addr)+4 > uint64(endMem) {
			return saveError("result address %#x out of memory", addr)
		}
	case destLocal:
		if uint64(addr)+4 > frameLen-localsPos {
			return saveError("result local %#x out of frame", addr)
		}
	default:
		return saveError("invalid call stub type %#x", typ)
	}
	return nil
}

// restoreBytes parses and restores a serialized form.
func (i *Instance) restoreBytes(b []byte) error {
	f, err := quetzal.ParseForm(b)
	if err != nil {
		return saveError("%v", err)
	}
	return i.restoreForm(f)
}

func opSave(i *Instance) {
	s, ok := i.glk.Stream(i.arg[0])
	if !ok {
		i.log.Warnf("save to invalid stream %d", i.arg[0])
		i.store(i.dst[0], 1)
		return
	}
	i.pushCallStub(i.dst[0].typ, i.dst[0].addr)
	var res uint32
	if _, err := i.glk.Write(s, i.snapshot().Bytes()); err != nil {
		i.log.Warnf("save failed: %v", err)
		res = 1
	} else {
		i.stats.saves.Inc(1)
		i.log.Debugf("game saved to stream %d", i.arg[0])
	}
	i.popCallStub(res)
}

func opRestore(i *Instance) {
	s, ok := i.glk.Stream(i.arg[0])
	if !ok {
		i.log.Warnf("restore from invalid stream %d", i.arg[0])
		i.store(i.dst[0], 1)
		return
	}
	b, err := i.glk.ReadAll(s)
	if err == nil {
		err = i.restoreBytes(b)
	}
	if err != nil {
		i.log.Warnf("restore failed: %v", err)
		i.store(i.dst[0], 1)
		return
	}
	i.stats.restores.Inc(1)
	i.log.Debugf("game restored from stream %d", i.arg[0])
	i.popCallStub(0xFFFFFFFF)
}

func opSaveUndo(i *Instance) {
	if i.undoDepth == 0 {
		i.store(i.dst[0], 1)
		return
	}
	i.pushCallStub(i.dst[0].typ, i.dst[0].addr)
	i.undo = append(i.undo, i.snapshot().Bytes())
	if n := len(i.undo) - i.undoDepth; n > 0 {
		i.undo = append(i.undo[:0], i.undo[n:]...)
	}
	i.stats.undoSaves.Inc(1)
	i.popCallStub(0)
}

func opRestoreUndo(i *Instance) {
	n := len(i.undo)
	if n == 0 {
		i.store(i.dst[0], 1)
		return
	}
	b := i.undo[n-1]
	i.undo = i.undo[:n-1]
	if err := i.restoreBytes(b); err != nil {
		i.log.Warnf("restoreundo failed: %v", err)
		i.store(i.dst[0], 1)
		return
	}
	i.stats.undoRestores.Inc(1)
	i.popCallStub(0xFFFFFFFF)
}

func (i *Instance) discardUndo() {
	if n := len(i.undo); n > 0 {
		i.undo = i.undo[:n-1]
	}
}

// setUndoDepth changes the depth of the undo ring, dropping the oldest
// states if needed.
func (i *Instance) setUndoDepth(depth int) {
	i.undoDepth = depth
	if n := len(i.undo) - depth; n > 0 {
		i.undo = append(i.undo[:0], i.undo[n:]...)
	}
}
