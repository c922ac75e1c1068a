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

// AccelFunc is the native implementation of a story function. It receives
// the call arguments and returns the function's result. Accelerated
// functions may read and write memory and print through the instance, and
// abort with a fatal error by panicking with an *Error.
type AccelFunc func(i *Instance, args []uint32) uint32

// accelparam indices.
const (
	accelParamCount = 9
	// AccelParamUndoDepth is an interpreter specific accelparam index that
	// sets the depth of the undo ring.
	AccelParamUndoDepth = 0x100
)

// Accelerate sets the accelerated functions known to the VM, by function
// number. Stories bind them to their own functions with accelfunc.
func Accelerate(funcs map[uint32]AccelFunc) Option {
	return func(i *Instance) error {
		i.natives = make(map[uint32]AccelFunc, len(funcs))
		for n, f := range funcs {
			i.natives[n] = f
		}
		return nil
	}
}

// accelFunc binds the function at addr to the native function number n. A
// zero or unknown n removes any binding.
func (i *Instance) accelFunc(n, addr uint32) {
	f := i.natives[n]
	if n == 0 || f == nil {
		if n != 0 {
			i.log.Debugf("accelfunc: unknown function %d", n)
		}
		delete(i.accel, addr)
		return
	}
	i.log.Debugf("accelfunc: function %d bound to %#x", n, addr)
	i.accel[addr] = f
}

func (i *Instance) accelParam(n, v uint32) {
	switch {
	case n < accelParamCount:
		i.accelParams[n] = v
	case n == AccelParamUndoDepth:
		i.log.Debugf("undo depth set to %d", v)
		i.setUndoDepth(int(v))
	}
}

// AccelParam returns the value of the accelparam n. Unknown parameters are
// 0.
func (i *Instance) AccelParam(n uint32) uint32 {
	switch {
	case n < accelParamCount:
		return i.accelParams[n]
	case n == AccelParamUndoDepth:
		return uint32(i.undoDepth)
	}
	return 0
}
