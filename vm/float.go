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
	"math"
)

// Glulx floats are IEEE-754 single precision values stored in 32 bits
// words.

func f32(v uint32) float32 { return math.Float32frombits(v) }

func u32(f float32) uint32 { return math.Float32bits(f) }

// unary applies a float64 function to a float32 argument.
func unary(i *Instance, fn func(float64) float64) {
	i.store(i.dst[0], u32(float32(fn(float64(f32(i.arg[0]))))))
}

func opNumtof(i *Instance) { i.store(i.dst[0], u32(float32(int32(i.arg[0])))) }

// toInt converts f to an integer after rounding with round. NaN and out of
// range values give the largest magnitude integer of the same sign.
func toInt(f float32, round func(float64) float64) uint32 {
	v := float64(f)
	if !math.IsNaN(v) {
		v = round(v)
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return uint32(int32(v))
		}
	}
	if math.Signbit(v) {
		return 0x80000000
	}
	return 0x7FFFFFFF
}

func opFtonumz(i *Instance) { i.store(i.dst[0], toInt(f32(i.arg[0]), math.Trunc)) }
func opFtonumn(i *Instance) { i.store(i.dst[0], toInt(f32(i.arg[0]), math.Round)) }

func opCeil(i *Instance)  { unary(i, math.Ceil) }
func opFloor(i *Instance) { unary(i, math.Floor) }
func opSqrt(i *Instance)  { unary(i, math.Sqrt) }
func opExp(i *Instance)   { unary(i, math.Exp) }
func opLog(i *Instance)   { unary(i, math.Log) }
func opSin(i *Instance)   { unary(i, math.Sin) }
func opCos(i *Instance)   { unary(i, math.Cos) }
func opTan(i *Instance)   { unary(i, math.Tan) }
func opAsin(i *Instance)  { unary(i, math.Asin) }
func opAcos(i *Instance)  { unary(i, math.Acos) }
func opAtan(i *Instance)  { unary(i, math.Atan) }

func opFadd(i *Instance) { i.store(i.dst[0], u32(f32(i.arg[0])+f32(i.arg[1]))) }
func opFsub(i *Instance) { i.store(i.dst[0], u32(f32(i.arg[0])-f32(i.arg[1]))) }
func opFmul(i *Instance) { i.store(i.dst[0], u32(f32(i.arg[0])*f32(i.arg[1]))) }
func opFdiv(i *Instance) { i.store(i.dst[0], u32(f32(i.arg[0])/f32(i.arg[1]))) }

func opPow(i *Instance) {
	i.store(i.dst[0], u32(float32(math.Pow(float64(f32(i.arg[0])), float64(f32(i.arg[1]))))))
}

func opAtan2(i *Instance) {
	i.store(i.dst[0], u32(float32(math.Atan2(float64(f32(i.arg[0])), float64(f32(i.arg[1]))))))
}

// opFmod stores the remainder and the quotient of arg0 / arg1.
func opFmod(i *Instance) {
	a, b := f32(i.arg[0]), f32(i.arg[1])
	r := float32(math.Mod(float64(a), float64(b)))
	q := u32((a - r) / b)
	if q == 0 || q == 0x80000000 {
		// the sign of a zero quotient is lost
		q = (i.arg[0] ^ i.arg[1]) & 0x80000000
	}
	i.store(i.dst[0], u32(r))
	i.store(i.dst[1], q)
}

func isNaN(v uint32) bool { return v&0x7F800000 == 0x7F800000 && v&0x007FFFFF != 0 }
func isInf(v uint32) bool { return v&0x7FFFFFFF == 0x7F800000 }

// fequal reports whether a and b differ by at most tol.
func fequal(a, b, tol uint32) bool {
	if isNaN(tol) {
		return false
	}
	if isInf(a) && isInf(b) {
		return a == b
	}
	d := f32(a) - f32(b)
	t := float32(math.Abs(float64(f32(tol))))
	return d <= t && d >= -t
}

func opJfeq(i *Instance) { i.branchIf(fequal(i.arg[0], i.arg[1], i.arg[2]), i.arg[3]) }
func opJfne(i *Instance) { i.branchIf(!fequal(i.arg[0], i.arg[1], i.arg[2]), i.arg[3]) }
func opJflt(i *Instance) { i.branchIf(f32(i.arg[0]) < f32(i.arg[1]), i.arg[2]) }
func opJfle(i *Instance) { i.branchIf(f32(i.arg[0]) <= f32(i.arg[1]), i.arg[2]) }
func opJfgt(i *Instance) { i.branchIf(f32(i.arg[0]) > f32(i.arg[1]), i.arg[2]) }
func opJfge(i *Instance) { i.branchIf(f32(i.arg[0]) >= f32(i.arg[1]), i.arg[2]) }

func opJisnan(i *Instance) { i.branchIf(isNaN(i.arg[0]), i.arg[1]) }
func opJisinf(i *Instance) { i.branchIf(isInf(i.arg[0]), i.arg[1]) }
