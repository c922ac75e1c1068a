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

// Gestalt selectors.
const (
	GestaltGlulxVersion = 0
	GestaltTerpVersion  = 1
	GestaltResizeMem    = 2
	GestaltUndo         = 3
	GestaltIOSystem     = 4
	GestaltUnicode      = 5
	GestaltMemCopy      = 6
	GestaltMAlloc       = 7
	GestaltMAllocHeap   = 8
	GestaltAcceleration = 9
	GestaltAccelFunc    = 10
	GestaltFloat        = 11
	GestaltExtUndo      = 12
	GestaltDouble       = 13
)

// Version numbers reported by gestalt.
const (
	GlulxVersion = 0x00030102
	TerpVersion  = 0x00010000
)

func (i *Instance) gestalt(sel, arg uint32) uint32 {
	switch sel {
	case GestaltGlulxVersion:
		return GlulxVersion
	case GestaltTerpVersion:
		return TerpVersion
	case GestaltResizeMem, GestaltUndo, GestaltUnicode, GestaltMemCopy, GestaltMAlloc,
		GestaltAcceleration, GestaltFloat, GestaltExtUndo:
		return 1
	case GestaltIOSystem:
		return b2u(arg == IOSysNull || arg == IOSysFilter || arg == IOSysGlk)
	case GestaltMAllocHeap:
		return i.heapStart
	case GestaltAccelFunc:
		return b2u(i.natives[arg] != nil)
	}
	return 0
}
