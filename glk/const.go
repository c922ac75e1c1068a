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

// Window types.
const (
	AllTypes   uint32 = 0
	Pair       uint32 = 1
	Blank      uint32 = 2
	TextBuffer uint32 = 3
	TextGrid   uint32 = 4
	Graphics   uint32 = 5
)

// Window split methods.
const (
	MethodLeft         uint32 = 0x00
	MethodRight        uint32 = 0x01
	MethodAbove        uint32 = 0x02
	MethodBelow        uint32 = 0x03
	MethodDirMask      uint32 = 0x0f
	MethodFixed        uint32 = 0x10
	MethodProportional uint32 = 0x20
	MethodDivisionMask uint32 = 0xf0
	MethodBorder       uint32 = 0x000
	MethodNoBorder     uint32 = 0x100
	MethodBorderMask   uint32 = 0x100
)

// Event types.
const (
	EvNone        uint32 = 0
	EvTimer       uint32 = 1
	EvCharInput   uint32 = 2
	EvLineInput   uint32 = 3
	EvMouseInput  uint32 = 4
	EvArrange     uint32 = 5
	EvRedraw      uint32 = 6
	EvSoundNotify uint32 = 7
	EvHyperlink   uint32 = 8
)

// File modes.
const (
	FileModeWrite       uint32 = 0x01
	FileModeRead        uint32 = 0x02
	FileModeReadWrite   uint32 = 0x03
	FileModeWriteAppend uint32 = 0x05
)

// File usages.
const (
	UsageData        uint32 = 0x00
	UsageSavedGame   uint32 = 0x01
	UsageTranscript  uint32 = 0x02
	UsageInputRecord uint32 = 0x03
	UsageTypeMask    uint32 = 0x0f
	UsageTextMode    uint32 = 0x100
	UsageBinaryMode  uint32 = 0x000
)

// Seek modes.
const (
	SeekStart   uint32 = 0
	SeekCurrent uint32 = 1
	SeekEnd     uint32 = 2
)

// Styles.
const (
	StyleNormal uint32 = iota
	StyleEmphasized
	StylePreformatted
	StyleHeader
	StyleSubheader
	StyleAlert
	StyleNote
	StyleBlockQuote
	StyleInput
	StyleUser1
	StyleUser2
	StyleCount
)

// Special key codes.
const (
	KeyUnknown  uint32 = 0xffffffff
	KeyLeft     uint32 = 0xfffffffe
	KeyRight    uint32 = 0xfffffffd
	KeyUp       uint32 = 0xfffffffc
	KeyDown     uint32 = 0xfffffffb
	KeyReturn   uint32 = 0xfffffffa
	KeyDelete   uint32 = 0xfffffff9
	KeyEscape   uint32 = 0xfffffff8
	KeyTab      uint32 = 0xfffffff7
	KeyPageUp   uint32 = 0xfffffff6
	KeyPageDown uint32 = 0xfffffff5
	KeyHome     uint32 = 0xfffffff4
	KeyEnd      uint32 = 0xfffffff3
	KeyFunc1    uint32 = 0xfffffff2
	KeyFunc12   uint32 = 0xffffffe7
)

// Gestalt selectors.
const (
	GestaltVersion              uint32 = 0
	GestaltCharInput            uint32 = 1
	GestaltLineInput            uint32 = 2
	GestaltCharOutput           uint32 = 3
	GestaltMouseInput           uint32 = 4
	GestaltTimer                uint32 = 5
	GestaltGraphics             uint32 = 6
	GestaltDrawImage            uint32 = 7
	GestaltSound                uint32 = 8
	GestaltSoundVolume          uint32 = 9
	GestaltSoundNotify          uint32 = 10
	GestaltHyperlinks           uint32 = 11
	GestaltHyperlinkInput       uint32 = 12
	GestaltSoundMusic           uint32 = 13
	GestaltGraphicsTransparency uint32 = 14
	GestaltUnicode              uint32 = 15
	GestaltUnicodeNorm          uint32 = 16
	GestaltLineInputEcho        uint32 = 17
	GestaltLineTerminators      uint32 = 18
	GestaltLineTerminatorKey    uint32 = 19
	GestaltDateTime             uint32 = 20
	GestaltSound2               uint32 = 21
	GestaltResourceStream       uint32 = 22
)

// Values returned for GestaltCharOutput.
const (
	CharOutputCannotPrint uint32 = 0
	CharOutputApproxPrint uint32 = 1
	CharOutputExactPrint  uint32 = 2
)

// Version is the Glk API version implemented by this package: 0.7.5.
const Version uint32 = 0x00070500
