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
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Fileref is a reference to a file on the host file system.
type Fileref struct {
	id, rock uint32
	usage    uint32
	path     string
	temp     bool
}

// ID returns the fileref's opaque identifier.
func (f *Fileref) ID() uint32 { return f.id }

// Rock returns the fileref's rock.
func (f *Fileref) Rock() uint32 { return f.rock }

// Path returns the host file name.
func (f *Fileref) Path() string { return f.path }

// Usage returns the usage flags given at creation.
func (f *Fileref) Usage() uint32 { return f.usage }

// Fileref returns the fileref with the given id.
func (l *Library) Fileref(id uint32) (*Fileref, bool) {
	for _, f := range l.frefs {
		if f.id == id {
			return f, true
		}
	}
	return nil, false
}

// IterateFilerefs returns the fileref following f, or the first one if f is
// nil.
func (l *Library) IterateFilerefs(f *Fileref) *Fileref {
	return iterate(l.frefs, f)
}

func (l *Library) newFileref(usage, rock uint32, path string) *Fileref {
	f := &Fileref{id: l.newID(classFileref), rock: rock, usage: usage, path: path}
	l.frefs = append(l.frefs, f)
	l.log.Debugf("fileref %d: %s", f.id, path)
	return f
}

func suffix(usage uint32) string {
	switch usage & UsageTypeMask {
	case UsageSavedGame:
		return ".glksave"
	case UsageData:
		return ".glkdata"
	}
	return ".txt"
}

// sanitize turns a story supplied name into a safe file name: everything
// from the first dot is dropped, as are path separators and other special
// characters.
func sanitize(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`/\<>:|?*"`, r) {
			return -1
		}
		return r
	}, name)
	if name == "" {
		name = "null"
	}
	return name
}

// CreateTemp creates a reference to a new temporary file.
func (l *Library) CreateTemp(usage, rock uint32) (*Fileref, error) {
	tf, err := os.CreateTemp("", "glk")
	if err != nil {
		return nil, errors.Wrap(err, "glk")
	}
	tf.Close()
	f := l.newFileref(usage, rock, tf.Name())
	f.temp = true
	return f, nil
}

// CreateByName creates a reference to a named file in the library's file
// directory.
func (l *Library) CreateByName(usage uint32, name string, rock uint32) *Fileref {
	return l.newFileref(usage, rock, filepath.Join(l.dir, sanitize(name)+suffix(usage)))
}

// CreateByPrompt asks the screen for a file name. It returns nil if the
// player cancels.
func (l *Library) CreateByPrompt(usage, mode, rock uint32) (*Fileref, error) {
	name, err := l.screen.PromptFile(usage, mode)
	if err != nil {
		return nil, errors.Wrap(err, "glk: prompt")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	if filepath.Ext(name) == "" {
		name += suffix(usage)
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(l.dir, name)
	}
	return l.newFileref(usage, rock, name), nil
}

// CreateFromFileref creates a new reference to the file of f with a
// different usage.
func (l *Library) CreateFromFileref(usage uint32, f *Fileref, rock uint32) *Fileref {
	return l.newFileref(usage, rock, f.path)
}

// DestroyFileref releases f. The file itself is left alone unless it was
// created by CreateTemp.
func (l *Library) DestroyFileref(f *Fileref) {
	for i, o := range l.frefs {
		if o == f {
			l.frefs = append(l.frefs[:i], l.frefs[i+1:]...)
			break
		}
	}
	if f.temp {
		os.Remove(f.path)
	}
}

// DeleteFile deletes the file referenced by f.
func (l *Library) DeleteFile(f *Fileref) error {
	return errors.Wrap(os.Remove(f.path), "glk")
}

// FileExists reports whether the file referenced by f exists.
func (l *Library) FileExists(f *Fileref) bool {
	_, err := os.Stat(f.path)
	return err == nil
}
