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

package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/caarlos0/env/v11"
	"github.com/db47h/glulx/asm"
	"github.com/db47h/glulx/blorb"
	"github.com/db47h/glulx/glk"
	"github.com/db47h/glulx/glk/tui"
	"github.com/db47h/glulx/lang/inform"
	"github.com/db47h/glulx/vm"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
)

// Exit codes.
const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

// config holds the settings that can be given in the environment. Command
// line flags take precedence.
type config struct {
	StackSize uint32 `env:"GLULX_STACK_SIZE"`
	UndoDepth int    `env:"GLULX_UNDO_DEPTH" envDefault:"1"`
	SaveDir   string `env:"GLULX_SAVE_DIR"`
}

type options struct {
	config
	tui      bool
	noRaw    bool
	trace    bool
	stats    bool
	logLevel string
	story    string
}

// parseArgs reads the environment (the process environment if environ is
// nil), then the command line.
func parseArgs(args []string, environ map[string]string, stderr io.Writer) (*options, error) {
	var o options
	if err := env.ParseWithOptions(&o.config, env.Options{Environment: environ}); err != nil {
		return nil, errors.Wrap(err, "environment")
	}

	fs := flag.NewFlagSet("glulxe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: glulxe [flags] story\n\nflags:\n")
		fs.PrintDefaults()
	}
	fs.BoolVar(&o.tui, "tui", false, "use the full screen terminal interface")
	fs.BoolVar(&o.noRaw, "noraw", false, "disable raw terminal IO")
	fs.BoolVar(&o.trace, "trace", false, "log every instruction (implies -loglevel trace)")
	fs.BoolVar(&o.stats, "stats", false, "print VM statistics to stderr upon exit")
	fs.StringVar(&o.logLevel, "loglevel", "off", "diagnostics `level` (trace, debug, info, warn, error, critical, off)")
	stack := fs.Uint("stack", uint(o.StackSize), "stack size in `bytes`, a multiple of 256 (0: use the story's)")
	fs.IntVar(&o.UndoDepth, "undo", o.UndoDepth, "maximum number of undo states")
	fs.StringVar(&o.SaveDir, "dir", o.SaveDir, "`directory` for save and data files")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.StackSize = uint32(*stack)
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("missing story file")
	}
	o.story = fs.Arg(0)
	if o.trace {
		o.logLevel = "trace"
	}
	if _, ok := btclog.LevelFromString(o.logLevel); !ok {
		return nil, errors.Errorf("invalid log level %q", o.logLevel)
	}
	return &o, nil
}

// loadStory returns the Glulx image of the story file name and its
// resources. Blorb files are unwrapped.
func loadStory(name string) ([]byte, glk.Resources, error) {
	b, err := vm.Load(name)
	if err != nil {
		return nil, nil, err
	}
	if !blorb.IsBlorb(b) {
		return b, nil, nil
	}
	f, err := blorb.Parse(b)
	if err != nil {
		return nil, nil, err
	}
	story, err := f.Executable()
	if err != nil {
		return nil, nil, err
	}
	return story, f, nil
}

// loggers returns the loggers for the VM, Glk and the host.
func loggers(w io.Writer, level string) (vmLog, glkLog, hostLog btclog.Logger) {
	lvl, _ := btclog.LevelFromString(level)
	backend := btclog.NewBackend(w)
	vmLog = backend.Logger("VM")
	glkLog = backend.Logger("GLK")
	hostLog = backend.Logger("HOST")
	for _, l := range []btclog.Logger{vmLog, glkLog, hostLog} {
		l.SetLevel(lvl)
	}
	return vmLog, glkLog, hostLog
}

func tracer(log btclog.Logger) func(i *vm.Instance, pc uint32) {
	var b bytes.Buffer
	return func(i *vm.Instance, pc uint32) {
		b.Reset()
		if _, err := asm.Disassemble(i.Mem(), pc, &b); err != nil {
			log.Tracef("%08x\t<%v>", pc, err)
			return
		}
		log.Tracef("%08x\t%s", pc, b.String())
	}
}

// newScreen returns the glk.Screen selected by the options. The returned
// function restores the terminal.
func newScreen(o *options, stdin io.Reader, stdout io.Writer, log btclog.Logger) (glk.Screen, func(), error) {
	if o.tui {
		s, err := tui.New(nil)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
	var (
		raw      bool
		tearDown = func() {}
		topts    []glk.TextOption
	)
	if stdin == os.Stdin && !o.noRaw {
		// raw IO is only needed for char input, fall back to cooked mode if
		// stdin is not a terminal.
		td, err := setRawIO()
		if err != nil {
			log.Debugf("raw IO disabled: %v", err)
		} else {
			raw, tearDown = true, td
		}
	}
	if f, ok := stdout.(*os.File); ok {
		topts = append(topts, glk.ConsoleSize(consoleSize(f)))
	}
	topts = append(topts, glk.RawInput(raw))
	return glk.NewTextScreen(stdin, bufio.NewWriter(stdout), topts...), tearDown, nil
}

func run(args []string, environ map[string]string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseArgs(args, environ, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		fmt.Fprintf(stderr, "glulxe: %v\n", err)
		return exitUsage
	}
	vmLog, glkLog, log := loggers(stderr, o.logLevel)

	story, res, err := loadStory(o.story)
	if err != nil {
		fmt.Fprintf(stderr, "glulxe: %v\n", err)
		return exitUsage
	}
	screen, tearDown, err := newScreen(o, stdin, stdout, log)
	if err != nil {
		fmt.Fprintf(stderr, "glulxe: %v\n", err)
		return exitUsage
	}
	defer tearDown()

	gopts := []glk.Option{glk.Logger(glkLog), glk.Dir(o.SaveDir)}
	if res != nil {
		gopts = append(gopts, glk.WithResources(res))
	}
	l, err := glk.New(screen, gopts...)
	if err != nil {
		screen.Close()
		fmt.Fprintf(stderr, "glulxe: %v\n", err)
		return exitUsage
	}

	reg := metrics.NewRegistry()
	vopts := []vm.Option{
		vm.IO(l),
		vm.Logger(vmLog),
		vm.Metrics(reg),
		vm.StackSize(o.StackSize),
		vm.UndoDepth(o.UndoDepth),
		inform.Accelerate(),
	}
	if o.trace {
		vopts = append(vopts, vm.Tracer(tracer(vmLog)))
	}
	i, err := vm.New(story, vopts...)
	if err != nil {
		l.Close()
		fmt.Fprintf(stderr, "glulxe: %s: %v\n", o.story, err)
		return exitUsage
	}
	h := i.Header()
	log.Infof("%s: glulx %d.%d.%d, %d bytes", o.story, h.Version>>16, h.Version>>8&0xFF, h.Version&0xFF, len(story))
	if !i.Verify() {
		log.Warnf("%s: bad checksum", o.story)
	}

	err = i.Run()
	if o.stats {
		metrics.WriteOnce(reg, stderr)
	}
	if err != nil {
		if log.Level() <= btclog.LevelDebug {
			fmt.Fprintf(stderr, "\n%+v\n", err)
		} else {
			fmt.Fprintf(stderr, "\n%v\n", err)
		}
		return exitFatal
	}
	log.Infof("exit after %d instructions", i.InstructionCount())
	return exitOK
}

func main() {
	os.Exit(run(os.Args[1:], nil, os.Stdin, os.Stdout, os.Stderr))
}
