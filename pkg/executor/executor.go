// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package executor is the child side of an invocation. The harness binary
// re-executes itself as "executor", the child establishes the setup steps of
// one case and issues the tested syscall, reporting progress on stdout with
// "### " protocol lines that the supervisor parses with ParseOutput.
package executor

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/syzbound/syzbound/pkg/argsynth"
	"github.com/syzbound/syzbound/pkg/osutil"
	"github.com/syzbound/syzbound/pkg/registry"
)

// Subcommand is the first argument that switches the harness binary into executor mode.
const Subcommand = "executor"

// Args returns command line arguments for executing case c with the given values.
func Args(c *registry.Case, vals []argsynth.Value, sandbox bool) []string {
	args := []string{Subcommand, "-case", c.ID, "-args", argsynth.Format(vals)}
	if sandbox {
		args = append(args, "-sandbox")
	}
	return args
}

// Main runs the executor with args (without the subcommand) and returns the exit status.
func Main(reg *registry.Registry, args []string, out io.Writer) int {
	flags := flag.NewFlagSet(Subcommand, flag.ContinueOnError)
	flags.SetOutput(out)
	var (
		flagCase    = flags.String("case", "", "case id")
		flagArgs    = flags.String("args", "", "comma-separated values of int params")
		flagSandbox = flags.Bool("sandbox", false, "make mounts private (child is in a new mount namespace)")
	)
	if err := flags.Parse(args); err != nil {
		return StatusFail
	}
	c := reg.Lookup(*flagCase)
	if c == nil {
		fmt.Fprintf(out, "unknown case %q\n", *flagCase)
		return StatusFail
	}
	vals, err := argsynth.Parse(c, *flagArgs)
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return StatusFail
	}
	if *flagSandbox {
		if err := osutil.MakeMountsPrivate(); err != nil {
			fmt.Fprintf(out, "failed to make mounts private: %v\n", err)
			return StatusFail
		}
	}
	return Execute(c, vals, out)
}

// Execute runs setup steps, the call and teardown steps of c in the current process.
// Teardown also runs after a failed setup, steps that need a resource the setup
// did not produce fail and are skipped.
func Execute(c *registry.Case, vals []argsynth.Value, out io.Writer) int {
	resources := make(map[string]uint64)
	defer teardown(c, resources, out)
	for i, step := range c.Setup {
		if err := setup(step, resources); err != nil {
			writeSetupErr(out, i, errnoOf(err), strings.ReplaceAll(err.Error(), "\n", " "))
			return StatusSetupFailed
		}
		writeSetupOK(out, i)
	}
	res, errno, err := call(c.Call, vals, resources)
	if err != nil {
		fmt.Fprintf(out, "failed to prepare %v: %v\n", c.Call.Name, err)
		return StatusFail
	}
	writeCall(out, c.Call.Name, res, errno)
	return StatusOK
}

func teardown(c *registry.Case, resources map[string]uint64, out io.Writer) {
	for i, step := range c.Teardown {
		if err := setup(step, resources); err != nil {
			fmt.Fprintf(out, "teardown step %v (%v) failed: %v\n", i, step, err)
		}
	}
}

func setup(step *registry.SetupStep, resources map[string]uint64) error {
	switch step.Kind {
	case registry.StepMkdir:
		return os.MkdirAll(step.Path, osutil.DefaultDirPerm)
	case registry.StepWriteFile:
		if err := osutil.MkdirAll(filepath.Dir(step.Path)); err != nil {
			return err
		}
		return osutil.WriteFile(step.Path, step.Data)
	case registry.StepCall:
		vals, err := argsynth.SynthesizeCall(step.Call)
		if err != nil {
			return err
		}
		res, errno, err := call(step.Call, vals, resources)
		if err != nil {
			return err
		}
		if errno != 0 {
			return fmt.Errorf("%v: %w", step.Call.Name, errno)
		}
		if step.Call.Ret != "" {
			resources[step.Call.Ret] = res
		}
		return nil
	}
	return fmt.Errorf("unknown setup step %v", step.Kind)
}

func call(c *registry.Call, vals []argsynth.Value, resources map[string]uint64) (uint64, syscall.Errno, error) {
	b := &builder{
		arena:     new(arena),
		vals:      vals,
		resources: resources,
	}
	args, err := b.args(c.Args)
	if err != nil {
		return 0, 0, err
	}
	if err := b.arena.materialize(); err != nil {
		return 0, 0, err
	}
	res, errno := doSyscall(c.NR, b.arena.resolve(args))
	return res, errno, nil
}

func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EINVAL
}
