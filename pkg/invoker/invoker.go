// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package invoker runs one case in a supervised executor child and collects
// the raw result: call return value and errno, terminating signal, timeout.
// Crashes, hangs and failed setup are results, not errors. A child that could
// not be started is a failed setup too; Invoke returns an error only when the
// harness itself ran out of resources.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/syzbound/syzbound/pkg/argsynth"
	"github.com/syzbound/syzbound/pkg/executor"
	"github.com/syzbound/syzbound/pkg/log"
	"github.com/syzbound/syzbound/pkg/osutil"
	"github.com/syzbound/syzbound/pkg/registry"
	"golang.org/x/sys/unix"
)

// ErrHarnessResourceExhausted means the supervisor could not fork,
// create a temp dir or open pipes because it ran out of resources.
var ErrHarnessResourceExhausted = errors.New("harness resource exhausted")

// StepStart is the SetupError step of a child that could not be started.
const StepStart = -1

// SetupError describes a setup step of a case that failed in the child.
type SetupError struct {
	Step  int
	Desc  string
	Errno syscall.Errno
	Msg   string
}

func (err *SetupError) Error() string {
	if err.Step == StepStart {
		return fmt.Sprintf("%v: %v", err.Desc, err.Msg)
	}
	return fmt.Sprintf("setup step %v (%v) failed: %v", err.Step, err.Desc, err.Msg)
}

// RawResult is everything observed about one invocation.
type RawResult struct {
	CaseID string
	Args   []argsynth.Value
	Start  time.Time
	End    time.Time
	// Called is set if the call returned and its result was reported.
	Called bool
	Ret    uint64
	Errno  syscall.Errno
	// Signal terminated the child, or was reported by the Go runtime as a fault.
	Signal   syscall.Signal
	Exited   bool
	ExitCode int
	TimedOut bool
	Canceled bool
	Setup    *SetupError
	// ExecutorFailure is set if the child failed for a reason other than the call
	// (bad arguments, unparsable output, unexpected exit status).
	ExecutorFailure string
	Output          []byte
}

func (raw *RawResult) Duration() time.Duration {
	return raw.End.Sub(raw.Start)
}

// Isolator runs a command so that nothing it does outlives it.
type Isolator interface {
	RunIsolated(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) (*osutil.TerminationReport, error)
}

// ProcessIsolator runs the child in its own process group.
type ProcessIsolator struct{}

func (iso *ProcessIsolator) RunIsolated(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) (
	*osutil.TerminationReport, error) {
	return osutil.RunIsolated(ctx, cmd, timeout)
}

type Invoker struct {
	// Bin is the binary that runs the executor subcommand.
	Bin string
	// Env is appended to the environment of the child.
	Env []string
	// Dir is where per-invocation working directories are created.
	Dir     string
	Timeout time.Duration
	// Sandbox puts every child into fresh namespaces.
	Sandbox bool
	// IsolateMounts puts children of privileged and exclusive cases into
	// a fresh mount namespace even without Sandbox.
	IsolateMounts bool
	Isolator      Isolator
}

func New(bin, dir string, timeout time.Duration, sandbox bool) *Invoker {
	return &Invoker{
		Bin:           bin,
		Dir:           dir,
		Timeout:       timeout,
		Sandbox:       sandbox,
		IsolateMounts: osutil.SandboxSupported() && osutil.IsRoot(),
		Isolator:      &ProcessIsolator{},
	}
}

// sandboxed says if the child of c runs in fresh namespaces.
func (inv *Invoker) sandboxed(c *registry.Case) bool {
	return inv.Sandbox || inv.IsolateMounts && (c.Privileged || len(c.Exclusive) != 0)
}

// Invoke runs setup steps and the call of c with the given values in a child.
func (inv *Invoker) Invoke(ctx context.Context, c *registry.Case, vals []argsynth.Value) (*RawResult, error) {
	start := time.Now()
	dir, err := os.MkdirTemp(inv.Dir, "case-")
	if err != nil {
		return inv.startFailed(c, vals, start, "failed to create case dir", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Logf(0, "%v: failed to remove %v: %v", c.ID, dir, err)
		}
	}()
	sandbox := inv.sandboxed(c)
	cmd := exec.Command(inv.Bin, executor.Args(c, vals, sandbox)...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), inv.Env...)
	if sandbox {
		if err := osutil.Sandbox(cmd); err != nil {
			return inv.startFailed(c, vals, start, "failed to sandbox executor", err)
		}
	}
	timeout := inv.Timeout
	if c.Timeout != 0 {
		timeout = c.Timeout
	}
	log.Logf(2, "%v: executing %v %v", c.ID, c.Call.Name, argsynth.Format(vals))
	rep, err := inv.Isolator.RunIsolated(ctx, cmd, timeout)
	if err != nil {
		return inv.startFailed(c, vals, start, "failed to run executor", err)
	}
	raw := &RawResult{
		CaseID:   c.ID,
		Args:     vals,
		Start:    rep.Start,
		End:      rep.End,
		Signal:   rep.Signal,
		Exited:   rep.Exited,
		ExitCode: rep.ExitCode,
		TimedOut: rep.TimedOut,
		Canceled: rep.Canceled,
		Output:   rep.Output,
	}
	parseResult(c, raw)
	log.Logf(2, "%v: %v", c.ID, rep)
	return raw, nil
}

// startFailed turns a failure to start the child into a failed setup of c.
// Only exhaustion of the harness resources is returned as an error.
func (inv *Invoker) startFailed(c *registry.Case, vals []argsynth.Value, start time.Time, what string, err error) (
	*RawResult, error) {
	if exhausted(err) {
		return nil, fmt.Errorf("%w: %v: %w", ErrHarnessResourceExhausted, what, err)
	}
	log.Logf(0, "%v: %v: %v", c.ID, what, err)
	raw := &RawResult{
		CaseID: c.ID,
		Args:   vals,
		Start:  start,
		End:    time.Now(),
		Setup: &SetupError{
			Step: StepStart,
			Desc: what,
			Msg:  err.Error(),
		},
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		raw.Setup.Errno = errno
	}
	return raw, nil
}

func parseResult(c *registry.Case, raw *RawResult) {
	out, err := executor.ParseOutput(raw.Output)
	if err != nil {
		raw.ExecutorFailure = fmt.Sprintf("bad executor output: %v", err)
		return
	}
	if raw.Signal == 0 && out.Fault != "" {
		raw.Signal = unix.SignalNum(out.Fault)
	}
	if raw.TimedOut || raw.Canceled || raw.Signal != 0 {
		// The call result is only meaningful if the child exited on its own.
		return
	}
	switch raw.ExitCode {
	case executor.StatusOK:
		if !out.Called {
			raw.ExecutorFailure = "executor exited without call result"
			return
		}
		raw.Called = true
		raw.Ret = out.Res
		raw.Errno = out.Errno
	case executor.StatusSetupFailed:
		step := out.FailedStep()
		if step == nil || step.Step >= len(c.Setup) {
			raw.ExecutorFailure = "executor reported setup failure without details"
			return
		}
		raw.Setup = &SetupError{
			Step:  step.Step,
			Desc:  c.Setup[step.Step].String(),
			Errno: step.Errno,
			Msg:   step.Msg,
		}
	default:
		raw.ExecutorFailure = fmt.Sprintf("executor failed with exit status %v", raw.ExitCode)
	}
}

var exhaustionErrnos = []syscall.Errno{
	syscall.EAGAIN,
	syscall.ENOMEM,
	syscall.EMFILE,
	syscall.ENFILE,
	syscall.ENOSPC,
}

func exhausted(err error) bool {
	for _, errno := range exhaustionErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
