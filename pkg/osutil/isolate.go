// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// TerminationReport describes how a supervised child finished.
type TerminationReport struct {
	Output []byte
	// Exited is set if the process called exit, ExitCode is then valid.
	Exited   bool
	ExitCode int
	// Signal is the signal that terminated the process (0 if it exited).
	Signal syscall.Signal
	// TimedOut is set if the supervisor killed the process because of the timeout.
	TimedOut bool
	// Canceled is set if the supervisor killed the process because the run was canceled.
	Canceled bool
	Start    time.Time
	End      time.Time
}

func (rep *TerminationReport) Duration() time.Duration {
	return rep.End.Sub(rep.Start)
}

func (rep *TerminationReport) String() string {
	switch {
	case rep.TimedOut:
		return fmt.Sprintf("timed out after %v", rep.Duration().Round(time.Millisecond))
	case rep.Canceled:
		return "canceled"
	case rep.Signal != 0:
		return fmt.Sprintf("killed by signal %v (%d)", rep.Signal, int(rep.Signal))
	default:
		return fmt.Sprintf("exit status %v", rep.ExitCode)
	}
}

const (
	// MaxOutput bounds the output kept per child, the rest is dropped.
	MaxOutput = 1 << 20
	// waitDelay bounds how long we wait for output pipes held open by grandchildren.
	waitDelay = time.Second
)

// RunIsolated runs cmd in its own process group with the given timeout.
// On timeout or ctx cancellation the whole process group is killed,
// and it is killed again after the child exits to reap anything it left behind.
// Returned error means the child could not be started or waited for,
// abnormal child termination is reported in TerminationReport.
func RunIsolated(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) (*TerminationReport, error) {
	output := &limitedBuffer{max: MaxOutput}
	if cmd.Stdout == nil {
		cmd.Stdout = output
	}
	if cmd.Stderr == nil {
		cmd.Stderr = output
	}
	cmd.WaitDelay = waitDelay
	setPdeathsig(cmd, true)
	rep := &TerminationReport{Start: time.Now()}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %v %+v: %w", cmd.Path, cmd.Args, err)
	}
	done := make(chan struct{})
	reason := make(chan string, 1)
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			reason <- "timeout"
		case <-ctx.Done():
			reason <- "canceled"
		case <-done:
			reason <- ""
			return
		}
		killPgroup(cmd)
		cmd.Process.Kill()
	}()
	err := cmd.Wait()
	close(done)
	why := <-reason
	killPgroup(cmd)
	rep.End = time.Now()
	rep.Output = output.Bytes()
	rep.TimedOut = why == "timeout"
	rep.Canceled = why == "canceled"
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
		return rep, fmt.Errorf("failed to wait for %v: %w", cmd.Path, err)
	}
	if status, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		rep.Signal = status.Signal()
	} else {
		rep.Exited = true
		rep.ExitCode = cmd.ProcessState.ExitCode()
	}
	return rep, nil
}

// limitedBuffer is a concurrency-safe buffer that keeps the first max bytes.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - b.buf.Len(); room > 0 {
		b.buf.Write(data[:min(room, len(data))])
	}
	return len(data), nil
}

func (b *limitedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte{}, b.buf.Bytes()...)
}
