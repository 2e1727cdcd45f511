// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package executor

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"syscall"
)

// Exit statuses of the executor child.
const (
	StatusOK          = 0
	StatusFail        = 67
	StatusSetupFailed = 68
)

type StepResult struct {
	Step  int
	OK    bool
	Errno syscall.Errno
	Msg   string
}

// Output is what the supervisor extracts from the child stdout/stderr.
type Output struct {
	Setup []StepResult
	// Called is set if the tested call returned.
	Called bool
	Call   string
	Res    uint64
	Errno  syscall.Errno
	// Fault is the signal name of a Go runtime fault report (e.g. "SIGSEGV").
	Fault string
}

// FailedStep returns the first failed setup step.
func (out *Output) FailedStep() *StepResult {
	for i := range out.Setup {
		if !out.Setup[i].OK {
			return &out.Setup[i]
		}
	}
	return nil
}

var (
	setupRe = regexp.MustCompile(`^### setup step=([0-9]+) (?:ok|errno=([0-9]+)(?: \((.*)\))?)$`)
	callRe  = regexp.MustCompile(`^### call=([^ ]+) res=(0x[0-9a-f]+) errno=([0-9]+)$`)
	faultRe = regexp.MustCompile(`^\[signal (SIG[A-Z0-9]+)`)
)

func writeSetupOK(w io.Writer, step int) {
	fmt.Fprintf(w, "### setup step=%v ok\n", step)
}

func writeSetupErr(w io.Writer, step int, errno syscall.Errno, msg string) {
	fmt.Fprintf(w, "### setup step=%v errno=%v (%v)\n", step, int(errno), msg)
}

func writeCall(w io.Writer, name string, res uint64, errno syscall.Errno) {
	fmt.Fprintf(w, "### call=%v res=%#x errno=%v\n", name, res, int(errno))
}

// ParseOutput extracts protocol lines from child output, other lines are ignored.
func ParseOutput(data []byte) (*Output, error) {
	out := new(Output)
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(nil, len(data)+1)
	for s.Scan() {
		line := s.Text()
		if match := setupRe.FindStringSubmatch(line); match != nil {
			step, _ := strconv.Atoi(match[1])
			res := StepResult{Step: step, OK: match[2] == ""}
			if !res.OK {
				errno, _ := strconv.Atoi(match[2])
				res.Errno = syscall.Errno(errno)
				res.Msg = match[3]
			}
			out.Setup = append(out.Setup, res)
			continue
		}
		if match := callRe.FindStringSubmatch(line); match != nil {
			if out.Called {
				return nil, fmt.Errorf("duplicate call result line: %q", line)
			}
			res, err := strconv.ParseUint(match[2], 0, 64)
			if err != nil {
				return nil, fmt.Errorf("bad call result line %q: %w", line, err)
			}
			errno, _ := strconv.Atoi(match[3])
			out.Called = true
			out.Call = match[1]
			out.Res = res
			out.Errno = syscall.Errno(errno)
			continue
		}
		if match := faultRe.FindStringSubmatch(line); match != nil && out.Fault == "" {
			out.Fault = match[1]
		}
	}
	return out, s.Err()
}
