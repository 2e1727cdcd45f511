// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package registry

import (
	"fmt"
	"slices"
	"time"
)

// Case is one boundary condition check: a single syscall invoked with
// synthesized arguments after an ordered list of setup steps.
// A case must not be modified after Register: Cases and Lookup of a frozen
// Registry share it between workers. Select hands out clones.
type Case struct {
	ID    string
	OS    string
	Title string
	Call  *Call
	Setup []*SetupStep
	// Teardown steps run after the call whatever it returned, failures are ignored.
	// They undo setup that outlives the child (e.g. mounts outside a mount namespace).
	Teardown []*SetupStep
	// Expect is what a fixed kernel does with the call.
	Expect Expect
	// Exclusive lists resources (e.g. "mount:/mnt") that no other
	// concurrently running case may touch.
	Exclusive []string
	// Privileged cases need root and do destructive mount/device operations.
	Privileged bool
	// Timeout overrides the run-wide per-case timeout.
	Timeout time.Duration
	Refs    Refs
}

// Refs records where the case comes from.
type Refs struct {
	CVE      []string `json:"cve,omitempty" yaml:"cve,omitempty"`
	Reported string   `json:"reported,omitempty" yaml:"reported,omitempty"`
	Fixed    []string `json:"fixed,omitempty" yaml:"fixed,omitempty"`
	// Panic is the message an unfixed kernel printed.
	Panic string `json:"panic,omitempty" yaml:"panic,omitempty"`
}

type Expect int

const (
	// ExpectError: the call must fail with an errno.
	ExpectError Expect = iota
	// ExpectSuccess: the call must succeed.
	ExpectSuccess
	// ExpectNoCrash: any return is fine as long as the child survives.
	ExpectNoCrash
)

func (e Expect) String() string {
	switch e {
	case ExpectError:
		return "error"
	case ExpectSuccess:
		return "success"
	case ExpectNoCrash:
		return "no-crash"
	}
	return fmt.Sprintf("Expect(%d)", int(e))
}

func ParseExpect(s string) (Expect, error) {
	for e := ExpectError; e <= ExpectNoCrash; e++ {
		if e.String() == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown expectation %q", s)
}

// Call is a syscall with its parameter descriptors.
type Call struct {
	Name string
	// NR is resolved from the target syscall table on registration.
	NR   uint64
	Args []*Param
	// Ret names the resource the call produces (setup calls only).
	Ret string
}

type StepKind int

const (
	StepMkdir StepKind = iota
	StepWriteFile
	StepCall
)

func (k StepKind) String() string {
	return [...]string{"mkdir", "write-file", "call"}[k]
}

// SetupStep is a precondition established by the child before the tested call.
// Paths are relative to the child working directory unless absolute.
type SetupStep struct {
	Kind StepKind
	Path string
	Data []byte
	Call *Call
}

func Mkdir(path string) *SetupStep {
	return &SetupStep{Kind: StepMkdir, Path: path}
}

func WriteFile(path string, data []byte) *SetupStep {
	return &SetupStep{Kind: StepWriteFile, Path: path, Data: data}
}

// SetupCall makes a setup step out of a call, ret names the produced resource (may be empty).
func SetupCall(ret, name string, args ...*Param) *SetupStep {
	return &SetupStep{Kind: StepCall, Call: &Call{Name: name, Args: args, Ret: ret}}
}

// Clone returns a deep copy of the case.
func (c *Case) Clone() *Case {
	res := *c
	res.Call = c.Call.clone()
	res.Setup = cloneSteps(c.Setup)
	res.Teardown = cloneSteps(c.Teardown)
	res.Exclusive = slices.Clone(c.Exclusive)
	res.Refs.CVE = slices.Clone(c.Refs.CVE)
	res.Refs.Fixed = slices.Clone(c.Refs.Fixed)
	return &res
}

func (call *Call) clone() *Call {
	if call == nil {
		return nil
	}
	res := *call
	res.Args = cloneParams(call.Args)
	return &res
}

func cloneSteps(steps []*SetupStep) []*SetupStep {
	if steps == nil {
		return nil
	}
	res := make([]*SetupStep, len(steps))
	for i, step := range steps {
		cp := *step
		cp.Data = slices.Clone(step.Data)
		cp.Call = step.Call.clone()
		res[i] = &cp
	}
	return res
}

func (step *SetupStep) String() string {
	switch step.Kind {
	case StepCall:
		return fmt.Sprintf("call %v", step.Call.Name)
	default:
		return fmt.Sprintf("%v %v", step.Kind, step.Path)
	}
}
