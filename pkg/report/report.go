// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package report aggregates per-case outcomes of a run into a report,
// renders it and extracts kernel crash titles from outputs.
package report

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/syzbound/syzbound/pkg/argsynth"
	"github.com/syzbound/syzbound/pkg/classify"
	"github.com/syzbound/syzbound/pkg/invoker"
	"github.com/syzbound/syzbound/pkg/registry"
	"golang.org/x/sys/unix"
)

// Outcome is the immutable result of one case.
type Outcome struct {
	ID         string         `json:"id" yaml:"id"`
	Title      string         `json:"title,omitempty" yaml:"title,omitempty"`
	Call       string         `json:"call" yaml:"call"`
	Expect     string         `json:"expect" yaml:"expect"`
	Class      classify.Class `json:"class" yaml:"class"`
	Pass       bool           `json:"pass" yaml:"pass"`
	Args       []string       `json:"args,omitempty" yaml:"args,omitempty"`
	ArgsHash   string         `json:"args_hash,omitempty" yaml:"args_hash,omitempty"`
	Raw        *RawInfo       `json:"raw,omitempty" yaml:"raw,omitempty"`
	SetupError string         `json:"setup_error,omitempty" yaml:"setup_error,omitempty"`
	CrashTitle string         `json:"crash_title,omitempty" yaml:"crash_title,omitempty"`
	CrashLog   string         `json:"crash_log,omitempty" yaml:"crash_log,omitempty"`
	// Reason explains a NOT_RUN outcome.
	Reason   string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Start    time.Time      `json:"start,omitempty" yaml:"start,omitempty"`
	Duration time.Duration  `json:"duration,omitempty" yaml:"duration,omitempty"`
	Refs     *registry.Refs `json:"refs,omitempty" yaml:"refs,omitempty"`
	Output   []byte         `json:"-" yaml:"-"`
}

// RawInfo is the exit information of the child.
type RawInfo struct {
	Ret             string `json:"ret,omitempty" yaml:"ret,omitempty"`
	Errno           int    `json:"errno,omitempty" yaml:"errno,omitempty"`
	ErrnoName       string `json:"errno_name,omitempty" yaml:"errno_name,omitempty"`
	Signal          int    `json:"signal,omitempty" yaml:"signal,omitempty"`
	SignalName      string `json:"signal_name,omitempty" yaml:"signal_name,omitempty"`
	Exited          bool   `json:"exited" yaml:"exited"`
	ExitCode        int    `json:"exit_code" yaml:"exit_code"`
	TimedOut        bool   `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`
	ExecutorFailure string `json:"executor_failure,omitempty" yaml:"executor_failure,omitempty"`
}

func NewOutcome(c *registry.Case, raw *invoker.RawResult, class classify.Class) *Outcome {
	o := newOutcome(c, class)
	o.Start = raw.Start
	o.Duration = raw.Duration()
	o.Output = raw.Output
	for _, v := range raw.Args {
		o.Args = append(o.Args, v.String())
	}
	if len(raw.Args) != 0 {
		o.ArgsHash = argsynth.Signature(raw.Args).String()
	}
	if raw.Setup != nil {
		o.SetupError = raw.Setup.Error()
	}
	info := &RawInfo{
		Exited:          raw.Exited,
		ExitCode:        raw.ExitCode,
		TimedOut:        raw.TimedOut,
		ExecutorFailure: raw.ExecutorFailure,
	}
	if raw.Called {
		info.Ret = fmt.Sprintf("%#x", raw.Ret)
		info.Errno = int(raw.Errno)
		if raw.Errno != 0 {
			info.ErrnoName = unix.ErrnoName(raw.Errno)
		}
	}
	if raw.Signal != 0 {
		info.Signal = int(raw.Signal)
		info.SignalName = unix.SignalName(raw.Signal)
	}
	o.Raw = info
	return o
}

// NotRun returns the outcome of a case that was not executed.
func NotRun(c *registry.Case, reason string) *Outcome {
	o := newOutcome(c, classify.NotRun)
	o.Reason = reason
	return o
}

// SetupFailed returns the outcome of a case whose preconditions could not be
// established before starting the child.
func SetupFailed(c *registry.Case, reason string) *Outcome {
	o := newOutcome(c, classify.SetupFailed)
	o.Reason = reason
	o.SetupError = reason
	return o
}

func newOutcome(c *registry.Case, class classify.Class) *Outcome {
	o := &Outcome{
		ID:     c.ID,
		Title:  c.Title,
		Call:   c.Call.Name,
		Expect: c.Expect.String(),
		Class:  class,
		Pass:   classify.Pass(class),
	}
	if len(c.Refs.CVE) != 0 || c.Refs.Panic != "" || c.Refs.Reported != "" || len(c.Refs.Fixed) != 0 {
		refs := c.Refs
		o.Refs = &refs
	}
	return o
}

// Signal returns the signal that crashed the case (0 if none).
func (o *Outcome) Signal() syscall.Signal {
	if o.Raw == nil {
		return 0
	}
	return syscall.Signal(o.Raw.Signal)
}

func (o *Outcome) String() string {
	res := o.Class.String()
	switch {
	case o.Class == classify.Crashed && o.Raw != nil && o.Raw.SignalName != "":
		res = fmt.Sprintf("%v(%v)", res, o.Raw.SignalName)
	case o.Raw != nil && o.Raw.ErrnoName != "":
		res = fmt.Sprintf("%v(%v)", res, o.Raw.ErrnoName)
	}
	if o.CrashTitle != "" {
		res += ": " + o.CrashTitle
	}
	if o.Reason != "" {
		res += ": " + o.Reason
	}
	return res
}

// Collector accumulates outcomes of the selected cases of a run.
// It is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	runID    string
	target   string
	start    time.Time
	cases    []*registry.Case
	known    map[string]bool
	outcomes map[string]*Outcome
}

func NewCollector(runID, target string, cases []*registry.Case) *Collector {
	known := make(map[string]bool)
	for _, c := range cases {
		known[c.ID] = true
	}
	return &Collector{
		runID:    runID,
		target:   target,
		start:    time.Now(),
		cases:    cases,
		known:    known,
		outcomes: make(map[string]*Outcome),
	}
}

// Add records an outcome, every case gets exactly one.
func (col *Collector) Add(o *Outcome) error {
	col.mu.Lock()
	defer col.mu.Unlock()
	if !col.known[o.ID] {
		return fmt.Errorf("outcome for unknown case %v", o.ID)
	}
	if col.outcomes[o.ID] != nil {
		return fmt.Errorf("duplicate outcome for case %v", o.ID)
	}
	col.outcomes[o.ID] = o
	return nil
}

func (col *Collector) Len() int {
	col.mu.Lock()
	defer col.mu.Unlock()
	return len(col.outcomes)
}

// Report builds the report in case registration order. Cases without an outcome
// are listed as NOT_RUN; if aborted is not empty the run is marked as aborted.
func (col *Collector) Report(aborted string) *Report {
	col.mu.Lock()
	defer col.mu.Unlock()
	rep := &Report{
		RunID:   col.runID,
		Target:  col.target,
		Start:   col.start,
		End:     time.Now(),
		Aborted: aborted,
	}
	counts := make(map[classify.Class]int)
	for _, c := range col.cases {
		o := col.outcomes[c.ID]
		if o == nil {
			reason := aborted
			if reason == "" {
				reason = "not finished"
			}
			o = NotRun(c, reason)
		}
		rep.Results = append(rep.Results, o)
		counts[o.Class]++
		if o.Pass {
			rep.Passed++
		} else {
			rep.Failed++
		}
	}
	for _, class := range classify.Classes() {
		if counts[class] != 0 {
			rep.Counts = append(rep.Counts, ClassCount{Class: class, Count: counts[class]})
		}
	}
	return rep
}

type Report struct {
	RunID   string       `json:"run_id" yaml:"run_id"`
	Target  string       `json:"target" yaml:"target"`
	Start   time.Time    `json:"start" yaml:"start"`
	End     time.Time    `json:"end" yaml:"end"`
	Aborted string       `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	Passed  int          `json:"passed" yaml:"passed"`
	Failed  int          `json:"failed" yaml:"failed"`
	Counts  []ClassCount `json:"counts" yaml:"counts"`
	Results []*Outcome   `json:"results" yaml:"results"`
}

type ClassCount struct {
	Class classify.Class `json:"class" yaml:"class"`
	Count int            `json:"count" yaml:"count"`
}

// OK says if every case passed and the run was not aborted.
func (rep *Report) OK() bool {
	return rep.Aborted == "" && rep.Failed == 0
}

func (rep *Report) Count(class classify.Class) int {
	for _, cc := range rep.Counts {
		if cc.Class == class {
			return cc.Count
		}
	}
	return 0
}

func (rep *Report) Lookup(id string) *Outcome {
	for _, o := range rep.Results {
		if o.ID == id {
			return o
		}
	}
	return nil
}
