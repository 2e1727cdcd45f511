// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package classify maps raw invocation results to outcome classes.
package classify

import (
	"fmt"

	"github.com/syzbound/syzbound/pkg/invoker"
	"github.com/syzbound/syzbound/pkg/registry"
)

type Class int

const (
	// ErrorReturned: the call failed with an errno, the kernel validated the input.
	ErrorReturned Class = iota
	// Succeeded: the call succeeded and the case expected it to.
	Succeeded
	UnexpectedSuccess
	UnexpectedError
	// Crashed: the child was terminated by a signal or died without a result.
	Crashed
	TimedOut
	SetupFailed
	// NotRun: the run was aborted before the case finished.
	NotRun
	classCount
)

var classNames = [classCount]string{
	ErrorReturned:     "ERROR_RETURNED",
	Succeeded:         "SUCCEEDED",
	UnexpectedSuccess: "UNEXPECTED_SUCCESS",
	UnexpectedError:   "UNEXPECTED_ERROR",
	Crashed:           "CRASHED",
	TimedOut:          "TIMED_OUT",
	SetupFailed:       "SETUP_FAILED",
	NotRun:            "NOT_RUN",
}

func (c Class) String() string {
	if c < 0 || c >= classCount {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return classNames[c]
}

func (c Class) MarshalText() ([]byte, error) {
	if c < 0 || c >= classCount {
		return nil, fmt.Errorf("bad class %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Class) UnmarshalText(text []byte) error {
	for i, name := range classNames {
		if name == string(text) {
			*c = Class(i)
			return nil
		}
	}
	return fmt.Errorf("unknown class %q", text)
}

// Classes returns all classes in report order.
func Classes() []Class {
	res := make([]Class, classCount)
	for i := range res {
		res[i] = Class(i)
	}
	return res
}

// Pass says if the checked defect is absent.
func Pass(c Class) bool {
	return c == ErrorReturned || c == Succeeded
}

// Classify is a pure function of the raw result and the case expectation.
func Classify(raw *invoker.RawResult, expect registry.Expect) Class {
	switch {
	case raw.Canceled:
		return NotRun
	case raw.Setup != nil:
		return SetupFailed
	case raw.TimedOut:
		return TimedOut
	case raw.Signal != 0, raw.ExecutorFailure != "", !raw.Called:
		return Crashed
	}
	failed := raw.Errno != 0
	switch expect {
	case registry.ExpectSuccess:
		if failed {
			return UnexpectedError
		}
		return Succeeded
	case registry.ExpectNoCrash:
		if failed {
			return ErrorReturned
		}
		return Succeeded
	default:
		if failed {
			return ErrorReturned
		}
		return UnexpectedSuccess
	}
}
