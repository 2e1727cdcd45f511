// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package test holds cases for the test target, they exercise every kind of
// parameter and setup step but can't be executed.
package test

import (
	. "github.com/syzbound/syzbound/pkg/registry"
	"github.com/syzbound/syzbound/sys/targets"
)

func Cases(target *targets.Target) []*Case {
	flag := target.Const("TEST_FLAG")
	return []*Case{
		{
			ID:     "test-ok",
			Expect: ExpectSuccess,
			Call:   &Call{Name: "test_ok", Args: []*Param{Int("a", 8, Const(flag))}},
		},
		{
			ID: "test-fail",
			Call: &Call{Name: "test_fail", Args: []*Param{
				SInt("fd", 4, Sentinel()),
				Int("u8", 1, Max()),
				SInt("s16", 2, Min()),
			}},
		},
		{
			ID: "test-sleep",
			Call: &Call{Name: "test_hang", Args: []*Param{
				Ptr("tp",
					SInt("tv_sec", 8, MulOverflow(64, true, 100)),
					SInt("tv_nsec", 8, Const(0)),
				),
			}},
		},
		{
			ID: "test-crash",
			Call: &Call{Name: "test_crash", Args: []*Param{
				Int("size", 4, AddOverflow(32, false, 0x1000)),
				Buffer("buf", 64),
			}},
		},
		{
			ID:         "test-mount",
			Privileged: true,
			Exclusive:  []string{"mount:/mnt"},
			Setup:      []*SetupStep{Mkdir("/mnt"), WriteFile("/mnt/file", []byte("data"))},
			Call: &Call{Name: "test_mount", Args: []*Param{
				Str("dir", "/mnt"),
				Int("flags", 4, Max()).Bounded(0, 0xff),
			}},
		},
		{
			ID:         "test-unmount",
			Privileged: true,
			Exclusive:  []string{"mount:/mnt"},
			Setup: []*SetupStep{
				SetupCall("fd", "test_open", Str("path", "/mnt/file"), Int("flags", 4, Const(flag))),
			},
			Call: &Call{Name: "test_unmount", Args: []*Param{
				Resource("fd", "fd").Plus(1),
				Int("flags", 8, Sentinel()),
			}},
		},
	}
}
