// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build unix && !linux

package osutil

import (
	"os/exec"
)

// Sandbox is a no-op: the child still gets its own process and process group,
// but there are no namespaces to put it in.
func Sandbox(cmd *exec.Cmd) error {
	return nil
}

func SandboxSupported() bool {
	return false
}

func MakeMountsPrivate() error {
	return nil
}

// There is no PDEATHSIG outside of linux, the process group kill in RunIsolated
// is the only guarantee against orphans.
func setPdeathsig(cmd *exec.Cmd, hardKill bool) {
	sysProcAttr(cmd).Setpgid = true
}
