// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Sandbox puts cmd into fresh mount, IPC and UTS namespaces
// so that mounts done by a case do not leak into the host.
// Requires CAP_SYS_ADMIN.
func Sandbox(cmd *exec.Cmd) error {
	attr := sysProcAttr(cmd)
	attr.Cloneflags |= unix.CLONE_NEWNS | unix.CLONE_NEWIPC | unix.CLONE_NEWUTS
	return nil
}

// SandboxSupported says if Sandbox creates namespaces on this platform.
func SandboxSupported() bool {
	return true
}

// MakeMountsPrivate stops mount propagation from the current mount namespace.
// Executed by the child right after it enters a new mount namespace.
func MakeMountsPrivate() error {
	return unix.Mount("none", "/", "", unix.MS_REC|unix.MS_PRIVATE, "")
}

func setPdeathsig(cmd *exec.Cmd, hardKill bool) {
	attr := sysProcAttr(cmd)
	attr.Setpgid = true
	if hardKill {
		attr.Pdeathsig = syscall.SIGKILL
	} else {
		attr.Pdeathsig = syscall.SIGTERM
	}
}
