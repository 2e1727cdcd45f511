// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build unix && !openbsd

package executor

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func doSyscall(nr uint64, args []uint64) (uint64, syscall.Errno) {
	var a [6]uintptr
	for i, v := range args {
		a[i] = uintptr(v)
	}
	r1, _, errno := unix.Syscall6(uintptr(nr), a[0], a[1], a[2], a[3], a[4], a[5])
	return uint64(r1), errno
}
