// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package executor

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// OpenBSD mmap takes 7 arguments (there is a pad before the offset).
func doSyscall(nr uint64, args []uint64) (uint64, syscall.Errno) {
	var a [9]uintptr
	for i, v := range args {
		a[i] = uintptr(v)
	}
	r1, _, errno := unix.Syscall9(uintptr(nr), a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7], a[8])
	return uint64(r1), errno
}
