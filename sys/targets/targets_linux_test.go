// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

// The hardcoded tables must agree with the host kernel headers.
func TestHostTable(t *testing.T) {
	target := Host()
	if target == nil {
		t.Skip("host arch is not described")
	}
	want := map[string]uint64{
		"read":            unix.SYS_READ,
		"write":           unix.SYS_WRITE,
		"close":           unix.SYS_CLOSE,
		"mmap":            unix.SYS_MMAP,
		"munmap":          unix.SYS_MUNMAP,
		"nanosleep":       unix.SYS_NANOSLEEP,
		"getpid":          unix.SYS_GETPID,
		"kill":            unix.SYS_KILL,
		"mount":           unix.SYS_MOUNT,
		"umount2":         unix.SYS_UMOUNT2,
		"futex":           unix.SYS_FUTEX,
		"getdents64":      unix.SYS_GETDENTS64,
		"clock_nanosleep": unix.SYS_CLOCK_NANOSLEEP,
		"epoll_ctl":       unix.SYS_EPOLL_CTL,
		"openat":          unix.SYS_OPENAT,
		"mkdirat":         unix.SYS_MKDIRAT,
		"mknodat":         unix.SYS_MKNODAT,
		"epoll_create1":   unix.SYS_EPOLL_CREATE1,
	}
	assert.Equal(t, want, target.Syscalls)
	consts := map[string]uint64{
		"O_CREAT":       unix.O_CREAT,
		"O_DIRECTORY":   unix.O_DIRECTORY,
		"MAP_ANONYMOUS": unix.MAP_ANONYMOUS,
		"MAP_PRIVATE":   unix.MAP_PRIVATE,
		"S_IFBLK":       unix.S_IFBLK,
		"EPOLL_CTL_ADD": unix.EPOLL_CTL_ADD,
		"MNT_FORCE":     unix.MNT_FORCE,
		"MNT_DETACH":    unix.MNT_DETACH,
	}
	for name, val := range consts {
		assert.Equal(t, val, target.Const(name), name)
	}
	atFdcwd := int64(unix.AT_FDCWD)
	assert.Equal(t, uint64(atFdcwd), target.Const("AT_FDCWD"))
}
