// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package linux holds boundary cases for the same classes of bugs as the
// openbsd catalog, expressed with linux syscalls. A correct kernel rejects
// all of them with an error.
package linux

import (
	. "github.com/syzbound/syzbound/pkg/registry"
	"github.com/syzbound/syzbound/sys/targets"
)

type arch struct {
	O_RDONLY        uint64
	O_DIRECTORY     uint64
	PROT_READ       uint64
	PROT_WRITE      uint64
	MAP_PRIVATE     uint64
	MAP_FIXED       uint64
	MAP_ANONYMOUS   uint64
	S_IFBLK         uint64
	AT_FDCWD        uint64
	EPOLL_CTL_ADD   uint64
	EPOLLIN         uint64
	FUTEX_WAIT      uint64
	CLOCK_MONOTONIC uint64
	MNT_DETACH      uint64
	HZ              uint64
	pageSize        uint64
}

func Cases(target *targets.Target) []*Case {
	arch := &arch{
		O_RDONLY:        target.Const("O_RDONLY"),
		O_DIRECTORY:     target.Const("O_DIRECTORY"),
		PROT_READ:       target.Const("PROT_READ"),
		PROT_WRITE:      target.Const("PROT_WRITE"),
		MAP_PRIVATE:     target.Const("MAP_PRIVATE"),
		MAP_FIXED:       target.Const("MAP_FIXED"),
		MAP_ANONYMOUS:   target.Const("MAP_ANONYMOUS"),
		S_IFBLK:         target.Const("S_IFBLK"),
		AT_FDCWD:        target.Const("AT_FDCWD"),
		EPOLL_CTL_ADD:   target.Const("EPOLL_CTL_ADD"),
		EPOLLIN:         target.Const("EPOLLIN"),
		FUTEX_WAIT:      target.Const("FUTEX_WAIT"),
		CLOCK_MONOTONIC: target.Const("CLOCK_MONOTONIC"),
		MNT_DETACH:      target.Const("MNT_DETACH"),
		HZ:              target.Const("HZ"),
		pageSize:        target.PageSize,
	}
	return []*Case{
		arch.epollFd(),
		arch.mmapSize(),
		arch.mmapFixedWrap(),
		arch.futexTimeout(),
		arch.nanosleepNegative(),
		arch.getdentsCount(),
		arch.writeFd(),
		arch.killPid(),
		arch.mknodDev(),
		arch.mountTmpfsUID(),
		arch.umountFlags(),
	}
}

// Registration with an identifier that would index past any fd table.
func (arch *arch) epollFd() *Case {
	return &Case{
		ID:    "linux-epoll-ctl-fd",
		Title: "epoll_ctl with the largest fd",
		Setup: []*SetupStep{
			SetupCall("ep", "epoll_create1", Int("flags", 4, Const(0))),
		},
		Call: &Call{Name: "epoll_ctl", Args: []*Param{
			Resource("epfd", "ep"),
			Int("op", 4, Const(arch.EPOLL_CTL_ADD)),
			SInt("fd", 4, Max()),
			Ptr("event",
				Int("events", 4, Const(arch.EPOLLIN)),
				Int("data", 8, Const(0)),
			),
		}},
	}
}

func (arch *arch) anonMmap(addr, size *Param, flags uint64) []*Param {
	return []*Param{
		addr,
		size,
		Int("prot", 4, Const(arch.PROT_READ|arch.PROT_WRITE)),
		Int("flags", 4, Const(arch.MAP_PRIVATE|arch.MAP_ANONYMOUS|flags)),
		SInt("fd", 4, Const(^uint64(0))),
		Int("offset", 8, Const(0)),
	}
}

func (arch *arch) mmapSize() *Case {
	return &Case{
		ID:    "linux-mmap-size",
		Title: "anonymous mmap of the largest page-aligned size",
		Call: &Call{Name: "mmap", Args: arch.anonMmap(
			Int("addr", 8, Const(0)),
			Int("len", 8, Max()).Bounded(0, -arch.pageSize),
			0)},
	}
}

// A fixed mapping right after an existing one whose end wraps around the address space.
func (arch *arch) mmapFixedWrap() *Case {
	return &Case{
		ID:    "linux-mmap-fixed-wrap",
		Title: "fixed mmap with a size that wraps the address space",
		Setup: []*SetupStep{
			SetupCall("pg", "mmap", arch.anonMmap(
				Int("addr", 8, Const(0)),
				Int("len", 8, Const(arch.pageSize)),
				0)...),
		},
		Call: &Call{Name: "mmap", Args: arch.anonMmap(
			Resource("addr", "pg").Plus(arch.pageSize),
			Int("len", 8, Const(0xffffff0000000000)),
			arch.MAP_FIXED)},
	}
}

// The timeout converts to a negative tick count once multiplied by HZ.
// The futex word does not match, so a correct kernel fails with EAGAIN without sleeping.
func (arch *arch) futexTimeout() *Case {
	return &Case{
		ID:    "linux-futex-timeout",
		Title: "futex wait with a timeout that overflows in ticks",
		Call: &Call{Name: "futex", Args: []*Param{
			Buffer("uaddr", 4),
			Int("op", 4, Const(arch.FUTEX_WAIT)),
			Int("val", 4, Const(1)),
			Ptr("timeout",
				SInt("tv_sec", 8, MulOverflow(64, true, arch.HZ)),
				SInt("tv_nsec", 8, Const(0)),
			),
			Int("uaddr2", 8, Const(0)),
			Int("val3", 4, Const(0)),
		}},
	}
}

func (arch *arch) nanosleepNegative() *Case {
	return &Case{
		ID:    "linux-clock-nanosleep-negative",
		Title: "clock_nanosleep with the smallest tv_sec",
		Call: &Call{Name: "clock_nanosleep", Args: []*Param{
			Int("clock", 4, Const(arch.CLOCK_MONOTONIC)),
			Int("flags", 4, Const(0)),
			Ptr("req",
				SInt("tv_sec", 8, Min()),
				SInt("tv_nsec", 8, Const(0)),
			),
			Int("rem", 8, Const(0)),
		}},
	}
}

func (arch *arch) getdentsCount() *Case {
	return &Case{
		ID:    "linux-getdents-count",
		Title: "getdents64 into a NULL buffer of the largest size",
		Setup: []*SetupStep{
			SetupCall("fd", "openat",
				SInt("dirfd", 4, Const(arch.AT_FDCWD)),
				Str("path", "/"),
				Int("flags", 4, Const(arch.O_RDONLY|arch.O_DIRECTORY)),
				Int("mode", 4, Const(0)),
			),
		},
		Call: &Call{Name: "getdents64", Args: []*Param{
			Resource("fd", "fd"),
			Int("dirp", 8, Const(0)),
			Int("count", 4, Max()),
		}},
	}
}

func (arch *arch) writeFd() *Case {
	return &Case{
		ID:    "linux-write-fd",
		Title: "write to fd -1",
		Call: &Call{Name: "write", Args: []*Param{
			SInt("fd", 4, Sentinel()),
			Buffer("buf", 16),
			Int("count", 8, Const(16)),
		}},
	}
}

func (arch *arch) killPid() *Case {
	return &Case{
		ID:    "linux-kill-pid",
		Title: "kill of the largest pid",
		Call: &Call{Name: "kill", Args: []*Param{
			SInt("pid", 4, Max()),
			Int("sig", 4, Const(0)),
		}},
	}
}

// Device node creation with the "no value" device number.
func (arch *arch) mknodDev() *Case {
	return &Case{
		ID:         "linux-mknod-dev",
		Title:      "mknodat of a block device with dev -1",
		Privileged: true,
		Expect:     ExpectNoCrash,
		Call: &Call{Name: "mknodat", Args: []*Param{
			SInt("dirfd", 4, Const(arch.AT_FDCWD)),
			Str("path", "boom"),
			Int("mode", 4, Const(arch.S_IFBLK|0666)),
			Int("dev", 4, Sentinel()),
		}},
	}
}

// Root attributes of a tmpfs set to the "no value" id.
func (arch *arch) mountTmpfsUID() *Case {
	return &Case{
		ID:         "linux-mount-tmpfs-uid",
		Title:      "tmpfs mount with uid -1",
		Privileged: true,
		Exclusive:  []string{"mount:tmpfs"},
		Setup:      []*SetupStep{Mkdir("mnt")},
		Call: &Call{Name: "mount", Args: []*Param{
			Str("source", "none"),
			Str("target", "mnt"),
			Str("fstype", "tmpfs"),
			Int("flags", 8, Const(0)),
			Str("data", "uid=4294967295"),
		}},
		Teardown: []*SetupStep{arch.umountMnt()},
	}
}

func (arch *arch) umountFlags() *Case {
	return &Case{
		ID:         "linux-umount-flags",
		Title:      "umount2 with all flags set",
		Privileged: true,
		Exclusive:  []string{"mount:tmpfs"},
		Setup: []*SetupStep{
			Mkdir("mnt"),
			SetupCall("", "mount",
				Str("source", "none"),
				Str("target", "mnt"),
				Str("fstype", "tmpfs"),
				Int("flags", 8, Const(0)),
				Int("data", 8, Const(0)),
			),
		},
		Call: &Call{Name: "umount2", Args: []*Param{
			Str("target", "mnt"),
			Int("flags", 4, Max()),
		}},
		Teardown: []*SetupStep{arch.umountMnt()},
	}
}

func (arch *arch) umountMnt() *SetupStep {
	return SetupCall("", "umount2", Str("target", "mnt"), Int("flags", 4, Const(arch.MNT_DETACH)))
}
