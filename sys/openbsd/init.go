// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package openbsd holds the boundary cases found in OpenBSD 5.9 in 2016.
// Each case reproduces the arguments of the published proof of concept;
// an unfixed kernel panics, a fixed one must reject the arguments.
package openbsd

import (
	"time"

	. "github.com/syzbound/syzbound/pkg/registry"
	"github.com/syzbound/syzbound/sys/targets"
)

const (
	cvsweb  = "http://cvsweb.openbsd.org/cgi-bin/cvsweb/src/sys/"
	patches = "http://ftp.openbsd.org/pub/OpenBSD/patches/"

	// The thread sleep calls block for up to INT_MAX ticks on fixed kernels.
	sleepTimeout = 5 * time.Second
	mnt          = "/mnt"
)

type arch struct {
	O_RDONLY           uint64
	O_RDWR             uint64
	O_CREAT            uint64
	PROT_READ          uint64
	PROT_WRITE         uint64
	MAP_PRIVATE        uint64
	MAP_ANON           uint64
	MAP_NOFAULT        uint64
	EVFILT_READ        uint64
	EV_ADD             uint64
	S_IFBLK            uint64
	CLOCK_REALTIME     uint64
	MNT_DOOMED         uint64
	MNT_FORCE          uint64
	TMPFS_ARGS_VERSION uint64
	CTL_VFS            uint64
	VFS_TMPFS          uint64
	HZ                 uint64
	pageSize           uint64
}

func Cases(target *targets.Target) []*Case {
	arch := &arch{
		O_RDONLY:           target.Const("O_RDONLY"),
		O_RDWR:             target.Const("O_RDWR"),
		O_CREAT:            target.Const("O_CREAT"),
		PROT_READ:          target.Const("PROT_READ"),
		PROT_WRITE:         target.Const("PROT_WRITE"),
		MAP_PRIVATE:        target.Const("MAP_PRIVATE"),
		MAP_ANON:           target.Const("MAP_ANON"),
		MAP_NOFAULT:        target.Const("__MAP_NOFAULT"),
		EVFILT_READ:        target.Const("EVFILT_READ"),
		EV_ADD:             target.Const("EV_ADD"),
		S_IFBLK:            target.Const("S_IFBLK"),
		CLOCK_REALTIME:     target.Const("CLOCK_REALTIME"),
		MNT_DOOMED:         target.Const("MNT_DOOMED"),
		MNT_FORCE:          target.Const("MNT_FORCE"),
		TMPFS_ARGS_VERSION: target.Const("TMPFS_ARGS_VERSION"),
		CTL_VFS:            target.Const("CTL_VFS"),
		VFS_TMPFS:          target.Const("VFS_TMPFS"),
		HZ:                 target.Const("HZ"),
		pageSize:           target.PageSize,
	}
	return []*Case{
		arch.keventIdent(),
		arch.mmapSize(),
		arch.mmapSizeAmap(),
		arch.mmapFixedOverlap(),
		arch.tmpfsMountVnoval(),
		arch.sysctlTmpfs(),
		arch.thrsigdivertTimespec(),
		arch.thrsleepTimespec(),
		arch.tmpfsMknodVnoval(),
		arch.getdentsCount(),
		arch.unmountDoomed(),
	}
}

// kqueue_register sizes the knote list by the user ident, mallocarray panics on overflow.
func (arch *arch) keventIdent() *Case {
	return &Case{
		ID:    "openbsd-kevent-ident",
		Title: "kevent with large ident can lead to a panic",
		Setup: []*SetupStep{
			SetupCall("kq", "kqueue"),
		},
		Call: &Call{Name: "kevent", Args: []*Param{
			Resource("kq", "kq"),
			Ptr("changelist",
				Int("ident", 8, Max()).Bounded(0, 0x20000000000000),
				Int("filter", 2, Const(arch.EVFILT_READ)),
				Int("flags", 2, Const(arch.EV_ADD)),
				Int("fflags", 4, Const(0)),
				Int("data", 8, Const(0)),
				Int("udata", 8, Const(0)),
			),
			Int("nchanges", 4, Const(1)),
			Int("eventlist", 8, Const(0)),
			Int("nevents", 4, Const(0)),
			Int("timeout", 8, Const(0)),
		}},
		Refs: Refs{
			CVE:      []string{"CVE-2016-6242"},
			Reported: "2016-07-13",
			Fixed: []string{
				cvsweb + "kern/kern_event.c.diff?r1=1.72&r2=1.73",
				patches + "5.9/common/019_kevent.patch.sig",
				patches + "5.8/common/022_kevent.patch.sig",
			},
			Panic: "mallocarray: overflow 18446744071562067968 * 8",
		},
	}
}

var mmapRefs = Refs{
	CVE:      []string{"CVE-2016-6239", "CVE-2016-6240"},
	Reported: "2016-07-12",
	Fixed: []string{
		cvsweb + "uvm/uvm_mmap.c.diff?r1=1.134&r2=1.135",
		cvsweb + "uvm/uvm_mmap.c.diff?r1=1.135&r2=1.136",
		cvsweb + "uvm/uvm_mmap.c.diff?r1=1.136&r2=1.137",
		cvsweb + "uvm/uvm_amap.c.diff?r1=1.74&r2=1.75",
		patches + "5.9/common/016_mmap.patch.sig",
		patches + "5.8/common/020_mmap.patch.sig",
	},
}

func (arch *arch) openMapfile() *SetupStep {
	return SetupCall("fd", "open",
		Str("path", "mapfile"),
		Int("flags", 4, Const(arch.O_RDWR|arch.O_CREAT)),
		Int("mode", 4, Const(0666)),
	)
}

// 5.9 mmap still has the padding argument before the offset.
func (arch *arch) mmapArgs(addr, size *Param, prot, flags uint64, fd *Param) []*Param {
	return []*Param{
		addr,
		size,
		Int("prot", 4, Const(prot)),
		Int("flags", 4, Const(flags)),
		fd,
		Int("pad", 8, Const(0)),
		Int("pos", 8, Const(0)),
	}
}

// amap_alloc rounds the slot count in an int, a huge __MAP_NOFAULT mapping
// either overflows kernel malloc or allocates a zero-sized amap.
func (arch *arch) mmapSize() *Case {
	refs := mmapRefs
	refs.Panic = "malloc: allocation too large, type = 98, size = 9161482240"
	return &Case{
		ID:    "openbsd-mmap-size",
		Title: "mmap with a large __MAP_NOFAULT size overflows kernel malloc",
		Setup: []*SetupStep{arch.openMapfile()},
		Call: &Call{Name: "mmap", Args: arch.mmapArgs(
			Int("addr", 8, Const(0)),
			Int("len", 8, Const(0x222211110000)),
			0, arch.MAP_NOFAULT, Resource("fd", "fd"))},
		Refs: refs,
	}
}

func (arch *arch) mmapSizeAmap() *Case {
	return &Case{
		ID:    "openbsd-mmap-size-amap",
		Title: "mmap with 0xfffffff0 slots allocates a zero-sized amap",
		Setup: []*SetupStep{arch.openMapfile()},
		Call: &Call{Name: "mmap", Args: arch.mmapArgs(
			Int("addr", 8, Const(0)),
			Int("len", 8, Const(0xfffffff0*arch.pageSize)),
			0, arch.MAP_NOFAULT, Resource("fd", "fd"))},
		Refs: mmapRefs,
	}
}

// uvm_map_isavail computes addr+sz without an overflow check, so a huge hint
// mapping right after an existing one is not detected as overlapping.
func (arch *arch) mmapFixedOverlap() *Case {
	return &Case{
		ID:    "openbsd-mmap-fixed-overlap",
		Title: "mmap with an overlapping hint address and wrapping size",
		Setup: []*SetupStep{
			WriteFile("mapfile", []byte("testing\n")),
			arch.openMapfile(),
			SetupCall("pg", "mmap", arch.mmapArgs(
				Int("addr", 8, Const(0)),
				Int("len", 8, Const(arch.pageSize)),
				arch.PROT_READ|arch.PROT_WRITE, arch.MAP_PRIVATE|arch.MAP_ANON,
				Int("fd", 4, Const(^uint64(0))))...),
		},
		Call: &Call{Name: "mmap", Args: arch.mmapArgs(
			Resource("addr", "pg").Plus(arch.pageSize),
			Int("len", 8, Const(0xffffff0000000000)),
			0, 0, Resource("fd", "fd"))},
		Refs: Refs{
			CVE:      []string{"CVE-2016-6522"},
			Reported: "2016-07-28",
			Fixed: []string{
				cvsweb + "uvm/uvm_mmap.c.diff?r1=1.122&r2=1.122.2.1",
				cvsweb + "uvm/uvm_addr.c.diff?r1=1.16&r2=1.17",
				patches + "5.9/common/023_uvmisavail.patch.sig",
				patches + "5.8/common/026_uvmisavail.patch.sig",
			},
			Panic: "uvm_mapent_addr_insert: map 0xffffff00036be300 entry 0xffffff000311d178 " +
				"(0x1dcc56000000-0x1dcc56000000 G=0x0 F=0x200000000) insert collision with entry " +
				"0xffffff000272de08 (0x1dcc56000000-0x1dcc56000000 G=0x0 F=0x1000)",
		},
	}
}

func (arch *arch) tmpfsArgs(uid, gid, mode Strategy) *Param {
	return Ptr("args",
		Int("ta_version", 4, Const(arch.TMPFS_ARGS_VERSION)),
		Int("ta_nodes_max", 8, Const(0)),
		Int("ta_size_max", 8, Const(0)),
		Int("ta_root_uid", 4, uid),
		Int("ta_root_gid", 4, gid),
		Int("ta_root_mode", 4, mode),
	)
}

func (arch *arch) mountTmpfs() *SetupStep {
	return SetupCall("", "mount",
		Str("type", "tmpfs"),
		Str("dir", mnt),
		Int("flags", 4, Const(0)),
		arch.tmpfsArgs(Const(0), Const(0), Const(01777)),
	)
}

// unmountTmpfs undoes mountTmpfs (or a mount a buggy kernel accepted).
func (arch *arch) unmountTmpfs() *SetupStep {
	return SetupCall("", "unmount", Str("path", mnt), Int("flags", 4, Const(arch.MNT_FORCE)))
}

// tmpfs_alloc_node asserts that the root attributes are not VNOVAL (-1).
func (arch *arch) tmpfsMountVnoval() *Case {
	return &Case{
		ID:         "openbsd-tmpfs-mount-vnoval",
		Title:      "tmpfs mount with VNOVAL root attributes can lead to a panic",
		Privileged: true,
		Exclusive:  []string{"mount:" + mnt},
		Call: &Call{Name: "mount", Args: []*Param{
			Str("type", "tmpfs"),
			Str("dir", mnt),
			Int("flags", 4, Const(0)),
			arch.tmpfsArgs(Sentinel(), Sentinel(), Sentinel()),
		}},
		Teardown: []*SetupStep{arch.unmountTmpfs()},
		Refs: Refs{
			CVE:      []string{"CVE-2016-6246"},
			Reported: "2016-07-11",
			Fixed:    []string{cvsweb + "tmpfs/tmpfs_vfsops.c.diff?r1=1.8&r2=1.9"},
			Panic:    `kernel diagnostic assertion "uid != VNOVAL && gid != VNOVAL && mode != VNOVAL" failed`,
		},
	}
}

// tmpfs_vfsops has no vfs_sysctl method, vfs_sysctl calls through NULL.
func (arch *arch) sysctlTmpfs() *Case {
	return &Case{
		ID:    "openbsd-sysctl-vfs-tmpfs",
		Title: "sysctl vfs.tmpfs.0 executes a NULL function pointer",
		Call: &Call{Name: "__sysctl", Args: []*Param{
			Ptr("name",
				Int("ctl", 4, Const(arch.CTL_VFS)),
				Int("vfs", 4, Const(arch.VFS_TMPFS)),
				Int("leaf", 4, Min()),
			),
			Int("namelen", 4, Const(3)),
			Buffer("old", 16),
			Ptr("oldlenp", Int("oldlen", 8, Const(16))),
			Int("new", 8, Const(0)),
			Int("newlen", 8, Const(0)),
		}},
		Refs: Refs{
			CVE:      []string{"CVE-2016-6350"},
			Reported: "2016-07-21",
			Fixed: []string{
				cvsweb + "kern/vfs_subr.c.diff?r1=1.248&r2=1.249",
				cvsweb + "tmpfs/tmpfs_vfsops.c.diff?r1=1.9&r2=1.10",
				patches + "5.9/common/022_sysctl.patch.sig",
				patches + "5.8/common/025_sysctl.patch.sig",
			},
			Panic: "attempt to execute user address 0x0 in supervisor mode",
		},
	}
}

var timeoutFixes = []string{
	cvsweb + "kern/kern_sig.c.diff?r1=1.200&r2=1.201",
	cvsweb + "kern/kern_synch.c.diff?r1=1.132&r2=1.133",
	cvsweb + "kern/kern_tc.c.diff?r1=1.28&r2=1.29",
	cvsweb + "kern/kern_timeout.c.diff?r1=1.47&r2=1.48",
	patches + "5.9/common/018_timeout.patch.sig",
	patches + "5.8/common/021_timeout.patch.sig",
}

// The smallest tv_sec for which hz*tv_sec does not fit into int64:
// to_ticks becomes negative and timeout_add panics.
func (arch *arch) timespec(nsec uint64) *Param {
	return Ptr("ts",
		SInt("tv_sec", 8, MulOverflow(64, true, arch.HZ)),
		SInt("tv_nsec", 8, Const(nsec)),
	)
}

func (arch *arch) thrsigdivertTimespec() *Case {
	return &Case{
		ID:      "openbsd-thrsigdivert-timespec",
		Title:   "__thrsigdivert timeout conversion to ticks can become negative",
		Timeout: sleepTimeout,
		Call: &Call{Name: "__thrsigdivert", Args: []*Param{
			Int("sigmask", 4, Const(1)),
			Buffer("info", 136),
			arch.timespec(0x63760a),
		}},
		Refs: Refs{
			CVE:      []string{"CVE-2016-6244"},
			Reported: "2016-07-05",
			Fixed:    timeoutFixes,
			Panic:    "timeout_add: to_ticks (%d) < 0",
		},
	}
}

func (arch *arch) thrsleepTimespec() *Case {
	return &Case{
		ID:      "openbsd-thrsleep-timespec",
		Title:   "__thrsleep timeout conversion to ticks can become negative",
		Timeout: sleepTimeout,
		Call: &Call{Name: "__thrsleep", Args: []*Param{
			Buffer("id", 4),
			Int("clock_id", 4, Const(arch.CLOCK_REALTIME)),
			arch.timespec(0),
			Int("lock", 8, Const(0)),
			Int("abort", 8, Const(0)),
		}},
		Refs: Refs{
			CVE:      []string{"CVE-2016-6243"},
			Reported: "2016-06-29",
			Fixed: []string{
				cvsweb + "kern/kern_synch.c?rev=1.132&content-type=text/x-cvsweb-markup",
				patches + "5.9/common/018_timeout.patch.sig",
				patches + "5.8/common/021_timeout.patch.sig",
			},
			Panic: "timeout_add: to_ticks (%d) < 0",
		},
	}
}

// tmpfs_alloc_node asserts that rdev of a device node is not VNOVAL.
func (arch *arch) tmpfsMknodVnoval() *Case {
	return &Case{
		ID:         "openbsd-tmpfs-mknod-vnoval",
		Title:      "mknod with VNOVAL device on tmpfs can lead to a panic",
		Privileged: true,
		Exclusive:  []string{"mount:" + mnt},
		Setup:      []*SetupStep{arch.mountTmpfs()},
		Call: &Call{Name: "mknod", Args: []*Param{
			Str("path", mnt+"/boom"),
			Int("mode", 4, Const(arch.S_IFBLK|0666)),
			SInt("dev", 4, Sentinel()),
		}},
		Teardown: []*SetupStep{arch.unmountTmpfs()},
		Refs: Refs{
			Reported: "2016-07-05",
			Fixed:    []string{cvsweb + "kern/vfs_syscalls.c.diff?r1=1.260&r2=1.261"},
			Panic:    `kernel diagnostic assertion "rdev != VNOVAL" failed`,
		},
	}
}

// ufs_readdir allocates a bounce buffer of the user-provided size.
func (arch *arch) getdentsCount() *Case {
	return &Case{
		ID:    "openbsd-ufs-getdents-count",
		Title: "getdents with a large buffer size can lead to a panic",
		Setup: []*SetupStep{
			SetupCall("fd", "open", Str("path", "/"), Int("flags", 4, Const(arch.O_RDONLY))),
		},
		Call: &Call{Name: "getdents", Args: []*Param{
			Resource("fd", "fd"),
			Int("buf", 8, Const(0)),
			Int("buflen", 8, Max()).Bounded(0, 0x70000000),
		}},
		Refs: Refs{
			CVE:      []string{"CVE-2016-6245"},
			Reported: "2016-07-12",
			Fixed: []string{
				cvsweb + "ufs/ufs/ufs_vnops.c.diff?r1=1.128&r2=1.129",
				patches + "5.9/common/015_dirent.patch.sig",
				patches + "5.8/common/019_dirent.patch.sig",
			},
			Panic: "malloc: allocation too large, type = 127, size = 1879048192",
		},
	}
}

// MNT_DOOMED skips vnode sync, dounmount then finds a dangling vnode.
func (arch *arch) unmountDoomed() *Case {
	return &Case{
		ID:         "openbsd-unmount-doomed",
		Title:      "unmount with MNT_DOOMED flag can lead to a panic",
		Privileged: true,
		Exclusive:  []string{"mount:" + mnt},
		Setup: []*SetupStep{
			arch.mountTmpfs(),
			SetupCall("fd", "open",
				Str("path", mnt+"/somefile"),
				Int("flags", 4, Const(arch.O_RDWR|arch.O_CREAT)),
				Int("mode", 4, Const(0666)),
			),
		},
		Call: &Call{Name: "unmount", Args: []*Param{
			Str("path", mnt),
			Int("flags", 4, Const(arch.MNT_DOOMED)),
		}},
		Teardown: []*SetupStep{
			SetupCall("", "close", Resource("fd", "fd")),
			arch.unmountTmpfs(),
		},
		Refs: Refs{
			CVE:      []string{"CVE-2016-6247"},
			Reported: "2016-07-12",
			Fixed:    []string{cvsweb + "kern/vfs_syscalls.c.diff?r1=1.261&r2=1.262"},
			Panic:    "unmount: dangling vnode",
		},
	}
}
