// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package targets describes the OS/arch pairs cases can be registered for:
// pointer and page sizes, syscall numbers and the constants case catalogs use.
package targets

import (
	"fmt"
	"runtime"
	"sort"
)

type Target struct {
	OS       string
	Arch     string
	PtrSize  uint64
	PageSize uint64
	// Version is the kernel release the syscall table was taken from.
	Version string
	// MaxArgs is the number of syscall arguments the executor can pass.
	MaxArgs  int
	Syscalls map[string]uint64
	Consts   map[string]uint64
}

const (
	TestOS  = "test"
	Linux   = "linux"
	OpenBSD = "openbsd"
)

func (target *Target) String() string {
	return target.OS + "/" + target.Arch
}

// SyscallNR returns the number of the named syscall.
func (target *Target) SyscallNR(name string) (uint64, error) {
	nr, ok := target.Syscalls[name]
	if !ok {
		return 0, fmt.Errorf("unknown syscall %v on %v", name, target)
	}
	return nr, nil
}

// Const returns the value of a named constant, panics if it is not defined:
// catalogs only use constants declared in this package.
func (target *Target) Const(name string) uint64 {
	v, ok := target.Consts[name]
	if !ok {
		panic(fmt.Sprintf("unknown const %v on %v", name, target))
	}
	return v
}

// IsHost says if cases for the target can be executed on this machine.
func (target *Target) IsHost() bool {
	return target.OS == runtime.GOOS && target.Arch == runtime.GOARCH
}

func Get(OS, arch string) *Target {
	return List[OS][arch]
}

// Host returns the target for the running machine, or nil if it is not described.
func Host() *Target {
	return Get(runtime.GOOS, runtime.GOARCH)
}

// Parse accepts "os/arch" or "os" (arch defaults to the host arch, then to amd64).
func Parse(str string) (*Target, error) {
	if str == "" {
		if host := Host(); host != nil {
			return host, nil
		}
		return nil, fmt.Errorf("host %v/%v is not supported", runtime.GOOS, runtime.GOARCH)
	}
	OS, arch := str, ""
	for i := 0; i < len(str); i++ {
		if str[i] == '/' {
			OS, arch = str[:i], str[i+1:]
			break
		}
	}
	if List[OS] == nil {
		return nil, fmt.Errorf("unknown target os %q", OS)
	}
	if arch == "" {
		arch = runtime.GOARCH
		if List[OS][arch] == nil {
			arch = "amd64"
		}
	}
	target := Get(OS, arch)
	if target == nil {
		return nil, fmt.Errorf("unknown target %v/%v", OS, arch)
	}
	return target, nil
}

// Names returns all "os/arch" names in a stable order.
func Names() []string {
	var names []string
	for _, arches := range List {
		for _, target := range arches {
			names = append(names, target.String())
		}
	}
	sort.Strings(names)
	return names
}

var List = map[string]map[string]*Target{
	TestOS: {
		"64": {
			PtrSize:  8,
			PageSize: 4 << 10,
			MaxArgs:  6,
			Syscalls: map[string]uint64{
				"test_ok":      1,
				"test_fail":    2,
				"test_crash":   3,
				"test_hang":    4,
				"test_open":    5,
				"test_mount":   6,
				"test_unmount": 7,
			},
			Consts: map[string]uint64{
				"TEST_FLAG": 1,
			},
		},
	},
	Linux: {
		"amd64": {
			PtrSize:  8,
			PageSize: 4 << 10,
			MaxArgs:  6,
			Syscalls: map[string]uint64{
				"read":            0,
				"write":           1,
				"close":           3,
				"mmap":            9,
				"munmap":          11,
				"nanosleep":       35,
				"getpid":          39,
				"kill":            62,
				"mount":           165,
				"umount2":         166,
				"futex":           202,
				"getdents64":      217,
				"clock_nanosleep": 230,
				"epoll_ctl":       233,
				"openat":          257,
				"mkdirat":         258,
				"mknodat":         259,
				"epoll_create1":   291,
			},
			Consts: linuxConsts(map[string]uint64{
				"O_DIRECTORY": 0x10000,
			}),
		},
		"arm64": {
			PtrSize:  8,
			PageSize: 4 << 10,
			MaxArgs:  6,
			Syscalls: map[string]uint64{
				"epoll_create1":   20,
				"epoll_ctl":       21,
				"mknodat":         33,
				"mkdirat":         34,
				"umount2":         39,
				"mount":           40,
				"openat":          56,
				"close":           57,
				"getdents64":      61,
				"read":            63,
				"write":           64,
				"futex":           98,
				"nanosleep":       101,
				"clock_nanosleep": 115,
				"kill":            129,
				"getpid":          172,
				"munmap":          215,
				"mmap":            222,
			},
			Consts: linuxConsts(map[string]uint64{
				"O_DIRECTORY": 0x4000,
			}),
		},
	},
	OpenBSD: {
		"amd64": {
			PtrSize:  8,
			PageSize: 4 << 10,
			Version:  "5.9",
			MaxArgs:  9,
			Syscalls: map[string]uint64{
				"read":           3,
				"write":          4,
				"open":           5,
				"close":          6,
				"mknod":          14,
				"getpid":         20,
				"mount":          21,
				"unmount":        22,
				"kevent":         72,
				"nanosleep":      91,
				"__thrsleep":     94,
				"getdents":       99,
				"__thrsigdivert": 111,
				"kill":           122,
				"mkdir":          136,
				"mmap":           197,
				"__sysctl":       202,
				"kqueue":         269,
			},
			Consts: map[string]uint64{
				"O_RDONLY":           0,
				"O_RDWR":             2,
				"O_CREAT":            0x200,
				"PROT_NONE":          0,
				"PROT_READ":          1,
				"PROT_WRITE":         2,
				"MAP_PRIVATE":        0x2,
				"MAP_FIXED":          0x10,
				"MAP_ANON":           0x1000,
				"__MAP_NOFAULT":      0x800,
				"EVFILT_READ":        0xffff, // (-1) as short
				"EV_ADD":             0x1,
				"S_IFBLK":            0x6000,
				"CLOCK_REALTIME":     0,
				"MNT_DOOMED":         0x08000000,
				"MNT_FORCE":          0x00080000,
				"TMPFS_ARGS_VERSION": 1,
				"CTL_VFS":            10,
				"VFS_TMPFS":          19,
				"HZ":                 100,
			},
		},
	},
}

func linuxConsts(arch map[string]uint64) map[string]uint64 {
	common := map[string]uint64{
		"O_RDONLY":        0,
		"O_RDWR":          2,
		"O_CREAT":         0x40,
		"PROT_NONE":       0,
		"PROT_READ":       1,
		"PROT_WRITE":      2,
		"MAP_PRIVATE":     0x2,
		"MAP_FIXED":       0x10,
		"MAP_ANONYMOUS":   0x20,
		"S_IFBLK":         0x6000,
		"AT_FDCWD":        0xffffffffffffff9c, // -100
		"EPOLL_CTL_ADD":   1,
		"EPOLLIN":         1,
		"FUTEX_WAIT":      0,
		"CLOCK_MONOTONIC": 1,
		"MNT_FORCE":       1,
		"MNT_DETACH":      2,
		"HZ":              1000,
	}
	for name, val := range arch {
		common[name] = val
	}
	return common
}

func init() {
	for OS, arches := range List {
		for arch, target := range arches {
			target.OS = OS
			target.Arch = arch
		}
	}
}
