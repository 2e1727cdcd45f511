// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package invoker

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syzbound/syzbound/pkg/argsynth"
	"github.com/syzbound/syzbound/pkg/executor"
	"github.com/syzbound/syzbound/pkg/osutil"
	"github.com/syzbound/syzbound/pkg/registry"
	"github.com/syzbound/syzbound/sys/targets"
	"golang.org/x/sys/unix"
)

// The test binary doubles as the executor: the supervisor re-executes it
// with this variable set.
const childEnv = "SYZ_BOUND_TEST_EXECUTOR=1"

func TestMain(m *testing.M) {
	if os.Getenv("SYZ_BOUND_TEST_EXECUTOR") != "" && len(os.Args) > 1 && os.Args[1] == executor.Subcommand {
		os.Exit(executor.Main(hostRegistry(), os.Args[2:], os.Stdout))
	}
	os.Exit(m.Run())
}

func hostRegistry() *registry.Registry {
	target := targets.Host()
	if target == nil {
		return nil
	}
	reg := registry.New(target)
	cases := []*registry.Case{
		{
			ID:   "close-bad-fd",
			Call: &registry.Call{Name: "close", Args: []*registry.Param{registry.SInt("fd", 4, registry.Sentinel())}},
		},
		{
			ID:     "getpid",
			Call:   &registry.Call{Name: "getpid"},
			Expect: registry.ExpectSuccess,
		},
		{
			ID:    "kill-self",
			Setup: []*registry.SetupStep{registry.SetupCall("pid", "getpid")},
			Call: &registry.Call{Name: "kill", Args: []*registry.Param{
				registry.Resource("pid", "pid"),
				registry.SInt("sig", 4, registry.Const(uint64(syscall.SIGKILL))),
			}},
		},
		{
			ID: "hang",
			Call: &registry.Call{Name: "nanosleep", Args: []*registry.Param{
				registry.Ptr("req", registry.SInt("tv_sec", 8, registry.Const(100)), registry.SInt("tv_nsec", 8, registry.Const(0))),
				registry.Int("rem", 8, registry.Const(0)),
			}},
			Timeout: time.Second,
		},
		{
			ID: "bad-setup",
			Setup: []*registry.SetupStep{
				registry.Mkdir("dir"),
				registry.SetupCall("fd", "openat",
					registry.SInt("dirfd", 4, registry.Const(target.Const("AT_FDCWD"))),
					registry.Str("path", "dir/nonexistent"),
					registry.SInt("flags", 4, registry.Const(0)),
					registry.Int("mode", 4, registry.Const(0)),
				),
			},
			Call: &registry.Call{Name: "getpid"},
		},
		{
			// The mount point is looked up before the capability check.
			ID: "mount-missing",
			Setup: []*registry.SetupStep{
				registry.SetupCall("", "mount",
					registry.Str("source", "none"),
					registry.Str("target", "nonexistent/dir"),
					registry.Str("fstype", "tmpfs"),
					registry.Int("flags", 8, registry.Const(0)),
					registry.Int("data", 8, registry.Const(0)),
				),
			},
			Call: &registry.Call{Name: "getpid"},
		},
		{
			ID:         "mount-tmpfs",
			Privileged: true,
			Exclusive:  []string{"mount:tmpfs"},
			Setup:      []*registry.SetupStep{registry.Mkdir("mnt")},
			Call: &registry.Call{Name: "mount", Args: []*registry.Param{
				registry.Str("source", "none"),
				registry.Str("target", "mnt"),
				registry.Str("fstype", "tmpfs"),
				registry.Int("flags", 8, registry.Const(0)),
				registry.Int("data", 8, registry.Const(0)),
			}},
			Expect: registry.ExpectSuccess,
		},
	}
	for _, c := range cases {
		if err := reg.Register(c); err != nil {
			panic(err)
		}
	}
	reg.Freeze()
	return reg
}

func runChild(t *testing.T, id string, vals []argsynth.Value) *RawResult {
	return runChildWith(t, id, vals, func(*Invoker) {})
}

func runChildWith(t *testing.T, id string, vals []argsynth.Value, setup func(inv *Invoker)) *RawResult {
	reg := hostRegistry()
	if reg == nil {
		t.Skip("host arch is not described")
	}
	bin, err := os.Executable()
	require.NoError(t, err)
	c := reg.Lookup(id)
	if vals == nil {
		vals, err = argsynth.Synthesize(c)
		require.NoError(t, err)
	}
	inv := New(bin, t.TempDir(), 20*time.Second, false)
	inv.Env = []string{childEnv}
	setup(inv)
	raw, err := inv.Invoke(context.Background(), c, vals)
	require.NoError(t, err)
	t.Logf("%v output:\n%s", id, raw.Output)
	return raw
}

func TestChildErrorReturned(t *testing.T) {
	raw := runChild(t, "close-bad-fd", nil)
	assert.True(t, raw.Called)
	assert.Equal(t, syscall.EBADF, raw.Errno)
	assert.Equal(t, syscall.Signal(0), raw.Signal)
}

func TestChildSuccess(t *testing.T) {
	raw := runChild(t, "getpid", nil)
	assert.True(t, raw.Called)
	assert.Equal(t, syscall.Errno(0), raw.Errno)
	assert.NotZero(t, raw.Ret)
	assert.NotEqual(t, uint64(os.Getpid()), raw.Ret)
}

func TestChildCrash(t *testing.T) {
	raw := runChild(t, "kill-self", nil)
	assert.False(t, raw.Called)
	assert.Equal(t, syscall.SIGKILL, raw.Signal)
	assert.False(t, raw.TimedOut)
}

func TestChildTimeout(t *testing.T) {
	start := time.Now()
	raw := runChild(t, "hang", nil)
	assert.True(t, raw.TimedOut)
	assert.False(t, raw.Called)
	assert.Less(t, time.Since(start), 15*time.Second)
}

func TestChildSetupFailed(t *testing.T) {
	raw := runChild(t, "bad-setup", nil)
	require.NotNil(t, raw.Setup)
	assert.Equal(t, 1, raw.Setup.Step)
	assert.Equal(t, syscall.ENOENT, raw.Setup.Errno)
	assert.False(t, raw.Called)
}

func TestChildExecutorFailure(t *testing.T) {
	// Values that do not match the case params make the executor bail out.
	raw := runChild(t, "getpid", []argsynth.Value{{Path: "x", Size: 4}})
	assert.Contains(t, raw.ExecutorFailure, "exit status 67")
}

func TestChildMountSetupFailed(t *testing.T) {
	raw := runChild(t, "mount-missing", nil)
	assert.True(t, raw.Exited)
	assert.Equal(t, executor.StatusSetupFailed, raw.ExitCode)
	require.NotNil(t, raw.Setup)
	assert.Equal(t, 0, raw.Setup.Step)
	assert.Equal(t, "call mount", raw.Setup.Desc)
	assert.Equal(t, syscall.ENOENT, raw.Setup.Errno)
	assert.False(t, raw.Called)
	assert.Empty(t, raw.ExecutorFailure)
}

func TestChildMountIsolated(t *testing.T) {
	if !osutil.IsRoot() {
		t.Skip("mounting requires root")
	}
	var caseDir string
	raw := runChildWith(t, "mount-tmpfs", nil, func(inv *Invoker) {
		inv.Sandbox = false
		inv.IsolateMounts = true
		caseDir = inv.Dir
	})
	if raw.Setup != nil && raw.Setup.Step == StepStart {
		t.Skipf("no mount namespaces: %v", raw.Setup)
	}
	require.True(t, raw.Called, "setup: %v", raw.Setup)
	assert.Equal(t, syscall.Errno(0), raw.Errno)
	mounts, err := os.ReadFile("/proc/self/mountinfo")
	require.NoError(t, err)
	assert.NotContains(t, string(mounts), filepath.Join(caseDir, "case-"))
	entries, err := os.ReadDir(caseDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "case dirs left behind")
}

func checkNamespaces(t *testing.T, cmd *exec.Cmd, want bool) {
	var flags uintptr
	if cmd.SysProcAttr != nil {
		flags = cmd.SysProcAttr.Cloneflags
	}
	assert.Equal(t, want, flags&unix.CLONE_NEWNS != 0, "clone flags %#x", flags)
}
