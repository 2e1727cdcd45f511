// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package sys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syzbound/syzbound/pkg/argsynth"
	"github.com/syzbound/syzbound/pkg/registry"
	"github.com/syzbound/syzbound/sys/targets"
)

func TestInitAllTargets(t *testing.T) {
	for _, name := range targets.Names() {
		t.Run(name, func(t *testing.T) {
			target, err := targets.Parse(name)
			require.NoError(t, err)
			reg, err := Init(target, nil)
			require.NoError(t, err)
			require.NotZero(t, reg.Len())
			prefix := target.OS + "-"
			if target.OS == targets.TestOS {
				prefix = "test-"
			}
			for c := range reg.Cases() {
				assert.True(t, strings.HasPrefix(c.ID, prefix), "case %v", c.ID)
				_, err := argsynth.Synthesize(c)
				assert.NoError(t, err)
			}
			// Registry is frozen.
			assert.ErrorIs(t, reg.Register(&registry.Case{ID: "x"}), registry.ErrFrozen)
		})
	}
}

func TestInitUnknownOS(t *testing.T) {
	_, err := Init(&targets.Target{OS: "plan9", Arch: "386"}, nil)
	assert.Error(t, err)
}

func TestOpenBSDCatalog(t *testing.T) {
	target := targets.Get(targets.OpenBSD, "amd64")
	reg, err := Init(target, nil)
	require.NoError(t, err)
	assert.Equal(t, 11, reg.Len())
	for c := range reg.Cases() {
		assert.NotEmpty(t, c.Refs.Reported, "case %v", c.ID)
		assert.NotEmpty(t, c.Refs.Fixed, "case %v", c.ID)
		assert.NotEmpty(t, c.Title, "case %v", c.ID)
	}

	// The ident is the boundary of the allowed range.
	vals, err := argsynth.Synthesize(reg.Lookup("openbsd-kevent-ident"))
	require.NoError(t, err)
	require.Equal(t, "changelist.ident", vals[0].Path)
	assert.Equal(t, uint64(0x20000000000000), vals[0].Val)

	// Ticks computed by the kernel from tv_sec are negative.
	for _, id := range []string{"openbsd-thrsleep-timespec", "openbsd-thrsigdivert-timespec"} {
		c := reg.Lookup(id)
		vals, err := argsynth.Synthesize(c)
		require.NoError(t, err)
		var sec argsynth.Value
		for _, v := range vals {
			if strings.HasSuffix(v.Path, "tv_sec") {
				sec = v
			}
		}
		require.NotEmpty(t, sec.Path, "case %v", id)
		assert.Positive(t, sec.Int64())
		ticks := sec.Int64() * int64(target.Const("HZ"))
		assert.Negative(t, ticks, "case %v", id)
		assert.NotZero(t, c.Timeout)
	}

	vals, err = argsynth.Synthesize(reg.Lookup("openbsd-tmpfs-mount-vnoval"))
	require.NoError(t, err)
	var sentinels int
	for _, v := range vals {
		if strings.HasPrefix(v.Path, "args.ta_root_") {
			assert.Equal(t, uint64(0xffffffff), v.Val)
			sentinels++
		}
	}
	assert.Equal(t, 3, sentinels)

	for _, id := range []string{"openbsd-tmpfs-mount-vnoval", "openbsd-tmpfs-mknod-vnoval", "openbsd-unmount-doomed"} {
		c := reg.Lookup(id)
		assert.True(t, c.Privileged, id)
		assert.Equal(t, []string{"mount:/mnt"}, c.Exclusive, id)
		require.NotEmpty(t, c.Teardown, id)
		unmount := c.Teardown[len(c.Teardown)-1].Call
		require.NotNil(t, unmount, id)
		assert.Equal(t, "unmount", unmount.Name, id)
		assert.Equal(t, "/mnt", registry.FindParam(unmount.Args, "path").Str, id)
	}
}

// OpenBSD has no mount namespaces, a mount left behind by a case stays on the host.
func TestMountsAreUndone(t *testing.T) {
	for _, name := range targets.Names() {
		target, err := targets.Parse(name)
		require.NoError(t, err)
		reg, err := Init(target, nil)
		require.NoError(t, err)
		for c := range reg.Cases() {
			mounts := c.Call.Name == "mount"
			for _, step := range c.Setup {
				if step.Call != nil && step.Call.Name == "mount" {
					mounts = true
				}
			}
			if !mounts {
				continue
			}
			var undone bool
			for _, step := range c.Teardown {
				if step.Call != nil && (step.Call.Name == "unmount" || step.Call.Name == "umount2") {
					undone = true
				}
			}
			assert.True(t, undone, "%v: case %v mounts without unmount teardown", name, c.ID)
		}
	}
}

func TestInitOverrides(t *testing.T) {
	target := targets.Get(targets.TestOS, "64")
	reg, err := Init(target, map[string]map[string]registry.Strategy{
		"test-sleep": {"tp.tv_sec": registry.MulOverflow(64, true, 1000)},
		"test-mount": {"flags": registry.Const(7)},
	})
	require.NoError(t, err)
	vals, err := argsynth.Synthesize(reg.Lookup("test-sleep"))
	require.NoError(t, err)
	assert.Equal(t, uint64(9223372036854776), vals[0].Val)
	mount := reg.Lookup("test-mount")
	vals, err = argsynth.Synthesize(mount)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), vals[0].Val)
	assert.Nil(t, registry.FindParam(mount.Call.Args, "flags").Range)

	// Overrides are applied to fresh catalog copies.
	reg, err = Init(target, nil)
	require.NoError(t, err)
	vals, err = argsynth.Synthesize(reg.Lookup("test-mount"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0xff), vals[0].Val)
}

func TestInitOverrideErrors(t *testing.T) {
	target := targets.Get(targets.TestOS, "64")
	tests := []struct {
		overrides map[string]map[string]registry.Strategy
		err       string
	}{
		{
			map[string]map[string]registry.Strategy{"test-nope": {"a": registry.Max()}},
			"unknown case test-nope",
		},
		{
			map[string]map[string]registry.Strategy{"test-ok": {"b": registry.Max()}},
			"no int param b",
		},
		{
			// 0x1ff does not fit into one byte.
			map[string]map[string]registry.Strategy{"test-fail": {"u8": registry.Const(0x1ff)}},
			"u8",
		},
	}
	for _, test := range tests {
		_, err := Init(target, test.overrides)
		require.Error(t, err)
		assert.Contains(t, err.Error(), test.err)
	}
}
