// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	target, err := Parse("openbsd/amd64")
	require.NoError(t, err)
	assert.Equal(t, "openbsd/amd64", target.String())
	assert.Equal(t, 9, target.MaxArgs)

	target, err = Parse("openbsd")
	require.NoError(t, err)
	assert.Equal(t, OpenBSD, target.OS)

	_, err = Parse("plan9/amd64")
	assert.Error(t, err)
	_, err = Parse("linux/mips")
	assert.Error(t, err)
}

func TestSyscallNR(t *testing.T) {
	target := Get(OpenBSD, "amd64")
	nr, err := target.SyscallNR("__thrsleep")
	require.NoError(t, err)
	assert.Equal(t, uint64(94), nr)
	_, err = target.SyscallNR("epoll_ctl")
	assert.Error(t, err)
}

func TestConst(t *testing.T) {
	target := Get(Linux, "arm64")
	assert.Equal(t, uint64(0x4000), target.Const("O_DIRECTORY"))
	assert.Equal(t, uint64(0x40), target.Const("O_CREAT"))
	assert.Panics(t, func() { target.Const("NO_SUCH_CONST") })
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "linux/amd64")
	assert.Contains(t, names, "test/64")
	for _, arches := range List {
		for _, target := range arches {
			assert.NotZero(t, target.PtrSize, target.String())
			assert.NotZero(t, target.MaxArgs, target.String())
			assert.NotEmpty(t, target.Syscalls, target.String())
		}
	}
}
