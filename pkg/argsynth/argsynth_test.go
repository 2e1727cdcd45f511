// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package argsynth

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	. "github.com/syzbound/syzbound/pkg/registry"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		param *Param
		want  uint64
		err   bool
	}{
		{Int("a", 1, Max()), 0xff, false},
		{SInt("a", 1, Max()), 0x7f, false},
		{SInt("a", 2, Min()), 0x8000, false},
		{Int("a", 4, Min()), 0, false},
		{SInt("a", 8, Max()), 0x7fffffffffffffff, false},
		{SInt("a", 8, Min()), 0x8000000000000000, false},
		{Int("ident", 8, Max()).Bounded(0, 0x20000000000000), 0x20000000000000, false},
		{SInt("a", 4, Min()).Bounded(^uint64(9), 10), 0xfffffff6, false},
		{Int("count", 4, Max()).Bounded(0, 0x100000000), 0, true},
		{Int("count", 4, Min()).Bounded(^uint64(0), 0), 0, true},
		{SInt("a", 2, Max()).Bounded(0, 0x1ffff), 0, true},
		{Int("uid", 4, Sentinel()), 0xffffffff, false},
		{SInt("a", 8, Sentinel()), 0xffffffffffffffff, false},
		{Int("a", 1, SentinelOf(0x1ff)), 0, true},
		{SInt("fd", 4, Const(0xffffffffffffff9c)), 0xffffff9c, false},
		{Int("a", 1, Const(0x100)), 0, true},
		{Int("len", 8, AddOverflow(64, false, 1<<40)), 0xffffff0000000000, false},
		{Int("a", 4, AddOverflow(32, false, 0x1000)), 0xfffff001, false},
		{Int("a", 4, AddOverflow(32, false, 1<<32)), 0, true},
		{Int("a", 2, AddOverflow(32, false, 1)), 0, true},
		{Int("len", 8, MulOverflow(32, true, 16).Scaled(4096)), 0x8000000000, false},
		{Int("len", 4, MulOverflow(32, true, 16).Scaled(4096)), 0, true},
		{Int("a", 8, MulOverflow(64, false, 1)), 0, true},
		{Int("a", 8, MulOverflow(64, false, 2).Scaled(4)), 0, true},
		{Int("a", 8, MulOverflow(64, true, 1)), 0x8000000000000000, false},
		{Resource("fd", "fd"), 0, true},
	}
	for i, test := range tests {
		got, err := Compute(test.param)
		if test.err {
			assert.Error(t, err, "#%v: %v", i, test.param)
			continue
		}
		require.NoError(t, err, "#%v: %v", i, test.param)
		assert.Equal(t, test.want, got, "#%v: %v", i, test.param)
	}
}

// A duration in seconds multiplied by HZ in a 64-bit signed tick counter
// must come out negative.
func TestTicksOverflow(t *testing.T) {
	const hz = 100
	c := &Case{
		ID: "thrsleep",
		Call: &Call{Name: "__thrsleep", Args: []*Param{
			Ptr("abstime",
				SInt("tv_sec", 8, MulOverflow(64, true, hz)),
				SInt("tv_nsec", 8, Const(0)),
			),
		}},
	}
	vals, err := Synthesize(c)
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Equal(t, "abstime.tv_sec", vals[0].Path)
	assert.Equal(t, int64(92233720368547759), vals[0].Int64())
	ticks := vals[0].Int64() * hz
	assert.Negative(t, ticks)
	// One less stays in range.
	assert.Positive(t, (vals[0].Int64()-1)*hz)
}

func TestDeterminism(t *testing.T) {
	c := &Case{
		ID: "mmap",
		Call: &Call{Name: "mmap", Args: []*Param{
			Int("addr", 8, Const(0)),
			Int("len", 8, AddOverflow(64, false, 1<<40)),
			SInt("prot", 4, Const(3)),
			SInt("flags", 4, Const(2)),
			SInt("fd", 4, Sentinel()),
			Int("off", 8, Min()),
		}},
	}
	first, err := Synthesize(c)
	require.NoError(t, err)
	second, err := Synthesize(c)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatal(diff)
	}
	assert.Equal(t, Signature(first), Signature(second))

	c.Call.Args[1].Strategy = Max()
	third, err := Synthesize(c)
	require.NoError(t, err)
	assert.NotEqual(t, Signature(first), Signature(third))
}

func TestSynthesizeError(t *testing.T) {
	c := &Case{
		ID:   "bad",
		Call: &Call{Name: "x", Args: []*Param{Int("a", 2, Const(1<<20))}},
	}
	_, err := Synthesize(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "param a")
}

func TestFormatParse(t *testing.T) {
	c := &Case{
		ID: "x",
		Call: &Call{Name: "x", Args: []*Param{
			SInt("fd", 4, Sentinel()),
			Ptr("ts", SInt("sec", 8, Max()), SInt("nsec", 8, Const(5))),
		}},
	}
	vals, err := Synthesize(c)
	require.NoError(t, err)
	str := Format(vals)
	assert.Equal(t, "0xffffffff,0x7fffffffffffffff,0x5", str)
	parsed, err := Parse(c, str)
	require.NoError(t, err)
	assert.Equal(t, vals, parsed)
	assert.Equal(t, uint64(0xffffffffffffffff), parsed[0].Reg())
	assert.Equal(t, "fd=0xffffffff (-1)", parsed[0].String())

	_, err = Parse(c, "0x1,0x2")
	assert.Error(t, err)
	_, err = Parse(c, "0x100000000,0x1,0x2")
	assert.Error(t, err)
	_, err = Parse(c, "foo,0x1,0x2")
	assert.Error(t, err)
}

func TestParseNoArgs(t *testing.T) {
	c := &Case{ID: "x", Call: &Call{Name: "getpid"}}
	vals, err := Parse(c, "")
	require.NoError(t, err)
	assert.Empty(t, vals)
}
