// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package argsynth computes boundary values for int params of a case.
// Synthesis is a pure function of the param descriptors: the same case with
// the same strategy parameters always produces the same values.
package argsynth

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/syzbound/syzbound/pkg/hash"
	"github.com/syzbound/syzbound/pkg/registry"
)

// Value is a synthesized int leaf. Val holds the bit pattern truncated to Size bytes.
type Value struct {
	Path   string
	Size   uint64
	Signed bool
	Val    uint64
}

func (v Value) String() string {
	if v.Signed && v.Int64() < 0 {
		return fmt.Sprintf("%v=%#x (%v)", v.Path, v.Val, v.Int64())
	}
	return fmt.Sprintf("%v=%#x", v.Path, v.Val)
}

// Int64 returns the value sign-extended from its width.
func (v Value) Int64() int64 {
	return signExtend(v.Val, v.Size*8)
}

// Reg returns the value as it is passed in a register: sign-extended for
// signed params, zero-extended otherwise.
func (v Value) Reg() uint64 {
	if v.Signed {
		return uint64(v.Int64())
	}
	return v.Val
}

// Synthesize returns values for all int leaves of the case call,
// in the order registry.ForEachInt visits them.
func Synthesize(c *registry.Case) ([]Value, error) {
	vals, err := SynthesizeCall(c.Call)
	if err != nil {
		return nil, fmt.Errorf("case %v: %w", c.ID, err)
	}
	return vals, nil
}

func SynthesizeCall(call *registry.Call) ([]Value, error) {
	var res []Value
	var err error
	registry.ForEachInt(call.Args, func(path string, p *registry.Param) {
		if err != nil {
			return
		}
		var v uint64
		v, err = Compute(p)
		if err != nil {
			err = fmt.Errorf("%v: param %v: %w", call.Name, path, err)
			return
		}
		res = append(res, Value{Path: path, Size: p.Size, Signed: p.Signed, Val: v})
	})
	return res, err
}

// Compute returns the value for one int param truncated to its width.
// Values that do not fit the param are errors, nothing is clamped.
func Compute(p *registry.Param) (uint64, error) {
	if p.Kind != registry.KindInt {
		return 0, fmt.Errorf("%v is not an int", p.Kind)
	}
	width := p.Size * 8
	s := p.Strategy
	switch s.Kind {
	case registry.StrategyMax:
		if p.Range != nil {
			return fit(p.Range.Max, width, p.Signed)
		}
		return maxOf(width, p.Signed), nil
	case registry.StrategyMin:
		if p.Range != nil {
			return fit(p.Range.Min, width, p.Signed)
		}
		return truncate(minOf(width, p.Signed), width), nil
	case registry.StrategyConst, registry.StrategySentinel:
		v := truncate(s.Val, width)
		if v != s.Val && uint64(signExtend(v, width)) != s.Val {
			return 0, fmt.Errorf("%v does not fit into %v bits", s, width)
		}
		return v, nil
	case registry.StrategyOverflow:
		v, err := overflow(s)
		if err != nil {
			return 0, err
		}
		if v > maxOf(width, p.Signed) {
			return 0, fmt.Errorf("%v needs %#x which does not fit the %v-bit param", s, v, width)
		}
		return v, nil
	}
	return 0, fmt.Errorf("unknown strategy %v", s.Kind)
}

// overflow returns the smallest v such that Known op v exceeds the range of
// the Bits-wide intermediate type, multiplied by Scale.
func overflow(s registry.Strategy) (uint64, error) {
	if s.Bits < 8 || s.Bits > 64 || s.Known == 0 {
		return 0, fmt.Errorf("bad overflow parameters %v", s)
	}
	limit := maxOf(s.Bits, s.Signed)
	if s.Known > limit {
		return 0, fmt.Errorf("known operand %#x already overflows %v bits", s.Known, s.Bits)
	}
	var v uint64
	switch s.Op {
	case registry.OpAdd:
		v = limit - s.Known + 1
	case registry.OpMul:
		if limit/s.Known == ^uint64(0) {
			return 0, fmt.Errorf("%v can't overflow", s)
		}
		v = limit/s.Known + 1
	default:
		return 0, fmt.Errorf("unknown op %v", s.Op)
	}
	if s.Scale > 1 {
		hi, lo := bits.Mul64(v, s.Scale)
		if hi != 0 {
			return 0, fmt.Errorf("%#x * %v overflows 64 bits", v, s.Scale)
		}
		v = lo
	}
	return v, nil
}

// fit truncates a range bound to width, bounds that lose bits are errors.
func fit(v, width uint64, signed bool) (uint64, error) {
	t := truncate(v, width)
	if t != v && (!signed || uint64(signExtend(t, width)) != v) {
		return 0, fmt.Errorf("range bound %#x does not fit into %v bits", v, width)
	}
	return t, nil
}

func maxOf(width uint64, signed bool) uint64 {
	if signed {
		return 1<<(width-1) - 1
	}
	if width == 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}

func minOf(width uint64, signed bool) uint64 {
	if signed {
		return uint64(int64(-1) << (width - 1))
	}
	return 0
}

func truncate(v, width uint64) uint64 {
	if width >= 64 {
		return v
	}
	return v & (1<<width - 1)
}

func signExtend(v, width uint64) int64 {
	if width >= 64 {
		return int64(v)
	}
	shift := 64 - width
	return int64(v<<shift) >> shift
}

// Signature identifies a vector of values for reproduction.
func Signature(vals []Value) hash.Sig {
	raw := make([]uint64, len(vals))
	for i, v := range vals {
		raw[i] = v.Val
	}
	return hash.Uint64s(raw...)
}

// Format renders values as the comma-separated hex list the executor accepts.
func Format(vals []Value) string {
	strs := make([]string, len(vals))
	for i, v := range vals {
		strs[i] = fmt.Sprintf("%#x", v.Val)
	}
	return strings.Join(strs, ",")
}

// Parse is the reverse of Format: it assigns the listed values to the int
// leaves of the case call and checks they fit.
func Parse(c *registry.Case, str string) ([]Value, error) {
	var raw []string
	if str != "" {
		raw = strings.Split(str, ",")
	}
	var res []Value
	registry.ForEachInt(c.Call.Args, func(path string, p *registry.Param) {
		res = append(res, Value{Path: path, Size: p.Size, Signed: p.Signed})
	})
	if len(raw) != len(res) {
		return nil, fmt.Errorf("case %v takes %v values, got %v", c.ID, len(res), len(raw))
	}
	for i, s := range raw {
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", s, err)
		}
		if truncate(v, res[i].Size*8) != v {
			return nil, fmt.Errorf("value %#x does not fit %v", v, res[i].Path)
		}
		res[i].Val = v
	}
	return res, nil
}
