// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package registry

import (
	"fmt"
)

type StrategyKind int

const (
	StrategyConst StrategyKind = iota
	StrategyMax
	StrategyMin
	StrategyOverflow
	StrategySentinel
)

var strategyNames = [...]string{"const", "max", "min", "overflow", "sentinel"}

func (k StrategyKind) String() string {
	return strategyNames[k]
}

type Op int

const (
	OpAdd Op = iota
	OpMul
)

func (op Op) String() string {
	if op == OpMul {
		return "mul"
	}
	return "add"
}

// Strategy says how a boundary value is chosen for an int param.
// For overflow the width of the intermediate computation is a property of
// the kernel code under test, so it is given explicitly per case:
// the synthesized v is the smallest value such that Known op v does not fit
// into Bits (signed or not), then multiplied by Scale (unit conversion).
type Strategy struct {
	Kind   StrategyKind
	Val    uint64
	Op     Op
	Bits   uint64
	Signed bool
	Known  uint64
	Scale  uint64
}

func Const(v uint64) Strategy {
	return Strategy{Kind: StrategyConst, Val: v}
}

func Max() Strategy {
	return Strategy{Kind: StrategyMax}
}

func Min() Strategy {
	return Strategy{Kind: StrategyMin}
}

// Sentinel is the "no value" marker -1.
func Sentinel() Strategy {
	return Strategy{Kind: StrategySentinel, Val: ^uint64(0)}
}

func SentinelOf(v uint64) Strategy {
	return Strategy{Kind: StrategySentinel, Val: v}
}

func AddOverflow(bits uint64, signed bool, known uint64) Strategy {
	return Strategy{Kind: StrategyOverflow, Op: OpAdd, Bits: bits, Signed: signed, Known: known}
}

func MulOverflow(bits uint64, signed bool, known uint64) Strategy {
	return Strategy{Kind: StrategyOverflow, Op: OpMul, Bits: bits, Signed: signed, Known: known}
}

func (s Strategy) Scaled(scale uint64) Strategy {
	s.Scale = scale
	return s
}

func (s Strategy) String() string {
	switch s.Kind {
	case StrategyConst, StrategySentinel:
		return fmt.Sprintf("%v(%#x)", s.Kind, s.Val)
	case StrategyOverflow:
		sign := "u"
		if s.Signed {
			sign = "s"
		}
		str := fmt.Sprintf("overflow(%v %v%v known=%#x", s.Op, sign, s.Bits, s.Known)
		if s.Scale > 1 {
			str += fmt.Sprintf(" scale=%v", s.Scale)
		}
		return str + ")"
	default:
		return s.Kind.String()
	}
}

// StrategyConfig is the config file form of a Strategy.
type StrategyConfig struct {
	Strategy string `json:"strategy" yaml:"strategy"`
	Val      *int64 `json:"val,omitempty" yaml:"val,omitempty"`
	Op       string `json:"op,omitempty" yaml:"op,omitempty"`
	Bits     uint64 `json:"bits,omitempty" yaml:"bits,omitempty"`
	Signed   bool   `json:"signed,omitempty" yaml:"signed,omitempty"`
	Known    uint64 `json:"known,omitempty" yaml:"known,omitempty"`
	Scale    uint64 `json:"scale,omitempty" yaml:"scale,omitempty"`
}

func (cfg *StrategyConfig) Parse() (Strategy, error) {
	var s Strategy
	found := false
	for i, name := range strategyNames {
		if name == cfg.Strategy {
			s.Kind = StrategyKind(i)
			found = true
		}
	}
	if !found {
		return s, fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
	switch s.Kind {
	case StrategyConst:
		if cfg.Val == nil {
			return s, fmt.Errorf("const strategy needs val")
		}
		s.Val = uint64(*cfg.Val)
	case StrategySentinel:
		s.Val = ^uint64(0)
		if cfg.Val != nil {
			s.Val = uint64(*cfg.Val)
		}
	case StrategyOverflow:
		switch cfg.Op {
		case "add", "":
			s.Op = OpAdd
		case "mul":
			s.Op = OpMul
		default:
			return s, fmt.Errorf("unknown overflow op %q", cfg.Op)
		}
		s.Bits, s.Signed, s.Known, s.Scale = cfg.Bits, cfg.Signed, cfg.Known, cfg.Scale
	}
	return s, s.validate()
}

func (s Strategy) validate() error {
	if s.Kind != StrategyOverflow {
		return nil
	}
	if s.Bits < 8 || s.Bits > 64 {
		return fmt.Errorf("overflow width %v is out of [8, 64]", s.Bits)
	}
	if s.Known == 0 {
		return fmt.Errorf("overflow needs a non-zero known operand")
	}
	return nil
}
