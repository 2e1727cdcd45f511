// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package registry holds the catalog of boundary cases of one target.
// A Registry is filled once at startup, frozen and then only read,
// so it can be shared between workers without locking.
package registry

import (
	"errors"
	"fmt"
	"iter"
	"path"
	"slices"
	"sort"

	"github.com/syzbound/syzbound/sys/targets"
)

type DuplicateIDError struct {
	ID string
}

func (err *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate case id %q", err.ID)
}

var ErrFrozen = errors.New("registry is frozen")

type Registry struct {
	target *targets.Target
	cases  []*Case
	byID   map[string]*Case
	frozen bool
}

func New(target *targets.Target) *Registry {
	return &Registry{
		target: target,
		byID:   make(map[string]*Case),
	}
}

func (r *Registry) Target() *targets.Target {
	return r.target
}

// Register validates c, resolves syscall numbers and appends it to the catalog.
func (r *Registry) Register(c *Case) error {
	if r.frozen {
		return ErrFrozen
	}
	if c.ID == "" {
		return fmt.Errorf("case without id")
	}
	if r.byID[c.ID] != nil {
		return &DuplicateIDError{ID: c.ID}
	}
	if err := r.check(c); err != nil {
		return fmt.Errorf("case %v: %w", c.ID, err)
	}
	r.cases = append(r.cases, c)
	r.byID[c.ID] = c
	return nil
}

func (r *Registry) Freeze() {
	r.frozen = true
}

// Cases iterates over cases in registration order.
// The sequence can be iterated any number of times.
func (r *Registry) Cases() iter.Seq[*Case] {
	return func(yield func(*Case) bool) {
		for _, c := range r.cases {
			if !yield(c) {
				return
			}
		}
	}
}

func (r *Registry) Lookup(id string) *Case {
	return r.byID[id]
}

func (r *Registry) Len() int {
	return len(r.cases)
}

// Select returns clones of cases that match any of the enable globs (all if enable
// is empty) and none of the disable globs, in registration order.
func (r *Registry) Select(enable, disable []string) ([]*Case, error) {
	for _, pattern := range append(slices.Clone(enable), disable...) {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("bad case pattern %q: %w", pattern, err)
		}
	}
	matches := func(patterns []string, id string) bool {
		for _, pattern := range patterns {
			if ok, _ := path.Match(pattern, id); ok {
				return true
			}
		}
		return false
	}
	var res []*Case
	for c := range r.Cases() {
		if len(enable) != 0 && !matches(enable, c.ID) || matches(disable, c.ID) {
			continue
		}
		res = append(res, c.Clone())
	}
	for _, pattern := range enable {
		if !slices.ContainsFunc(res, func(c *Case) bool { return matches([]string{pattern}, c.ID) }) {
			return nil, fmt.Errorf("enabled case pattern %q matches no cases", pattern)
		}
	}
	return res, nil
}

func (r *Registry) check(c *Case) error {
	if c.OS == "" {
		c.OS = r.target.OS
	}
	if c.OS != r.target.OS {
		return fmt.Errorf("case is for %v, registry is for %v", c.OS, r.target.OS)
	}
	if c.Call == nil {
		return fmt.Errorf("no call")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout")
	}
	resources := make(map[string]bool)
	if err := r.checkSteps("setup", c.Setup, resources); err != nil {
		return err
	}
	if c.Call.Ret != "" {
		return fmt.Errorf("tested call %v can't produce a resource", c.Call.Name)
	}
	if err := r.checkCall(c.Call, resources, false); err != nil {
		return err
	}
	if err := r.checkSteps("teardown", c.Teardown, resources); err != nil {
		return err
	}
	for _, res := range c.Exclusive {
		if res == "" {
			return fmt.Errorf("empty exclusive resource")
		}
	}
	c.Exclusive = slices.Clone(c.Exclusive)
	sort.Strings(c.Exclusive)
	c.Exclusive = slices.Compact(c.Exclusive)
	return nil
}

func (r *Registry) checkSteps(what string, steps []*SetupStep, resources map[string]bool) error {
	for i, step := range steps {
		switch step.Kind {
		case StepMkdir, StepWriteFile:
			if step.Path == "" {
				return fmt.Errorf("%v step %v: no path", what, i)
			}
		case StepCall:
			if err := r.checkCall(step.Call, resources, true); err != nil {
				return fmt.Errorf("%v step %v: %w", what, i, err)
			}
			if step.Call.Ret != "" {
				resources[step.Call.Ret] = true
			}
		default:
			return fmt.Errorf("%v step %v: unknown kind %v", what, i, step.Kind)
		}
	}
	return nil
}

func (r *Registry) checkCall(call *Call, resources map[string]bool, setup bool) error {
	nr, err := r.target.SyscallNR(call.Name)
	if err != nil {
		return err
	}
	call.NR = nr
	if len(call.Args) > r.target.MaxArgs {
		return fmt.Errorf("%v has %v args, %v supports at most %v",
			call.Name, len(call.Args), r.target, r.target.MaxArgs)
	}
	return checkParams(call.Name, call.Args, resources, setup)
}

func checkParams(ctx string, params []*Param, resources map[string]bool, setup bool) error {
	names := make(map[string]bool)
	for _, p := range params {
		if p.Name == "" {
			return fmt.Errorf("%v: unnamed param", ctx)
		}
		if names[p.Name] {
			return fmt.Errorf("%v: duplicate param %v", ctx, p.Name)
		}
		names[p.Name] = true
		where := ctx + "." + p.Name
		switch p.Kind {
		case KindInt:
			switch p.Size {
			case 1, 2, 4, 8:
			default:
				return fmt.Errorf("%v: bad int size %v", where, p.Size)
			}
			if setup && p.Strategy.Kind != StrategyConst {
				return fmt.Errorf("%v: setup call args must be const, got %v", where, p.Strategy)
			}
			if p.Range != nil {
				if err := checkRange(p); err != nil {
					return fmt.Errorf("%v: %w", where, err)
				}
			}
			if err := p.Strategy.validate(); err != nil {
				return fmt.Errorf("%v: %w", where, err)
			}
		case KindResource:
			if !resources[p.Ref] {
				return fmt.Errorf("%v: resource %q is not produced by an earlier setup call", where, p.Ref)
			}
			switch p.Size {
			case 0, 4, 8:
			default:
				return fmt.Errorf("%v: bad resource size %v", where, p.Size)
			}
		case KindPtr:
			if len(p.Fields) == 0 {
				return fmt.Errorf("%v: pointer to empty struct", where)
			}
			if err := checkParams(where, p.Fields, resources, setup); err != nil {
				return err
			}
		case KindString:
		case KindBuffer:
			if p.Size == 0 {
				return fmt.Errorf("%v: empty buffer", where)
			}
		default:
			return fmt.Errorf("%v: unknown kind %v", where, p.Kind)
		}
	}
	return nil
}

func checkRange(p *Param) error {
	if p.Strategy.Kind != StrategyMax && p.Strategy.Kind != StrategyMin {
		return fmt.Errorf("range is only used by max/min strategies")
	}
	for _, v := range []uint64{p.Range.Min, p.Range.Max} {
		if !fits(v, p.Size, p.Signed) {
			return fmt.Errorf("range bound %#x does not fit into %v bytes", v, p.Size)
		}
	}
	lo, hi := p.Range.Min, p.Range.Max
	if p.Signed && asSigned(lo, p.Size) > asSigned(hi, p.Size) ||
		!p.Signed && lo > hi {
		return fmt.Errorf("range min %#x is above max %#x", lo, hi)
	}
	return nil
}

// Override replaces the strategy of the int param at path (e.g. "tp.tv_sec").
// Must be called before the case is registered.
func Override(c *Case, path string, s Strategy) error {
	if c.Call == nil {
		return fmt.Errorf("case %v: no call", c.ID)
	}
	p := FindParam(c.Call.Args, path)
	if p == nil || p.Kind != KindInt {
		return fmt.Errorf("case %v: no int param %v", c.ID, path)
	}
	if err := s.validate(); err != nil {
		return fmt.Errorf("case %v: param %v: %w", c.ID, path, err)
	}
	p.Strategy = s
	if s.Kind != StrategyMax && s.Kind != StrategyMin {
		p.Range = nil
	}
	return nil
}
