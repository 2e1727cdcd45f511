// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package sys binds the case catalogs of all OSes to targets.
package sys

import (
	"fmt"
	"sort"

	"github.com/syzbound/syzbound/pkg/argsynth"
	"github.com/syzbound/syzbound/pkg/registry"
	"github.com/syzbound/syzbound/sys/linux"
	"github.com/syzbound/syzbound/sys/openbsd"
	"github.com/syzbound/syzbound/sys/targets"
	"github.com/syzbound/syzbound/sys/test"
)

var catalogs = map[string]func(*targets.Target) []*registry.Case{
	targets.TestOS:  test.Cases,
	targets.Linux:   linux.Cases,
	targets.OpenBSD: openbsd.Cases,
}

// Init registers the catalog of the target OS with per-case strategy overrides
// (case id -> param path -> strategy) applied, and returns the frozen registry.
// It fails if a case is malformed, an override names an unknown case or param,
// or the arguments of a case can't be synthesized.
func Init(target *targets.Target, overrides map[string]map[string]registry.Strategy) (
	*registry.Registry, error) {
	cases := catalogs[target.OS]
	if cases == nil {
		return nil, fmt.Errorf("no cases for %v", target.OS)
	}
	reg := registry.New(target)
	used := make(map[string]bool)
	for _, c := range cases(target) {
		paths := make([]string, 0, len(overrides[c.ID]))
		for path := range overrides[c.ID] {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			if err := registry.Override(c, path, overrides[c.ID][path]); err != nil {
				return nil, err
			}
		}
		used[c.ID] = true
		if err := reg.Register(c); err != nil {
			return nil, err
		}
		if _, err := argsynth.Synthesize(c); err != nil {
			return nil, err
		}
	}
	for id := range overrides {
		if !used[id] {
			return nil, fmt.Errorf("cases_params: unknown case %v", id)
		}
	}
	reg.Freeze()
	return reg, nil
}
