// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package runcfg loads and validates the configuration of a syz-bound run.
package runcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/syzbound/syzbound/pkg/config"
	"github.com/syzbound/syzbound/pkg/osutil"
	"github.com/syzbound/syzbound/pkg/registry"
	"github.com/syzbound/syzbound/sys/targets"
)

const maxProcs = 64

func LoadData(data []byte, format config.Format) (*Config, error) {
	cfg, err := LoadPartialData(data, format)
	if err != nil {
		return nil, err
	}
	if err := Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFile(filename string) (*Config, error) {
	cfg, err := LoadPartialFile(filename)
	if err != nil {
		return nil, err
	}
	if err := Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPartialData loads the config on top of the default values without
// validation, the caller may adjust it and then must call Complete.
func LoadPartialData(data []byte, format config.Format) (*Config, error) {
	cfg := Defaults()
	if err := config.LoadData(data, format, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadPartialFile(filename string) (*Config, error) {
	cfg := Defaults()
	if err := config.LoadFile(filename, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a partial config with the default values.
func Defaults() *Config {
	return &Config{
		Procs:   runtime.NumCPU(),
		Timeout: Duration(10 * time.Second),
		Sandbox: "none",
	}
}

func Complete(cfg *Config) error {
	target, err := targets.Parse(cfg.Target)
	if err != nil {
		return fmt.Errorf("bad config param target: %w", err)
	}
	cfg.SysTarget = target
	cfg.Target = target.String()
	if cfg.Workdir == "" {
		return fmt.Errorf("config param workdir is empty")
	}
	cfg.Workdir = osutil.Abs(cfg.Workdir)
	if cfg.Procs < 1 || cfg.Procs > maxProcs {
		return fmt.Errorf("bad config param procs: '%v', want [1, %v]", cfg.Procs, maxProcs)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("bad config param timeout: '%v'", time.Duration(cfg.Timeout))
	}
	switch cfg.Sandbox {
	case "none":
	case "namespace":
		if !osutil.SandboxSupported() {
			return fmt.Errorf("sandbox namespace is not supported on %v", runtime.GOOS)
		}
		if !osutil.IsRoot() {
			return fmt.Errorf("sandbox namespace requires root")
		}
	default:
		return fmt.Errorf("config param sandbox must contain one of none/namespace")
	}
	if err := completeExecutor(cfg); err != nil {
		return err
	}
	if cfg.Console != "" {
		cfg.Console = osutil.Abs(cfg.Console)
	}
	if cfg.Report == "" {
		cfg.Report = filepath.Join(cfg.Workdir, "report.json")
	}
	cfg.Report = osutil.Abs(cfg.Report)
	if _, err := cfg.Overrides(); err != nil {
		return err
	}
	return nil
}

func completeExecutor(cfg *Config) error {
	if cfg.Executor == "" {
		if !cfg.SysTarget.IsHost() {
			// Nothing can be executed for a foreign target.
			return nil
		}
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to find own executable: %w", err)
		}
		cfg.Executor = exe
	}
	cfg.Executor = osutil.Abs(cfg.Executor)
	if !osutil.IsExist(cfg.Executor) {
		return fmt.Errorf("bad config param executor: can't find %v", cfg.Executor)
	}
	return nil
}

// Sandboxed says if the executor must enter fresh namespaces.
func (cfg *Config) Sandboxed() bool {
	return cfg.Sandbox == "namespace"
}

// Overrides parses cases_params into strategies keyed by case id and param path.
func (cfg *Config) Overrides() (map[string]map[string]registry.Strategy, error) {
	if len(cfg.CasesParams) == 0 {
		return nil, nil
	}
	res := make(map[string]map[string]registry.Strategy)
	ids := make([]string, 0, len(cfg.CasesParams))
	for id := range cfg.CasesParams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		res[id] = make(map[string]registry.Strategy)
		for path, sc := range cfg.CasesParams[id] {
			s, err := sc.Parse()
			if err != nil {
				return nil, fmt.Errorf("bad cases_params for %v param %v: %w", id, path, err)
			}
			res[id][path] = s
		}
	}
	return res, nil
}
