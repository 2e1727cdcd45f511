// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package runcfg

import (
	"fmt"
	"time"

	"github.com/syzbound/syzbound/pkg/registry"
	"github.com/syzbound/syzbound/sys/targets"
)

type Config struct {
	// Target OS/arch, e.g. "openbsd/amd64" (host by default).
	// Only the host target can be executed, other targets are useful for -dump.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	// Location of a working directory for the run. Outputs here include:
	// - <workdir>/report.json: the run report (unless report is set)
	// - <workdir>/crashes/<case>.log.xz: outputs of cases that did not pass
	// - <workdir>/tmp/case-*: per case scratch directories (removed after the case)
	Workdir string `json:"workdir" yaml:"workdir"`
	// Harness binary re-executed as the executor (the running binary by default).
	Executor string `json:"executor,omitempty" yaml:"executor,omitempty"`
	// Number of cases executed in parallel (number of CPUs by default).
	Procs int `json:"procs,omitempty" yaml:"procs,omitempty"`
	// Per case timeout, e.g. "10s". Cases may declare their own timeout.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Type of sandbox the executor runs in:
	// "none": separate process and process group only,
	// "namespace": additionally fresh mount/ipc/uts namespaces (linux, requires root).
	Sandbox string `json:"sandbox,omitempty" yaml:"sandbox,omitempty"`

	// Glob patterns of case ids to run (all cases by default), e.g. ["openbsd-mmap-*"].
	EnableCases []string `json:"enable_cases,omitempty" yaml:"enable_cases,omitempty"`
	// Glob patterns of case ids to skip.
	DisableCases []string `json:"disable_cases,omitempty" yaml:"disable_cases,omitempty"`
	// Per case strategy overrides keyed by case id and param path, e.g.:
	//	"cases_params": {
	//		"openbsd-thrsleep-timespec": {
	//			"tp.tv_sec": {"strategy": "overflow", "op": "mul", "bits": 64, "signed": true, "known": 100}
	//		}
	//	}
	CasesParams map[string]map[string]registry.StrategyConfig `json:"cases_params,omitempty" yaml:"cases_params,omitempty"`
	// Privileged cases (mounts of tmpfs, mknod, etc) are skipped unless the harness runs as root.
	// Set to true to run them anyway and let them fail with EPERM.
	ForcePrivileged bool `json:"force_privileged,omitempty" yaml:"force_privileged,omitempty"`

	// File with the kernel console output (e.g. a serial log) to look for
	// kernel crash titles in after each crashed case (optional).
	Console string `json:"console,omitempty" yaml:"console,omitempty"`
	// Additional regexps of kernel messages that should not be treated as crashes.
	Ignores []string `json:"ignores,omitempty" yaml:"ignores,omitempty"`
	// Address of the status page with /metrics, /report and /log (optional),
	// e.g. "localhost:56741".
	HTTP string `json:"http,omitempty" yaml:"http,omitempty"`
	// Where to write the report, the format is chosen by extension:
	// .json, .yaml/.yml or .txt (<workdir>/report.json by default).
	Report string `json:"report,omitempty" yaml:"report,omitempty"`

	// Implementation details beyond this point. Filled after parsing.
	SysTarget *targets.Target `json:"-" yaml:"-"`
}

// Duration is a time.Duration that is written as "10s" in config files.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}
