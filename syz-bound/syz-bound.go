// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// syz-bound replays the boundary cases of a target OS against the running kernel
// and reports how each of them was handled: rejected with an error, accepted,
// crashed the executor, hung or could not be set up.
//
// Usage:
//
//	syz-bound -config bound.yml
//	syz-bound -workdir /tmp/bound -enable 'linux-mmap-*'
//	syz-bound -target openbsd -dump
//
// The binary re-executes itself with the "executor" subcommand for every case.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/syzbound/syzbound/pkg/argsynth"
	"github.com/syzbound/syzbound/pkg/executor"
	"github.com/syzbound/syzbound/pkg/invoker"
	"github.com/syzbound/syzbound/pkg/log"
	"github.com/syzbound/syzbound/pkg/osutil"
	"github.com/syzbound/syzbound/pkg/registry"
	"github.com/syzbound/syzbound/pkg/report"
	"github.com/syzbound/syzbound/pkg/runcfg"
	"github.com/syzbound/syzbound/pkg/runner"
	"github.com/syzbound/syzbound/pkg/stat"
	"github.com/syzbound/syzbound/pkg/tool"
	"github.com/syzbound/syzbound/sys"
	"github.com/syzbound/syzbound/sys/targets"
)

var (
	flagConfig  = flag.String("config", "", "configuration file (.json or .yaml)")
	flagWorkdir = flag.String("workdir", "", "working directory (overrides config)")
	flagTarget  = flag.String("target", "", "target os/arch (overrides config, host by default)")
	flagProcs   = flag.Int("procs", 0, "number of parallel cases (overrides config)")
	flagReport  = flag.String("report", "", "report file, .json, .yaml or .txt (overrides config)")
	flagDump    = flag.Bool("dump", false, "print the selected cases with their arguments and exit")
	flagEnable  tool.ListFlag
	flagDisable tool.ListFlag
)

const statsPeriod = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == executor.Subcommand {
		os.Exit(runExecutor(os.Args[2:]))
	}
	flag.Var(&flagEnable, "enable", "comma-separated glob patterns of cases to run (overrides config)")
	flag.Var(&flagDisable, "disable", "comma-separated glob patterns of cases to skip (overrides config)")
	os.Exit(run())
}

func runExecutor(args []string) int {
	target := targets.Host()
	if target == nil {
		fmt.Fprintf(os.Stderr, "host is not supported\n")
		return executor.StatusFail
	}
	reg, err := sys.Init(target, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return executor.StatusFail
	}
	return executor.Main(reg, args, os.Stdout)
}

func run() int {
	defer tool.Init()()
	cfg, err := loadConfig()
	if err != nil {
		tool.Fail(err)
	}
	overrides, err := cfg.Overrides()
	if err != nil {
		tool.Fail(err)
	}
	reg, err := sys.Init(cfg.SysTarget, overrides)
	if err != nil {
		tool.Fail(err)
	}
	cases, err := reg.Select(cfg.EnableCases, cfg.DisableCases)
	if err != nil {
		tool.Fail(err)
	}
	if *flagDump {
		dump(cases)
		return 0
	}
	if !cfg.SysTarget.IsHost() {
		tool.Failf("cases for %v can't be executed on this machine, use -dump", cfg.SysTarget)
	}
	rep, err := runCases(cfg, cases)
	if err != nil {
		log.Logf(0, "%v", err)
	}
	if rep == nil {
		return 1
	}
	os.Stdout.Write(rep.Text())
	if err := rep.Save(cfg.Report); err != nil {
		tool.Failf("failed to save report: %v", err)
	}
	log.Logf(0, "report saved to %v", cfg.Report)
	if !rep.OK() {
		return 1
	}
	return 0
}

func loadConfig() (*runcfg.Config, error) {
	cfg := runcfg.Defaults()
	if *flagConfig != "" {
		var err error
		if cfg, err = runcfg.LoadPartialFile(*flagConfig); err != nil {
			return nil, err
		}
	}
	if *flagWorkdir != "" {
		cfg.Workdir = *flagWorkdir
	}
	if *flagTarget != "" {
		cfg.Target = *flagTarget
	}
	if *flagProcs != 0 {
		cfg.Procs = *flagProcs
	}
	if *flagReport != "" {
		cfg.Report = *flagReport
	}
	if len(flagEnable) != 0 {
		cfg.EnableCases = flagEnable
	}
	if len(flagDisable) != 0 {
		cfg.DisableCases = flagDisable
	}
	if cfg.Workdir == "" && *flagDump {
		// Nothing is written in dump mode.
		cfg.Workdir = os.TempDir()
	}
	if err := runcfg.Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCases(cfg *runcfg.Config, cases []*registry.Case) (*report.Report, error) {
	log.EnableLogCaching(1000, 1<<20)
	tmpDir := filepath.Join(cfg.Workdir, "tmp")
	if err := osutil.MkdirAll(tmpDir); err != nil {
		return nil, fmt.Errorf("failed to create workdir: %w", err)
	}
	parser, err := report.NewParser(cfg.SysTarget.OS, cfg.Ignores)
	if err != nil {
		return nil, err
	}
	privileged := osutil.IsRoot() || cfg.ForcePrivileged
	inv := invoker.New(cfg.Executor, tmpDir, time.Duration(cfg.Timeout), cfg.Sandboxed())
	r := runner.New(runner.Config{
		RunID:      uuid.NewString(),
		Target:     cfg.Target,
		Cases:      cases,
		Procs:      cfg.Procs,
		Workdir:    cfg.Workdir,
		Parser:     parser,
		Console:    cfg.Console,
		Privileged: privileged,
	}, inv)
	if !privileged {
		log.Logf(0, "not running as root, privileged cases are skipped")
	}
	if cfg.HTTP != "" {
		serveHTTP(cfg.HTTP, r)
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	shutdown := make(chan struct{})
	osutil.HandleInterrupts(shutdown)
	go func() {
		ticker := time.NewTicker(statsPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-shutdown:
				cancel(errors.New("got a signal"))
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				logStats()
			}
		}
	}()
	return r.Run(ctx)
}

func logStats() {
	line := ""
	for _, v := range stat.Collect(stat.Console) {
		line += fmt.Sprintf("%v: %v ", v.Name, v.Value)
	}
	if line != "" {
		log.Logf(0, "%v", line)
	}
}

func dump(cases []*registry.Case) {
	for _, c := range cases {
		vals, err := argsynth.Synthesize(c)
		if err != nil {
			tool.Fail(err)
		}
		fmt.Printf("%v: %v(%v) sig=%v", c.ID, c.Call.Name, argsynth.Format(vals), argsynth.Signature(vals).Short())
		if c.Privileged {
			fmt.Printf(" [privileged]")
		}
		fmt.Printf("\n")
		for _, step := range c.Setup {
			fmt.Printf("\tsetup: %v\n", step)
		}
		for _, v := range vals {
			fmt.Printf("\t%v\n", v)
		}
	}
}
