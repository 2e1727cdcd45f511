// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package runner executes the selected cases of a run on a bounded pool of
// workers and collects exactly one outcome per case.
//
// Cases are dispatched in registration order. A case holds the locks of all
// its exclusive resources (e.g. a mount point) while it runs, so cases that
// share a resource never overlap. An error returned by the invoker (the harness
// can't start children anymore) aborts the run: running cases are canceled and
// the cases that did not finish are reported as NOT_RUN with the abort reason.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/syzbound/syzbound/pkg/argsynth"
	"github.com/syzbound/syzbound/pkg/classify"
	"github.com/syzbound/syzbound/pkg/invoker"
	"github.com/syzbound/syzbound/pkg/log"
	"github.com/syzbound/syzbound/pkg/registry"
	"github.com/syzbound/syzbound/pkg/report"
	"github.com/syzbound/syzbound/pkg/stat"
	"golang.org/x/sync/errgroup"
)

// Invoker executes one case, *invoker.Invoker in production.
type Invoker interface {
	Invoke(ctx context.Context, c *registry.Case, vals []argsynth.Value) (*invoker.RawResult, error)
}

type Config struct {
	RunID  string
	Target string
	Cases  []*registry.Case
	Procs  int
	// Workdir receives crash logs of cases that did not pass (optional).
	Workdir string
	// Parser extracts kernel crash titles from outputs (optional).
	Parser *report.Parser
	// Console is a file with the kernel console output (optional).
	Console string
	// Privileged enables cases that need root.
	Privileged bool
}

type Runner struct {
	cfg       Config
	invoker   Invoker
	collector *report.Collector
	locks     *keyLocks
	console   *console
}

// ErrInterrupted is the abort reason of runs canceled by the caller.
var ErrInterrupted = errors.New("interrupted")

var (
	statExecs = stat.New("exec total", "Total number of executed cases",
		stat.Console, stat.Rate{}, stat.Prometheus("syz_bound_exec_total"))
	statRunning = stat.New("running", "Number of running executor children",
		stat.Console, stat.Prometheus("syz_bound_running"))
	statExecTime = stat.New("exec time", "Execution time of cases (ms)", stat.Distribution{})
	statFailed   = stat.New("failed", "Number of cases that did not pass",
		stat.Console, stat.Prometheus("syz_bound_failed"))
	statClasses = func() map[classify.Class]*stat.Val {
		res := make(map[classify.Class]*stat.Val)
		for _, class := range classify.Classes() {
			res[class] = stat.New("class "+class.String(), "Number of cases classified as "+class.String())
		}
		return res
	}()
)

func New(cfg Config, inv Invoker) *Runner {
	if cfg.Procs < 1 {
		cfg.Procs = 1
	}
	r := &Runner{
		cfg:       cfg,
		invoker:   inv,
		collector: report.NewCollector(cfg.RunID, cfg.Target, cfg.Cases),
		locks:     newKeyLocks(),
	}
	if cfg.Console != "" {
		r.console = &console{file: cfg.Console}
	}
	return r
}

// Run executes all cases and returns the report. The report is returned even
// if the run was aborted, the error says why.
func (r *Runner) Run(ctx context.Context) (*report.Report, error) {
	log.Logf(0, "running %v cases on %v with %v procs", len(r.cfg.Cases), r.cfg.Target, r.cfg.Procs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Procs)
	for _, c := range r.cfg.Cases {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return r.runCase(gctx, c)
		})
	}
	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
	}
	aborted := ""
	if err != nil {
		aborted = err.Error()
		log.Logf(0, "run aborted: %v", err)
	}
	return r.collector.Report(aborted), err
}

// Snapshot returns the report of the outcomes collected so far.
func (r *Runner) Snapshot() *report.Report {
	return r.collector.Report("")
}

func (r *Runner) runCase(ctx context.Context, c *registry.Case) error {
	if ctx.Err() != nil {
		return nil
	}
	if c.Privileged && !r.cfg.Privileged {
		log.Logf(1, "%v: setup failed, requires root", c.ID)
		statClasses[classify.SetupFailed].Add(1)
		return r.collector.Add(report.SetupFailed(c, "requires root"))
	}
	vals, err := argsynth.Synthesize(c)
	if err != nil {
		return err
	}
	unlock, err := r.locks.lock(ctx, c.Exclusive)
	if err != nil {
		// Canceled while waiting for an exclusive resource.
		return nil
	}
	defer unlock()
	mark := r.console.mark()
	statRunning.Add(1)
	raw, err := r.invoker.Invoke(ctx, c, vals)
	statRunning.Add(-1)
	if err != nil {
		return fmt.Errorf("case %v: %w", c.ID, err)
	}
	class := classify.Classify(raw, c.Expect)
	if class == classify.NotRun {
		return nil
	}
	statExecs.Add(1)
	statExecTime.Add(int(raw.Duration() / time.Millisecond))
	statClasses[class].Add(1)
	o := report.NewOutcome(c, raw, class)
	if !o.Pass {
		statFailed.Add(1)
		r.inspect(c, o, mark)
	}
	log.Logf(1, "%v: %v", c.ID, o)
	return r.collector.Add(o)
}

// inspect attaches the kernel crash title and the saved output to a failed outcome.
func (r *Runner) inspect(c *registry.Case, o *report.Outcome, mark int64) {
	output := o.Output
	if r.cfg.Parser != nil {
		o.CrashTitle = r.cfg.Parser.Title(output)
	}
	if o.Class == classify.Crashed || o.Class == classify.TimedOut {
		con, err := r.console.since(mark)
		if err != nil {
			log.Logf(0, "%v: %v", c.ID, err)
		}
		if len(con) != 0 {
			output = append(append(output[:len(output):len(output)], "\n--- console ---\n"...), con...)
			if o.CrashTitle == "" && r.cfg.Parser != nil {
				o.CrashTitle = r.cfg.Parser.Title(con)
			}
		}
	}
	if r.cfg.Workdir == "" || len(output) == 0 {
		return
	}
	file, err := report.SaveCrashLog(r.cfg.Workdir, c.ID, output)
	if err != nil {
		log.Logf(0, "%v: failed to save crash log: %v", c.ID, err)
		return
	}
	o.CrashLog = file
}
