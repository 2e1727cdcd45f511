// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// syz-bound-diff compares two syz-bound reports (e.g. before and after a kernel update):
//
//	syz-bound-diff [-text] old.json new.json
//
// It lists regressed, fixed and otherwise changed cases and exits with status 1
// if any case regressed.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/syzbound/syzbound/pkg/report"
	"github.com/syzbound/syzbound/pkg/tool"
)

var flagText = flag.Bool("text", false, "also print a line diff of the text renderings")

func main() {
	defer tool.Init()()
	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "usage: syz-bound-diff [flags] old.json new.json\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	before, err := report.Load(flag.Arg(0))
	if err != nil {
		tool.Fail(err)
	}
	after, err := report.Load(flag.Arg(1))
	if err != nil {
		tool.Fail(err)
	}
	if before.Target != after.Target {
		fmt.Printf("targets differ: %v vs %v\n", before.Target, after.Target)
	}
	res := report.Compare(before, after)
	if res.Empty() {
		fmt.Printf("no changes\n")
	}
	os.Stdout.Write(res.Text())
	if *flagText {
		fmt.Printf("\n%v", report.LineDiff(string(before.Text()), string(after.Text())))
	}
	if len(res.Regressed) != 0 {
		os.Exit(1)
	}
}
