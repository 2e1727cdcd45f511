// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package report

import (
	"bytes"
	"fmt"
	"strings"

	dmp "github.com/sergi/go-diff/diffmatchpatch"
)

type Change struct {
	ID  string
	Old string
	New string
}

func (c Change) String() string {
	return fmt.Sprintf("%v: %v -> %v", c.ID, c.Old, c.New)
}

// Comparison lists per-case differences between two runs.
type Comparison struct {
	// Fixed cases did not pass in the old run and pass in the new one.
	Fixed []Change
	// Regressed cases passed in the old run and do not pass in the new one.
	Regressed []Change
	// Changed cases have a different classification but the same pass status.
	Changed []Change
	Added   []string
	Removed []string
}

func (cmp *Comparison) Empty() bool {
	return len(cmp.Fixed)+len(cmp.Regressed)+len(cmp.Changed)+len(cmp.Added)+len(cmp.Removed) == 0
}

// Compare matches outcomes by case id, the order follows the new report.
func Compare(before, after *Report) *Comparison {
	res := new(Comparison)
	seen := make(map[string]bool)
	for _, o := range after.Results {
		seen[o.ID] = true
		prev := before.Lookup(o.ID)
		if prev == nil {
			res.Added = append(res.Added, o.ID)
			continue
		}
		if prev.Class == o.Class && prev.CrashTitle == o.CrashTitle {
			continue
		}
		change := Change{o.ID, prev.String(), o.String()}
		switch {
		case !prev.Pass && o.Pass:
			res.Fixed = append(res.Fixed, change)
		case prev.Pass && !o.Pass:
			res.Regressed = append(res.Regressed, change)
		default:
			res.Changed = append(res.Changed, change)
		}
	}
	for _, o := range before.Results {
		if !seen[o.ID] {
			res.Removed = append(res.Removed, o.ID)
		}
	}
	return res
}

func (cmp *Comparison) Text() []byte {
	buf := new(bytes.Buffer)
	section := func(title string, changes []Change) {
		if len(changes) == 0 {
			return
		}
		fmt.Fprintf(buf, "%v:\n", title)
		for _, c := range changes {
			fmt.Fprintf(buf, "\t%v\n", c)
		}
	}
	section("REGRESSED", cmp.Regressed)
	section("FIXED", cmp.Fixed)
	section("CHANGED", cmp.Changed)
	if len(cmp.Added) != 0 {
		fmt.Fprintf(buf, "ADDED: %v\n", strings.Join(cmp.Added, " "))
	}
	if len(cmp.Removed) != 0 {
		fmt.Fprintf(buf, "REMOVED: %v\n", strings.Join(cmp.Removed, " "))
	}
	return buf.Bytes()
}

// LineDiff returns a line-based diff of two texts in which every line
// is prefixed with '-', '+' or ' '.
func LineDiff(before, after string) string {
	differ := dmp.New()
	a, b, lines := differ.DiffLinesToChars(before, after)
	diffs := differ.DiffCharsToLines(differ.DiffMain(a, b, false), lines)
	buf := new(strings.Builder)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case dmp.DiffDelete:
			prefix = "-"
		case dmp.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			buf.WriteString(prefix + line)
			if !strings.HasSuffix(line, "\n") {
				buf.WriteString("\n")
			}
		}
	}
	return buf.String()
}
