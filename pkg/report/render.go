// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/syzbound/syzbound/pkg/config"
	"github.com/syzbound/syzbound/pkg/osutil"
)

// Text renders a human-readable table of the report.
func (rep *Report) Text() []byte {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "run %v on %v: %v passed, %v failed", rep.RunID, rep.Target, rep.Passed, rep.Failed)
	if rep.Aborted != "" {
		fmt.Fprintf(buf, ", ABORTED: %v", rep.Aborted)
	}
	fmt.Fprintf(buf, "\n\n")
	w := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CASE\tCALL\tEXPECT\tRESULT\tTIME\n")
	for _, o := range rep.Results {
		status := "ok"
		if !o.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v %v\t%v\n", o.ID, o.Call, o.Expect, status, o, o.Duration.Round(time.Millisecond))
	}
	w.Flush()
	fmt.Fprintf(buf, "\n")
	var counts []string
	for _, cc := range rep.Counts {
		counts = append(counts, fmt.Sprintf("%v: %v", cc.Class, cc.Count))
	}
	fmt.Fprintf(buf, "%v\n", strings.Join(counts, ", "))
	return buf.Bytes()
}

// Save writes the report to file: JSON or YAML depending on the extension,
// plain text for .txt.
func (rep *Report) Save(file string) error {
	if strings.EqualFold(filepath.Ext(file), ".txt") {
		return osutil.WriteFileAtomic(file, rep.Text())
	}
	data, err := config.Marshal(rep, config.FormatOf(file))
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return osutil.WriteFileAtomic(file, data)
}

func Load(file string) (*Report, error) {
	rep := new(Report)
	if err := config.LoadFile(file, rep); err != nil {
		return nil, fmt.Errorf("failed to load report %v: %w", file, err)
	}
	return rep, nil
}
