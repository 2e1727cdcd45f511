// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package report

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// Parser detects kernel oops messages in child or console output
// and extracts a one-line title for the report.
type Parser struct {
	oopses  []*oops
	ignores []*regexp.Regexp
}

type oops struct {
	header       []byte
	formats      []oopsFormat
	suppressions []*regexp.Regexp
}

type oopsFormat struct {
	title *regexp.Regexp
	fmt   string
}

// NewParser returns a parser for kernel messages of the given OS.
// ignores are regexps matching first lines of oopses that should not be reported.
func NewParser(os string, ignores []string) (*Parser, error) {
	oopses := map[string][]*oops{
		"linux":   linuxOopses,
		"openbsd": openbsdOopses,
		"test":    testOopses,
	}[os]
	if oopses == nil {
		return nil, fmt.Errorf("no oops tables for %v", os)
	}
	p := &Parser{oopses: oopses}
	for _, ignore := range ignores {
		re, err := regexp.Compile(ignore)
		if err != nil {
			return nil, fmt.Errorf("bad ignore regexp %q: %w", ignore, err)
		}
		p.ignores = append(p.ignores, re)
	}
	return p, nil
}

func compile(re string) *regexp.Regexp {
	re = strings.ReplaceAll(re, "{{ADDR}}", "0x[0-9a-f]+")
	re = strings.ReplaceAll(re, "{{FUNC}}", "([a-zA-Z0-9_]+)(?:\\.|\\+)")
	re = strings.ReplaceAll(re, "{{SRC}}", "([a-zA-Z0-9-_/.]+\\.[a-z]+:[0-9]+)")
	return regexp.MustCompile(re)
}

func (p *Parser) ContainsCrash(output []byte) bool {
	_, oops := p.find(output)
	return oops != nil
}

// Title returns the title of the first oops in output, or "" if there is none.
func (p *Parser) Title(output []byte) string {
	pos, oops := p.find(output)
	if oops == nil {
		return ""
	}
	return extractDescription(output[pos:], oops)
}

func (p *Parser) find(output []byte) (int, *oops) {
	for pos := 0; pos < len(output); {
		next := bytes.IndexByte(output[pos:], '\n')
		if next != -1 {
			next += pos
		} else {
			next = len(output)
		}
		for _, oops := range p.oopses {
			if matchOops(output[pos:next], oops, p.ignores) {
				return pos, oops
			}
		}
		pos = next + 1
	}
	return 0, nil
}

func matchOops(line []byte, oops *oops, ignores []*regexp.Regexp) bool {
	if !bytes.Contains(line, oops.header) {
		return false
	}
	for _, supp := range oops.suppressions {
		if supp.Match(line) {
			return false
		}
	}
	for _, ignore := range ignores {
		if ignore.Match(line) {
			return false
		}
	}
	return true
}

func extractDescription(output []byte, oops *oops) string {
	desc := ""
	startPos := -1
	for _, format := range oops.formats {
		match := format.title.FindSubmatchIndex(output)
		if match == nil {
			continue
		}
		if startPos != -1 && startPos <= match[0] {
			continue
		}
		startPos = match[0]
		var args []any
		for i := 2; i < len(match); i += 2 {
			args = append(args, string(output[match[i]:match[i+1]]))
		}
		desc = fmt.Sprintf(format.fmt, args...)
	}
	if desc == "" {
		pos := bytes.Index(output, oops.header)
		end := bytes.IndexByte(output[pos:], '\n')
		if end == -1 {
			end = len(output)
		} else {
			end += pos
		}
		desc = string(output[pos:end])
	}
	desc = strings.TrimSpace(desc)
	// Corrupted/intermixed lines can be very long.
	const maxDescLen = 180
	if len(desc) > maxDescLen {
		desc = desc[:maxDescLen]
	}
	return desc
}

var openbsdOopses = []*oops{
	{
		[]byte("panic:"),
		[]oopsFormat{
			{
				title: compile("panic: pool_do_put: ([^:]+): double pool_put"),
				fmt:   "pool: double put: %[1]v",
			},
			{
				title: compile("panic: pool_do_get: ([^:]+) free list modified"),
				fmt:   "pool: free list modified: %[1]v",
			},
			{
				title: compile("panic: mallocarray: overflow"),
				fmt:   "panic: mallocarray: overflow",
			},
			{
				title: compile("panic: malloc: allocation too large"),
				fmt:   "panic: malloc: allocation too large",
			},
			{
				title: compile("panic: uvm_mapent_addr_insert: .* insert collision"),
				fmt:   "panic: uvm_mapent_addr_insert: insert collision",
			},
			{
				title: compile("panic: timeout_add: to_ticks \\(-?[0-9]+\\) < 0"),
				fmt:   "panic: timeout_add: negative to_ticks",
			},
			{
				title: compile("panic: kernel diagnostic assertion \"([^\"]+)\" failed: file \"([^\"]+)\""),
				fmt:   "assert %[1]v failed in %[2]v",
			},
			{
				title: compile("panic: cleaned vnode"),
				fmt:   "panic: cleaned vnode isn't",
			},
		},
		[]*regexp.Regexp{},
	},
	{
		[]byte("uvm_fault"),
		[]oopsFormat{
			{
				title: compile("uvm_fault\\((?:.*\\n)+?.*Stopped at[ ]+([^\\+]+)"),
				fmt:   "uvm_fault: %[1]v",
			},
		},
		[]*regexp.Regexp{},
	},
	{
		[]byte("kernel:"),
		[]oopsFormat{},
		[]*regexp.Regexp{
			compile("kernel relinking failed"),
		},
	},
}

var linuxOopses = []*oops{
	{
		[]byte("BUG:"),
		[]oopsFormat{
			{
				title: compile("BUG: KASAN: ([a-z\\-]+) in {{FUNC}}"),
				fmt:   "KASAN: %[1]v in %[2]v",
			},
			{
				title: compile("BUG: unable to handle kernel (NULL pointer dereference|paging request)"),
				fmt:   "BUG: unable to handle kernel %[1]v",
			},
			{
				title: compile("BUG: kernel NULL pointer dereference"),
				fmt:   "BUG: kernel NULL pointer dereference",
			},
		},
		[]*regexp.Regexp{
			compile("BUG: using (?:__)?smp_processor_id\\(\\) in preemptible"),
		},
	},
	{
		[]byte("WARNING:"),
		[]oopsFormat{
			{
				title: compile("WARNING: .* at {{SRC}} {{FUNC}}"),
				fmt:   "WARNING in %[2]v",
			},
		},
		[]*regexp.Regexp{},
	},
	{
		[]byte("general protection fault"),
		[]oopsFormat{
			{
				title: compile("general protection fault(?:.*\\n)+?.*RIP: [0-9]+:{{FUNC}}"),
				fmt:   "general protection fault in %[1]v",
			},
		},
		[]*regexp.Regexp{},
	},
	{
		[]byte("kernel BUG at"),
		[]oopsFormat{
			{
				title: compile("kernel BUG at {{SRC}}"),
				fmt:   "kernel BUG at %[1]v",
			},
		},
		[]*regexp.Regexp{},
	},
	{
		[]byte("Kernel panic"),
		[]oopsFormat{
			{
				title: compile("Kernel panic - not syncing: (.*)"),
				fmt:   "kernel panic: %[1]v",
			},
		},
		[]*regexp.Regexp{},
	},
}

var testOopses = []*oops{
	{
		[]byte("PANIC:"),
		[]oopsFormat{
			{
				title: compile("PANIC: (.*)"),
				fmt:   "PANIC: %[1]v",
			},
		},
		[]*regexp.Regexp{},
	},
}
