// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log is a leveled logger shared by all harness packages:
//   - verbosity levels set once from the command line
//   - ability to cache recent output in memory (served by the status page)
//   - per-case prefixes so interleaved worker output stays attributable
package log

import (
	"bytes"
	"flag"
	"fmt"
	golog "log"
	"strings"
	"sync"
	"time"
)

var (
	flagV        = flag.Int("vv", 0, "verbosity")
	mu           sync.Mutex
	verbosity    = -1 // -1 means "use the flag"
	cacheMem     int
	cacheMaxMem  int
	cachePos     int
	cacheEntries []string
	prependTime  = true // for testing
)

// SetVerbosity overrides the -vv flag (used by tests and by config).
func SetVerbosity(v int) {
	mu.Lock()
	defer mu.Unlock()
	verbosity = v
}

func V(v int) bool {
	mu.Lock()
	defer mu.Unlock()
	return v <= level()
}

func level() int {
	if verbosity >= 0 {
		return verbosity
	}
	return *flagV
}

// EnableLogCaching enables in memory caching of log output.
// Caches up to maxLines, but no more than maxMem bytes.
func EnableLogCaching(maxLines, maxMem int) {
	mu.Lock()
	defer mu.Unlock()
	if cacheEntries != nil {
		Fatalf("log caching is already enabled")
	}
	if maxLines < 1 || maxMem < 1 {
		panic("invalid maxLines/maxMem")
	}
	cacheMaxMem = maxMem
	cacheEntries = make([]string, maxLines)
}

// CachedLogOutput returns the cached log lines, oldest first.
func CachedLogOutput() string {
	mu.Lock()
	defer mu.Unlock()
	buf := new(bytes.Buffer)
	for i := range cacheEntries {
		pos := (cachePos + i) % len(cacheEntries)
		if cacheEntries[pos] == "" {
			continue
		}
		buf.WriteString(cacheEntries[pos])
		buf.WriteByte('\n')
	}
	return buf.String()
}

func Logf(v int, msg string, args ...any) {
	mu.Lock()
	doLog := v <= level()
	if cacheEntries != nil && v <= 1 {
		cache(fmt.Sprintf(msg, args...))
	}
	mu.Unlock()

	if doLog {
		golog.Printf(msg, args...)
	}
}

// Errorf logs at level 0 and marks the line so that it stands out in the cache.
func Errorf(msg string, args ...any) {
	Logf(0, "ERROR: "+msg, args...)
}

func cache(line string) {
	cacheMem -= len(cacheEntries[cachePos])
	if cacheMem < 0 {
		panic("log cache size underflow")
	}
	if prependTime {
		line = time.Now().Format("2006/01/02 15:04:05 ") + line
	}
	cacheEntries[cachePos] = line
	cacheMem += len(line)
	cachePos++
	if cachePos == len(cacheEntries) {
		cachePos = 0
	}
	for i := 0; i < len(cacheEntries)-1 && cacheMem > cacheMaxMem; i++ {
		pos := (cachePos + i) % len(cacheEntries)
		cacheMem -= len(cacheEntries[pos])
		cacheEntries[pos] = ""
	}
	if cacheMem < 0 {
		panic("log cache size underflow")
	}
}

func Fatal(err error) {
	golog.Fatal(err)
}

func Fatalf(msg string, args ...any) {
	golog.Fatalf(msg, args...)
}

// Prefixed returns a logger that prepends "prefix: " to every message,
// e.g. the case id of the worker that emits it.
type Prefixed string

func (p Prefixed) Logf(v int, msg string, args ...any) {
	Logf(v, "%v: %v", string(p), fmt.Sprintf(msg, args...))
}

// VerboseWriter forwards child output into the log line by line.
type VerboseWriter int

func (w VerboseWriter) Write(data []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		Logf(int(w), "%s", line)
	}
	return len(data), nil
}
