// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package runner

import (
	"fmt"
	"io"
	"os"
)

const maxConsoleChunk = 1 << 20

// console reads the kernel console log written by somebody else (e.g. a serial
// line captured into a file). With several procs the output between two marks
// may belong to any of the cases that ran in that window.
type console struct {
	file string
}

// mark returns the current end of the console log.
func (con *console) mark() int64 {
	if con == nil {
		return 0
	}
	fi, err := os.Stat(con.file)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// since returns the console output appended after the mark (the last maxConsoleChunk bytes of it).
func (con *console) since(mark int64) ([]byte, error) {
	if con == nil {
		return nil, nil
	}
	f, err := os.Open(con.file)
	if err != nil {
		return nil, fmt.Errorf("failed to open console log: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	end := fi.Size()
	if end < mark {
		// Truncated or rotated.
		mark = 0
	}
	if end-mark > maxConsoleChunk {
		mark = end - maxConsoleChunk
	}
	data := make([]byte, end-mark)
	if _, err := f.ReadAt(data, mark); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read console log: %w", err)
	}
	return data, nil
}
