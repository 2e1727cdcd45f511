// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/syzbound/syzbound/pkg/osutil"
	"github.com/ulikunitz/xz"
)

const crashDir = "crashes"

// SaveCrashLog stores output of a failed case as workdir/crashes/<id>.log.xz
// and returns the path relative to workdir.
func SaveCrashLog(workdir, id string, output []byte) (string, error) {
	buf := new(bytes.Buffer)
	w, err := xz.NewWriter(buf)
	if err != nil {
		return "", err
	}
	if _, err := w.Write(output); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	rel := filepath.Join(crashDir, id+".log.xz")
	if err := osutil.WriteFileAtomic(filepath.Join(workdir, rel), buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to save crash log: %w", err)
	}
	return rel, nil
}

func ReadCrashLog(file string) ([]byte, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read crash log %v: %w", file, err)
	}
	return io.ReadAll(r)
}
