// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package runcfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syzbound/syzbound/pkg/config"
	"github.com/syzbound/syzbound/pkg/registry"
)

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadData([]byte(`
# comments are allowed
{
	"target": "test/64",
	"workdir": "`+dir+`",
	"procs": 3,
	"timeout": "1m30s",
	"enable_cases": ["test-*"],
	"cases_params": {
		"test-sleep": {"tp.tv_sec": {"strategy": "overflow", "op": "mul", "bits": 64, "signed": true, "known": 100}}
	}
}`), config.JSON)
	require.NoError(t, err)
	assert.Equal(t, "test/64", cfg.Target)
	assert.Equal(t, 3, cfg.Procs)
	assert.Equal(t, 90*time.Second, time.Duration(cfg.Timeout))
	assert.Equal(t, "none", cfg.Sandbox)
	assert.False(t, cfg.Sandboxed())
	assert.Equal(t, filepath.Join(dir, "report.json"), cfg.Report)
	assert.Empty(t, cfg.Executor)
	assert.Equal(t, []string{"test-*"}, cfg.EnableCases)
	overrides, err := cfg.Overrides()
	require.NoError(t, err)
	want := map[string]map[string]registry.Strategy{
		"test-sleep": {"tp.tv_sec": registry.MulOverflow(64, true, 100)},
	}
	if diff := cmp.Diff(want, overrides); diff != "" {
		t.Fatalf("overrides mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bound.yml")
	data := strings.Join([]string{
		"target: test/64",
		"workdir: " + dir,
		"timeout: 2s",
		"disable_cases: [test-hang]",
		"report: " + filepath.Join(dir, "out.txt"),
		"cases_params:",
		"  test-fail:",
		"    fd:",
		"      strategy: sentinel",
		"      val: -2",
	}, "\n")
	require.NoError(t, os.WriteFile(file, []byte(data), 0644))
	cfg, err := LoadFile(file)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, time.Duration(cfg.Timeout))
	assert.Equal(t, []string{"test-hang"}, cfg.DisableCases)
	assert.Equal(t, filepath.Join(dir, "out.txt"), cfg.Report)
	overrides, err := cfg.Overrides()
	require.NoError(t, err)
	assert.Equal(t, registry.SentinelOf(^uint64(1)), overrides["test-fail"]["fd"])
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg string
		err string
	}{
		{`{"target": "test/64"}`, "workdir is empty"},
		{`{"target": "plan9/amd64", "workdir": "` + dir + `"}`, "target"},
		{`{"target": "test/64", "workdir": "` + dir + `", "procs": 0}`, "procs"},
		{`{"target": "test/64", "workdir": "` + dir + `", "procs": 1000}`, "procs"},
		{`{"target": "test/64", "workdir": "` + dir + `", "timeout": "-1s"}`, "timeout"},
		{`{"target": "test/64", "workdir": "` + dir + `", "timeout": "soon"}`, "duration"},
		{`{"target": "test/64", "workdir": "` + dir + `", "sandbox": "setuid"}`, "sandbox"},
		{`{"target": "test/64", "workdir": "` + dir + `", "executor": "/non/existent"}`, "executor"},
		{`{"target": "test/64", "workdir": "` + dir + `", "unknown": 1}`, "unknown field"},
		{`{"target": "test/64", "workdir": "` + dir + `",
			"cases_params": {"a": {"b": {"strategy": "biggest"}}}}`, "unknown strategy"},
		{`{"target": "test/64", "workdir": "` + dir + `",
			"cases_params": {"a": {"b": {"strategy": "overflow", "bits": 99, "known": 1}}}}`, "width"},
	}
	for _, test := range tests {
		t.Run(test.err, func(t *testing.T) {
			_, err := LoadData([]byte(test.cfg), config.JSON)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.err)
		})
	}
}

func TestDurationText(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))
	var got Duration
	require.NoError(t, got.UnmarshalText(text))
	assert.Equal(t, d, got)
}

func TestLoadPartial(t *testing.T) {
	cfg, err := LoadPartialData([]byte(`{"target": "openbsd", "procs": 2}`), config.JSON)
	require.NoError(t, err)
	// Not validated yet.
	assert.Empty(t, cfg.Workdir)
	assert.Nil(t, cfg.SysTarget)
	assert.Equal(t, Duration(10*time.Second), cfg.Timeout)
	cfg.Workdir = t.TempDir()
	cfg.EnableCases = []string{"openbsd-mmap-*"}
	require.NoError(t, Complete(cfg))
	assert.Equal(t, "openbsd/amd64", cfg.Target)
	assert.Equal(t, "openbsd", cfg.SysTarget.OS)
	assert.Equal(t, 2, cfg.Procs)
}
