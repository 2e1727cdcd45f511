// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package report

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syzbound/syzbound/pkg/argsynth"
	"github.com/syzbound/syzbound/pkg/classify"
	"github.com/syzbound/syzbound/pkg/invoker"
	"github.com/syzbound/syzbound/pkg/registry"
)

func testCases() []*registry.Case {
	var cases []*registry.Case
	for _, id := range []string{"b", "a", "c", "d"} {
		cases = append(cases, &registry.Case{
			ID:   id,
			Call: &registry.Call{Name: "test_fail"},
			Refs: registry.Refs{CVE: []string{"CVE-2016-0000"}},
		})
	}
	return cases
}

func TestCollector(t *testing.T) {
	cases := testCases()
	col := NewCollector("run", "test/64", cases)
	start := time.Now()
	raw := &invoker.RawResult{
		Start:  start,
		End:    start.Add(time.Second),
		Called: true,
		Exited: true,
		Ret:    ^uint64(0),
		Errno:  syscall.EINVAL,
		Args:   []argsynth.Value{{Path: "fd", Size: 4, Signed: true, Val: 0xffffffff}},
	}
	require.NoError(t, col.Add(NewOutcome(cases[2], raw, classify.ErrorReturned)))
	crashed := &invoker.RawResult{Start: start, End: start, Signal: syscall.SIGSEGV}
	require.NoError(t, col.Add(NewOutcome(cases[0], crashed, classify.Crashed)))
	assert.Error(t, col.Add(NewOutcome(cases[0], crashed, classify.Crashed)))
	assert.Error(t, col.Add(NotRun(&registry.Case{ID: "x", Call: &registry.Call{Name: "y"}}, "")))
	assert.Equal(t, 2, col.Len())

	rep := col.Report("harness resource exhausted")
	var ids []string
	for _, o := range rep.Results {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids)
	assert.Equal(t, 1, rep.Passed)
	assert.Equal(t, 3, rep.Failed)
	assert.Equal(t, []ClassCount{
		{classify.ErrorReturned, 1},
		{classify.Crashed, 1},
		{classify.NotRun, 2},
	}, rep.Counts)
	assert.False(t, rep.OK())
	assert.Equal(t, 2, rep.Count(classify.NotRun))

	a := rep.Lookup("a")
	assert.Equal(t, classify.NotRun, a.Class)
	assert.Equal(t, "harness resource exhausted", a.Reason)
	b := rep.Lookup("b")
	assert.Equal(t, syscall.SIGSEGV, b.Signal())
	assert.Equal(t, "CRASHED(SIGSEGV)", b.String())
	c := rep.Lookup("c")
	assert.True(t, c.Pass)
	assert.Equal(t, "0xffffffffffffffff", c.Raw.Ret)
	assert.Equal(t, "EINVAL", c.Raw.ErrnoName)
	assert.Equal(t, []string{"fd=0xffffffff (-1)"}, c.Args)
	assert.Len(t, c.ArgsHash, 40)
	assert.Equal(t, time.Second, c.Duration)
	assert.Equal(t, []string{"CVE-2016-0000"}, c.Refs.CVE)
}

func TestReportOK(t *testing.T) {
	cases := testCases()[:1]
	col := NewCollector("run", "test/64", cases)
	require.NoError(t, col.Add(NewOutcome(cases[0], &invoker.RawResult{Called: true, Errno: syscall.EBADF},
		classify.ErrorReturned)))
	rep := col.Report("")
	assert.True(t, rep.OK())
	assert.False(t, col.Report("interrupted").OK())
}

func TestSaveLoad(t *testing.T) {
	cases := testCases()
	col := NewCollector("run", "test/64", cases)
	raw := &invoker.RawResult{Called: true, Exited: true, Ret: 3}
	require.NoError(t, col.Add(NewOutcome(cases[1], raw, classify.UnexpectedSuccess)))
	setup := &invoker.RawResult{Exited: true, ExitCode: 68, Setup: &invoker.SetupError{
		Step: 0, Desc: "call mount", Errno: syscall.ENOENT, Msg: "mount: no such file or directory"}}
	require.NoError(t, col.Add(NewOutcome(cases[3], setup, classify.SetupFailed)))
	rep := col.Report("")
	dir := t.TempDir()

	file := filepath.Join(dir, "report.json")
	require.NoError(t, rep.Save(file))
	loaded, err := Load(file)
	require.NoError(t, err)
	if diff := cmp.Diff(rep, loaded, cmpopts.IgnoreFields(Outcome{}, "Output")); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}

	yamlFile := filepath.Join(dir, "report.yaml")
	require.NoError(t, rep.Save(yamlFile))
	data, err := os.ReadFile(yamlFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "class: SETUP_FAILED")
	assert.Contains(t, string(data), "class: UNEXPECTED_SUCCESS")

	txtFile := filepath.Join(dir, "report.txt")
	require.NoError(t, rep.Save(txtFile))
	data, err = os.ReadFile(txtFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run run on test/64: 0 passed, 4 failed")
	assert.Contains(t, string(data), "NOT_RUN: 2")
	assert.Contains(t, string(data), "FAIL SETUP_FAILED")
}

func TestCrashLog(t *testing.T) {
	dir := t.TempDir()
	output := []byte("### setup step=0 ok\npanic: mallocarray: overflow\n")
	rel, err := SaveCrashLog(dir, "openbsd-kevent", output)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("crashes", "openbsd-kevent.log.xz"), rel)
	data, err := ReadCrashLog(filepath.Join(dir, rel))
	require.NoError(t, err)
	assert.Equal(t, output, data)
}
