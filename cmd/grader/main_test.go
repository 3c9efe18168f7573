package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/programme-lv/grader/api"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Chdir(dir)
	color.NoColor = true
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newCommand(&stdout, &stderr).Run(context.Background(), append([]string{"grader"}, args...))
	return stdout.String(), err
}

func TestRejectsArgumentCount(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "only-file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected <file> <dir>")
}

func TestRejectsBadLimits(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "main.cpp", "tests", "fast")
	require.ErrorContains(t, err, "time-ms")

	_, err = runCLI(t, "main.cpp", "tests", "1000", "0")
	require.ErrorContains(t, err, "mem-mb")
}

func TestGradesExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a shell")
	}
	dir := isolate(t)

	exe := filepath.Join(dir, "cat.sh")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\nexec cat\n"), 0o755))
	tests := filepath.Join(dir, "tests")
	require.NoError(t, os.Mkdir(tests, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tests, "1.in"), []byte("5\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tests, "1.out"), []byte("5\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tests, "2.in"), []byte("5\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tests, "2.out"), []byte("6\n"), 0o644))
	report := filepath.Join(dir, "report.json")

	out, err := runCLI(t, "-e", "--report", report, exe, tests, "2000", "64")
	require.NoError(t, err)
	assert.Contains(t, out, "test case 1:")
	assert.Contains(t, out, "test case 2:")
	assert.Contains(t, out, "final score: 1/2")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var rep api.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, api.JobSuccess, rep.Status)
	assert.Equal(t, 1, rep.Accepted)
	assert.Equal(t, 2, rep.Total)
	require.Len(t, rep.TestResults, 2)
	assert.Equal(t, "WA", rep.TestResults[1].Status)
}

func TestMissingTestDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a shell")
	}
	dir := isolate(t)
	exe := filepath.Join(dir, "cat.sh")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\nexec cat\n"), 0o755))

	_, err := runCLI(t, "-e", exe, filepath.Join(dir, "missing"))
	require.ErrorContains(t, err, "not found")
}
