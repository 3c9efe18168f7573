package testcase_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/programme-lv/grader/internal/testcase"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func TestDiscoverPairsAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"b.in": "", "b.out": "",
		"a.in": "", "a.out": "",
		"10.in": "", "10.out": "",
		"2.in": "", "2.out": "",
		"lonely.in": "", "orphan.out": "",
		"README.md": "", ".in": "", ".out": "",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "c.in"), 0o755))
	writeFiles(t, dir, map[string]string{"c.out": ""})

	cases, err := testcase.Discover(dir, testcase.Options{})
	require.NoError(t, err)

	names := make([]string, 0, len(cases))
	for _, c := range cases {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"10", "2", "a", "b"}, names)
	assert.Equal(t, filepath.Join(dir, "a.in"), cases[2].Input)
	assert.Equal(t, filepath.Join(dir, "a.out"), cases[2].Output)
}

func TestDiscoverEmptyDirectory(t *testing.T) {
	cases, err := testcase.Discover(t.TempDir(), testcase.Options{})
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestDiscoverMissingDirectory(t *testing.T) {
	_, err := testcase.Discover(filepath.Join(t.TempDir(), "missing"), testcase.Options{})
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDiscoverNotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"file": ""})

	_, err := testcase.Discover(filepath.Join(dir, "file"), testcase.Options{})
	require.ErrorIs(t, err, testcase.ErrNotDir)
}

func compress(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestDiscoverZstd(t *testing.T) {
	dir := t.TempDir()
	compress(t, filepath.Join(dir, "1.in.zst"), "5\n")
	compress(t, filepath.Join(dir, "1.out.zst"), "5\n")
	writeFiles(t, dir, map[string]string{"2.in": "plain", "2.out": ""})
	compress(t, filepath.Join(dir, "2.in.zst"), "compressed")

	cases, err := testcase.Discover(dir, testcase.Options{})
	require.NoError(t, err)
	require.Len(t, cases, 1)

	cases, err = testcase.Discover(dir, testcase.Options{Zstd: true})
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, filepath.Join(dir, "1.in.zst"), cases[0].Input)
	assert.Equal(t, filepath.Join(dir, "2.in"), cases[1].Input)

	path, cleanup, err := testcase.Materialize(cases[0].Input)
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "5\n", string(content))

	cleanup()
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMaterializePlainIsIdentity(t *testing.T) {
	path, cleanup, err := testcase.Materialize("/some/where/1.in")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, "/some/where/1.in", path)
}
