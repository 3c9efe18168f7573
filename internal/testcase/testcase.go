// Package testcase discovers input and expected-output pairs in a directory.
package testcase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/klauspost/compress/zstd"
)

const (
	InputExt  = ".in"
	OutputExt = ".out"
	ZstdExt   = ".zst"
)

// ErrNotDir is returned when the test-case path exists but is not a directory.
var ErrNotDir = errors.New("not a directory")

// Case is a matched input / expected-output pair.
type Case struct {
	Name   string
	Input  string
	Output string
}

// Options tune discovery.
type Options struct {
	// Zstd also pairs "<name>.in.zst" and "<name>.out.zst". A plain file wins
	// over its compressed twin.
	Zstd bool
}

// Discover returns all cases in dir whose input and output share a stem,
// ordered by name. Unmatched files and subdirectories are ignored.
func Discover(dir string, opts Options) ([]Case, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat test directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test directory %s: %w", dir, ErrNotDir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read test directory: %w", err)
	}

	inputs := make(map[string]string)
	outputs := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		compressed := false
		if opts.Zstd && strings.HasSuffix(name, ZstdExt) {
			compressed = true
			name = strings.TrimSuffix(name, ZstdExt)
		}

		var target map[string]string
		var stem string
		switch {
		case strings.HasSuffix(name, InputExt):
			target, stem = inputs, strings.TrimSuffix(name, InputExt)
		case strings.HasSuffix(name, OutputExt):
			target, stem = outputs, strings.TrimSuffix(name, OutputExt)
		default:
			continue
		}
		if stem == "" {
			continue
		}
		if _, seen := target[stem]; seen && compressed {
			continue
		}
		target[stem] = filepath.Join(dir, e.Name())
	}

	inStems := mapset.NewThreadUnsafeSetFromMapKeys(inputs)
	outStems := mapset.NewThreadUnsafeSetFromMapKeys(outputs)
	names := inStems.Intersect(outStems).ToSlice()
	slices.Sort(names)

	cases := make([]Case, 0, len(names))
	for _, name := range names {
		cases = append(cases, Case{Name: name, Input: inputs[name], Output: outputs[name]})
	}
	return cases, nil
}

// Compressed reports whether path holds zstd data by its extension.
func Compressed(path string) bool {
	return strings.HasSuffix(path, ZstdExt)
}

// Materialize returns a plain file with the contents of path. Uncompressed
// paths are returned as is. Compressed ones are decoded into a temporary file
// which the returned cleanup removes.
func Materialize(path string) (string, func(), error) {
	if !Compressed(path) {
		return path, func() {}, nil
	}

	src, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	d, err := zstd.NewReader(src)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer d.Close()

	out, err := os.CreateTemp("", "grader-case-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(out.Name()) }

	if _, err := io.Copy(out, d); err != nil {
		out.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write %s: %w", out.Name(), err)
	}
	return out.Name(), cleanup, nil
}
