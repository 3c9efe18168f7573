// Package checker compares program output against the expected answer.
//
// Trailing whitespace on every line and trailing blank lines at the end of
// the output are not significant. Every other byte is, including blank lines
// in the middle of the output.
package checker

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotRegular is returned when the expected answer is not a regular file.
var ErrNotRegular = errors.New("not a regular file")

// CompareFiles reports whether the output in actualPath matches the answer in
// expectedPath. A missing expected file yields an error wrapping fs.ErrNotExist.
func CompareFiles(actualPath, expectedPath string) (bool, error) {
	info, err := os.Stat(expectedPath)
	if err != nil {
		return false, fmt.Errorf("failed to stat expected output: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("expected output %s: %w", expectedPath, ErrNotRegular)
	}

	expected, err := os.Open(expectedPath)
	if err != nil {
		return false, fmt.Errorf("failed to open expected output: %w", err)
	}
	defer expected.Close()

	actual, err := os.Open(actualPath)
	if err != nil {
		return false, fmt.Errorf("failed to open program output: %w", err)
	}
	defer actual.Close()

	return Compare(actual, expected)
}

// Compare reports whether actual and expected are equal under the normalization policy.
func Compare(actual, expected io.Reader) (bool, error) {
	a := newLines(actual)
	e := newLines(expected)
	for {
		aLine, aOk := a.next()
		eLine, eOk := e.next()
		if a.err != nil {
			return false, fmt.Errorf("failed to read program output: %w", a.err)
		}
		if e.err != nil {
			return false, fmt.Errorf("failed to read expected output: %w", e.err)
		}
		if aOk != eOk {
			return false, nil
		}
		if !aOk {
			return true, nil
		}
		if !bytes.Equal(aLine, eLine) {
			return false, nil
		}
	}
}

// lines yields right-trimmed lines and drops blank lines at the end of input.
// Blank lines are held back until a non-blank line shows they are not trailing.
type lines struct {
	sc      *bufio.Scanner
	pending int
	held    []byte
	err     error
}

var blank = []byte{}

func newLines(r io.Reader) *lines {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<30)
	return &lines{sc: sc}
}

func (l *lines) next() ([]byte, bool) {
	if l.pending > 0 {
		l.pending--
		return blank, true
	}
	if l.held != nil {
		line := l.held
		l.held = nil
		return line, true
	}
	for l.sc.Scan() {
		line := bytes.TrimRight(l.sc.Bytes(), " \t\r\v\f")
		if len(line) == 0 {
			l.pending++
			continue
		}
		if l.pending > 0 {
			l.held = bytes.Clone(line)
			l.pending--
			return blank, true
		}
		return line, true
	}
	l.err = l.sc.Err()
	l.pending = 0
	return nil, false
}
