package grader

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure that stops a grading operation.
type ErrorKind int

const (
	// KindConfig: both or neither of source and executable were given, or a limit is invalid.
	KindConfig ErrorKind = iota + 1
	// KindCompile: the compiler rejected the source or could not be run.
	KindCompile
	// KindNotFound: a referenced file or directory does not exist.
	KindNotFound
	// KindInvalidPath: a path argument is not a usable path value.
	KindInvalidPath
	// KindInternal: anything else, including cancellation.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "configuration error"
	case KindCompile:
		return "compile error"
	case KindNotFound:
		return "not found"
	case KindInvalidPath:
		return "invalid path"
	case KindInternal:
		return "internal error"
	}
	return "unknown error"
}

// Error is returned by every operation of the grader that fails as a whole.
// Per-test outcomes are never reported as errors.
type Error struct {
	Kind ErrorKind
	Op   string
	Path string
	// Detail holds compiler diagnostics for KindCompile.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("grader: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(" ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func newError(kind ErrorKind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func configError(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Op: "new", Err: fmt.Errorf(format, args...)}
}
