package grader

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// artifactKind tags which side of the submission is populated.
type artifactKind int

const (
	sourceArtifact artifactKind = iota + 1
	compiledArtifact
)

// submission is either Source(path) or Compiled(path), never both or neither.
// All reads and transitions go through the mutex.
type submission struct {
	mu   sync.RWMutex
	kind artifactKind
	path string
}

func (s *submission) get() (artifactKind, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kind, s.path
}

// set is the single transition: it replaces whichever side was populated.
func (s *submission) set(kind artifactKind, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kind, s.path = kind, path
}

// promote moves Source(src) to Compiled(artifact). It does nothing if the
// submission changed since src was read.
func (s *submission) promote(src, artifact string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind != sourceArtifact || s.path != src {
		return false
	}
	s.kind, s.path = compiledArtifact, artifact
	return true
}

// Source returns the source path, or "" when the submission is compiled.
func (g *Grader) Source() string {
	kind, path := g.sub.get()
	if kind != sourceArtifact {
		return ""
	}
	return path
}

// Exec returns the compiled artifact path, or "" when only the source is known.
func (g *Grader) Exec() string {
	kind, path := g.sub.get()
	if kind != compiledArtifact {
		return ""
	}
	return path
}

// Compiled reports whether the submission is a runnable artifact.
func (g *Grader) Compiled() bool {
	kind, _ := g.sub.get()
	return kind == compiledArtifact
}

// SetSource replaces the submission with a source file. The compiled
// artifact, if any, is forgotten and the next grading run compiles again.
func (g *Grader) SetSource(path string) error {
	if err := checkFile("set source", path); err != nil {
		return err
	}
	g.sub.set(sourceArtifact, path)
	return nil
}

// SetExec replaces the submission with an already compiled executable.
func (g *Grader) SetExec(path string) error {
	if err := checkFile("set exec", path); err != nil {
		return err
	}
	g.sub.set(compiledArtifact, path)
	return nil
}

// validatePath rejects values that can never name a file.
func validatePath(op, path string) error {
	if path == "" {
		return newError(KindInvalidPath, op, path, fmt.Errorf("empty path"))
	}
	if strings.ContainsRune(path, 0) {
		return newError(KindInvalidPath, op, "", fmt.Errorf("path contains NUL byte"))
	}
	if strings.ContainsAny(path, "*?<>|\"") {
		return newError(KindInvalidPath, op, path, fmt.Errorf("path contains reserved characters"))
	}
	return nil
}

// checkFile validates path and requires it to exist.
func checkFile(op, path string) error {
	if err := validatePath(op, path); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return statError(op, path, err)
	}
	return nil
}
