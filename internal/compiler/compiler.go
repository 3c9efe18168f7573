// Package compiler turns a source file into an executable with an external
// toolchain and caches the results on disk.
package compiler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// ErrToolchain is wrapped when the compiler itself could not be run.
var ErrToolchain = errors.New("compiler could not be run")

const (
	DefaultPath = "g++"
)

var DefaultFlags = []string{"-std=c++17", "-O2"}

// Failure is a rejected compilation. It carries what the compiler printed.
type Failure struct {
	ExitCode    int
	Diagnostics string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("compilation failed with exit code %d", f.ExitCode)
}

// Artifact is a runnable result of a successful compilation.
type Artifact struct {
	Path     string
	Cached   bool
	Duration time.Duration
	// Stderr holds warnings printed by a compiler that still succeeded.
	Stderr string
}

type Compiler struct {
	path     string
	flags    []string
	cacheDir string
	logger   *slog.Logger

	// sha256 of compiler, flags and source -> artifact path
	index *xsync.MapOf[string, string]
	lock  sync.Mutex
}

// New returns a compiler that stores artifacts in cacheDir. An empty path,
// nil flags or an empty cacheDir select the defaults.
func New(path string, flags []string, cacheDir string, logger *slog.Logger) *Compiler {
	if path == "" {
		path = DefaultPath
	}
	if flags == nil {
		flags = DefaultFlags
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "grader-artifacts")
	}
	return &Compiler{
		path:     path,
		flags:    flags,
		cacheDir: cacheDir,
		logger:   logger,
		index:    xsync.NewMapOf[string, string](),
	}
}

// Compile builds src and returns the artifact. A compile error is returned as
// a *Failure; any other error means compilation could not be attempted.
func (c *Compiler) Compile(ctx context.Context, src string) (Artifact, error) {
	code, err := os.ReadFile(src)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to read source: %w", err)
	}

	key := c.key(code)
	if path, ok := c.lookup(key); ok {
		c.logger.Debug("using cached artifact", "source", src, "artifact", path)
		return Artifact{Path: path, Cached: true}, nil
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	// another caller may have finished the same build while we waited
	if path, ok := c.lookup(key); ok {
		return Artifact{Path: path, Cached: true}, nil
	}

	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("failed to create cache directory: %w", err)
	}

	abs, err := filepath.Abs(src)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to resolve source path: %w", err)
	}

	tmp, err := os.CreateTemp(c.cacheDir, key[:16]+"-*.tmp")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	args := append(append([]string{}, c.flags...), "-o", tmpPath, abs)
	cmd := exec.CommandContext(ctx, c.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Info("compiling", "source", src, "compiler", c.path, "flags", c.flags)
	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Artifact{}, ctxErr
		}
		return Artifact{}, fmt.Errorf("%w: %s: %v", ErrToolchain, c.path, err)
	}

	diagnostics := strings.TrimSpace(stderr.String() + stdout.String())
	exitCode := cmd.ProcessState.ExitCode()
	if exitCode != 0 || hasError(stderr.String()) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Artifact{}, ctxErr
		}
		c.logger.Info("compilation failed", "source", src, "exit_code", exitCode, "duration", elapsed)
		return Artifact{}, &Failure{ExitCode: exitCode, Diagnostics: diagnostics}
	}

	final := filepath.Join(c.cacheDir, key)
	if err := os.Rename(tmpPath, final); err != nil {
		return Artifact{}, fmt.Errorf("failed to store artifact: %w", err)
	}
	if err := os.Chmod(final, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("failed to make artifact executable: %w", err)
	}
	c.index.Store(key, final)

	c.logger.Info("compiled", "source", src, "artifact", final, "duration", elapsed)
	return Artifact{Path: final, Duration: elapsed, Stderr: diagnostics}, nil
}

func (c *Compiler) lookup(key string) (string, bool) {
	if path, ok := c.index.Load(key); ok {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
		c.index.Delete(key)
	}
	path := filepath.Join(c.cacheDir, key)
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		c.index.Store(key, path)
		return path, true
	}
	return "", false
}

func (c *Compiler) key(code []byte) string {
	h := sha256.New()
	h.Write([]byte(c.path))
	for _, f := range c.flags {
		h.Write([]byte{0})
		h.Write([]byte(f))
	}
	h.Write([]byte{0})
	h.Write(code)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// hasError reports whether the compiler printed a diagnostic of error severity.
func hasError(stderr string) bool {
	for _, line := range strings.Split(stderr, "\n") {
		if strings.Contains(line, "error:") {
			return true
		}
	}
	return false
}
