// Package grader compiles a submission, runs it against a directory of test
// cases under time and memory limits and classifies every run.
package grader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/programme-lv/grader/api"
	"github.com/programme-lv/grader/internal/checker"
	"github.com/programme-lv/grader/internal/compiler"
	"github.com/programme-lv/grader/internal/process"
	"github.com/programme-lv/grader/internal/testcase"
	"github.com/programme-lv/grader/internal/xdg"
)

const (
	DefaultTimeLimitMs   = 1000
	DefaultMemoryLimitMb = 256
)

// Config describes a grading session. Exactly one of Source and Exec must be set.
// Zero limits select the defaults.
type Config struct {
	Source        string
	Exec          string
	TimeLimitMs   int
	MemoryLimitMb int
}

// Limits are the resource ceilings of a Grader. They never change after New.
type Limits struct {
	TimeLimitMs   int
	MemoryLimitMb int
}

func (l Limits) process() process.Limits {
	return process.Limits{
		Time:   time.Duration(l.TimeLimitMs) * time.Millisecond,
		Memory: uint64(l.MemoryLimitMb) << 20,
	}
}

type Option func(*Grader)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Grader) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithGatherer(gatherer Gatherer) Option {
	return func(g *Grader) {
		if gatherer != nil {
			g.gatherer = gatherer
		}
	}
}

// WithCompiler sets the compiler driver and its flags. The source path and
// output flags are appended by the grader.
func WithCompiler(path string, flags []string) Option {
	return func(g *Grader) {
		g.compilerPath = path
		g.compilerFlags = flags
	}
}

// WithCacheDir sets where compiled artifacts are stored.
func WithCacheDir(dir string) Option {
	return func(g *Grader) {
		g.cacheDir = dir
	}
}

// WithPollInterval sets how often a running program is sampled.
func WithPollInterval(d time.Duration) Option {
	return func(g *Grader) {
		g.interval = d
	}
}

// WithZstdTests makes discovery accept zstd compressed test files.
func WithZstdTests(enabled bool) Option {
	return func(g *Grader) {
		g.zstd = enabled
	}
}

// Grader grades one submission. It is safe to read and replace the
// submission from other goroutines, but Grade and CheckTestCase run one
// program at a time.
type Grader struct {
	sub    submission
	limits Limits

	logger   *slog.Logger
	gatherer Gatherer

	compilerPath  string
	compilerFlags []string
	cacheDir      string
	compiler      *compiler.Compiler
	compileMu     sync.Mutex

	interval time.Duration
	zstd     bool
	runMu    sync.Mutex
}

// New validates cfg and returns a Grader. Nothing is compiled until the first
// grading run needs it.
func New(cfg Config, opts ...Option) (*Grader, error) {
	if cfg.Source != "" && cfg.Exec != "" {
		return nil, configError("both source and executable given")
	}
	if cfg.Source == "" && cfg.Exec == "" {
		return nil, configError("neither source nor executable given")
	}
	if cfg.TimeLimitMs < 0 {
		return nil, configError("time limit must be positive, got %d ms", cfg.TimeLimitMs)
	}
	if cfg.MemoryLimitMb < 0 {
		return nil, configError("memory limit must be positive, got %d MB", cfg.MemoryLimitMb)
	}

	g := &Grader{
		limits: Limits{
			TimeLimitMs:   cfg.TimeLimitMs,
			MemoryLimitMb: cfg.MemoryLimitMb,
		},
		logger:   slog.Default(),
		gatherer: NopGatherer{},
		interval: process.DefaultPollInterval,
	}
	if g.limits.TimeLimitMs == 0 {
		g.limits.TimeLimitMs = DefaultTimeLimitMs
	}
	if g.limits.MemoryLimitMb == 0 {
		g.limits.MemoryLimitMb = DefaultMemoryLimitMb
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cacheDir == "" {
		g.cacheDir = xdg.New().AppCacheDir(filepath.Join("grader", "artifacts"))
	}
	g.compiler = compiler.New(g.compilerPath, g.compilerFlags, g.cacheDir, g.logger)

	if cfg.Source != "" {
		if err := checkFile("new", cfg.Source); err != nil {
			return nil, err
		}
		g.sub.set(sourceArtifact, cfg.Source)
	} else {
		if err := checkFile("new", cfg.Exec); err != nil {
			return nil, err
		}
		g.sub.set(compiledArtifact, cfg.Exec)
	}
	return g, nil
}

func (g *Grader) Limits() Limits {
	return g.limits
}

// Grade discovers the test cases in dir, compiles the submission if needed
// and returns the sequence of results. Programs run while the sequence is
// consumed. A compile failure returns an error and no results.
func (g *Grader) Grade(ctx context.Context, dir string) (*Results, error) {
	const op = "grade"
	if err := validatePath(op, dir); err != nil {
		return nil, err
	}
	// a missing directory is reported before anything is compiled
	info, err := os.Stat(dir)
	if err != nil {
		return nil, statError(op, dir, err)
	}
	if !info.IsDir() {
		return nil, newError(KindNotFound, op, dir, testcase.ErrNotDir)
	}

	jobID := uuid.NewString()
	_, subPath := g.sub.get()
	g.gatherer.StartJob(jobID, subPath)

	var cases []testcase.Case
	var artifact string

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		found, err := testcase.Discover(dir, testcase.Options{Zstd: g.zstd})
		if err != nil {
			return discoveryError(op, dir, err)
		}
		cases = found
		return nil
	})
	eg.Go(func() error {
		path, err := g.ensureCompiled(egCtx, op)
		if err != nil {
			return err
		}
		artifact = path
		return nil
	})
	if err := eg.Wait(); err != nil {
		g.reportFailure(err)
		return nil, err
	}

	g.logger.Info("discovered test cases", "dir", dir, "count", len(cases))
	g.gatherer.StartTesting(len(cases))
	return newResults(ctx, g, artifact, cases), nil
}

// CheckTestCase runs the submission on a single input and compares the output
// with the expected file.
func (g *Grader) CheckTestCase(ctx context.Context, input, expected string) (TestResult, error) {
	const op = "check"
	for _, p := range []string{input, expected} {
		if err := validatePath(op, p); err != nil {
			return TestResult{}, err
		}
	}
	if _, err := os.Stat(input); err != nil {
		return TestResult{}, statError(op, input, err)
	}
	info, err := os.Stat(expected)
	if err != nil {
		return TestResult{}, statError(op, expected, err)
	}
	if !info.Mode().IsRegular() {
		return TestResult{}, newError(KindNotFound, op, expected, checker.ErrNotRegular)
	}

	jobID := uuid.NewString()
	_, subPath := g.sub.get()
	g.gatherer.StartJob(jobID, subPath)

	artifact, err := g.ensureCompiled(ctx, op)
	if err != nil {
		g.reportFailure(err)
		return TestResult{}, err
	}

	g.gatherer.StartTesting(1)
	c := testcase.Case{Name: caseName(input), Input: input, Output: expected}
	res, err := g.run(ctx, artifact, c)
	if err != nil {
		g.reportFailure(err)
		return TestResult{}, err
	}
	g.gatherer.FinishTest(0, res)

	var summary Summary
	summary.add(res)
	g.gatherer.FinishJob(summary)
	return res, nil
}

// ensureCompiled returns a runnable artifact, compiling the source at most
// once per assignment.
func (g *Grader) ensureCompiled(ctx context.Context, op string) (string, error) {
	g.compileMu.Lock()
	defer g.compileMu.Unlock()

	kind, path := g.sub.get()
	if kind == compiledArtifact {
		return path, nil
	}

	g.gatherer.StartCompile(path)
	art, err := g.compiler.Compile(ctx, path)
	if err != nil {
		return "", compileError(op, path, err)
	}
	if !g.sub.promote(path, art.Path) {
		g.logger.Warn("submission replaced during compilation", "source", path)
	}
	g.gatherer.FinishCompile(CompileInfo{
		Source:   path,
		Artifact: art.Path,
		Cached:   art.Cached,
		Duration: art.Duration,
		Stderr:   art.Stderr,
	})
	return art.Path, nil
}

// run executes artifact on one case. Limit breaches and crashes are statuses,
// only failures of the grader itself are errors.
func (g *Grader) run(ctx context.Context, artifact string, c testcase.Case) (TestResult, error) {
	const op = "run"
	g.runMu.Lock()
	defer g.runMu.Unlock()

	input, cleanupInput, err := testcase.Materialize(c.Input)
	if err != nil {
		return TestResult{}, statError(op, c.Input, err)
	}
	defer cleanupInput()

	expected, cleanupExpected, err := testcase.Materialize(c.Output)
	if err != nil {
		return TestResult{}, statError(op, c.Output, err)
	}
	defer cleanupExpected()

	res := TestResult{Name: c.Name}

	p, err := process.Start(process.Spec{Path: artifact, Stdin: input})
	if errors.Is(err, process.ErrStart) {
		g.logger.Warn("failed to start program", "test", c.Name, "error", err)
		res.Status = RuntimeError
		res.ExitCode = -1
		res.Stderr = err.Error()
		return res, nil
	}
	if err != nil {
		return TestResult{}, statError(op, c.Input, err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			g.logger.Warn("failed to clean up process files", "test", c.Name, "error", err)
		}
	}()
	g.logger.Debug("started program", "test", c.Name, "pid", p.Pid(), "input", c.Input)

	monitor := process.NewMonitor(g.limits.process(), g.interval)
	report, err := monitor.Watch(ctx, p, p.StartedAt())
	if err != nil {
		return TestResult{}, newError(KindInternal, op, c.Name, err)
	}

	res.Time = report.Elapsed
	res.Memory = report.PeakRSS
	res.ExitCode = report.ExitCode
	res.Stdout = api.TrimToRect(p.StdoutHead(outputHeadBytes), api.MaxOutputHeight, api.MaxOutputWidth)
	res.Stderr = api.TrimToRect(p.StderrHead(outputHeadBytes), api.MaxOutputHeight, api.MaxOutputWidth)

	switch report.State {
	case process.TimedOut:
		res.Status = TimeLimitExceeded
	case process.MemExceeded:
		res.Status = MemoryLimitExceeded
	case process.ExitedError:
		res.Status = RuntimeError
	case process.ExitedOk:
		ok, err := checker.CompareFiles(p.StdoutPath(), expected)
		if err != nil {
			return TestResult{}, compareError(op, c.Output, err)
		}
		res.Status = WrongAnswer
		if ok {
			res.Status = Accepted
		}
	default:
		return TestResult{}, newError(KindInternal, op, c.Name, fmt.Errorf("monitor stopped in state %s", report.State))
	}
	if report.State == process.TimedOut || report.State == process.MemExceeded {
		g.logger.Info("killed program", "test", c.Name, "reason", report.State.String(),
			"elapsed", report.Elapsed, "peak_rss", report.PeakRSS)
	}
	return res, nil
}

const outputHeadBytes = 8 << 10

func (g *Grader) reportFailure(err error) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindCompile {
		msg := e.Detail
		if msg == "" {
			msg = e.Error()
		}
		g.gatherer.CompileError(msg)
		return
	}
	g.gatherer.InternalError(err.Error())
}

func caseName(input string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, testcase.ZstdExt)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func statError(op, path string, err error) *Error {
	if errors.Is(err, fs.ErrNotExist) {
		return newError(KindNotFound, op, path, err)
	}
	return newError(KindInternal, op, path, err)
}

func discoveryError(op, dir string, err error) *Error {
	if errors.Is(err, testcase.ErrNotDir) {
		return newError(KindNotFound, op, dir, err)
	}
	return statError(op, dir, err)
}

func compareError(op, expected string, err error) *Error {
	if errors.Is(err, checker.ErrNotRegular) {
		return newError(KindNotFound, op, expected, err)
	}
	return statError(op, expected, err)
}

func compileError(op, src string, err error) *Error {
	var failure *compiler.Failure
	switch {
	case errors.As(err, &failure):
		return &Error{Kind: KindCompile, Op: op, Path: src, Detail: failure.Diagnostics, Err: err}
	case errors.Is(err, compiler.ErrToolchain):
		return newError(KindCompile, op, src, err)
	case errors.Is(err, fs.ErrNotExist):
		return newError(KindNotFound, op, src, err)
	}
	return newError(KindInternal, op, src, err)
}
