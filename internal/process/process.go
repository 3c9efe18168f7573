package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	gpsprocess "github.com/shirou/gopsutil/v4/process"
)

// ErrStart is wrapped by Start when the executable could not be spawned.
var ErrStart = errors.New("failed to start process")

// Spec describes a single run of an executable.
type Spec struct {
	Path  string
	Args  []string
	Dir   string
	Stdin string // path of the file fed to standard input
}

// Process is a spawned child with its standard streams redirected to files.
// It implements Target.
type Process struct {
	cmd       *exec.Cmd
	startedAt time.Time

	stdoutPath string
	stderrPath string

	stat *gpsprocess.Process

	done     chan struct{}
	exitedAt time.Time
	waitErr  error
}

// Start spawns the executable described by spec. Standard output and standard
// error are captured into temporary files that live until Close.
func Start(spec Spec) (*Process, error) {
	stdin, err := os.Open(spec.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	// the child holds its own descriptor once started
	defer stdin.Close()

	stdout, err := os.CreateTemp("", "grader-stdout-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout file: %w", err)
	}
	defer stdout.Close()

	stderr, err := os.CreateTemp("", "grader-stderr-*")
	if err != nil {
		_ = os.Remove(stdout.Name())
		return nil, fmt.Errorf("failed to create stderr file: %w", err)
	}
	defer stderr.Close()

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	setProcessGroup(cmd)

	p := &Process{
		cmd:        cmd,
		stdoutPath: stdout.Name(),
		stderrPath: stderr.Name(),
		done:       make(chan struct{}),
	}

	p.startedAt = time.Now()
	if err := cmd.Start(); err != nil {
		p.removeFiles()
		return nil, fmt.Errorf("%w %s: %v", ErrStart, spec.Path, err)
	}

	// the process may already be gone, RSS then reports an error
	p.stat, _ = gpsprocess.NewProcess(int32(cmd.Process.Pid))

	go func() {
		p.waitErr = cmd.Wait()
		p.exitedAt = time.Now()
		close(p.done)
	}()

	return p, nil
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *Process) StartedAt() time.Time {
	return p.startedAt
}

func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) RSS() (uint64, error) {
	if p.stat == nil {
		return 0, gpsprocess.ErrorProcessNotRunning
	}
	info, err := p.stat.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}

func (p *Process) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	return killProcessGroup(p.cmd.Process)
}

func (p *Process) ExitCode() int {
	<-p.done
	if p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

func (p *Process) ExitedAt() time.Time {
	<-p.done
	return p.exitedAt
}

// WaitErr is the error reported by the underlying wait, if any.
func (p *Process) WaitErr() error {
	<-p.done
	return p.waitErr
}

func (p *Process) StdoutPath() string {
	return p.stdoutPath
}

// StdoutHead returns at most n bytes from the start of the captured standard output.
func (p *Process) StdoutHead(n int) string {
	return readHead(p.stdoutPath, n)
}

// StderrHead returns at most n bytes from the start of the captured standard error.
func (p *Process) StderrHead(n int) string {
	return readHead(p.stderrPath, n)
}

// Close kills the process if it is still alive, reaps it, kills any
// processes it left behind in its group and removes the captured output files.
func (p *Process) Close() error {
	_ = p.Kill()
	<-p.done
	return errors.Join(killOrphans(p.cmd.Process.Pid), p.removeFiles())
}

func (p *Process) removeFiles() error {
	errOut := os.Remove(p.stdoutPath)
	errErr := os.Remove(p.stderrPath)
	return errors.Join(ignoreNotExist(errOut), ignoreNotExist(errErr))
}

func ignoreNotExist(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func readHead(path string, n int) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	var b strings.Builder
	_, _ = io.Copy(&b, io.LimitReader(f, int64(n)))
	return b.String()
}
