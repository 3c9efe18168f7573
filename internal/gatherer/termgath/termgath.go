// Package termgath renders grading events for a terminal.
package termgath

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/programme-lv/grader"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	blue   = color.New(color.FgBlue, color.Bold)
	bold   = color.New(color.Bold)
)

func statusColor(s grader.Status) *color.Color {
	switch s {
	case grader.Accepted:
		return green
	case grader.RuntimeError:
		return yellow
	case grader.CompileError:
		return blue
	}
	return red
}

// FormatStatus returns the coloured description of s.
func FormatStatus(s grader.Status) string {
	return statusColor(s).Sprint(s.Description())
}

type TerminalGatherer struct {
	grader.NopGatherer

	out     io.Writer
	verbose bool

	startedAt time.Time
}

// New writes to out, or to the colour-aware stdout when out is nil. Verbose
// output adds compilation progress and the first lines of failing runs.
func New(out io.Writer, verbose bool) *TerminalGatherer {
	if out == nil {
		out = color.Output
	}
	return &TerminalGatherer{out: out, verbose: verbose}
}

func (t *TerminalGatherer) StartJob(jobId string, submission string) {
	t.startedAt = time.Now()
	if t.verbose {
		fmt.Fprintf(t.out, "grading %s (job %s)\n", submission, jobId)
	}
}

func (t *TerminalGatherer) StartCompile(source string) {
	if t.verbose {
		fmt.Fprintf(t.out, "compiling %s...\n", source)
	}
}

func (t *TerminalGatherer) FinishCompile(info grader.CompileInfo) {
	if !t.verbose {
		return
	}
	if info.Cached {
		fmt.Fprintln(t.out, "using cached executable")
	} else {
		fmt.Fprintf(t.out, "compiled in %s\n", info.Duration.Round(time.Millisecond))
	}
	if info.Stderr != "" {
		fmt.Fprintln(t.out, info.Stderr)
	}
}

func (t *TerminalGatherer) StartTesting(total int) {
	if t.verbose {
		fmt.Fprintf(t.out, "running %d test cases\n", total)
	}
}

func (t *TerminalGatherer) FinishTest(index int, r grader.TestResult) {
	fmt.Fprintf(t.out, "test case %s:\t%s\t[%.3f s,%.2f MB]\n",
		r.Name, FormatStatus(r.Status), r.Seconds(), r.MegaBytes())
	if t.verbose && r.Status != grader.Accepted && r.Stderr != "" {
		fmt.Fprintln(t.out, r.Stderr)
	}
}

func (t *TerminalGatherer) CompileError(diagnostics string) {
	fmt.Fprintln(t.out, FormatStatus(grader.CompileError))
	if diagnostics != "" {
		fmt.Fprintln(t.out, diagnostics)
	}
}

func (t *TerminalGatherer) InternalError(msg string) {
	fmt.Fprintf(t.out, "%s %s\n", red.Sprint("internal error:"), msg)
}

func (t *TerminalGatherer) FinishJob(s grader.Summary) {
	fmt.Fprintln(t.out, bold.Sprintf("final score: %d/%d (%.1f points)", s.Accepted, s.Total, s.Points()))
	if t.verbose {
		fmt.Fprintf(t.out, "finished in %s\n", time.Since(t.startedAt).Round(time.Millisecond))
	}
}

var _ grader.Gatherer = (*TerminalGatherer)(nil)
