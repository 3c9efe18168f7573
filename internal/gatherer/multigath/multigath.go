// Package multigath fans grading events out to several gatherers.
package multigath

import "github.com/programme-lv/grader"

type Multi []grader.Gatherer

// New drops nil gatherers.
func New(gatherers ...grader.Gatherer) Multi {
	m := make(Multi, 0, len(gatherers))
	for _, g := range gatherers {
		if g != nil {
			m = append(m, g)
		}
	}
	return m
}

func (m Multi) StartJob(jobId string, submission string) {
	for _, g := range m {
		g.StartJob(jobId, submission)
	}
}

func (m Multi) StartCompile(source string) {
	for _, g := range m {
		g.StartCompile(source)
	}
}

func (m Multi) FinishCompile(info grader.CompileInfo) {
	for _, g := range m {
		g.FinishCompile(info)
	}
}

func (m Multi) StartTesting(total int) {
	for _, g := range m {
		g.StartTesting(total)
	}
}

func (m Multi) FinishTest(index int, result grader.TestResult) {
	for _, g := range m {
		g.FinishTest(index, result)
	}
}

func (m Multi) CompileError(diagnostics string) {
	for _, g := range m {
		g.CompileError(diagnostics)
	}
}

func (m Multi) InternalError(msg string) {
	for _, g := range m {
		g.InternalError(msg)
	}
}

func (m Multi) FinishJob(summary grader.Summary) {
	for _, g := range m {
		g.FinishJob(summary)
	}
}

var _ grader.Gatherer = Multi(nil)
