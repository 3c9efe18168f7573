package grader

import "time"

// Gatherer receives lifecycle events of a grading job. A job starts with
// StartJob and ends with exactly one of CompileError, InternalError or
// FinishJob. FinishJob is sent once the result sequence is exhausted.
//
// Events are delivered from the goroutine driving the grader. StartCompile
// and FinishCompile may arrive from a worker goroutine, but never
// concurrently with other events of the same job.
type Gatherer interface {
	StartJob(jobID string, submission string)

	StartCompile(source string)
	FinishCompile(info CompileInfo)

	StartTesting(total int)
	FinishTest(index int, result TestResult)

	CompileError(diagnostics string)
	InternalError(msg string)
	FinishJob(summary Summary)
}

// CompileInfo describes a successful compilation.
type CompileInfo struct {
	Source   string
	Artifact string
	Cached   bool
	Duration time.Duration
	// Stderr holds compiler warnings.
	Stderr string
}

// NopGatherer discards every event.
type NopGatherer struct{}

func (NopGatherer) StartJob(string, string) {}
func (NopGatherer) StartCompile(string) {}
func (NopGatherer) FinishCompile(CompileInfo) {}
func (NopGatherer) StartTesting(int) {}
func (NopGatherer) FinishTest(int, TestResult) {}
func (NopGatherer) CompileError(string) {}
func (NopGatherer) InternalError(string) {}
func (NopGatherer) FinishJob(Summary) {}

var _ Gatherer = NopGatherer{}
