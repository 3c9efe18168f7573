package grader

import (
	"context"
	"time"

	"github.com/programme-lv/grader/internal/testcase"
)

// TestResult is the outcome of running the submission on one test case.
type TestResult struct {
	Name   string
	Status Status
	// Time is the wall time from spawn until exit or kill.
	Time time.Duration
	// Memory is the peak sampled resident set size in bytes.
	Memory   uint64
	ExitCode int
	// Stdout and Stderr hold the trimmed beginning of the program's output.
	Stdout string
	Stderr string
}

// Seconds is the elapsed wall time in seconds.
func (r TestResult) Seconds() float64 {
	return r.Time.Seconds()
}

// MegaBytes is the peak memory in megabytes (2^20 bytes).
func (r TestResult) MegaBytes() float64 {
	return float64(r.Memory) / (1 << 20)
}

// Summary counts results by status.
type Summary struct {
	Accepted int
	Total    int
	Counts   map[Status]int
}

func (s *Summary) add(r TestResult) {
	if s.Counts == nil {
		s.Counts = make(map[Status]int)
	}
	s.Counts[r.Status]++
	s.Total++
	if r.Status == Accepted {
		s.Accepted++
	}
}

// Points is the share of accepted test cases on a 0 to 100 scale.
func (s Summary) Points() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Accepted) * 100 / float64(s.Total)
}

// Results is the sequence of test results produced by Grade. Each test case
// runs when Next reaches it. A Results value is consumed once; call Grade
// again to start over.
//
//	res, err := g.Grade(ctx, dir)
//	...
//	for res.Next() {
//		r := res.Result()
//	}
//	if err := res.Err(); err != nil { ... }
type Results struct {
	ctx      context.Context
	grader   *Grader
	artifact string
	cases    []testcase.Case

	next    int
	current TestResult
	summary Summary
	err     error
	done    bool
}

func newResults(ctx context.Context, g *Grader, artifact string, cases []testcase.Case) *Results {
	return &Results{
		ctx:      ctx,
		grader:   g,
		artifact: artifact,
		cases:    cases,
		summary:  Summary{Counts: make(map[Status]int)},
	}
}

// Len is the number of test cases discovered, known before any of them runs.
func (r *Results) Len() int {
	return len(r.cases)
}

// Next runs the next test case. It returns false when the sequence is
// exhausted or an error stopped it.
func (r *Results) Next() bool {
	if r.done {
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.fail(newError(KindInternal, "grade", "", err))
		return false
	}
	if r.next >= len(r.cases) {
		r.done = true
		r.grader.gatherer.FinishJob(r.summary)
		return false
	}

	c := r.cases[r.next]
	res, err := r.grader.run(r.ctx, r.artifact, c)
	if err != nil {
		r.fail(err)
		return false
	}

	r.current = res
	r.summary.add(res)
	r.grader.gatherer.FinishTest(r.next, res)
	r.next++
	return true
}

func (r *Results) fail(err error) {
	r.err = err
	r.done = true
	r.grader.reportFailure(err)
}

// Result is the result produced by the last successful call to Next.
func (r *Results) Result() TestResult {
	return r.current
}

// Err reports the error that stopped the sequence, if any.
func (r *Results) Err() error {
	return r.err
}

// Summary counts the results produced so far.
func (r *Results) Summary() Summary {
	return r.summary
}

// Collect runs the remaining test cases and returns all of their results.
func (r *Results) Collect() ([]TestResult, error) {
	out := make([]TestResult, 0, len(r.cases)-r.next)
	for r.Next() {
		out = append(out, r.current)
	}
	return out, r.err
}
