package respbuilder

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/programme-lv/grader"
	"github.com/programme-lv/grader/api"
	"github.com/programme-lv/grader/internal/gatherer"
)

// Builder gathers grading events and builds a complete api.Report.
type Builder struct {
	mu sync.Mutex

	jobId      string
	submission string

	started  time.Time
	finished *time.Time

	compile     *api.CompileData
	testResults []api.TestData
	accepted    int
	total       int

	status       api.JobStatus
	errorMessage *string
}

func New() *Builder {
	return &Builder{
		started: time.Now(),
		status:  api.JobSuccess,
	}
}

// StartJob implements grader.Gatherer.
func (b *Builder) StartJob(jobId string, submission string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobId = jobId
	b.submission = submission
	b.started = time.Now()
}

// StartCompile implements grader.Gatherer.
func (b *Builder) StartCompile(string) {}

// FinishCompile implements grader.Gatherer.
func (b *Builder) FinishCompile(info grader.CompileInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := gatherer.CompileData(info)
	b.compile = &data
}

// StartTesting implements grader.Gatherer.
func (b *Builder) StartTesting(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.testResults = make([]api.TestData, 0, total)
}

// FinishTest implements grader.Gatherer.
func (b *Builder) FinishTest(index int, result grader.TestResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.testResults = append(b.testResults, gatherer.TestData(result))
}

// CompileError implements grader.Gatherer.
func (b *Builder) CompileError(msg string) {
	b.end(api.JobCompileError, &msg)
}

// InternalError implements grader.Gatherer.
func (b *Builder) InternalError(msg string) {
	b.end(api.JobInternalError, &msg)
}

// FinishJob implements grader.Gatherer.
func (b *Builder) FinishJob(summary grader.Summary) {
	b.mu.Lock()
	b.accepted = summary.Accepted
	b.total = summary.Total
	b.mu.Unlock()
	b.end(api.JobSuccess, nil)
}

func (b *Builder) end(status api.JobStatus, msg *string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.finished = &now
	b.status = status
	b.errorMessage = msg
}

// Report builds the api.Report from gathered data.
func (b *Builder) Report() api.Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := b.started.Format(time.RFC3339)
	finish := start
	total := int64(0)
	if b.finished != nil {
		finish = b.finished.Format(time.RFC3339)
		total = b.finished.Sub(b.started).Milliseconds()
	}
	results := b.testResults
	if results == nil {
		results = []api.TestData{}
	}
	return api.Report{
		JobId:        b.jobId,
		Submission:   b.submission,
		Status:       b.status,
		Compile:      b.compile,
		TestResults:  results,
		Accepted:     b.accepted,
		Total:        b.total,
		ErrorMessage: b.errorMessage,
		StartTime:    start,
		FinishTime:   finish,
		TotalTimeMs:  total,
	}
}

// WriteFile stores the report as indented JSON at path.
func (b *Builder) WriteFile(path string) error {
	data, err := json.MarshalIndent(b.Report(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

var _ grader.Gatherer = (*Builder)(nil)
