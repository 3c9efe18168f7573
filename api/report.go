package api

// JobStatus is the overall outcome of a Report
type JobStatus string

const (
	JobSuccess       JobStatus = "success"
	JobCompileError  JobStatus = "compile_error"
	JobInternalError JobStatus = "internal_error"
)

// Report is the complete, non-streamed outcome of one grading job
type Report struct {
	JobId      string    `json:"job_id"`
	Submission string    `json:"submission"`
	Status     JobStatus `json:"status"`

	// Compile is nil when the submission was already an executable
	Compile *CompileData `json:"compile,omitempty"`

	TestResults []TestData `json:"test_results"`
	Accepted    int        `json:"accepted"`
	Total       int        `json:"total"`

	ErrorMessage *string `json:"error_message,omitempty"`

	StartTime   string `json:"start_time"`
	FinishTime  string `json:"finish_time"`
	TotalTimeMs int64  `json:"total_time_ms"`
}
