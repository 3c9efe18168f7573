package api

import "time"

// MsgType is a message type for streaming grading events
type MsgType string

// Streaming message type constants
const (
	StartJobMsg      MsgType = "job_start"
	StartCompileMsg  MsgType = "compile_start"
	FinishCompileMsg MsgType = "compile_finish"
	StartTestingMsg  MsgType = "testing_start"
	FinishTestMsg    MsgType = "test_finish"
	FinishJobMsg     MsgType = "job_finish"
)

// Output size constraints for streamed messages
const (
	MaxOutputHeight = 40
	MaxOutputWidth  = 80
)

// Header is the common header for all streamed messages
type Header struct {
	JobId   string  `json:"job_id"`
	MsgType MsgType `json:"msg_type"`
}

// CompileData describes a finished compilation
type CompileData struct {
	Source     string `json:"source"`
	Artifact   string `json:"artifact"`
	Cached     bool   `json:"cached"`
	WallMillis int64  `json:"wall_ms"`
	Stderr     string `json:"err"`
}

// TestData is the result of running one test case
type TestData struct {
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	WallMillis int64   `json:"wall_ms"`
	MemoryMiB  float64 `json:"mem_mib"`
	ExitCode   int64   `json:"exit"`
	Stdout     string  `json:"out"`
	Stderr     string  `json:"err"`
}

// StartJob message sent when grading begins
type StartJob struct {
	Header
	Submission  string `json:"submission"`
	StartedTime string `json:"started_time"`
}

// StartCompile message sent when compilation begins
type StartCompile struct {
	Header
	Source string `json:"source"`
}

// FinishCompile message sent when compilation succeeds
type FinishCompile struct {
	Header
	Compile CompileData `json:"compile"`
}

// StartTesting message sent once the test cases are known
type StartTesting struct {
	Header
	TestCount int `json:"test_count"`
}

// FinishTest message sent when a test case completes
type FinishTest struct {
	Header
	TestIndex int      `json:"test_index"`
	Result    TestData `json:"result"`
}

// FinishJob message sent when grading ends, successfully or not
type FinishJob struct {
	Header
	ErrorMessage  *string `json:"error_message"`
	CompileError  bool    `json:"compile_error"`
	InternalError bool    `json:"internal_error"`
	Accepted      int     `json:"accepted"`
	Total         int     `json:"total"`
}

func NewHeader(jobId string, msgType MsgType) Header {
	return Header{
		JobId:   jobId,
		MsgType: msgType,
	}
}

func NewStartJob(jobId, submission string) StartJob {
	return StartJob{
		Header:      NewHeader(jobId, StartJobMsg),
		Submission:  submission,
		StartedTime: time.Now().Format(time.RFC3339),
	}
}

func NewStartCompile(jobId, source string) StartCompile {
	return StartCompile{
		Header: NewHeader(jobId, StartCompileMsg),
		Source: source,
	}
}

func NewFinishCompile(jobId string, data CompileData) FinishCompile {
	return FinishCompile{
		Header:  NewHeader(jobId, FinishCompileMsg),
		Compile: data,
	}
}

func NewStartTesting(jobId string, testCount int) StartTesting {
	return StartTesting{
		Header:    NewHeader(jobId, StartTestingMsg),
		TestCount: testCount,
	}
}

func NewFinishTest(jobId string, testIndex int, result TestData) FinishTest {
	return FinishTest{
		Header:    NewHeader(jobId, FinishTestMsg),
		TestIndex: testIndex,
		Result:    result,
	}
}

func NewCompileError(jobId string, msg string) FinishJob {
	return FinishJob{
		Header:       NewHeader(jobId, FinishJobMsg),
		ErrorMessage: &msg,
		CompileError: true,
	}
}

func NewInternalError(jobId string, msg string) FinishJob {
	return FinishJob{
		Header:        NewHeader(jobId, FinishJobMsg),
		ErrorMessage:  &msg,
		InternalError: true,
	}
}

func NewFinishJob(jobId string, accepted, total int) FinishJob {
	return FinishJob{
		Header:   NewHeader(jobId, FinishJobMsg),
		Accepted: accepted,
		Total:    total,
	}
}
