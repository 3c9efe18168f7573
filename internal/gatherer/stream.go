package gatherer

import (
	"encoding/json"
	"log/slog"

	"github.com/programme-lv/grader"
	"github.com/programme-lv/grader/api"
)

// Sender delivers one encoded message.
type Sender interface {
	Send(data []byte) error
}

// Flusher is implemented by senders that buffer. Flush is called once a job ends.
type Flusher interface {
	Flush() error
}

// Stream turns grading events into api messages and hands them to a Sender.
// Delivery failures are logged and dropped so that reporting never stops grading.
type Stream struct {
	sender Sender
	logger *slog.Logger
	jobId  string
}

func NewStream(sender Sender, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{sender: sender, logger: logger}
}

func (s *Stream) send(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal message", "error", err)
		return
	}
	if err := s.sender.Send(b); err != nil {
		s.logger.Warn("failed to send message", "job_id", s.jobId, "error", err)
	}
}

func (s *Stream) finish(msg api.FinishJob) {
	s.send(msg)
	if f, ok := s.sender.(Flusher); ok {
		if err := f.Flush(); err != nil {
			s.logger.Warn("failed to flush messages", "job_id", s.jobId, "error", err)
		}
	}
}

func (s *Stream) StartJob(jobId string, submission string) {
	s.jobId = jobId
	s.send(api.NewStartJob(jobId, submission))
}

func (s *Stream) StartCompile(source string) {
	s.send(api.NewStartCompile(s.jobId, source))
}

func (s *Stream) FinishCompile(info grader.CompileInfo) {
	s.send(api.NewFinishCompile(s.jobId, CompileData(info)))
}

func (s *Stream) StartTesting(total int) {
	s.send(api.NewStartTesting(s.jobId, total))
}

func (s *Stream) FinishTest(index int, result grader.TestResult) {
	s.send(api.NewFinishTest(s.jobId, index, TestData(result)))
}

func (s *Stream) CompileError(diagnostics string) {
	msg := api.TrimToRect(diagnostics, api.MaxOutputHeight, api.MaxOutputWidth)
	s.finish(api.NewCompileError(s.jobId, msg))
}

func (s *Stream) InternalError(msg string) {
	s.finish(api.NewInternalError(s.jobId, msg))
}

func (s *Stream) FinishJob(summary grader.Summary) {
	s.finish(api.NewFinishJob(s.jobId, summary.Accepted, summary.Total))
}

var _ grader.Gatherer = (*Stream)(nil)
