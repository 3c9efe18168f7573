package grader

// Status is the verdict of one test-case execution.
type Status string

const (
	Accepted            Status = "AC"
	WrongAnswer         Status = "WA"
	TimeLimitExceeded   Status = "TLE"
	MemoryLimitExceeded Status = "MLE"
	RuntimeError        Status = "RTE"
	// CompileError never appears on a TestResult. Compile failures abort the
	// whole run with an *Error of KindCompile.
	CompileError Status = "CE"
)

// Statuses lists every status in display order.
var Statuses = []Status{
	Accepted,
	WrongAnswer,
	TimeLimitExceeded,
	MemoryLimitExceeded,
	RuntimeError,
	CompileError,
}

// Description is the human-readable name of the status.
func (s Status) Description() string {
	switch s {
	case Accepted:
		return "accepted"
	case WrongAnswer:
		return "wrong answer"
	case TimeLimitExceeded:
		return "time limit exceeded"
	case MemoryLimitExceeded:
		return "memory limit exceeded"
	case RuntimeError:
		return "runtime error"
	case CompileError:
		return "compile error"
	}
	return "unknown"
}

func (s Status) String() string {
	return string(s)
}
