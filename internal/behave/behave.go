// Package behave loads end-to-end grading scenarios from a TOML file.
package behave

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// SpecTest is a single test case in the behaviour file
type SpecTest struct {
	In  string `toml:"in"`
	Ans string `toml:"ans"`
}

// SpecLimits describes resource limits for a scenario request
type SpecLimits struct {
	TimeMs int `toml:"time_ms"`
	MemMb  int `toml:"mem_mb"`
}

// SpecRequest represents a request block inside a scenario entry
type SpecRequest struct {
	Code   string     `toml:"code"`
	Tests  []SpecTest `toml:"tests"`
	Limits SpecLimits `toml:"limits"`
}

// SpecTestVerdict represents an expected verdict for a test result
type SpecTestVerdict struct {
	Verdict string `toml:"verdict"`
}

// SpecExpect describes expected overall status and per-test verdicts
type SpecExpect struct {
	Status      string            `toml:"status"`
	TestResults []SpecTestVerdict `toml:"test_results"`
}

// Expected overall statuses
const (
	StatusSuccess      = "success"
	StatusCompileError = "compile_error"
)

// specSuite maps to [[scenarios]] entries. The request is written as an
// array of tables, so it is modelled as a slice and the first element is used.
type specSuite struct {
	Description string        `toml:"description"`
	RequestAOT  []SpecRequest `toml:"request"`
	Expect      SpecExpect    `toml:"expect"`
}

type specRoot struct {
	Suites []specSuite `toml:"scenarios"`
}

// Case is a runnable scenario converted from TOML
type Case struct {
	Name          string
	Code          string
	Tests         []SpecTest
	TimeLimitMs   int
	MemoryLimitMb int
	Expect        SpecExpect
}

// Parse reads a behaviour TOML file and converts it to runnable cases
func Parse(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read behaviour file: %w", err)
	}
	var root specRoot
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cases := make([]Case, 0, len(root.Suites))
	for _, suite := range root.Suites {
		if len(suite.RequestAOT) == 0 {
			return nil, fmt.Errorf("scenario %q is missing request block", suite.Description)
		}
		req := suite.RequestAOT[0]

		switch suite.Expect.Status {
		case StatusSuccess, StatusCompileError:
		default:
			return nil, fmt.Errorf("scenario %q: unknown expected status %q", suite.Description, suite.Expect.Status)
		}
		if suite.Expect.Status == StatusSuccess && len(suite.Expect.TestResults) != len(req.Tests) {
			return nil, fmt.Errorf("scenario %q: %d tests but %d expected verdicts",
				suite.Description, len(req.Tests), len(suite.Expect.TestResults))
		}

		// Apply limits with sensible defaults if not provided
		timeMs := req.Limits.TimeMs
		if timeMs == 0 {
			timeMs = 1000
		}
		memMb := req.Limits.MemMb
		if memMb == 0 {
			memMb = 256
		}

		cases = append(cases, Case{
			Name:          suite.Description,
			Code:          req.Code,
			Tests:         req.Tests,
			TimeLimitMs:   timeMs,
			MemoryLimitMb: memMb,
			Expect:        suite.Expect,
		})
	}
	return cases, nil
}

// WriteFiles lays the scenario out under dir: the source as main.cpp and the
// tests as numbered .in/.out pairs in a tests subdirectory.
func (c Case) WriteFiles(dir string) (src string, testDir string, err error) {
	src = filepath.Join(dir, "main.cpp")
	if err := os.WriteFile(src, []byte(c.Code), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write source: %w", err)
	}
	testDir = filepath.Join(dir, "tests")
	if err := os.MkdirAll(testDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create test directory: %w", err)
	}
	for i, t := range c.Tests {
		name := fmt.Sprintf("%03d", i+1)
		if err := os.WriteFile(filepath.Join(testDir, name+".in"), []byte(t.In), 0o644); err != nil {
			return "", "", fmt.Errorf("failed to write input %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(testDir, name+".out"), []byte(t.Ans), 0o644); err != nil {
			return "", "", fmt.Errorf("failed to write answer %s: %w", name, err)
		}
	}
	return src, testDir, nil
}
