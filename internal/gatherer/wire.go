// Package gatherer streams grading events as JSON messages of the api package.
package gatherer

import (
	"github.com/programme-lv/grader"
	"github.com/programme-lv/grader/api"
)

// CompileData maps a finished compilation to its wire form.
func CompileData(info grader.CompileInfo) api.CompileData {
	return api.CompileData{
		Source:     info.Source,
		Artifact:   info.Artifact,
		Cached:     info.Cached,
		WallMillis: info.Duration.Milliseconds(),
		Stderr:     api.TrimToRect(info.Stderr, api.MaxOutputHeight, api.MaxOutputWidth),
	}
}

// TestData maps a test result to its wire form.
func TestData(r grader.TestResult) api.TestData {
	return api.TestData{
		Name:       r.Name,
		Status:     string(r.Status),
		WallMillis: r.Time.Milliseconds(),
		MemoryMiB:  r.MegaBytes(),
		ExitCode:   int64(r.ExitCode),
		Stdout:     api.TrimToRect(r.Stdout, api.MaxOutputHeight, api.MaxOutputWidth),
		Stderr:     api.TrimToRect(r.Stderr, api.MaxOutputHeight, api.MaxOutputWidth),
	}
}
