package multigath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/programme-lv/grader"
	"github.com/programme-lv/grader/internal/gatherer/multigath"
)

type counter struct {
	grader.NopGatherer
	tests int
	jobs  int
}

func (c *counter) FinishTest(int, grader.TestResult) { c.tests++ }
func (c *counter) FinishJob(grader.Summary) { c.jobs++ }

func TestFansOutToEveryGatherer(t *testing.T) {
	a, b := &counter{}, &counter{}
	m := multigath.New(a, nil, b)
	assert.Len(t, m, 2)

	m.StartJob("id", "src")
	m.FinishTest(0, grader.TestResult{})
	m.FinishTest(1, grader.TestResult{})
	m.FinishJob(grader.Summary{})

	for _, c := range []*counter{a, b} {
		assert.Equal(t, 2, c.tests)
		assert.Equal(t, 1, c.jobs)
	}
}
