package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageaudit/pageaudit/internal/audit"
)

func TestPenalty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 20, Penalty(audit.ImpactHigh))
	assert.Equal(t, 10, Penalty(audit.ImpactMedium))
	assert.Equal(t, 5, Penalty(audit.ImpactLow))
	assert.Equal(t, 5, Penalty(audit.Impact("bogus")))
}

func TestScoreNoIssues(t *testing.T) {
	t.Parallel()

	scores, overall := Score(nil)
	require.Len(t, scores, 4)
	for _, c := range audit.Categories {
		assert.Equal(t, 100, scores[c].Score)
		assert.Equal(t, 100, scores[c].MaxScore)
		assert.Empty(t, scores[c].Issues)
	}
	assert.Equal(t, 100, overall)
}

func TestScorePenaltiesCompound(t *testing.T) {
	t.Parallel()

	issues := []audit.Issue{
		{ID: "a", Category: audit.CategorySEO, Impact: audit.ImpactHigh},
		{ID: "b", Category: audit.CategorySEO, Impact: audit.ImpactMedium},
		{ID: "c", Category: audit.CategoryTechnical, Impact: audit.ImpactLow},
	}
	scores, overall := Score(issues)

	assert.Equal(t, 70, scores[audit.CategorySEO].Score)
	assert.Equal(t, 95, scores[audit.CategoryTechnical].Score)
	assert.Equal(t, 100, scores[audit.CategoryContent].Score)
	assert.Equal(t, 100, scores[audit.CategoryPerformance].Score)
	assert.Len(t, scores[audit.CategorySEO].Issues, 2)

	// mean(70,95,100,100) = 91.25 -> 91
	assert.Equal(t, 91, overall)
}

func TestScoreFloorsAtZero(t *testing.T) {
	t.Parallel()

	var issues []audit.Issue
	for i := 0; i < 7; i++ {
		issues = append(issues, audit.Issue{Category: audit.CategoryContent, Impact: audit.ImpactHigh})
	}
	scores, overall := Score(issues)

	assert.Equal(t, 0, scores[audit.CategoryContent].Score)
	// mean(100,100,0,100) = 75
	assert.Equal(t, 75, overall)
}

func TestScoreRoundsHalfUp(t *testing.T) {
	t.Parallel()

	// seo 90, others 100 -> mean 97.5 -> rounds up to 98.
	issues := []audit.Issue{
		{Category: audit.CategorySEO, Impact: audit.ImpactMedium},
	}
	_, overall := Score(issues)
	assert.Equal(t, 98, overall)
}

func TestScoreOverallRange(t *testing.T) {
	t.Parallel()

	var issues []audit.Issue
	for _, c := range audit.Categories {
		for i := 0; i < 10; i++ {
			issues = append(issues, audit.Issue{Category: c, Impact: audit.ImpactHigh})
		}
	}
	scores, overall := Score(issues)
	for _, c := range audit.Categories {
		assert.Equal(t, 0, scores[c].Score)
	}
	assert.Equal(t, 0, overall)
}
