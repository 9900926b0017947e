// Package scoring aggregates derived issues into category and overall scores.
package scoring

import (
	"math"

	"github.com/pageaudit/pageaudit/internal/audit"
)

// Penalty points subtracted per issue, keyed by impact tier.
var penalties = map[audit.Impact]int{
	audit.ImpactHigh:   20,
	audit.ImpactMedium: 10,
	audit.ImpactLow:    5,
}

// Penalty returns the score deduction for an impact tier. Unknown tiers are
// treated as low impact.
func Penalty(impact audit.Impact) int {
	if p, ok := penalties[impact]; ok {
		return p
	}
	return penalties[audit.ImpactLow]
}

// Score computes the four category scores and the overall score for a list
// of issues. Each category starts at 100; every issue subtracts its penalty
// from its own category, clamped at 0 after each subtraction. Repeated
// issues keep compounding until the floor is hit.
func Score(issues []audit.Issue) (map[audit.Category]audit.CategoryScore, int) {
	running := make(map[audit.Category]int, len(audit.Categories))
	byCategory := make(map[audit.Category][]audit.Issue, len(audit.Categories))
	for _, c := range audit.Categories {
		running[c] = 100
	}

	for _, issue := range issues {
		score := running[issue.Category] - Penalty(issue.Impact)
		if score < 0 {
			score = 0
		}
		running[issue.Category] = score
		byCategory[issue.Category] = append(byCategory[issue.Category], issue)
	}

	scores := make(map[audit.Category]audit.CategoryScore, len(audit.Categories))
	sum := 0
	for _, c := range audit.Categories {
		scores[c] = audit.CategoryScore{
			Score:    running[c],
			MaxScore: 100,
			Issues:   byCategory[c],
		}
		sum += running[c]
	}

	overall := int(math.Floor(float64(sum)/float64(len(audit.Categories)) + 0.5))
	return scores, overall
}
