// Package rules derives issues and recommendations from the raw signal
// bundles. Derivation is a pure function: no I/O, deterministic ordering.
package rules

import (
	"fmt"

	"github.com/pageaudit/pageaudit/internal/audit"
)

// Signals groups the four raw bundles a rule can inspect.
type Signals struct {
	SEO         audit.SEOAnalysis
	Technical   audit.TechnicalAnalysis
	Content     audit.ContentAnalysis
	Performance audit.PerformanceAnalysis
}

// SlowLoadThresholdMs is the load time above which a page is flagged slow.
const SlowLoadThresholdMs = 3000

// rule pairs a predicate with an issue template producer. Rules are
// evaluated in slice order so issue ordering is stable across runs.
type rule struct {
	when  func(s Signals) bool
	issue func(s Signals) audit.Issue
}

var ruleTable = []rule{
	{
		when: func(s Signals) bool { return !s.SEO.Title.Optimal },
		issue: func(s Signals) audit.Issue {
			return audit.Issue{
				ID:       "seo-title-length",
				Severity: audit.SeverityWarning,
				Category: audit.CategorySEO,
				Title:    "Title tag is not optimal",
				Description: fmt.Sprintf(
					"The title is %d characters long; aim for 30-60 characters.", s.SEO.Title.Length),
				Element:        "title",
				Impact:         audit.ImpactMedium,
				Recommendation: "Write a descriptive title between 30 and 60 characters.",
			}
		},
	},
	{
		when: func(s Signals) bool { return !s.SEO.MetaDescription.Optimal },
		issue: func(s Signals) audit.Issue {
			desc := "The meta description is missing."
			if s.SEO.MetaDescription.Length > 0 {
				desc = fmt.Sprintf(
					"The meta description is %d characters long; aim for 120-160 characters.",
					s.SEO.MetaDescription.Length)
			}
			return audit.Issue{
				ID:             "seo-meta-description",
				Severity:       audit.SeverityError,
				Category:       audit.CategorySEO,
				Title:          "Meta description is missing or not optimal",
				Description:    desc,
				Element:        `meta[name="description"]`,
				Impact:         audit.ImpactHigh,
				Recommendation: "Add a compelling meta description between 120 and 160 characters.",
			}
		},
	},
	{
		when: func(s Signals) bool { return len(s.SEO.Headings.H1) == 0 },
		issue: func(s Signals) audit.Issue {
			return audit.Issue{
				ID:             "seo-h1-missing",
				Severity:       audit.SeverityError,
				Category:       audit.CategorySEO,
				Title:          "Page has no H1 heading",
				Description:    "Every page should have exactly one H1 describing its main topic.",
				Element:        "h1",
				Impact:         audit.ImpactHigh,
				Recommendation: "Add a single H1 heading containing the page's primary keyword.",
			}
		},
	},
	{
		when: func(s Signals) bool { return len(s.SEO.Headings.H1) > 1 },
		issue: func(s Signals) audit.Issue {
			return audit.Issue{
				ID:       "seo-h1-multiple",
				Severity: audit.SeverityWarning,
				Category: audit.CategorySEO,
				Title:    "Page has multiple H1 headings",
				Description: fmt.Sprintf(
					"Found %d H1 headings; search engines expect exactly one.", len(s.SEO.Headings.H1)),
				Element:        "h1",
				Impact:         audit.ImpactMedium,
				Recommendation: "Keep one H1 and demote the rest to H2.",
			}
		},
	},
	{
		when: func(s Signals) bool { return s.Content.Images.MissingAlt > 0 },
		issue: func(s Signals) audit.Issue {
			return audit.Issue{
				ID:       "content-images-alt",
				Severity: audit.SeverityWarning,
				Category: audit.CategoryContent,
				Title:    "Images are missing alt text",
				Description: fmt.Sprintf(
					"%d of %d images have no alt attribute.", s.Content.Images.MissingAlt, s.Content.Images.Total),
				Element:        "img",
				Impact:         audit.ImpactMedium,
				Recommendation: "Add descriptive alt text to every meaningful image.",
			}
		},
	},
	{
		when: func(s Signals) bool { return s.Content.Links.EmptyText > 0 },
		issue: func(s Signals) audit.Issue {
			return audit.Issue{
				ID:       "content-links-empty",
				Severity: audit.SeverityWarning,
				Category: audit.CategoryContent,
				Title:    "Links with empty anchor text",
				Description: fmt.Sprintf(
					"%d links have no visible text.", s.Content.Links.EmptyText),
				Element:        "a",
				Impact:         audit.ImpactLow,
				Recommendation: "Give every link descriptive anchor text.",
			}
		},
	},
	{
		when: func(s Signals) bool { return !s.Technical.Security.HasSSL },
		issue: func(s Signals) audit.Issue {
			return audit.Issue{
				ID:             "technical-no-ssl",
				Severity:       audit.SeverityError,
				Category:       audit.CategoryTechnical,
				Title:          "Page is not served over HTTPS",
				Description:    "The page was loaded over plain HTTP.",
				Impact:         audit.ImpactHigh,
				Recommendation: "Install a TLS certificate and redirect HTTP traffic to HTTPS.",
			}
		},
	},
	{
		when: func(s Signals) bool { return s.SEO.Viewport == "" },
		issue: func(s Signals) audit.Issue {
			return audit.Issue{
				ID:             "technical-no-viewport",
				Severity:       audit.SeverityError,
				Category:       audit.CategoryTechnical,
				Title:          "Viewport meta tag is missing",
				Description:    "Without a viewport tag the page renders poorly on mobile devices.",
				Element:        `meta[name="viewport"]`,
				Impact:         audit.ImpactHigh,
				Recommendation: `Add <meta name="viewport" content="width=device-width, initial-scale=1">.`,
			}
		},
	},
	{
		when: func(s Signals) bool { return s.Technical.LoadTimeMs > SlowLoadThresholdMs },
		issue: func(s Signals) audit.Issue {
			return audit.Issue{
				ID:       "performance-slow-load",
				Severity: audit.SeverityWarning,
				Category: audit.CategoryPerformance,
				Title:    "Page load time is slow",
				Description: fmt.Sprintf(
					"The page took %.0f ms to load; aim for under %d ms.", s.Technical.LoadTimeMs, SlowLoadThresholdMs),
				Impact:         audit.ImpactMedium,
				Recommendation: "Compress assets, defer non-critical scripts and enable caching.",
			}
		},
	},
}

// generalRecommendations are always appended regardless of which rules fired.
var generalRecommendations = []string{
	"Review titles, meta descriptions and heading structure against your target keywords.",
	"Serve the site over HTTPS, keep load time under 3 seconds and verify mobile rendering.",
}

// Derive evaluates the rule table in fixed order and returns the derived
// issues plus the general recommendation set.
func Derive(s Signals) ([]audit.Issue, []string) {
	issues := make([]audit.Issue, 0, len(ruleTable))
	for _, r := range ruleTable {
		if r.when(s) {
			issues = append(issues, r.issue(s))
		}
	}
	recs := make([]string, len(generalRecommendations))
	copy(recs, generalRecommendations)
	return issues, recs
}
