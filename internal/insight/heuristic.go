// Package insight produces the deep-analysis report for a finished audit.
// The heuristic generator is the default strategy and the universal fallback
// for the optional generative collaborator.
package insight

import (
	"context"
	"fmt"

	"github.com/pageaudit/pageaudit/internal/audit"
	"github.com/pageaudit/pageaudit/internal/rules"
)

// Content-quality deductions. Per-item deductions are uncapped; the score is
// clamped to [0,100] at the end.
const (
	deductMissingMetaDescription = 20
	deductPerPlaceholderLink     = 5
	deductPerMissingAlt          = 3
	deductSuspiciousTestimonials = 15
	thinContentWordCount         = 300
)

// Heuristic is the deterministic rule-based deep analyzer. The zero value is
// ready to use.
type Heuristic struct{}

// NewHeuristic creates a Heuristic analyzer.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Analyze builds the deep-analysis report. It never fails.
func (h *Heuristic) Analyze(_ context.Context, result audit.Result) (audit.DeepAnalysis, error) {
	return Generate(result), nil
}

// critRule pairs a predicate over a result with a fixed critical-issue
// template. Rules run in slice order so tier ordering is stable.
type critRule struct {
	when  func(r audit.Result) bool
	issue audit.DeepIssue
}

var criticalRules = []critRule{
	{
		when: func(r audit.Result) bool { return r.SEO.MetaDescription.Content == "" },
		issue: audit.DeepIssue{
			Title:          "Missing meta description",
			Description:    "The page has no meta description, so search engines improvise the snippet shown in results.",
			BusinessImpact: "Lower click-through rates from search results and weaker first impressions.",
			Fix:            "Add a meta description summarizing the page in 120-160 characters.",
			CodeExample:    `<meta name="description" content="A concise, compelling summary of this page.">`,
		},
	},
	{
		when: func(r audit.Result) bool { return r.SEO.Canonical == "" },
		issue: audit.DeepIssue{
			Title:          "Missing canonical link",
			Description:    "Without a canonical URL, duplicate-content variants of this page compete against each other.",
			BusinessImpact: "Diluted ranking signals split across duplicate URLs.",
			Fix:            "Declare the preferred URL with a canonical link element.",
			CodeExample:    `<link rel="canonical" href="https://example.com/page">`,
		},
	},
	{
		when: func(r audit.Result) bool { return r.SEO.OpenGraph.Title == "" },
		issue: audit.DeepIssue{
			Title:          "Missing Open Graph tags",
			Description:    "No og:title tag was found, so shares on social platforms render without a controlled title, image or description.",
			BusinessImpact: "Unattractive social previews reduce referral traffic from shared links.",
			Fix:            "Add the Open Graph tag set (og:title, og:description, og:image, og:url).",
			CodeExample:    `<meta property="og:title" content="Page title for social shares">`,
		},
	},
	{
		when: func(r audit.Result) bool { return r.SEO.Viewport == "" },
		issue: audit.DeepIssue{
			Title:          "Missing viewport tag",
			Description:    "The page lacks a viewport meta tag and will render at desktop width on phones.",
			BusinessImpact: "Mobile visitors bounce from pages that require pinch-zooming; mobile rankings suffer.",
			Fix:            "Add a responsive viewport meta tag.",
			CodeExample:    `<meta name="viewport" content="width=device-width, initial-scale=1">`,
		},
	},
}

// Generate is the pure rule evaluation behind Analyze, exposed for tests and
// for the generative client's fallback path.
func Generate(result audit.Result) audit.DeepAnalysis {
	return audit.DeepAnalysis{
		CriticalIssues: criticalIssues(result),
		HighIssues:     highIssues(result),
		MediumIssues:   mediumIssues(result),
		ContentQuality: contentQuality(result),
		BusinessImpact: businessImpact(result),
		ActionPlan:     actionPlan(result),
	}
}

func criticalIssues(r audit.Result) []audit.DeepIssue {
	issues := make([]audit.DeepIssue, 0, len(criticalRules))
	for _, rule := range criticalRules {
		if rule.when(r) {
			issues = append(issues, rule.issue)
		}
	}
	return issues
}

func highIssues(r audit.Result) []audit.DeepIssue {
	var issues []audit.DeepIssue
	if n := len(r.Content.PlaceholderLinks); n > 0 {
		issues = append(issues, audit.DeepIssue{
			Title: "Broken navigation links",
			Description: fmt.Sprintf(
				"%d navigation links are placeholders that lead nowhere (href=\"#\" or javascript:void).", n),
			BusinessImpact: "Visitors hit dead ends and abandon the site; crawlers waste budget on fake links.",
			Fix:            "Point every navigation link at a real destination or remove it.",
		})
	}
	if !r.SEO.Title.Optimal {
		issues = append(issues, audit.DeepIssue{
			Title: "Title tag outside the optimal range",
			Description: fmt.Sprintf(
				"The title is %d characters; titles between 30 and 60 characters display fully in search results.",
				r.SEO.Title.Length),
			BusinessImpact: "Truncated or thin titles depress click-through rates.",
			Fix:            "Rewrite the title to 30-60 characters with the primary keyword near the front.",
		})
	}
	if r.Content.Images.MissingAlt > 0 {
		issues = append(issues, audit.DeepIssue{
			Title: "Images without alt text",
			Description: fmt.Sprintf(
				"%d images have no alt attribute, hiding them from image search and screen readers.",
				r.Content.Images.MissingAlt),
			BusinessImpact: "Lost image-search traffic and accessibility complaints.",
			Fix:            "Describe each meaningful image in its alt attribute.",
			CodeExample:    `<img src="team.jpg" alt="Our support team at the annual meetup">`,
		})
	}
	if !r.Technical.Security.HasSSL {
		issues = append(issues, audit.DeepIssue{
			Title:          "No HTTPS",
			Description:    "The page is served over plain HTTP.",
			BusinessImpact: "Browsers flag the site as Not Secure, eroding trust and conversions.",
			Fix:            "Install a TLS certificate and redirect all HTTP traffic to HTTPS.",
		})
	}
	return issues
}

func mediumIssues(r audit.Result) []audit.DeepIssue {
	var issues []audit.DeepIssue
	if r.Content.SuspiciousTestimonials {
		issues = append(issues, audit.DeepIssue{
			Title:          "Testimonials look fabricated",
			Description:    "Testimonial content matches patterns of placeholder or fabricated reviews.",
			BusinessImpact: "Visitors who spot fake testimonials distrust everything else on the site.",
			Fix:            "Replace placeholder testimonials with verifiable customer quotes.",
		})
	}
	if r.Technical.LoadTimeMs > rules.SlowLoadThresholdMs {
		issues = append(issues, audit.DeepIssue{
			Title: "Slow page load",
			Description: fmt.Sprintf(
				"The page took %.0f ms to load; users expect under 3 seconds.", r.Technical.LoadTimeMs),
			BusinessImpact: "Every extra second of load time measurably increases bounce rate.",
			Fix:            "Compress images, defer non-critical scripts and enable caching.",
		})
	}
	if r.Content.WordCount < thinContentWordCount {
		issues = append(issues, audit.DeepIssue{
			Title: "Thin content",
			Description: fmt.Sprintf(
				"The page has only %d words; pages under %d words rarely rank for competitive terms.",
				r.Content.WordCount, thinContentWordCount),
			BusinessImpact: "Thin pages struggle to rank and give visitors little reason to stay.",
			Fix:            "Expand the page with substantive, original content.",
		})
	}
	return issues
}

func contentQuality(r audit.Result) audit.ContentQuality {
	score := 100
	issues := []string{}
	recs := []string{}

	if r.SEO.MetaDescription.Content == "" {
		score -= deductMissingMetaDescription
		issues = append(issues, "Missing meta description")
		recs = append(recs, "Write a 120-160 character meta description")
	}
	if n := len(r.Content.PlaceholderLinks); n > 0 {
		score -= n * deductPerPlaceholderLink
		issues = append(issues, fmt.Sprintf("%d placeholder navigation links", n))
		recs = append(recs, "Replace placeholder links with real destinations")
	}
	if n := r.Content.Images.MissingAlt; n > 0 {
		score -= n * deductPerMissingAlt
		issues = append(issues, fmt.Sprintf("%d images missing alt text", n))
		recs = append(recs, "Add alt text to all meaningful images")
	}
	if r.Content.SuspiciousTestimonials {
		score -= deductSuspiciousTestimonials
		issues = append(issues, "Testimonials appear fabricated")
		recs = append(recs, "Use verifiable customer testimonials")
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return audit.ContentQuality{Score: score, Issues: issues, Recommendations: recs}
}

func businessImpact(r audit.Result) audit.BusinessImpact {
	critical := len(criticalIssues(r))

	var visibility string
	switch {
	case critical >= 3:
		visibility = "40-60% improvement in search visibility once critical issues are fixed"
	case critical == 2:
		visibility = "20-40% improvement in search visibility once critical issues are fixed"
	default:
		visibility = "10-20% improvement in search visibility from incremental fixes"
	}

	ux := "User experience is broadly sound; polish rather than repair."
	if len(r.Content.PlaceholderLinks) > 0 || r.Technical.LoadTimeMs > rules.SlowLoadThresholdMs {
		ux = "Broken navigation and slow loads are actively driving visitors away."
	}

	credibility := "No credibility red flags detected."
	if r.Content.SuspiciousTestimonials {
		credibility = "Fabricated-looking testimonials put overall site credibility at risk."
	}

	return audit.BusinessImpact{
		VisibilityImprovement: visibility,
		UserExperience:        ux,
		Credibility:           credibility,
	}
}

func actionPlan(r audit.Result) []audit.ActionItem {
	var items []audit.ActionItem

	// Immediate pass, fixed check order.
	if r.SEO.MetaDescription.Content == "" {
		items = append(items, audit.ActionItem{
			Priority:       audit.PriorityImmediate,
			Task:           "Add a meta description",
			Timeline:       "today",
			CodeExample:    `<meta name="description" content="A concise, compelling summary of this page.">`,
			SuccessMetrics: "Search snippet shows the supplied description; CTR from search improves",
		})
	}
	if len(r.Content.PlaceholderLinks) > 0 {
		items = append(items, audit.ActionItem{
			Priority:       audit.PriorityImmediate,
			Task:           "Fix or remove placeholder navigation links",
			Timeline:       "this week",
			CodeExample:    `<a href="/pricing">Pricing</a> <!-- instead of href="#" -->`,
			SuccessMetrics: "Zero dead navigation links in the next audit",
		})
	}
	if r.Content.SuspiciousTestimonials {
		items = append(items, audit.ActionItem{
			Priority:       audit.PriorityImmediate,
			Task:           "Replace suspicious testimonials with verifiable quotes",
			Timeline:       "this week",
			SuccessMetrics: "Testimonials carry real names and attributable sources",
		})
	}

	// High-priority pass.
	if r.SEO.OpenGraph.Title == "" {
		items = append(items, audit.ActionItem{
			Priority:    audit.PriorityHigh,
			Task:        "Add Open Graph tags for social sharing",
			Timeline:    "this week",
			CodeExample: `<meta property="og:title" content="Page title for social shares">`,
		})
	}
	if r.Content.Images.MissingAlt > 0 {
		items = append(items, audit.ActionItem{
			Priority:    audit.PriorityHigh,
			Task:        "Add alt text to all images",
			Timeline:    "this week",
			CodeExample: `<img src="team.jpg" alt="Our support team at the annual meetup">`,
		})
	}

	// Housekeeping items are always present.
	items = append(items,
		audit.ActionItem{
			Priority: audit.PriorityMedium,
			Task:     "Proofread all page copy for placeholder and boilerplate text",
			Timeline: "this month",
		},
		audit.ActionItem{
			Priority:    audit.PriorityMedium,
			Task:        "Add structured-data markup for rich search results",
			Timeline:    "this month",
			CodeExample: `<script type="application/ld+json">{"@context":"https://schema.org","@type":"Organization"}</script>`,
		},
	)
	return items
}
