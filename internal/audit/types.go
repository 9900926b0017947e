// Package audit defines the domain model shared by the audit pipeline.
package audit

import "time"

// Severity classifies how serious an issue is.
type Severity string

// Severity values for derived issues.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category names one of the four fixed scoring categories.
type Category string

// The four audit categories. Every issue belongs to exactly one.
const (
	CategorySEO         Category = "seo"
	CategoryTechnical   Category = "technical"
	CategoryContent     Category = "content"
	CategoryPerformance Category = "performance"
)

// Categories lists the fixed categories in scoring order.
var Categories = []Category{CategorySEO, CategoryTechnical, CategoryContent, CategoryPerformance}

// Impact is the score-penalty tier of an issue.
type Impact string

// Impact tiers. Penalties are applied by the scoring package.
const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Issue is a single rule-derived finding. Issues are created by the rules
// package and never mutated afterwards.
type Issue struct {
	ID             string   `json:"id"`
	Severity       Severity `json:"severity"`
	Category       Category `json:"category"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Element        string   `json:"element,omitempty"`
	Impact         Impact   `json:"impact"`
	Recommendation string   `json:"recommendation"`
}

// CategoryScore is the 0-100 health score for one category together with the
// issues that produced it.
type CategoryScore struct {
	Score    int     `json:"score"`
	MaxScore int     `json:"max_score"`
	Issues   []Issue `json:"issues"`
}

// TitleTag describes the document title and whether its length falls in the
// optimal range.
type TitleTag struct {
	Content string `json:"content"`
	Length  int    `json:"length"`
	Optimal bool   `json:"optimal"`
}

// MetaDescription describes the meta description tag. A missing description
// is never optimal.
type MetaDescription struct {
	Content string `json:"content"`
	Length  int    `json:"length"`
	Optimal bool   `json:"optimal"`
}

// OpenGraph holds the og:* meta tag values.
type OpenGraph struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	URL         string `json:"url,omitempty"`
	Type        string `json:"type,omitempty"`
}

// HeadingStructure carries the text of each heading level in document order.
type HeadingStructure struct {
	H1 []string `json:"h1"`
	H2 []string `json:"h2"`
	H3 []string `json:"h3"`
	H4 []string `json:"h4"`
	H5 []string `json:"h5"`
	H6 []string `json:"h6"`
}

// SEOAnalysis is the raw SEO signal bundle. Every field is individually
// optional; absence of a signal is normal, not an error.
type SEOAnalysis struct {
	Title           TitleTag         `json:"title"`
	MetaDescription MetaDescription  `json:"meta_description"`
	MetaKeywords    string           `json:"meta_keywords,omitempty"`
	Viewport        string           `json:"viewport,omitempty"`
	Canonical       string           `json:"canonical,omitempty"`
	Robots          string           `json:"robots,omitempty"`
	Hreflang        []string         `json:"hreflang,omitempty"`
	OpenGraph       OpenGraph        `json:"open_graph"`
	Headings        HeadingStructure `json:"headings"`
}

// NetworkSummary counts requests observed while loading the page.
type NetworkSummary struct {
	TotalRequests  int   `json:"total_requests"`
	FailedRequests int   `json:"failed_requests"`
	TotalBytes     int64 `json:"total_bytes"`
}

// MobileSummary captures mobile-optimization signals.
type MobileSummary struct {
	HasViewport    bool `json:"has_viewport"`
	ResponsiveMeta bool `json:"responsive_meta"`
	TouchIcons     bool `json:"touch_icons"`
}

// AccessibilitySummary is a coarse accessibility snapshot.
type AccessibilitySummary struct {
	ImagesWithoutAlt int  `json:"images_without_alt"`
	AriaAttributes   int  `json:"aria_attributes"`
	HasLangAttribute bool `json:"has_lang_attribute"`
}

// SecuritySummary captures transport and content security signals.
type SecuritySummary struct {
	HasSSL          bool     `json:"has_ssl"`
	MixedContent    bool     `json:"mixed_content"`
	Vulnerabilities []string `json:"vulnerabilities,omitempty"`
}

// TechnicalAnalysis is the raw technical signal bundle. Paint and
// interactivity metrics may be zero when the browser did not report them.
type TechnicalAnalysis struct {
	LoadTimeMs            float64              `json:"load_time_ms"`
	DOMContentLoadedMs    float64              `json:"dom_content_loaded_ms"`
	FirstContentfulPaint  float64              `json:"first_contentful_paint_ms"`
	TimeToInteractive     float64              `json:"time_to_interactive_ms"`
	CumulativeLayoutShift float64              `json:"cumulative_layout_shift"`
	Network               NetworkSummary       `json:"network"`
	Mobile                MobileSummary        `json:"mobile"`
	Accessibility         AccessibilitySummary `json:"accessibility"`
	Security              SecuritySummary      `json:"security"`
}

// ImageStats classifies the page's images.
type ImageStats struct {
	Total      int `json:"total"`
	MissingAlt int `json:"missing_alt"`
	EmptyAlt   int `json:"empty_alt"`
	LazyLoaded int `json:"lazy_loaded"`
	Oversized  int `json:"oversized"`
}

// LinkStats classifies the page's anchors.
type LinkStats struct {
	Total     int `json:"total"`
	Internal  int `json:"internal"`
	External  int `json:"external"`
	Broken    int `json:"broken"`
	Nofollow  int `json:"nofollow"`
	EmptyText int `json:"empty_text"`
}

// StructuredData reports JSON-LD presence and parse health.
type StructuredData struct {
	Present bool     `json:"present"`
	Types   []string `json:"types,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// ContentAnalysis is the raw content signal bundle.
type ContentAnalysis struct {
	WordCount              int            `json:"word_count"`
	ReadabilityScore       float64        `json:"readability_score"`
	Images                 ImageStats     `json:"images"`
	Links                  LinkStats      `json:"links"`
	StructuredData         StructuredData `json:"structured_data"`
	PlaceholderLinks       []string       `json:"placeholder_links,omitempty"`
	SuspiciousTestimonials bool           `json:"suspicious_testimonials"`
}

// Opportunity is one improvement suggestion with an estimated saving.
type Opportunity struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Savings     float64 `json:"savings"`
	SavingsUnit string  `json:"savings_unit"`
}

// ResourceBreakdown summarizes one asset class.
type ResourceBreakdown struct {
	Count int   `json:"count"`
	Bytes int64 `json:"bytes"`
}

// PerformanceAnalysis is the raw performance signal bundle.
type PerformanceAnalysis struct {
	Score         int               `json:"score"`
	LoadTimeMs    float64           `json:"load_time_ms"`
	TTFBMs        float64           `json:"ttfb_ms"`
	Opportunities []Opportunity     `json:"opportunities,omitempty"`
	Scripts       ResourceBreakdown `json:"scripts"`
	Styles        ResourceBreakdown `json:"styles"`
	Images        ResourceBreakdown `json:"images"`
}

// Screenshots holds the optional desktop and mobile captures, PNG encoded,
// taken with a shared timestamp.
type Screenshots struct {
	Desktop    []byte    `json:"desktop,omitempty"`
	Mobile     []byte    `json:"mobile,omitempty"`
	DesktopURI string    `json:"desktop_uri,omitempty"`
	MobileURI  string    `json:"mobile_uri,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// Result is the aggregate record of one audit run. It is assembled once by
// the orchestrator and never mutated by the pipeline; the storage layer
// assigns ID, UserID and CreatedAt at persistence time.
type Result struct {
	ID              string                     `json:"id,omitempty"`
	URL             string                     `json:"url"`
	AuditedAt       time.Time                  `json:"audited_at"`
	SEO             SEOAnalysis                `json:"seo"`
	Technical       TechnicalAnalysis          `json:"technical"`
	Content         ContentAnalysis            `json:"content"`
	Performance     PerformanceAnalysis        `json:"performance"`
	Scores          map[Category]CategoryScore `json:"scores"`
	Overall         int                        `json:"overall_score"`
	Screenshots     *Screenshots               `json:"screenshots,omitempty"`
	Issues          []Issue                    `json:"issues"`
	Recommendations []string                   `json:"recommendations"`
	Deep            *DeepAnalysis              `json:"deep_analysis,omitempty"`
	UserID          string                     `json:"user_id,omitempty"`
	CreatedAt       time.Time                  `json:"created_at,omitempty"`
}

// DeepIssue is one entry in a deep-analysis tier. The shape is closed: every
// rule fills the same fixed fields.
type DeepIssue struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	BusinessImpact string `json:"business_impact"`
	Fix            string `json:"fix"`
	CodeExample    string `json:"code_example,omitempty"`
}

// ContentQuality is the deep-analysis content assessment.
type ContentQuality struct {
	Score           int      `json:"score"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// BusinessImpact holds the three qualitative projection buckets.
type BusinessImpact struct {
	VisibilityImprovement string `json:"estimated_visibility_improvement"`
	UserExperience        string `json:"user_experience_impact"`
	Credibility           string `json:"credibility_impact"`
}

// ActionPriority orders action items.
type ActionPriority string

// Action item priorities, most urgent first.
const (
	PriorityImmediate ActionPriority = "immediate"
	PriorityHigh      ActionPriority = "high"
	PriorityMedium    ActionPriority = "medium"
)

// ActionItem is one prioritized task in the deep-analysis plan.
type ActionItem struct {
	Priority       ActionPriority `json:"priority"`
	Task           string         `json:"task"`
	Timeline       string         `json:"timeline"`
	CodeExample    string         `json:"code_example,omitempty"`
	SuccessMetrics string         `json:"success_metrics,omitempty"`
}

// DeepAnalysis is the richer tiered report, produced either by a generative
// collaborator or by the heuristic generator. It is fully derived from a
// Result and has no identity of its own.
type DeepAnalysis struct {
	CriticalIssues []DeepIssue    `json:"critical_issues"`
	HighIssues     []DeepIssue    `json:"high_priority_issues"`
	MediumIssues   []DeepIssue    `json:"medium_priority_issues"`
	ContentQuality ContentQuality `json:"content_quality"`
	BusinessImpact BusinessImpact `json:"business_impact"`
	ActionPlan     []ActionItem   `json:"action_plan"`
}

// Options controls a single audit run.
type Options struct {
	IncludeScreenshots bool          `json:"includeScreenshots"`
	MobileTest         bool          `json:"mobileTest"`
	DeepScan           bool          `json:"deepScan"`
	Timeout            time.Duration `json:"-"`
	UserID             string        `json:"-"`
}

// Summary is the listing projection of a stored result.
type Summary struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Overall   int       `json:"overall_score"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilters narrows a listing request. Zero values mean "no filter".
type ListFilters struct {
	URLSubstring string
	MinScore     int
	UserID       string
	DateFrom     time.Time
	DateTo       time.Time
}
