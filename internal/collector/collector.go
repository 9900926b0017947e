// Package collector drives one browser session through a single navigation
// and gathers the four raw signal bundles plus optional screenshots.
//
// Every per-field lookup is an optional lookup: an absent DOM signal or a
// failed in-page evaluation defaults to a zero value and extraction moves
// on. Only the navigation itself can fail the audit.
package collector

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pageaudit/pageaudit/internal/audit"
	"github.com/pageaudit/pageaudit/internal/rules"
)

// Title and meta-description optimality bounds, inclusive.
const (
	titleMinLen = 30
	titleMaxLen = 60
	metaMinLen  = 120
	metaMaxLen  = 160
)

// Mobile screenshot viewport.
const (
	mobileWidth  = 375
	mobileHeight = 667
)

// mixedContentReporter is implemented by sessions that track plain-HTTP
// subresource loads on HTTPS pages.
type mixedContentReporter interface {
	MixedContent() bool
}

// Collector extracts the raw signal bundles from a loaded page.
type Collector struct {
	prober audit.LinkProber
	clock  audit.Clock
	logger *zap.Logger
}

// New creates a Collector. The prober is optional; without it the broken
// link count stays zero.
func New(prober audit.LinkProber, clock audit.Clock, logger *zap.Logger) *Collector {
	return &Collector{prober: prober, clock: clock, logger: logger}
}

// Collect navigates once and extracts all four bundles, in order: SEO,
// technical, content, performance, then screenshots. The order matters: the
// mobile screenshot resizes the shared viewport, so it runs last.
func (c *Collector) Collect(
	ctx context.Context,
	s audit.Session,
	pageURL string,
	opts audit.Options,
) (rules.Signals, *audit.Screenshots, error) {
	if err := s.Navigate(ctx, pageURL, opts.Timeout); err != nil {
		return rules.Signals{}, nil, err
	}

	signals := rules.Signals{}
	signals.SEO = c.collectSEO(ctx, s)
	signals.Technical = c.collectTechnical(ctx, s, pageURL, signals.SEO)
	signals.Content = c.collectContent(ctx, s, pageURL, opts)
	signals.Performance = c.collectPerformance(ctx, s, signals.Technical)

	var shots *audit.Screenshots
	if opts.IncludeScreenshots || opts.MobileTest {
		shots = c.captureScreenshots(ctx, s, opts)
	}
	return signals, shots, nil
}

func (c *Collector) collectSEO(ctx context.Context, s audit.Session) audit.SEOAnalysis {
	seo := audit.SEOAnalysis{}

	// Lengths are rune counts; byte counts would misclassify multibyte titles.
	if title, ok := s.Text(ctx, "title"); ok {
		n := utf8.RuneCountInString(title)
		seo.Title = audit.TitleTag{
			Content: title,
			Length:  n,
			Optimal: n >= titleMinLen && n <= titleMaxLen,
		}
	}
	if desc, ok := s.Attribute(ctx, `meta[name="description"]`, "content"); ok {
		n := utf8.RuneCountInString(desc)
		seo.MetaDescription = audit.MetaDescription{
			Content: desc,
			Length:  n,
			Optimal: n >= metaMinLen && n <= metaMaxLen,
		}
	}
	seo.MetaKeywords, _ = s.Attribute(ctx, `meta[name="keywords"]`, "content")
	seo.Viewport, _ = s.Attribute(ctx, `meta[name="viewport"]`, "content")
	seo.Canonical, _ = s.Attribute(ctx, `link[rel="canonical"]`, "href")
	seo.Robots, _ = s.Attribute(ctx, `meta[name="robots"]`, "content")

	var hreflang []string
	if err := s.Evaluate(ctx, hreflangScript, &hreflang); err == nil {
		seo.Hreflang = hreflang
	}

	seo.OpenGraph.Title, _ = s.Attribute(ctx, `meta[property="og:title"]`, "content")
	seo.OpenGraph.Description, _ = s.Attribute(ctx, `meta[property="og:description"]`, "content")
	seo.OpenGraph.Image, _ = s.Attribute(ctx, `meta[property="og:image"]`, "content")
	seo.OpenGraph.URL, _ = s.Attribute(ctx, `meta[property="og:url"]`, "content")
	seo.OpenGraph.Type, _ = s.Attribute(ctx, `meta[property="og:type"]`, "content")

	seo.Headings = audit.HeadingStructure{
		H1: s.TextAll(ctx, "h1"),
		H2: s.TextAll(ctx, "h2"),
		H3: s.TextAll(ctx, "h3"),
		H4: s.TextAll(ctx, "h4"),
		H5: s.TextAll(ctx, "h5"),
		H6: s.TextAll(ctx, "h6"),
	}
	return seo
}

type timingResult struct {
	LoadTimeMs            float64 `json:"loadTimeMs"`
	DOMContentLoadedMs    float64 `json:"domContentLoadedMs"`
	TTFBMs                float64 `json:"ttfbMs"`
	FirstContentfulPaint  float64 `json:"firstContentfulPaintMs"`
	TimeToInteractive     float64 `json:"timeToInteractiveMs"`
	CumulativeLayoutShift float64 `json:"cumulativeLayoutShift"`
}

type accessibilityResult struct {
	ImagesWithoutAlt int  `json:"imagesWithoutAlt"`
	AriaAttributes   int  `json:"ariaAttributes"`
	HasLang          bool `json:"hasLang"`
}

func (c *Collector) collectTechnical(
	ctx context.Context,
	s audit.Session,
	pageURL string,
	seo audit.SEOAnalysis,
) audit.TechnicalAnalysis {
	tech := audit.TechnicalAnalysis{}

	var timing timingResult
	if err := s.Evaluate(ctx, timingScript, &timing); err != nil {
		c.logger.Debug("timing metrics unavailable", zap.Error(err))
	}
	tech.LoadTimeMs = timing.LoadTimeMs
	tech.DOMContentLoadedMs = timing.DOMContentLoadedMs
	tech.FirstContentfulPaint = timing.FirstContentfulPaint
	tech.TimeToInteractive = timing.TimeToInteractive
	tech.CumulativeLayoutShift = timing.CumulativeLayoutShift

	tech.Network = s.Network()

	tech.Mobile = audit.MobileSummary{
		HasViewport:    seo.Viewport != "",
		ResponsiveMeta: strings.Contains(seo.Viewport, "width=device-width"),
	}
	if _, ok := s.Attribute(ctx, `link[rel="apple-touch-icon"]`, "href"); ok {
		tech.Mobile.TouchIcons = true
	}

	var access accessibilityResult
	if err := s.Evaluate(ctx, accessibilityScript, &access); err == nil {
		tech.Accessibility = audit.AccessibilitySummary{
			ImagesWithoutAlt: access.ImagesWithoutAlt,
			AriaAttributes:   access.AriaAttributes,
			HasLangAttribute: access.HasLang,
		}
	}

	tech.Security.HasSSL = strings.HasPrefix(pageURL, "https://")
	if reporter, ok := s.(mixedContentReporter); ok {
		tech.Security.MixedContent = reporter.MixedContent()
	}
	return tech
}

type pageImage struct {
	Src          string  `json:"src"`
	Alt          *string `json:"alt"`
	Loading      string  `json:"loading"`
	NaturalWidth int     `json:"naturalWidth"`
	DisplayWidth int     `json:"displayWidth"`
}

type pageLink struct {
	Href  string `json:"href"`
	Rel   string `json:"rel"`
	Text  string `json:"text"`
	InNav bool   `json:"inNav"`
}

type contentResult struct {
	WordCount      int         `json:"wordCount"`
	SentenceCount  int         `json:"sentenceCount"`
	Images         []pageImage `json:"images"`
	Links          []pageLink  `json:"links"`
	StructuredData []string    `json:"structuredData"`
	Testimonials   []string    `json:"testimonials"`
}

func (c *Collector) collectContent(
	ctx context.Context,
	s audit.Session,
	pageURL string,
	opts audit.Options,
) audit.ContentAnalysis {
	content := audit.ContentAnalysis{}

	var raw contentResult
	if err := s.Evaluate(ctx, contentScript, &raw); err != nil {
		c.logger.Debug("content scan unavailable", zap.Error(err))
		return content
	}

	content.WordCount = raw.WordCount
	content.ReadabilityScore = readability(raw.WordCount, raw.SentenceCount)
	content.Images = classifyImages(raw.Images)
	content.Links = classifyLinks(pageURL, raw.Links)
	content.StructuredData = parseStructuredData(raw.StructuredData)
	content.PlaceholderLinks = placeholderLinks(raw.Links)
	content.SuspiciousTestimonials = suspiciousTestimonials(raw.Testimonials)

	if opts.DeepScan && c.prober != nil {
		content.Links.Broken = c.prober.CountBroken(ctx, pageURL, internalHrefs(pageURL, raw.Links))
	}
	return content
}

func (c *Collector) collectPerformance(
	ctx context.Context,
	s audit.Session,
	tech audit.TechnicalAnalysis,
) audit.PerformanceAnalysis {
	perf := audit.PerformanceAnalysis{
		LoadTimeMs: tech.LoadTimeMs,
	}

	var timing timingResult
	if err := s.Evaluate(ctx, timingScript, &timing); err == nil {
		perf.TTFBMs = timing.TTFBMs
	}

	var res struct {
		Scripts audit.ResourceBreakdown `json:"scripts"`
		Styles  audit.ResourceBreakdown `json:"styles"`
		Images  audit.ResourceBreakdown `json:"images"`
	}
	if err := s.Evaluate(ctx, resourceScript, &res); err == nil {
		perf.Scripts = res.Scripts
		perf.Styles = res.Styles
		perf.Images = res.Images
	}

	perf.Score = performanceScore(tech.LoadTimeMs)
	perf.Opportunities = opportunities(tech, perf)
	return perf
}

// captureScreenshots takes the desktop shot when screenshots are requested
// and the mobile shot when screenshots or the mobile test are requested.
func (c *Collector) captureScreenshots(ctx context.Context, s audit.Session, opts audit.Options) *audit.Screenshots {
	shots := &audit.Screenshots{CapturedAt: c.clock.Now()}

	if opts.IncludeScreenshots {
		desktop, err := s.Screenshot(ctx, true)
		if err != nil {
			c.logger.Warn("desktop screenshot failed", zap.Error(err))
		} else {
			shots.Desktop = desktop
		}
	}

	// The viewport resize mutates shared page state, so the mobile capture
	// always follows the desktop one.
	if err := s.SetViewport(ctx, mobileWidth, mobileHeight); err != nil {
		c.logger.Warn("mobile viewport resize failed", zap.Error(err))
		return shots
	}
	mobile, err := s.Screenshot(ctx, false)
	if err != nil {
		c.logger.Warn("mobile screenshot failed", zap.Error(err))
	} else {
		shots.Mobile = mobile
	}
	return shots
}
