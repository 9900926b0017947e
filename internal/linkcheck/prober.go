// Package linkcheck probes a page's internal links using Colly.
//
// The prober backs ContentAnalysis.Links.Broken during deep scans: a sampled
// set of internal destinations is requested and anything answering with a
// client or server error, or not answering at all, counts as broken.
package linkcheck

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls prober behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	MaxLinks  int
}

// Prober implements audit.LinkProber using a Colly collector.
type Prober struct {
	cfg    Config
	base   *colly.Collector
	logger *zap.Logger
}

// New builds a Prober.
func New(cfg Config, logger *zap.Logger) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxLinks <= 0 {
		cfg.MaxLinks = 25
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = false
	return &Prober{cfg: cfg, base: c, logger: logger}
}

// CountBroken resolves each href against the page URL and probes up to
// MaxLinks of them. Probe failures count as broken links; prober setup
// problems count as zero, never as an audit error.
func (p *Prober) CountBroken(ctx context.Context, pageURL string, hrefs []string) int {
	base, err := url.Parse(pageURL)
	if err != nil {
		return 0
	}
	targets := resolveTargets(base, hrefs, p.cfg.MaxLinks)
	if len(targets) == 0 {
		return 0
	}

	collector := p.base.Clone()
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	collector.SetRequestTimeout(p.cfg.Timeout)

	var mu sync.Mutex
	broken := 0
	collector.OnError(func(resp *colly.Response, err error) {
		// Colly reports 4xx/5xx responses and network failures through OnError.
		mu.Lock()
		broken++
		mu.Unlock()
		p.logger.Debug("link probe failed",
			zap.String("url", resp.Request.URL.String()),
			zap.Error(err),
		)
	})

	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		if err := collector.Visit(target); err != nil {
			// Visit errors (bad scheme, revisit) are not broken pages.
			p.logger.Debug("link probe skipped", zap.String("url", target), zap.Error(err))
		}
	}
	collector.Wait()
	return broken
}

// resolveTargets turns hrefs into absolute same-host URLs, deduplicated and
// capped at limit.
func resolveTargets(base *url.URL, hrefs []string, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		abs.Fragment = ""
		key := abs.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
		if len(out) >= limit {
			break
		}
	}
	return out
}
