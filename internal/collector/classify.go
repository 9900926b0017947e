package collector

import (
	"encoding/json"
	"strings"

	"github.com/pageaudit/pageaudit/internal/audit"
)

// classifyImages buckets raw image signals. Missing-alt covers absent and
// blank attributes; empty-alt is the stricter subset where the attribute
// exists but is exactly the empty string.
func classifyImages(images []pageImage) audit.ImageStats {
	stats := audit.ImageStats{Total: len(images)}
	for _, img := range images {
		switch {
		case img.Alt == nil:
			stats.MissingAlt++
		case strings.TrimSpace(*img.Alt) == "":
			stats.MissingAlt++
			if *img.Alt == "" {
				stats.EmptyAlt++
			}
		}
		if img.Loading == "lazy" {
			stats.LazyLoaded++
		}
		if img.NaturalWidth > 0 && img.DisplayWidth > 0 && img.NaturalWidth > img.DisplayWidth*2 {
			stats.Oversized++
		}
	}
	return stats
}

// classifyLinks buckets anchors. A link is internal when its href is
// root-relative or contains the audited URL; external when it carries a
// full scheme and does not match the audited URL.
func classifyLinks(pageURL string, links []pageLink) audit.LinkStats {
	stats := audit.LinkStats{Total: len(links)}
	for _, link := range links {
		if isInternal(pageURL, link.Href) {
			stats.Internal++
		} else if hasScheme(link.Href) {
			stats.External++
		}
		if strings.Contains(link.Rel, "nofollow") {
			stats.Nofollow++
		}
		if strings.TrimSpace(link.Text) == "" {
			stats.EmptyText++
		}
	}
	return stats
}

func isInternal(pageURL, href string) bool {
	if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
		return true
	}
	return hasScheme(href) && strings.Contains(href, pageURL)
}

func hasScheme(href string) bool {
	return strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")
}

// placeholderHrefs are navigation destinations that lead nowhere.
var placeholderHrefs = map[string]bool{
	"":                    true,
	"#":                   true,
	"javascript:void(0)":  true,
	"javascript:void(0);": true,
	"javascript:;":        true,
}

// placeholderLinks returns the labels of navigation links whose href is a
// dead placeholder, in document order.
func placeholderLinks(links []pageLink) []string {
	var out []string
	for _, link := range links {
		if !link.InNav {
			continue
		}
		if placeholderHrefs[strings.TrimSpace(link.Href)] {
			label := link.Text
			if label == "" {
				label = "(unlabeled link)"
			}
			out = append(out, label)
		}
	}
	return out
}

// internalHrefs lists unique internal destinations for link probing.
func internalHrefs(pageURL string, links []pageLink) []string {
	seen := make(map[string]bool)
	var out []string
	for _, link := range links {
		href := strings.TrimSpace(link.Href)
		if href == "" || placeholderHrefs[href] || !isInternal(pageURL, href) {
			continue
		}
		if !seen[href] {
			seen[href] = true
			out = append(out, href)
		}
	}
	return out
}

// fakeTestimonialMarkers are phrases that betray placeholder or fabricated
// testimonial copy.
var fakeTestimonialMarkers = []string{
	"lorem ipsum",
	"john doe",
	"jane doe",
	"insert testimonial",
	"customer name",
}

// suspiciousTestimonials flags testimonial sections that contain placeholder
// copy or verbatim duplicates.
func suspiciousTestimonials(testimonials []string) bool {
	seen := make(map[string]bool, len(testimonials))
	for _, quote := range testimonials {
		lower := strings.ToLower(quote)
		for _, marker := range fakeTestimonialMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
		normalized := strings.Join(strings.Fields(lower), " ")
		if len(normalized) > 40 && seen[normalized] {
			return true
		}
		seen[normalized] = true
	}
	return false
}

// parseStructuredData inspects the raw JSON-LD blocks for declared types
// and parse errors.
func parseStructuredData(blocks []string) audit.StructuredData {
	sd := audit.StructuredData{Present: len(blocks) > 0}
	for _, block := range blocks {
		var doc struct {
			Type string `json:"@type"`
		}
		if err := json.Unmarshal([]byte(block), &doc); err != nil {
			sd.Errors = append(sd.Errors, err.Error())
			continue
		}
		if doc.Type != "" {
			sd.Types = append(sd.Types, doc.Type)
		}
	}
	return sd
}

// readability approximates a Flesch reading-ease style score from word and
// sentence counts. Clamped to [0,100]; zero when nothing was measured.
func readability(wordCount, sentenceCount int) float64 {
	if wordCount == 0 || sentenceCount == 0 {
		return 0
	}
	wordsPerSentence := float64(wordCount) / float64(sentenceCount)
	score := 206.835 - 1.3*wordsPerSentence*7.0
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// performanceScore maps load time onto a 0-100 scale.
func performanceScore(loadTimeMs float64) int {
	switch {
	case loadTimeMs <= 0:
		return 100
	case loadTimeMs <= 1000:
		return 100
	case loadTimeMs <= 2000:
		return 90
	case loadTimeMs <= 3000:
		return 75
	case loadTimeMs <= 5000:
		return 50
	case loadTimeMs <= 8000:
		return 25
	default:
		return 10
	}
}

// opportunities derives improvement suggestions from the measured signals.
func opportunities(tech audit.TechnicalAnalysis, perf audit.PerformanceAnalysis) []audit.Opportunity {
	var out []audit.Opportunity
	if tech.LoadTimeMs > 3000 {
		out = append(out, audit.Opportunity{
			Title:       "Reduce overall load time",
			Description: "The page takes longer than 3 seconds to load.",
			Savings:     tech.LoadTimeMs - 3000,
			SavingsUnit: "ms",
		})
	}
	if perf.Images.Bytes > 1<<20 {
		out = append(out, audit.Opportunity{
			Title:       "Compress and resize images",
			Description: "Image payload exceeds 1 MB.",
			Savings:     float64(perf.Images.Bytes-1<<20) / 1024,
			SavingsUnit: "KiB",
		})
	}
	if perf.Scripts.Count > 20 {
		out = append(out, audit.Opportunity{
			Title:       "Bundle JavaScript assets",
			Description: "More than 20 separate scripts were loaded.",
			Savings:     float64(perf.Scripts.Count - 20),
			SavingsUnit: "requests",
		})
	}
	if tech.Network.FailedRequests > 0 {
		out = append(out, audit.Opportunity{
			Title:       "Fix failing requests",
			Description: "Some subresources failed to load.",
			Savings:     float64(tech.Network.FailedRequests),
			SavingsUnit: "requests",
		})
	}
	return out
}
