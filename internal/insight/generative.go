package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pageaudit/pageaudit/internal/audit"
	"github.com/pageaudit/pageaudit/internal/metrics"
)

// GenerativeConfig controls the optional generative-analysis collaborator.
type GenerativeConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Generative asks an external generative-analysis service for a deep
// analysis and falls back to the heuristic generator on any failure:
// transport error, non-2xx status, or a payload with no parsable
// DeepAnalysis JSON. Failures are never surfaced to the caller.
type Generative struct {
	cfg    GenerativeConfig
	client *http.Client
	logger *zap.Logger
}

// NewGenerative creates a Generative analyzer.
func NewGenerative(cfg GenerativeConfig, logger *zap.Logger) *Generative {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Generative{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type generativeRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

type generativeResponse struct {
	Text string `json:"text"`
}

// Analyze requests a generative deep analysis. The returned error is always
// nil: every failure path substitutes the heuristic result.
func (g *Generative) Analyze(ctx context.Context, result audit.Result) (audit.DeepAnalysis, error) {
	deep, err := g.request(ctx, result)
	if err != nil {
		g.logger.Warn("generative analysis unavailable, using heuristic fallback",
			zap.String("url", result.URL),
			zap.Error(err),
		)
		metrics.ObserveGenerativeFallback()
		return Generate(result), nil
	}
	return deep, nil
}

func (g *Generative) request(ctx context.Context, result audit.Result) (audit.DeepAnalysis, error) {
	body, err := json.Marshal(generativeRequest{
		Model:  g.cfg.Model,
		Prompt: BuildPrompt(result),
	})
	if err != nil {
		return audit.DeepAnalysis{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return audit.DeepAnalysis{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return audit.DeepAnalysis{}, fmt.Errorf("call generative service: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return audit.DeepAnalysis{}, fmt.Errorf("generative service returned status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return audit.DeepAnalysis{}, fmt.Errorf("read response: %w", err)
	}

	var gr generativeResponse
	text := string(payload)
	if err := json.Unmarshal(payload, &gr); err == nil && gr.Text != "" {
		text = gr.Text
	}
	return ParseDeepAnalysis(text)
}

// BuildPrompt renders the audit record and a content sample into the prompt
// sent to the generative service.
func BuildPrompt(result audit.Result) string {
	var buf bytes.Buffer
	buf.WriteString("You are a senior SEO consultant. Analyze this single-page audit and respond ")
	buf.WriteString("with one JSON object matching the DeepAnalysis schema (critical_issues, ")
	buf.WriteString("high_priority_issues, medium_priority_issues, content_quality, business_impact, action_plan).\n\n")
	fmt.Fprintf(&buf, "URL: %s\n", result.URL)
	fmt.Fprintf(&buf, "Title (%d chars): %s\n", result.SEO.Title.Length, result.SEO.Title.Content)
	fmt.Fprintf(&buf, "Meta description (%d chars): %s\n", result.SEO.MetaDescription.Length, result.SEO.MetaDescription.Content)
	fmt.Fprintf(&buf, "H1 tags: %d, word count: %d, images missing alt: %d\n",
		len(result.SEO.Headings.H1), result.Content.WordCount, result.Content.Images.MissingAlt)
	fmt.Fprintf(&buf, "Load time: %.0f ms, HTTPS: %t\n", result.Technical.LoadTimeMs, result.Technical.Security.HasSSL)
	fmt.Fprintf(&buf, "Overall score: %d\n", result.Overall)
	if len(result.SEO.Headings.H1) > 0 {
		fmt.Fprintf(&buf, "Content sample: %s\n", result.SEO.Headings.H1[0])
	}
	return buf.String()
}

// ParseDeepAnalysis extracts the first balanced JSON object from free text
// and unmarshals it into a DeepAnalysis.
func ParseDeepAnalysis(text string) (audit.DeepAnalysis, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return audit.DeepAnalysis{}, err
	}
	var deep audit.DeepAnalysis
	if err := json.Unmarshal([]byte(raw), &deep); err != nil {
		return audit.DeepAnalysis{}, fmt.Errorf("unmarshal deep analysis: %w", err)
	}
	return deep, nil
}

// extractJSONObject scans for the first top-level {...} block, honoring
// strings and escapes so braces inside values do not confuse the depth count.
func extractJSONObject(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range text {
		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return "", fmt.Errorf("no JSON object found in response")
}
