// Package auditor orchestrates a full audit run: one browser session, signal
// collection, issue derivation, scoring, optional deep analysis, artifact
// archiving and persistence.
package auditor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pageaudit/pageaudit/internal/audit"
	"github.com/pageaudit/pageaudit/internal/collector"
	"github.com/pageaudit/pageaudit/internal/metrics"
	"github.com/pageaudit/pageaudit/internal/rules"
	"github.com/pageaudit/pageaudit/internal/scoring"
)

// TopicAuditCompleted is the event name published after a successful run.
const TopicAuditCompleted = "audit.completed"

// Deps carries the collaborators an Auditor needs. Blobs, Publisher and
// Analyzer are optional; the rest are required.
type Deps struct {
	Browser   audit.Browser
	Collector *collector.Collector
	Store     audit.Store
	Blobs     audit.BlobStore
	Publisher audit.Publisher
	Analyzer  audit.DeepAnalyzer
	Clock     audit.Clock
	IDs       audit.IDGenerator
	Logger    *zap.Logger
}

// Auditor runs audits end to end.
type Auditor struct {
	deps Deps
}

// New builds an Auditor from its collaborators.
func New(deps Deps) *Auditor {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Auditor{deps: deps}
}

// Run audits one page and persists the result. URL validation happens before
// any browser work; a navigation failure aborts the audit, while missing
// page signals never do.
func (a *Auditor) Run(ctx context.Context, rawURL string, opts audit.Options) (audit.Result, error) {
	pageURL, err := NormalizeURL(rawURL)
	if err != nil {
		return audit.Result{}, err
	}

	site := metrics.SanitizeSite(pageURL)
	started := a.deps.Clock.Now()
	metrics.IncActiveAudits()
	defer metrics.DecActiveAudits()

	session, err := a.deps.Browser.NewSession(ctx)
	if err != nil {
		metrics.ObserveAudit(site, "error", a.deps.Clock.Now().Sub(started))
		return audit.Result{}, fmt.Errorf("open browser session: %w", err)
	}
	defer session.Close()

	signals, shots, err := a.deps.Collector.Collect(ctx, session, pageURL, opts)
	if err != nil {
		metrics.ObserveAudit(site, "error", a.deps.Clock.Now().Sub(started))
		return audit.Result{}, err
	}

	issues, recommendations := rules.Derive(signals)
	scores, overall := scoring.Score(issues)

	id, err := a.deps.IDs.NewID()
	if err != nil {
		metrics.ObserveAudit(site, "error", a.deps.Clock.Now().Sub(started))
		return audit.Result{}, fmt.Errorf("generate audit id: %w", err)
	}

	now := a.deps.Clock.Now()
	result := audit.Result{
		ID:              id,
		URL:             pageURL,
		AuditedAt:       started,
		SEO:             signals.SEO,
		Technical:       signals.Technical,
		Content:         signals.Content,
		Performance:     signals.Performance,
		Scores:          scores,
		Overall:         overall,
		Screenshots:     shots,
		Issues:          issues,
		Recommendations: recommendations,
		UserID:          opts.UserID,
		CreatedAt:       now,
	}

	if opts.DeepScan && a.deps.Analyzer != nil {
		deep, err := a.deps.Analyzer.Analyze(ctx, result)
		if err != nil {
			a.deps.Logger.Warn("deep analysis failed", zap.String("audit_id", id), zap.Error(err))
		} else {
			result.Deep = &deep
		}
	}

	a.archiveScreenshots(ctx, &result)

	if _, err := a.deps.Store.Save(ctx, result); err != nil {
		metrics.ObserveAudit(site, "error", a.deps.Clock.Now().Sub(started))
		return audit.Result{}, fmt.Errorf("save audit: %w", err)
	}

	a.publishCompleted(ctx, result)
	metrics.ObserveAudit(site, "success", a.deps.Clock.Now().Sub(started))
	return result, nil
}

// archiveScreenshots uploads captured screenshots to the blob store and
// replaces the raw bytes with URIs. Upload failures keep the inline bytes.
func (a *Auditor) archiveScreenshots(ctx context.Context, result *audit.Result) {
	if a.deps.Blobs == nil || result.Screenshots == nil {
		return
	}
	shots := result.Screenshots
	if len(shots.Desktop) > 0 {
		path := fmt.Sprintf("audits/%s/desktop.png", result.ID)
		uri, err := a.deps.Blobs.PutObject(ctx, path, "image/png", shots.Desktop)
		if err != nil {
			a.deps.Logger.Warn("archive desktop screenshot failed", zap.String("audit_id", result.ID), zap.Error(err))
		} else {
			shots.DesktopURI = uri
			shots.Desktop = nil
		}
	}
	if len(shots.Mobile) > 0 {
		path := fmt.Sprintf("audits/%s/mobile.png", result.ID)
		uri, err := a.deps.Blobs.PutObject(ctx, path, "image/png", shots.Mobile)
		if err != nil {
			a.deps.Logger.Warn("archive mobile screenshot failed", zap.String("audit_id", result.ID), zap.Error(err))
		} else {
			shots.MobileURI = uri
			shots.Mobile = nil
		}
	}
}

// CompletedEvent is the payload published after a successful audit.
type CompletedEvent struct {
	AuditID   string    `json:"audit_id"`
	URL       string    `json:"url"`
	Overall   int       `json:"overall_score"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *Auditor) publishCompleted(ctx context.Context, result audit.Result) {
	if a.deps.Publisher == nil {
		return
	}
	event := CompletedEvent{
		AuditID:   result.ID,
		URL:       result.URL,
		Overall:   result.Overall,
		UserID:    result.UserID,
		CreatedAt: result.CreatedAt,
	}
	if _, err := a.deps.Publisher.Publish(ctx, TopicAuditCompleted, event); err != nil {
		a.deps.Logger.Warn("publish audit event failed", zap.String("audit_id", result.ID), zap.Error(err))
	}
}

// NormalizeURL validates the target and defaults the scheme to https when
// none is given. Invalid targets return audit.ErrInvalidURL.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", audit.ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", audit.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", audit.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", audit.ErrInvalidURL)
	}
	return u.String(), nil
}
