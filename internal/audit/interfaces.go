package audit

import (
	"context"
	"time"
)

// Session is one isolated browsing context. Listeners, cookies and viewport
// mutations in one session never leak into another. Sessions must be closed
// on every exit path.
type Session interface {
	// Navigate loads the URL and waits for the page to become idle. A
	// navigation error is fatal for the audit.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// Attribute returns the named attribute of the first element matching the
	// selector. The second return is false when the element or attribute is
	// absent; lookups never fail the audit.
	Attribute(ctx context.Context, selector, attribute string) (string, bool)
	// Text returns the trimmed text of the first element matching the selector.
	Text(ctx context.Context, selector string) (string, bool)
	// TextAll returns the trimmed text of every element matching the selector,
	// in document order.
	TextAll(ctx context.Context, selector string) []string
	// Evaluate runs script in the page and unmarshals the result into out.
	Evaluate(ctx context.Context, script string, out any) error
	// SetViewport resizes the viewport. This mutates shared page state, so
	// callers sequence it after any desktop capture.
	SetViewport(ctx context.Context, width, height int) error
	// Screenshot captures the page as PNG, full page when fullPage is set.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	// Network reports request counters accumulated since Navigate.
	Network() NetworkSummary
	// Close releases the session's browsing context.
	Close()
}

// Browser is the process-wide browser collaborator. Implementations
// initialize lazily with at most one concurrent initialization.
type Browser interface {
	NewSession(ctx context.Context) (Session, error)
	Close(ctx context.Context) error
}

// Store is the storage collaborator for finished audit records.
type Store interface {
	Save(ctx context.Context, result Result) (string, error)
	Get(ctx context.Context, id string) (Result, error)
	List(ctx context.Context, filters ListFilters) ([]Summary, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// BlobStore archives raw artifacts (screenshots) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes audit-completed events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// DeepAnalyzer produces the deep-analysis report for a finished result.
// The heuristic implementation never fails; the generative implementation
// falls back to the heuristic one on any error.
type DeepAnalyzer interface {
	Analyze(ctx context.Context, result Result) (DeepAnalysis, error)
}

// LinkProber verifies a sample of links and reports how many are broken.
type LinkProber interface {
	CountBroken(ctx context.Context, pageURL string, hrefs []string) int
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
