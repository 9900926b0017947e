// Package browser implements the browser collaborator on top of chromedp.
//
// The underlying Chrome process is a process-wide resource, initialized
// lazily with at most one concurrent initialization and kept alive until
// Close. Every audit gets its own tab context so listeners, cookies and
// viewport mutations never leak between concurrent audits.
package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pageaudit/pageaudit/internal/audit"
	"github.com/pageaudit/pageaudit/internal/metrics"
)

// ErrBrowserDisabled indicates the browser was disabled via configuration.
var ErrBrowserDisabled = errors.New("browser disabled")

// DefaultNavigationTimeout applies when the caller supplies none.
const DefaultNavigationTimeout = 30 * time.Second

// Config controls the shared Chrome instance.
type Config struct {
	Enabled           bool
	UserAgent         string
	MaxSessions       int
	NavigationTimeout time.Duration
	DomainQPS         float64
}

// Chrome is the process-wide chromedp-backed audit.Browser.
type Chrome struct {
	cfg    Config
	logger *zap.Logger

	mu              sync.Mutex
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc

	sem            chan struct{}
	domainLimiters sync.Map
}

// New creates a Chrome browser handle. The Chrome process itself is not
// launched until the first session is requested.
func New(cfg Config, logger *zap.Logger) (*Chrome, error) {
	if !cfg.Enabled {
		return nil, ErrBrowserDisabled
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	var sem chan struct{}
	if cfg.MaxSessions > 0 {
		sem = make(chan struct{}, cfg.MaxSessions)
	}
	return &Chrome{cfg: cfg, logger: logger, sem: sem}, nil
}

// ensureBrowser lazily launches the shared Chrome process. The mutex is the
// single-flight guard: concurrent first sessions wait for one initialization
// rather than launching separate browsers. A failed launch is not memoized,
// so a later session may retry.
func (c *Chrome) ensureBrowser() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browserCtx != nil {
		return c.browserCtx, nil
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if c.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.cfg.UserAgent))
	}
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	c.logger.Info("launched shared headless browser")
	c.browserCtx = browserCtx
	c.browserCancel = browserCancel
	c.allocatorCancel = allocatorCancel
	return c.browserCtx, nil
}

// NewSession opens an isolated tab context for one audit.
func (c *Chrome) NewSession(ctx context.Context) (audit.Session, error) {
	if c == nil {
		return nil, ErrBrowserDisabled
	}
	release, err := c.acquireSlot(ctx)
	if err != nil {
		return nil, err
	}

	browserCtx, err := c.ensureBrowser()
	if err != nil {
		release()
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	s := &session{
		chrome:  c,
		ctx:     tabCtx,
		cancel:  cancelTab,
		release: release,
		logger:  c.logger,
	}
	s.listen()
	return s, nil
}

// Close tears down the shared browser. Safe to call without a prior launch.
// Cancellation of the chromedp contexts is what stops the process; the
// caller's context is not consulted.
func (c *Chrome) Close(_ context.Context) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browserCancel != nil {
		c.browserCancel()
		c.allocatorCancel()
		c.browserCtx = nil
		c.browserCancel = nil
		c.allocatorCancel = nil
	}
	return nil
}

func (c *Chrome) acquireSlot(ctx context.Context) (func(), error) {
	if c.sem == nil {
		return func() {}, nil
	}
	select {
	case c.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-c.sem }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire session slot: %w", ctx.Err())
	}
}

func (c *Chrome) waitDomainBudget(ctx context.Context, rawURL string) error {
	if c.cfg.DomainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := c.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(c.cfg.DomainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

// session is one isolated browsing context.
type session struct {
	chrome  *Chrome
	ctx     context.Context
	cancel  context.CancelFunc
	release func()
	logger  *zap.Logger

	statsMu sync.Mutex
	stats   audit.NetworkSummary
	pageSSL bool
	mixed   bool

	closeOnce sync.Once
}

// listen subscribes to the tab's network events so per-request counters
// accumulate for the lifetime of the session.
func (s *session) listen() {
	chromedp.ListenTarget(s.ctx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			s.statsMu.Lock()
			s.stats.TotalRequests++
			if s.pageSSL && strings.HasPrefix(e.Request.URL, "http://") {
				s.mixed = true
			}
			s.statsMu.Unlock()
		case *network.EventResponseReceived:
			if e.Response != nil && e.Response.Status >= 400 {
				s.statsMu.Lock()
				s.stats.FailedRequests++
				s.statsMu.Unlock()
			}
		case *network.EventLoadingFailed:
			s.statsMu.Lock()
			s.stats.FailedRequests++
			s.statsMu.Unlock()
		case *network.EventLoadingFinished:
			s.statsMu.Lock()
			s.stats.TotalBytes += int64(e.EncodedDataLength)
			s.statsMu.Unlock()
		}
	})
}

// Navigate loads the page and waits for the DOM to become ready. Navigation
// failure is the one fatal error class of an audit.
func (s *session) Navigate(ctx context.Context, rawURL string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.chrome.cfg.NavigationTimeout
	}
	if err := s.chrome.waitDomainBudget(ctx, rawURL); err != nil {
		return fmt.Errorf("navigation rate limit: %w", err)
	}

	s.statsMu.Lock()
	s.pageSSL = strings.HasPrefix(rawURL, "https://")
	s.statsMu.Unlock()

	taskCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	tasks := chromedp.Tasks{
		network.Enable(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		metrics.ObserveNavigation("error")
		return fmt.Errorf("%w: %s: %v", audit.ErrNavigation, rawURL, err)
	}
	metrics.ObserveNavigation("ok")
	return nil
}

// lookupTimeout bounds a single optional DOM lookup so an absent element
// never stalls the whole extraction.
const lookupTimeout = 3 * time.Second

// Attribute returns the named attribute of the first matching element.
func (s *session) Attribute(ctx context.Context, selector, attribute string) (string, bool) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) { return null; }
		return el.getAttribute(%s);
	})()`, jsString(selector), jsString(attribute))
	return s.optionalString(ctx, script)
}

// Text returns the trimmed text content of the first matching element.
func (s *session) Text(ctx context.Context, selector string) (string, bool) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) { return null; }
		return el.textContent.trim();
	})()`, jsString(selector))
	return s.optionalString(ctx, script)
}

// TextAll returns the trimmed text of every matching element in document order.
func (s *session) TextAll(ctx context.Context, selector string) []string {
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).map(el => el.textContent.trim())`,
		jsString(selector))
	var out []string
	if err := s.Evaluate(ctx, script, &out); err != nil {
		return nil
	}
	return out
}

// Evaluate runs script in the page and unmarshals the result into out.
func (s *session) Evaluate(ctx context.Context, script string, out any) error {
	taskCtx, cancel := context.WithTimeout(s.ctx, lookupTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(taskCtx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("evaluate in page: %w", err)
	}
	return nil
}

// optionalString evaluates a script that yields a string or null. Absence
// and evaluation errors both report the absent sentinel.
func (s *session) optionalString(ctx context.Context, script string) (string, bool) {
	var out *string
	if err := s.Evaluate(ctx, script, &out); err != nil {
		return "", false
	}
	if out == nil {
		return "", false
	}
	return *out, true
}

// SetViewport resizes the emulated viewport.
func (s *session) SetViewport(ctx context.Context, width, height int) error {
	taskCtx, cancel := context.WithTimeout(s.ctx, lookupTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	action := emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1, false)
	if err := chromedp.Run(taskCtx, action); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	return nil
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func isPNG(data []byte) bool {
	return bytes.HasPrefix(data, pngSignature)
}

// Screenshot captures the page as PNG.
func (s *session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	taskCtx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	var buf []byte
	var action chromedp.Action
	if fullPage {
		// FullScreenshot switches to jpeg for any quality below 100;
		// both capture paths must stay png.
		action = chromedp.FullScreenshot(&buf, 100)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}
	if err := chromedp.Run(taskCtx, action); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	if !isPNG(buf) {
		return nil, fmt.Errorf("capture screenshot: unexpected image encoding")
	}
	return buf, nil
}

// Network reports the counters accumulated since Navigate.
func (s *session) Network() audit.NetworkSummary {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// MixedContent reports whether any plain-HTTP subresource was requested from
// an HTTPS page.
func (s *session) MixedContent() bool {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.mixed
}

// Close releases the tab context and its session slot. Idempotent; runs on
// every audit exit path.
func (s *session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.release()
	})
}

// forwardCancel propagates cancellation from the caller's context into a
// chromedp task context.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// jsString embeds a Go string into a script as a JSON literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
