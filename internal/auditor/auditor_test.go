package auditor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageaudit/pageaudit/internal/audit"
	"github.com/pageaudit/pageaudit/internal/collector"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedIDs struct{ id string }

func (f fixedIDs) NewID() (string, error) { return f.id, nil }

// fakeSession answers lookups from maps; Evaluate always reports absence,
// which the collector tolerates.
type fakeSession struct {
	navErr     error
	texts      map[string]string
	attributes map[string]string
	textAll    map[string][]string
	closed     bool
}

func (f *fakeSession) Navigate(_ context.Context, _ string, _ time.Duration) error {
	return f.navErr
}

func (f *fakeSession) Attribute(_ context.Context, selector, attribute string) (string, bool) {
	v, ok := f.attributes[selector+"|"+attribute]
	return v, ok
}

func (f *fakeSession) Text(_ context.Context, selector string) (string, bool) {
	v, ok := f.texts[selector]
	return v, ok
}

func (f *fakeSession) TextAll(_ context.Context, selector string) []string {
	return f.textAll[selector]
}

func (f *fakeSession) Evaluate(_ context.Context, _ string, _ any) error {
	return errors.New("not scripted")
}

func (f *fakeSession) SetViewport(_ context.Context, _, _ int) error { return nil }

func (f *fakeSession) Screenshot(_ context.Context, _ bool) ([]byte, error) {
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (f *fakeSession) Network() audit.NetworkSummary { return audit.NetworkSummary{} }
func (f *fakeSession) MixedContent() bool            { return false }
func (f *fakeSession) Close()                        { f.closed = true }

type fakeBrowser struct {
	session *fakeSession
	err     error
	opened  int
}

func (b *fakeBrowser) NewSession(_ context.Context) (audit.Session, error) {
	b.opened++
	if b.err != nil {
		return nil, b.err
	}
	return b.session, nil
}

func (b *fakeBrowser) Close(_ context.Context) error { return nil }

type fakeStore struct {
	saved   []audit.Result
	saveErr error
}

func (s *fakeStore) Save(_ context.Context, result audit.Result) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saved = append(s.saved, result)
	return result.ID, nil
}

func (s *fakeStore) Get(_ context.Context, _ string) (audit.Result, error) {
	return audit.Result{}, audit.ErrNotFound
}

func (s *fakeStore) List(_ context.Context, _ audit.ListFilters) ([]audit.Summary, error) {
	return nil, nil
}

func (s *fakeStore) Delete(_ context.Context, _ string) (bool, error) { return false, nil }

type fakeBlobs struct {
	objects map[string][]byte
	err     error
}

func (b *fakeBlobs) PutObject(_ context.Context, path, _ string, data []byte) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.objects == nil {
		b.objects = make(map[string][]byte)
	}
	b.objects[path] = data
	return "memory://" + path, nil
}

type fakePublisher struct {
	topics []string
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, _ any) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.topics = append(p.topics, topic)
	return fmt.Sprintf("msg-%d", len(p.topics)), nil
}

type fakeAnalyzer struct {
	deep audit.DeepAnalysis
	err  error
}

func (a *fakeAnalyzer) Analyze(_ context.Context, _ audit.Result) (audit.DeepAnalysis, error) {
	return a.deep, a.err
}

// healthySession has every lookup-backed signal in its optimal range, so no
// rule fires.
func healthySession() *fakeSession {
	return &fakeSession{
		texts: map[string]string{"title": strings.Repeat("t", 45)},
		attributes: map[string]string{
			`meta[name="description"]|content`:  strings.Repeat("d", 140),
			`meta[name="viewport"]|content`:     "width=device-width, initial-scale=1",
			`link[rel="canonical"]|href`:        "https://example.com/",
			`meta[property="og:title"]|content`: "Example",
		},
		textAll: map[string][]string{"h1": {"Welcome"}},
	}
}

func newAuditor(browser audit.Browser, store audit.Store, extras func(*Deps)) *Auditor {
	clock := fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	deps := Deps{
		Browser:   browser,
		Collector: collector.New(nil, clock, zap.NewNop()),
		Store:     store,
		Clock:     clock,
		IDs:       fixedIDs{id: "audit-1"},
		Logger:    zap.NewNop(),
	}
	if extras != nil {
		extras(&deps)
	}
	return New(deps)
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare host gets https", in: "example.com", want: "https://example.com"},
		{name: "http preserved", in: "http://example.com/page", want: "http://example.com/page"},
		{name: "whitespace trimmed", in: "  https://example.com  ", want: "https://example.com"},
		{name: "empty", in: "", wantErr: true},
		{name: "unsupported scheme", in: "ftp://example.com", wantErr: true},
		{name: "missing host", in: "https://", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, audit.ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRunRejectsInvalidURLBeforeBrowser(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{session: healthySession()}
	a := newAuditor(browser, &fakeStore{}, nil)

	_, err := a.Run(context.Background(), "ftp://example.com", audit.Options{})
	assert.ErrorIs(t, err, audit.ErrInvalidURL)
	assert.Zero(t, browser.opened)
}

func TestRunPerfectPage(t *testing.T) {
	t.Parallel()

	session := healthySession()
	store := &fakeStore{}
	a := newAuditor(&fakeBrowser{session: session}, store, nil)

	result, err := a.Run(context.Background(), "https://example.com", audit.Options{})
	require.NoError(t, err)

	assert.Empty(t, result.Issues)
	assert.Equal(t, 100, result.Overall)
	for _, cat := range audit.Categories {
		assert.Equal(t, 100, result.Scores[cat].Score)
	}
	assert.Equal(t, "audit-1", result.ID)
	assert.True(t, session.closed)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "audit-1", store.saved[0].ID)
}

func TestRunBrokenPage(t *testing.T) {
	t.Parallel()

	// Nothing resolvable on the page: no title, meta description, h1 or
	// viewport.
	session := &fakeSession{}
	store := &fakeStore{}
	a := newAuditor(&fakeBrowser{session: session}, store, nil)

	result, err := a.Run(context.Background(), "https://broken.example.com", audit.Options{})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(result.Issues), 4)
	assert.Less(t, result.Overall, 100)
	assert.True(t, session.closed)
}

func TestRunNavigationFailureAborts(t *testing.T) {
	t.Parallel()

	session := &fakeSession{navErr: fmt.Errorf("%w: timeout", audit.ErrNavigation)}
	store := &fakeStore{}
	a := newAuditor(&fakeBrowser{session: session}, store, nil)

	_, err := a.Run(context.Background(), "https://example.com", audit.Options{})
	assert.ErrorIs(t, err, audit.ErrNavigation)
	assert.True(t, session.closed)
	assert.Empty(t, store.saved)
}

func TestRunBrowserFailure(t *testing.T) {
	t.Parallel()

	a := newAuditor(&fakeBrowser{err: errors.New("launch failed")}, &fakeStore{}, nil)
	_, err := a.Run(context.Background(), "https://example.com", audit.Options{})
	assert.Error(t, err)
}

func TestRunArchivesScreenshots(t *testing.T) {
	t.Parallel()

	blobs := &fakeBlobs{}
	store := &fakeStore{}
	a := newAuditor(&fakeBrowser{session: healthySession()}, store, func(d *Deps) {
		d.Blobs = blobs
	})

	result, err := a.Run(context.Background(), "https://example.com", audit.Options{IncludeScreenshots: true})
	require.NoError(t, err)

	require.NotNil(t, result.Screenshots)
	assert.Equal(t, "memory://audits/audit-1/desktop.png", result.Screenshots.DesktopURI)
	assert.Equal(t, "memory://audits/audit-1/mobile.png", result.Screenshots.MobileURI)
	assert.Nil(t, result.Screenshots.Desktop)
	assert.Nil(t, result.Screenshots.Mobile)
	assert.Len(t, blobs.objects, 2)
}

func TestRunBlobFailureKeepsInlineScreenshots(t *testing.T) {
	t.Parallel()

	a := newAuditor(&fakeBrowser{session: healthySession()}, &fakeStore{}, func(d *Deps) {
		d.Blobs = &fakeBlobs{err: errors.New("bucket down")}
	})

	result, err := a.Run(context.Background(), "https://example.com", audit.Options{IncludeScreenshots: true})
	require.NoError(t, err)
	require.NotNil(t, result.Screenshots)
	assert.NotEmpty(t, result.Screenshots.Desktop)
	assert.Empty(t, result.Screenshots.DesktopURI)
}

func TestRunDeepScan(t *testing.T) {
	t.Parallel()

	deep := audit.DeepAnalysis{CriticalIssues: []audit.DeepIssue{{Title: "deep"}}}
	a := newAuditor(&fakeBrowser{session: healthySession()}, &fakeStore{}, func(d *Deps) {
		d.Analyzer = &fakeAnalyzer{deep: deep}
	})

	result, err := a.Run(context.Background(), "https://example.com", audit.Options{DeepScan: true})
	require.NoError(t, err)
	require.NotNil(t, result.Deep)
	require.Len(t, result.Deep.CriticalIssues, 1)
	assert.Equal(t, "deep", result.Deep.CriticalIssues[0].Title)

	// Without the flag the analyzer is not consulted.
	result, err = a.Run(context.Background(), "https://example.com", audit.Options{})
	require.NoError(t, err)
	assert.Nil(t, result.Deep)
}

func TestRunDeepScanFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	a := newAuditor(&fakeBrowser{session: healthySession()}, &fakeStore{}, func(d *Deps) {
		d.Analyzer = &fakeAnalyzer{err: errors.New("model down")}
	})

	result, err := a.Run(context.Background(), "https://example.com", audit.Options{DeepScan: true})
	require.NoError(t, err)
	assert.Nil(t, result.Deep)
}

func TestRunPublishesCompletionEvent(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	a := newAuditor(&fakeBrowser{session: healthySession()}, &fakeStore{}, func(d *Deps) {
		d.Publisher = pub
	})

	_, err := a.Run(context.Background(), "https://example.com", audit.Options{})
	require.NoError(t, err)
	require.Len(t, pub.topics, 1)
	assert.Equal(t, TopicAuditCompleted, pub.topics[0])
}

func TestRunPublishFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	a := newAuditor(&fakeBrowser{session: healthySession()}, &fakeStore{}, func(d *Deps) {
		d.Publisher = &fakePublisher{err: errors.New("broker down")}
	})

	_, err := a.Run(context.Background(), "https://example.com", audit.Options{})
	assert.NoError(t, err)
}

func TestRunSaveFailure(t *testing.T) {
	t.Parallel()

	a := newAuditor(&fakeBrowser{session: healthySession()}, &fakeStore{saveErr: errors.New("db down")}, nil)
	_, err := a.Run(context.Background(), "https://example.com", audit.Options{})
	assert.Error(t, err)
}
