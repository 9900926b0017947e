package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	if auditsTotal == nil || navigationsTotal == nil || generativeFallbacksTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObserveAudit("https://example.com", "succeeded", 2*time.Second)
	if val := testutil.ToFloat64(auditsTotal.WithLabelValues("example.com", "succeeded")); val != 1 {
		t.Errorf("expected audits counter to be 1, got %f", val)
	}

	before := testutil.ToFloat64(generativeFallbacksTotal)
	ObserveGenerativeFallback()
	if val := testutil.ToFloat64(generativeFallbacksTotal); val != before+1 {
		t.Errorf("expected fallback counter to increment, got %f", val)
	}
}

func TestObserversAreNilSafe(t *testing.T) {
	// Observers must not panic before Init has run in a fresh process; the
	// nil guards cover tests that import the package without initializing.
	ObserveNavigation("ok")
	ObserveHTTPRequest("GET", "/v1/audits", 200, time.Millisecond)
	IncActiveAudits()
	DecActiveAudits()
}
