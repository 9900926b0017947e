package insight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, false},
		{"prose around object", `Sure! Here it is: {"a":1} hope that helps`, `{"a":1}`, false},
		{"nested braces", `text {"a":{"b":2}} tail`, `{"a":{"b":2}}`, false},
		{"braces inside strings", `{"a":"}{"}`, `{"a":"}{"}`, false},
		{"escaped quote in string", `{"a":"say \"hi\" {"}`, `{"a":"say \"hi\" {"}`, false},
		{"no object", "no json here", "", true},
		{"unterminated", `{"a":1`, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := extractJSONObject(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseDeepAnalysis(t *testing.T) {
	t.Parallel()

	text := `Happy to help. {"critical_issues":[{"title":"Missing meta description"}],` +
		`"content_quality":{"score":80}} Let me know!`
	deep, err := ParseDeepAnalysis(text)
	require.NoError(t, err)
	require.Len(t, deep.CriticalIssues, 1)
	assert.Equal(t, "Missing meta description", deep.CriticalIssues[0].Title)
	assert.Equal(t, 80, deep.ContentQuality.Score)
}

func TestGenerativeUsesServiceResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"analysis follows {\"content_quality\":{\"score\":42}}"}`))
	}))
	defer srv.Close()

	g := NewGenerative(GenerativeConfig{Endpoint: srv.URL, APIKey: "secret"}, zap.NewNop())
	deep, err := g.Analyze(context.Background(), cleanResult())
	require.NoError(t, err)
	assert.Equal(t, 42, deep.ContentQuality.Score)
}

func TestGenerativeFallsBackOnServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := cleanResult()
	r.SEO.MetaDescription.Content = ""

	g := NewGenerative(GenerativeConfig{Endpoint: srv.URL}, zap.NewNop())
	deep, err := g.Analyze(context.Background(), r)
	require.NoError(t, err, "fallback must never surface an error")
	assert.Equal(t, Generate(r), deep)
}

func TestGenerativeFallsBackOnUnparsablePayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("I could not produce structured output, sorry."))
	}))
	defer srv.Close()

	g := NewGenerative(GenerativeConfig{Endpoint: srv.URL}, zap.NewNop())
	deep, err := g.Analyze(context.Background(), cleanResult())
	require.NoError(t, err)
	assert.Equal(t, Generate(cleanResult()), deep)
}

func TestGenerativeFallsBackOnTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"content_quality":{"score":1}}`))
	}))
	defer srv.Close()

	g := NewGenerative(GenerativeConfig{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, zap.NewNop())
	deep, err := g.Analyze(context.Background(), cleanResult())
	require.NoError(t, err)
	// A timed-out collaborator still yields a complete deep analysis.
	assert.Equal(t, Generate(cleanResult()), deep)
}

func TestBuildPromptMentionsSignals(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt(cleanResult())
	assert.Contains(t, prompt, "https://example.com")
	assert.Contains(t, prompt, "DeepAnalysis")
}
