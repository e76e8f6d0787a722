package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/fakenews/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := NewClient(&config.OpenAIEnvConfig{OpenAIAPIKey: "sk-test", OpenAIBaseURL: ts.URL}, 5*time.Second)
	require.NoError(t, err)
	return c
}

func completion(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":` + quote(content) + `}}]}`
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIEnvConfig{}, time.Second)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestRunRewritePrompt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"model":"gpt-4o"`)
		assert.Contains(t, string(body), "original text")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("Sure.\nArticle: ####\n  The rewritten story. ####")))
	})

	article, err := Run[string](context.Background(), c, StrongOriginalV5.For("original text"))
	require.NoError(t, err)
	assert.Equal(t, "The rewritten story.", article)
}

func TestCompleteMapsStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{status: http.StatusBadGateway, want: ErrUpstreamUnavailable},
		{status: http.StatusUnauthorized, want: ErrClient},
		{status: http.StatusTooManyRequests, want: ErrClient},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.Complete(context.Background(), "gpt-4o-mini", nil)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCompleteNoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Complete(context.Background(), "gpt-4o-mini", nil)
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestExtractArticle(t *testing.T) {
	_, err := ExtractArticle("no anchor here")
	assert.ErrorIs(t, err, ErrMissingAnchor)

	got, err := ExtractArticle("* facts\nArticle: #### Body #### text")
	require.NoError(t, err)
	assert.Equal(t, "Body  text", got)
}

func TestParseProbabilities(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []float64
		wantErr  bool
	}{
		{name: "plain", response: "[0.4, 0.7]", want: []float64{0.4, 0.7}},
		{name: "fenced", response: "```json\n[0, 1]\n```", want: []float64{0, 1}},
		{name: "json prefix", response: "json [0.2]", want: []float64{0.2}},
		{name: "not a list", response: `{"a": 1}`, wantErr: true},
		{name: "strings", response: `["0.4"]`, wantErr: true},
		{name: "garbage", response: "I think the first one", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProbabilities(tt.response)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidProbabilities)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbabilitiesPromptMessages(t *testing.T) {
	original := "the original"
	with := ProbabilitiesPrompt{OriginalArticle: &original, ArticlesToReview: []string{"a", "b"}}
	without := ProbabilitiesPrompt{ArticlesToReview: []string{"a"}}

	assert.Equal(t, "probabilities_v1", with.Version())
	assert.Equal(t, "probabilities_no_original_v1", without.Version())

	msgs := with.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "the original")
	assert.Equal(t, "```1. \na\n```\n```2. \nb\n```", msgs[1].Content)
	assert.NotContains(t, without.Messages()[0].Content, "Original article")
}
