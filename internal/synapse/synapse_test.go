package synapse

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/fakenews/internal/config"
	"github.com/tensorplex-labs/fakenews/internal/scoring"
	"github.com/tensorplex-labs/fakenews/pkg/signature"
)

func newTestProvider(t *testing.T) *signature.Provider {
	t.Helper()
	keypair, err := sr25519.GenerateKeypair()
	require.NoError(t, err)
	provider, err := signature.NewProvider(keypair)
	require.NoError(t, err)
	return provider
}

// startServer serves handler on a random local port and returns its axon.
func startServer(t *testing.T, uid int64, handler Handler) Axon {
	t.Helper()
	server := NewServer(&config.ServerEnvConfig{Port: 0}, signature.NewVerifier())
	server.ServeArticles(handler)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return Axon{UID: uid, Hotkey: "miner", IP: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}
}

func newTestClient(t *testing.T, provider signature.SignatureProvider) *Client {
	t.Helper()
	client, err := NewClient(&config.ClientEnvConfig{ClientTimeout: 5 * time.Second}, provider)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestNewArticleSynapse(t *testing.T) {
	syn := NewArticleSynapse([]string{"a", "b", "c"}, nil)
	require.Len(t, syn.FakeProbabilities, 3)
	for _, p := range syn.FakeProbabilities {
		f, ok := p.Float()
		assert.True(t, ok)
		assert.Equal(t, -1.0, f)
	}

	data, err := sonic.Marshal(syn)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "original_article")
}

func TestQueryRoundTrip(t *testing.T) {
	provider := newTestProvider(t)
	callers := make(chan string, 1)
	axon := startServer(t, 3, func(ctx context.Context, callerHotkey string, req ArticleSynapse) (ArticleSynapse, error) {
		callers <- callerHotkey
		probs := make([]float64, len(req.ArticlesToReview))
		for i := range probs {
			probs[i] = 0.25 * float64(i+1)
		}
		req.FakeProbabilities = scoring.RawProbabilities(probs...)
		return req, nil
	})
	client := newTestClient(t, provider)

	original := "original body"
	resp, err := client.Query(context.Background(), axon, NewArticleSynapse([]string{"x", "y"}, &original))
	require.NoError(t, err)

	assert.Equal(t, provider.Hotkey(), <-callers)
	require.NotNil(t, resp.OriginalArticle)
	assert.Equal(t, original, *resp.OriginalArticle)
	assert.Equal(t, []float64{0.25, 0.5}, scoring.NormalizeMinerProbs(resp.FakeProbabilities, []float64{0, 1}))
}

func TestQueryHandlerError(t *testing.T) {
	axon := startServer(t, 1, func(ctx context.Context, _ string, req ArticleSynapse) (ArticleSynapse, error) {
		return req, errors.New("model unavailable")
	})
	client := newTestClient(t, newTestProvider(t))

	_, err := client.Query(context.Background(), axon, NewArticleSynapse([]string{"x"}, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestQueryAllFallsBackToPlaceholder(t *testing.T) {
	good := startServer(t, 1, func(ctx context.Context, _ string, req ArticleSynapse) (ArticleSynapse, error) {
		req.FakeProbabilities = scoring.RawProbabilities(0.9, 0.1)
		return req, nil
	})
	bad := startServer(t, 2, func(ctx context.Context, _ string, req ArticleSynapse) (ArticleSynapse, error) {
		return req, errors.New("boom")
	})
	// nothing listens on port 1
	unreachable := Axon{UID: 3, Hotkey: "gone", IP: "127.0.0.1", Port: 1}

	client := newTestClient(t, newTestProvider(t))
	req := NewArticleSynapse([]string{"x", "y"}, nil)
	responses := client.QueryAll(context.Background(), []Axon{good, bad, unreachable}, req)
	require.Len(t, responses, 3)

	labels := []float64{1, 0}
	assert.Equal(t, []float64{0.9, 0.1}, scoring.NormalizeMinerProbs(responses[0].FakeProbabilities, labels))
	assert.Equal(t, []float64{0, 1}, scoring.NormalizeMinerProbs(responses[1].FakeProbabilities, labels))
	assert.Equal(t, []float64{0, 1}, scoring.NormalizeMinerProbs(responses[2].FakeProbabilities, labels))
}

func TestSignatureMiddleware(t *testing.T) {
	server := NewServer(nil, signature.NewVerifier())
	server.ServeArticles(func(ctx context.Context, _ string, req ArticleSynapse) (ArticleSynapse, error) {
		return req, nil
	})
	provider := newTestProvider(t)
	body := `{"articles_to_review":["x"],"fake_probabilities":[-1]}`

	t.Run("missing headers", func(t *testing.T) {
		req := httptest.NewRequest("POST", ArticleSynapseRoute, strings.NewReader(body))
		resp, err := server.App.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("signature over another timestamp", func(t *testing.T) {
		sig, err := provider.Sign(AuthMessage(provider.Hotkey(), "1700000000"))
		require.NoError(t, err)

		req := httptest.NewRequest("POST", ArticleSynapseRoute, strings.NewReader(body))
		req.Header.Set(HotkeyHeader, provider.Hotkey())
		req.Header.Set(TimestampHeader, "1700000001")
		req.Header.Set(SignatureHeader, sig)
		resp, err := server.App.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 403, resp.StatusCode)
	})

	t.Run("valid signature", func(t *testing.T) {
		sig, err := provider.Sign(AuthMessage(provider.Hotkey(), "1700000000"))
		require.NoError(t, err)

		req := httptest.NewRequest("POST", ArticleSynapseRoute, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HotkeyHeader, provider.Hotkey())
		req.Header.Set(TimestampHeader, "1700000000")
		req.Header.Set(SignatureHeader, sig)
		resp, err := server.App.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("health is public", func(t *testing.T) {
		resp, err := server.App.Test(httptest.NewRequest("GET", HealthRoute, nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})
}
