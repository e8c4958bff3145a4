//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedsvc/embedsvc/internal/api"
	"github.com/embedsvc/embedsvc/internal/cli"
	"github.com/embedsvc/embedsvc/internal/config"
	"github.com/embedsvc/embedsvc/internal/daemon"
	"github.com/embedsvc/embedsvc/internal/db"
	"github.com/embedsvc/embedsvc/internal/embedder"
)

// =============================================================================
// Constants
// =============================================================================

const (
	daemonStartTimeout = 30 * time.Second
	hfWarmupTimeout    = 2 * time.Minute
)

// =============================================================================
// Helper Functions
// =============================================================================

// isHuggingFaceAvailable reports whether HF_TOKEN is set and the inference
// endpoint answers at all.
func isHuggingFaceAvailable() bool {
	if os.Getenv("HF_TOKEN") == "" {
		return false
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(embedder.DefaultHuggingFaceURL)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// startDaemon runs a daemon on a free loopback port until the test ends.
func startDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()

	d, err := daemon.New(context.Background(), cfg, testLogger(t), daemon.Options{Version: "integration"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	select {
	case <-d.Ready():
	case err := <-errCh:
		cancel()
		t.Fatalf("daemon exited before listening: %v", err)
	case <-time.After(daemonStartTimeout):
		cancel()
		t.Fatalf("daemon did not listen within %v", daemonStartTimeout)
	}

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errCh)
	})
	return d
}

func localConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Model.Backend = config.BackendLocal
	cfg.Embedding.CacheSize = 100
	cfg.Embedding.Persistent = true
	return cfg
}

func postEmbed(t *testing.T, baseURL, text string) (*http.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"text": text})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/embed", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

// testLogger returns a logger for tests that discards output.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Integration Tests
// =============================================================================

func TestIntegration_FullFlow(t *testing.T) {
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)

	d := startDaemon(t, localConfig())
	baseURL := "http://" + d.Addr()

	// Health reports the fixed model and readiness
	resp, err := http.Get(baseURL + "/health")
	require.NoError(t, err)
	var health api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, embedder.ModelID, health.Model)
	assert.True(t, health.Ready)

	// Embeddings have the model's dimensions and are repeatable
	var first api.EmbedResponse
	for _, text := range []string{"hello world", "", "こんにちは世界", "hello world"} {
		resp, data := postEmbed(t, baseURL, text)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

		var res api.EmbedResponse
		require.NoError(t, json.Unmarshal(data, &res))
		assert.Equal(t, embedder.ModelID, res.Model)
		assert.Equal(t, embedder.DefaultDimensions, res.Dim)
		assert.Len(t, res.Embedding, res.Dim)

		if text == "hello world" {
			if first.Embedding == nil {
				first = res
			} else {
				assert.Equal(t, first.Embedding, res.Embedding)
			}
		}
	}

	// Invalid bodies are rejected before reaching the model
	badResp, err := http.Post(baseURL+"/embed", "application/json", bytes.NewReader([]byte(`{"text":42}`)))
	require.NoError(t, err)
	badResp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, badResp.StatusCode)

	// The persistent store lives under XDG_CACHE_HOME
	assert.FileExists(t, filepath.Join(cacheHome, db.AppDir, db.DatabaseFile))

	// The CLI client sees the same daemon
	client := cli.NewClient(baseURL, 10*time.Second)
	status, err := client.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status.Model)
	assert.Equal(t, config.BackendLocal, status.Model.Backend)
	require.NotNil(t, status.Model.Cache)
	assert.Equal(t, int64(1), status.Model.Cache.Hits)

	// Metrics count the requests above
	resp, err = http.Get(baseURL + "/metrics")
	require.NoError(t, err)
	metricsBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(metricsBody), `embedsvc_http_requests_total{method="POST",route="/embed",status="200"} 4`)
	assert.Contains(t, string(metricsBody), `embedsvc_embedding_cache_total{layer="persistent",result="miss"}`)
}

func TestIntegration_PersistentStoreSurvivesRestart(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	cfg := localConfig()
	cfg.Embedding.CacheSize = 0

	runOnce := func() string {
		d, err := daemon.New(context.Background(), cfg, testLogger(t), daemon.Options{})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- d.Run(ctx) }()
		<-d.Ready()

		_, data := postEmbed(t, "http://"+d.Addr(), "restart me")

		resp, err := http.Get("http://" + d.Addr() + "/metrics")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		cancel()
		require.NoError(t, <-errCh)
		assert.NotEmpty(t, data)
		return string(body)
	}

	assert.Contains(t, runOnce(), `embedsvc_embedding_cache_total{layer="persistent",result="miss"} 1`)
	assert.Contains(t, runOnce(), `embedsvc_embedding_cache_total{layer="persistent",result="hit"} 1`)
}

func TestIntegration_HuggingFaceEmbedding(t *testing.T) {
	if !isHuggingFaceAvailable() {
		t.Skip("Skipping integration test: HF_TOKEN not set or Hugging Face Inference is unreachable")
	}

	ctx, cancel := context.WithTimeout(context.Background(), hfWarmupTimeout)
	defer cancel()

	emb, err := embedder.NewFromConfig(ctx, embedder.ProviderConfig{
		Provider:    string(embedder.ProviderHuggingFace),
		BaseURL:     embedder.DefaultHuggingFaceURL,
		Token:       os.Getenv("HF_TOKEN"),
		Timeout:     30 * time.Second,
		LoadRetries: 5,
	})
	if err != nil {
		t.Skipf("Skipping test: model %s not available: %v", embedder.ModelID, err)
	}

	texts := []string{"hello world", "hola mundo", "bonjour le monde"}
	vecs, err := emb.Embed(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, vec := range vecs {
		assert.Len(t, vec, embedder.DefaultDimensions, fmt.Sprintf("text %d", i))
	}
}
