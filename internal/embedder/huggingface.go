package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultHuggingFaceURL is the public serverless inference endpoint.
const DefaultHuggingFaceURL = "https://api-inference.huggingface.co"

// HuggingFaceClient provides embedding generation via a Hugging Face
// feature-extraction endpoint.
type HuggingFaceClient struct {
	baseURL    string
	token      string
	model      string
	dimensions int
	httpClient *http.Client
}

// HuggingFaceConfig holds configuration options for the Hugging Face client.
type HuggingFaceConfig struct {
	BaseURL string
	Token   string
	Model   string
	Timeout time.Duration
}

type hfEmbedRequest struct {
	Inputs  []string        `json:"inputs"`
	Options map[string]bool `json:"options,omitempty"`
}

type hfErrorResponse struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// DefaultHuggingFaceConfig returns the default configuration for Hugging Face.
func DefaultHuggingFaceConfig() HuggingFaceConfig {
	return HuggingFaceConfig{
		BaseURL: DefaultHuggingFaceURL,
		Model:   ModelID,
		Timeout: 30 * time.Second,
	}
}

// NewHuggingFaceClient creates a new Hugging Face client with the given configuration.
func NewHuggingFaceClient(cfg HuggingFaceConfig) *HuggingFaceClient {
	defaults := DefaultHuggingFaceConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}

	return &HuggingFaceClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		model:      cfg.Model,
		dimensions: GetDimensionsForModel(cfg.Model),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Warmup runs one inference to confirm the endpoint serves the model and
// records the dimensionality it returns. It must complete before the client
// is shared between goroutines.
func (c *HuggingFaceClient) Warmup(ctx context.Context) error {
	vecs, err := c.Embed(ctx, []string{"warmup"})
	if err != nil {
		return err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return ErrInvalidResponse.WithCause(fmt.Errorf("warm-up returned no vectors"))
	}
	c.dimensions = len(vecs[0])
	return nil
}

// Embed generates embeddings for multiple texts in a single request.
func (c *HuggingFaceClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	jsonBody, err := json.Marshal(hfEmbedRequest{
		Inputs:  texts,
		Options: map[string]bool{"wait_for_model": true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrProviderUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp, body)
	}

	vecs, err := decodeFeatures(body)
	if err != nil {
		return nil, ErrInvalidResponse.WithCause(err)
	}
	if len(vecs) != len(texts) {
		return nil, ErrInvalidResponse.WithCause(
			fmt.Errorf("expected %d vectors, got %d", len(texts), len(vecs)))
	}
	return vecs, nil
}

// ModelName returns the repository id being served.
func (c *HuggingFaceClient) ModelName() string {
	return c.model
}

// Dimensions returns the embedding dimension count.
func (c *HuggingFaceClient) Dimensions() int {
	return c.dimensions
}

func (c *HuggingFaceClient) handleErrorResponse(resp *http.Response, body []byte) error {
	var apiErr hfErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	detail := apiErr.Error
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, detail)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed.WithCause(cause)
	case http.StatusNotFound:
		return ErrModelNotFound.WithCause(cause)
	case http.StatusTooManyRequests:
		return ErrRateLimited.WithCause(cause).
			WithRetryAfter(parseRetryAfter(resp.Header.Get("Retry-After")))
	case http.StatusServiceUnavailable:
		wait := time.Duration(apiErr.EstimatedTime * float64(time.Second))
		return ErrModelLoading.WithCause(cause).WithRetryAfter(wait)
	default:
		return ErrRequestFailed.WithCause(cause)
	}
}

// decodeFeatures accepts pooled output ([batch][dim]) or token-level output
// ([batch][tokens][dim]); the latter is mean-pooled.
func decodeFeatures(body []byte) ([][]float32, error) {
	var pooled [][]float32
	if err := json.Unmarshal(body, &pooled); err == nil {
		return pooled, nil
	}

	var tokens [][][]float32
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	out := make([][]float32, len(tokens))
	for i, seq := range tokens {
		out[i] = meanPool(seq)
	}
	return out, nil
}

func meanPool(seq [][]float32) []float32 {
	if len(seq) == 0 {
		return nil
	}
	sum := make([]float64, len(seq[0]))
	for _, tok := range seq {
		for j := 0; j < len(sum) && j < len(tok); j++ {
			sum[j] += float64(tok[j])
		}
	}
	out := make([]float32, len(sum))
	for j, v := range sum {
		out[j] = float32(v / float64(len(seq)))
	}
	return out
}

// parseRetryAfter parses the Retry-After header value. Supports both seconds
// (e.g., "30") and HTTP-date formats.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(seconds) && seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
