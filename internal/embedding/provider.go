// Package embedding generates, stores and searches product embedding
// vectors. Vectors come from a multilingual E5 model served over an
// OpenAI-compatible HTTP API and are persisted as little-endian
// float32 blobs next to the rows they describe.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Provider defines the interface for embedding generation.
// Implementations can use a local inference server, OpenAI, etc.
type Provider interface {
	// GenerateEmbeddingBatch generates embeddings for multiple texts in a
	// single API call. Batch requests are more efficient than individual calls.
	GenerateEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelVersion returns the model identifier
	// (e.g. "intfloat/multilingual-e5-large").
	ModelVersion() string

	// Dimension returns the embedding vector dimension.
	Dimension() int
}

// RetryConfig configures retry behavior for embedding API calls
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns sensible retry defaults
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// GenerateWithRetry generates embeddings with exponential backoff retry
func GenerateWithRetry(
	ctx context.Context,
	provider Provider,
	texts []string,
	config RetryConfig,
) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(config.InitialDelay) * float64(uint(1)<<uint(attempt-1)))
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}

			log.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(lastErr).
				Msg("Embedding generation retry")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		embeddings, err := provider.GenerateEmbeddingBatch(ctx, texts)
		if err == nil {
			return embeddings, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("embedding generation failed after %d attempts: %w", config.MaxRetries, lastErr)
}

// HTTPProviderConfig configures the HTTP embedding provider
type HTTPProviderConfig struct {
	Endpoint  string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// HTTPProvider generates embeddings through an OpenAI-compatible
// /v1/embeddings endpoint, as served by TEI or LocalAI hosting the
// multilingual E5 model.
type HTTPProvider struct {
	endpoint  string
	model     string
	dimension int
	client    *http.Client
}

// NewHTTPProvider creates a provider for the given endpoint
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPProvider{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: timeout},
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// GenerateEmbeddingBatch implements Provider
func (p *HTTPProvider) GenerateEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(embeddingRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embedding endpoint returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(decoded.Data) != len(texts) {
		return nil, fmt.Errorf("embedding endpoint returned %d vectors for %d texts", len(decoded.Data), len(texts))
	}

	result := make([][]float32, len(texts))
	for _, item := range decoded.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding endpoint returned out-of-range index %d", item.Index)
		}
		if p.dimension > 0 && len(item.Embedding) != p.dimension {
			return nil, fmt.Errorf("embedding dimension %d does not match expected %d", len(item.Embedding), p.dimension)
		}
		result[item.Index] = item.Embedding
	}
	return result, nil
}

// ModelVersion implements Provider
func (p *HTTPProvider) ModelVersion() string {
	return p.model
}

// Dimension implements Provider
func (p *HTTPProvider) Dimension() int {
	return p.dimension
}
