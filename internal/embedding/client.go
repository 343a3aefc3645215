package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "http://localhost:8000"
	defaultDim     = 768
)

// Client computes text embeddings using the embedding server.
// It implements cache.Embedder.
type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewClient creates an embedding client. Empty baseURL and zero dim
// fall back to defaults.
func NewClient(baseURL string, dim int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if dim <= 0 {
		dim = defaultDim
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Dim returns the expected embedding dimension.
func (c *Client) Dim() int {
	return c.dim
}

type textEmbeddingRequest struct {
	Text string `json:"text"`
}

type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// EmbedText computes the embedding for a text prompt.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(textEmbeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed/text", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(embResp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	if len(embResp.Embedding) != c.dim {
		return nil, fmt.Errorf("unexpected embedding dimension %d, expected %d", len(embResp.Embedding), c.dim)
	}

	return embResp.Embedding, nil
}
