package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Embedder turns text into a fixed-dimension normalized vector. The model
// behind it is a black box; the pipeline only relies on the dimension
// staying constant for the lifetime of a store.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Client talks to an embedding server over HTTP. The server wraps a
// sentence-transformer model and returns one vector per request.
type Client struct {
	endpoint   string
	model      string
	dimension  int
	httpClient *http.Client
}

func NewClient(endpoint, model string, dimension int, httpClient *http.Client) *Client {
	return &Client{
		endpoint:   endpoint,
		model:      model,
		dimension:  dimension,
		httpClient: httpClient,
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	body, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding server unavailable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read embed response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed embedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("embedding server error: %s", parsed.Error)
	}

	if len(parsed.Embedding) != c.dimension {
		return nil, fmt.Errorf("%w: server returned %d, expected %d",
			ErrDimensionMismatch, len(parsed.Embedding), c.dimension)
	}

	return Normalize(parsed.Embedding), nil
}
