// Package backend implements the HTTP client for the remote RAG service.
//
// The service exposes health, search, rag, ingest, graph, and a streaming
// agent endpoint. Two envelope generations are in the wild: v2 wraps payloads
// as {success, data, error} and v3 as {results}. The client normalizes both
// into the shapes in pkg/models, so callers never see envelope differences.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ragscout/ragscout/internal/config"
	"github.com/ragscout/ragscout/pkg/contracts"
	"github.com/ragscout/ragscout/pkg/models"
	"github.com/rs/zerolog/log"
)

// Client talks to the RAG backend over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a backend client. The base URL is required.
func NewClient(cfg config.BackendConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required (set R2R_BASE_URL)")
	}
	timeout := 120 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// Health checks backend reachability.
func (c *Client) Health(ctx context.Context) (string, error) {
	raw, err := c.get(ctx, "/v3/health")
	if err != nil {
		return "", err
	}
	var body struct {
		Status  string `json:"status"`
		Results struct {
			Message string `json:"message"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("decode health response: %w", err)
	}
	if body.Status != "" {
		return body.Status, nil
	}
	return body.Results.Message, nil
}

// Search runs a chunk search and normalizes v2/v3 result shapes.
func (c *Client) Search(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error) {
	raw, err := c.post(ctx, "/v3/retrieval/search", req)
	if err != nil {
		return nil, err
	}
	return normalizeSearchResults(raw)
}

// RAG runs a retrieval-augmented generation query.
func (c *Client) RAG(ctx context.Context, req models.RAGRequest) (*models.RAGResult, error) {
	raw, err := c.post(ctx, "/v3/retrieval/rag", req)
	if err != nil {
		return nil, err
	}
	return normalizeRAGResult(raw)
}

// Ingest indexes chunks and returns the assigned document IDs.
func (c *Client) Ingest(ctx context.Context, req models.IngestRequest) ([]string, error) {
	raw, err := c.post(ctx, "/v3/documents", req)
	if err != nil {
		return nil, err
	}
	return normalizeIngestResult(raw)
}

// Graph queries the code relationship graph.
func (c *Client) Graph(ctx context.Context, req models.GraphRequest) (*models.GraphResult, error) {
	raw, err := c.post(ctx, "/v3/graphs/query", req)
	if err != nil {
		return nil, err
	}
	return normalizeGraphResult(raw)
}

// Agent opens a streaming agent conversation.
func (c *Client) Agent(ctx context.Context, req models.AgentRequest) (contracts.AgentStream, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal agent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v3/retrieval/agent", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create agent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	c.applyAuth(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("agent request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	return newEventStream(resp.Body), nil
}

// ── HTTP plumbing ────────────────────────────────────────────

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.applyAuth(httpReq)
	return c.do(httpReq)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.applyAuth(httpReq)
	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	log.Debug().
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Backend call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	return raw, nil
}

func (c *Client) applyAuth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
