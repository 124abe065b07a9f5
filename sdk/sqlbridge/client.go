// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sqlbridge is a minimal typed HTTP client for the sqlbridge service.
package sqlbridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// Client talks to a sqlbridge server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the Bearer key sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the given base URL, e.g. "http://localhost:8317".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryRequest mirrors the server's query body.
type QueryRequest struct {
	Query    string `json:"query"`
	Mode     string `json:"mode,omitempty"`
	Database string `json:"database,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// ResultSet is the execution result portion of a query response.
type ResultSet struct {
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
	RowCount   int        `json:"row_count"`
	Page       int        `json:"current_page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
	TotalRows  int        `json:"total_rows_available"`
	Truncated  bool       `json:"truncated"`
}

// QueryResponse is the terminal answer envelope returned by the server.
type QueryResponse struct {
	SQL                string     `json:"sql,omitempty"`
	Result             *ResultSet `json:"result,omitempty"`
	Summary            string     `json:"summary,omitempty"`
	ProcessingMode     string     `json:"processing_mode"`
	ModelUsed          string     `json:"model_used,omitempty"`
	SelectionReasoning string     `json:"selection_reasoning"`
	ElapsedMs          int64      `json:"elapsed_ms"`
	Error              string     `json:"error,omitempty"`
}

// Query runs one natural-language query.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("sqlbridge: failed to encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sqlbridge: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sqlbridge: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sqlbridge: failed to read response: %w", err)
	}
	var out QueryResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("sqlbridge: failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	return &out, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sqlbridge: health returned status %d", resp.StatusCode)
	}
	return nil
}
