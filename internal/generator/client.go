// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package generator produces candidate SQL for a natural-language question.
// Two generators exist: the API client calling an OpenAI-compatible chat
// completions endpoint, and the deterministic local generator built on the
// schema catalog. The package also provides result summarization.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/traylinx/sqlbridge/internal/config"
)

// Response is the generator result contract. Content is untrusted raw text
// that always requires normalization before use.
type Response struct {
	Success    bool   `json:"success"`
	Content    string `json:"content"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	prompts    *PromptBuilder
}

// NewClient builds the API client. When OAuth is enabled the underlying HTTP
// client carries a client-credentials token source; otherwise the API key is
// sent as a Bearer token.
func NewClient(cfg config.GeneratorConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("generator: base-url is required")
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.OAuth.Enabled {
		cc := clientcredentials.Config{
			TokenURL:     cfg.OAuth.TokenURL,
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			Scopes:       cfg.OAuth.Scopes,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = cfg.Timeout
	}
	prompts, err := NewPromptBuilder(cfg.MaxPromptTokens)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: httpClient,
		prompts:    prompts,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// GenerateSQL asks the model for a single Oracle SELECT statement answering
// the question against the supplied schema summary. Transport-level errors
// are reported in the Response, never raised.
func (c *Client) GenerateSQL(ctx context.Context, userQuery, schemaSummary string) Response {
	system, user := c.prompts.SQLPrompt(userQuery, schemaSummary)
	return c.chat(ctx, system, user, 0.0)
}

// Summarize asks the model for a short natural-language summary of a result
// set. Failures return "" so the caller substitutes its fallback.
func (c *Client) Summarize(ctx context.Context, userQuery string, columns []string, rows [][]string, sql string) string {
	system, user := c.prompts.SummaryPrompt(userQuery, columns, rows, sql)
	resp := c.chat(ctx, system, user, 0.3)
	if !resp.Success {
		log.WithFields(log.Fields{"error": resp.Error}).Debug("generator: summary request failed")
		return ""
	}
	return strings.TrimSpace(resp.Content)
}

// chat performs one chat-completions call.
func (c *Client) chat(ctx context.Context, system, user string, temperature float64) Response {
	body := `{}`
	body, _ = sjson.Set(body, "model", c.model)
	body, _ = sjson.Set(body, "temperature", temperature)
	body, _ = sjson.Set(body, "messages.0.role", "system")
	body, _ = sjson.Set(body, "messages.0.content", system)
	body, _ = sjson.Set(body, "messages.1.role", "user")
	body, _ = sjson.Set(body, "messages.1.content", user)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader([]byte(body)))
	if err != nil {
		return Response{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{Error: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{Error: fmt.Sprintf("read response: %v", err), StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(payload, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(payload))
		}
		return Response{Error: msg, StatusCode: resp.StatusCode}
	}

	content := gjson.GetBytes(payload, "choices.0.message.content").String()
	if content == "" {
		return Response{Error: "empty completion", StatusCode: resp.StatusCode}
	}
	log.WithFields(log.Fields{"model": c.model, "latency": time.Since(start).Round(time.Millisecond)}).Debug("generator: completion received")
	return Response{Success: true, Content: content, StatusCode: resp.StatusCode}
}
