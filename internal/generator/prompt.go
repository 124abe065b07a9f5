// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package generator

import (
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

const sqlSystemPrompt = `You are an Oracle SQL generator. Answer with exactly one SELECT (or WITH) statement for Oracle Database 12c+. No DML or DDL. Use only the tables and columns in the provided schema. Do not explain the query.`

const summarySystemPrompt = `You summarize SQL query results for business users in one or two sentences. Mention the row count and the most relevant values. Do not mention SQL.`

// PromptBuilder assembles generation prompts under a token budget. The schema
// summary is trimmed line by line until the prompt fits.
type PromptBuilder struct {
	maxTokens int
	codec     tokenizer.Codec
}

// NewPromptBuilder creates a builder using the cl100k_base encoding for
// budgeting.
func NewPromptBuilder(maxTokens int) (*PromptBuilder, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("generator: failed to load tokenizer: %w", err)
	}
	if maxTokens <= 0 {
		maxTokens = 6000
	}
	return &PromptBuilder{maxTokens: maxTokens, codec: codec}, nil
}

// SQLPrompt builds the system and user messages for SQL generation.
func (p *PromptBuilder) SQLPrompt(userQuery, schemaSummary string) (system, user string) {
	schema := p.fitSchema(userQuery, schemaSummary)
	user = fmt.Sprintf("Schema:\n%s\nQuestion: %s\nSQL:", schema, userQuery)
	return sqlSystemPrompt, user
}

// SummaryPrompt builds the messages for result summarization. Only the first
// few rows are included.
func (p *PromptBuilder) SummaryPrompt(userQuery string, columns []string, rows [][]string, sql string) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", userQuery)
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(columns, ", "))
	fmt.Fprintf(&b, "Row count: %d\n", len(rows))
	limit := len(rows)
	if limit > 5 {
		limit = 5
	}
	for i := 0; i < limit; i++ {
		fmt.Fprintf(&b, "Row %d: %s\n", i+1, strings.Join(rows[i], " | "))
	}
	return summarySystemPrompt, b.String()
}

// fitSchema drops schema lines from the end until the whole prompt fits the
// token budget.
func (p *PromptBuilder) fitSchema(userQuery, schemaSummary string) string {
	lines := strings.Split(strings.TrimSpace(schemaSummary), "\n")
	for len(lines) > 0 {
		candidate := strings.Join(lines, "\n")
		total := p.countTokens(sqlSystemPrompt) + p.countTokens(candidate) + p.countTokens(userQuery)
		if total <= p.maxTokens {
			return candidate
		}
		lines = lines[:len(lines)-1]
	}
	return ""
}

func (p *PromptBuilder) countTokens(s string) int {
	ids, _, err := p.codec.Encode(s)
	if err != nil {
		// Rough fallback: one token per four characters.
		return len(s) / 4
	}
	return len(ids)
}
