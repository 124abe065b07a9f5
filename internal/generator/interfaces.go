// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package generator

import (
	"context"
	"fmt"
)

// SQLGenerator is the contract the orchestrator consumes for SQL generation.
// Both Client and Local satisfy it.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, userQuery, schemaSummary string) Response
}

// Summarizer produces a short natural-language summary of a result set.
// Implementations must not fail: on any problem they return "" and the caller
// substitutes FallbackSummary.
type Summarizer interface {
	Summarize(ctx context.Context, userQuery string, columns []string, rows [][]string, sql string) string
}

// FallbackSummary is the deterministic summary used when summarization is
// unavailable or fails.
func FallbackSummary(rowCount int) string {
	if rowCount == 1 {
		return "Found 1 record matching your query."
	}
	return fmt.Sprintf("Found %d records matching your query.", rowCount)
}
