// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sqlfix turns raw generator output into a single executable SQL
// statement and checks it for structural safety. Repair is a pipeline of
// independent, order-sensitive text-rewrite passes; nothing here parses SQL
// semantically, and normalization never invents SQL.
package sqlfix

import (
	"regexp"
	"strings"
)

// Source identifies which generation path produced a statement.
type Source string

const (
	// SourceAPI marks SQL produced by the external generator.
	SourceAPI Source = "api"
	// SourceLocal marks SQL produced by the local rule-based generator.
	SourceLocal Source = "local"
)

// GeneratedSQL is a candidate statement plus its origin. An invalid
// GeneratedSQL must never reach the execution engine.
type GeneratedSQL struct {
	Raw     string `json:"raw"`
	Cleaned string `json:"cleaned"`
	Source  Source `json:"source"`
	Valid   bool   `json:"valid"`
}

// Normalizer drives the normalization pipeline. HistoricalIntent widens or
// removes "this month" date filters, which spuriously empty result sets when
// the question is about historical or sales analysis.
type Normalizer struct {
	// HistoricalIntent enables the restrictive-date broadening pass.
	HistoricalIntent bool
}

// Prepare normalizes and validates raw generator output in one step.
func (n *Normalizer) Prepare(raw string, source Source) GeneratedSQL {
	cleaned := n.Normalize(raw)
	return GeneratedSQL{
		Raw:     raw,
		Cleaned: cleaned,
		Source:  source,
		Valid:   Validate(cleaned),
	}
}

// Normalize applies the full pipeline with default options.
func Normalize(raw string) string {
	n := Normalizer{}
	return n.Normalize(raw)
}

var stmtStartRe = regexp.MustCompile(`(?i)\b(SELECT|WITH)\b`)

// Normalize turns raw text into one executable statement ending in a single
// semicolon. Each step is idempotent; the whole pipeline is too. When no
// SELECT/WITH is present the input is returned unchanged so the caller can
// treat it as a generation failure.
func (n *Normalizer) Normalize(raw string) string {
	loc := stmtStartRe.FindStringIndex(raw)
	if loc == nil {
		return raw
	}
	sql := raw[loc[0]:]

	sql = stripProseLines(sql)
	sql = joinLines(sql)
	sql = truncateAtSemicolon(sql)

	for _, pass := range n.repairPasses() {
		sql = pass(sql)
	}

	sql = collapseWhitespace(sql)
	sql = strings.TrimRight(sql, "; ")
	return sql + ";"
}

// repairPasses returns the ordered dialect repair pipeline. Each pass takes
// and returns a statement without a trailing semicolon.
func (n *Normalizer) repairPasses() []func(string) string {
	passes := []func(string) string{
		repairGroupBy,
		repairJoinPredicates,
		repairCostColumn,
	}
	if n.HistoricalIntent {
		passes = append(passes, broadenRestrictiveDates)
	}
	passes = append(passes, cleanupCosmetics)
	return passes
}

var proseMarkers = []string{"explanation:", "note:", "this query", "the query", "here is", "here's"}

// stripProseLines removes markdown fences, comment lines, and explanatory
// prose lines from generator output.
func stripProseLines(sql string) string {
	// Fences appear mid-line often enough that they are cut before line
	// filtering.
	sql = strings.ReplaceAll(sql, "```sql", "\n")
	sql = strings.ReplaceAll(sql, "```", "\n")

	lines := strings.Split(sql, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "/*") {
			continue
		}
		lower := strings.ToLower(trimmed)
		prose := false
		for _, marker := range proseMarkers {
			if strings.HasPrefix(lower, marker) || strings.Contains(lower, "explanation:") || strings.Contains(lower, "note:") {
				prose = true
				break
			}
		}
		if prose {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, "\n")
}

// joinLines flattens the statement onto one line. Newlines inside generator
// output have caused accidental statement breaks downstream.
func joinLines(sql string) string {
	lines := strings.Split(sql, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, " ")
}

// truncateAtSemicolon cuts the statement at the first semicolon outside a
// string literal, dropping any trailing prose. The semicolon itself is
// dropped too; Normalize re-appends exactly one.
func truncateAtSemicolon(sql string) string {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			inString = !inString
		case ';':
			if !inString {
				return strings.TrimSpace(sql[:i])
			}
		}
	}
	return strings.TrimSpace(sql)
}

var spaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(sql string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(sql, " "))
}
