// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package generator

import (
	"strings"
	"testing"
)

func TestSQLPrompt(t *testing.T) {
	p, err := NewPromptBuilder(6000)
	if err != nil {
		t.Fatalf("NewPromptBuilder: %v", err)
	}
	schema := "Table HR_OPERATING_UNITS: operating units\nColumn HR_OPERATING_UNITS.NAME (VARCHAR2): name"
	system, user := p.SQLPrompt("list operating units", schema)

	if !strings.Contains(system, "Oracle") {
		t.Errorf("system prompt = %q", system)
	}
	if !strings.Contains(user, schema) {
		t.Errorf("user prompt lost the schema: %q", user)
	}
	if !strings.Contains(user, "Question: list operating units") {
		t.Errorf("user prompt lost the question: %q", user)
	}
}

func TestSQLPromptTrimsSchemaToBudget(t *testing.T) {
	p, err := NewPromptBuilder(1)
	if err != nil {
		t.Fatalf("NewPromptBuilder: %v", err)
	}
	_, user := p.SQLPrompt("list items", "line one\nline two\nline three")
	if strings.Contains(user, "line one") {
		t.Errorf("schema should be fully trimmed under an impossible budget: %q", user)
	}
	if !strings.Contains(user, "Question: list items") {
		t.Errorf("question must survive trimming: %q", user)
	}
}

func TestSQLPromptDropsTrailingLinesFirst(t *testing.T) {
	p, err := NewPromptBuilder(6000)
	if err != nil {
		t.Fatalf("NewPromptBuilder: %v", err)
	}
	// Budget that admits the system prompt plus roughly one schema line.
	tight := p.countTokens(sqlSystemPrompt) + p.countTokens("first line") + p.countTokens("q") + 1
	p.maxTokens = tight
	got := p.fitSchema("q", "first line\nsecond line\nthird line")
	if got != "first line" {
		t.Errorf("fitSchema = %q, want only the leading line kept", got)
	}
}

func TestSummaryPromptLimitsRows(t *testing.T) {
	p, err := NewPromptBuilder(6000)
	if err != nil {
		t.Fatalf("NewPromptBuilder: %v", err)
	}
	rows := [][]string{
		{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}, {"e", "5"}, {"f", "6"}, {"g", "7"},
	}
	_, user := p.SummaryPrompt("totals by unit", []string{"NAME", "TOTAL"}, rows, "SELECT 1 FROM DUAL;")

	if !strings.Contains(user, "Row count: 7") {
		t.Errorf("user prompt = %q, want full row count", user)
	}
	if !strings.Contains(user, "Row 5: e | 5") {
		t.Errorf("user prompt = %q, want fifth row included", user)
	}
	if strings.Contains(user, "Row 6") {
		t.Errorf("user prompt = %q, want at most five rows", user)
	}
	if !strings.Contains(user, "Columns: NAME, TOTAL") {
		t.Errorf("user prompt = %q, want column list", user)
	}
}
