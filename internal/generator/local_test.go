// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/traylinx/sqlbridge/internal/schema"
)

func TestLocalGenerateSQL(t *testing.T) {
	l := NewLocal(schema.NewProvider())

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "count question",
			query: "how many items are there",
			want:  "SELECT COUNT(*) AS TOTAL FROM MTL_SYSTEM_ITEMS_B;",
		},
		{
			name:  "list question",
			query: "list operating units",
			want:  "SELECT ORGANIZATION_ID, NAME, DATE_FROM FROM HR_OPERATING_UNITS;",
		},
		{
			name:  "list with trailing filter",
			query: "list invoices for ACME",
			want:  "SELECT INVOICE_ID, INVOICE_NUM, INVOICE_AMOUNT, INVOICE_DATE FROM AP_INVOICES_ALL WHERE UPPER(INVOICE_NUM) LIKE UPPER('%ACME%');",
		},
		{
			name:  "count ignores trailing filter",
			query: "how many invoices for ACME",
			want:  "SELECT COUNT(*) AS TOTAL FROM AP_INVOICES_ALL;",
		},
		{
			name:  "statement question without a verb",
			query: "onhand stock by subinventory",
			want:  "SELECT INVENTORY_ITEM_ID, ORGANIZATION_ID, SUBINVENTORY_CODE, TRANSACTION_QUANTITY FROM MTL_ONHAND_QUANTITIES;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := l.GenerateSQL(context.Background(), tt.query, "")
			if !resp.Success {
				t.Fatalf("GenerateSQL(%q) failed: %s", tt.query, resp.Error)
			}
			if resp.Content != tt.want {
				t.Errorf("GenerateSQL(%q) = %q, want %q", tt.query, resp.Content, tt.want)
			}
		})
	}
}

func TestLocalGenerateSQLNoMatch(t *testing.T) {
	l := NewLocal(schema.NewProvider())
	resp := l.GenerateSQL(context.Background(), "hello world foo", "")
	if resp.Success {
		t.Fatalf("expected failure for an unmatchable question, got %q", resp.Content)
	}
	if !strings.Contains(resp.Error, "could not match") {
		t.Errorf("Error = %q", resp.Error)
	}
}

func TestEscapeLiteral(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ACME", "ACME"},
		{"O'Brien", "O''Brien"},
		{"a''b", "a''''b"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := escapeLiteral(tt.in); got != tt.want {
			t.Errorf("escapeLiteral(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFallbackSummary(t *testing.T) {
	tests := []struct {
		rows int
		want string
	}{
		{0, "Found 0 records matching your query."},
		{1, "Found 1 record matching your query."},
		{5, "Found 5 records matching your query."},
	}
	for _, tt := range tests {
		if got := FallbackSummary(tt.rows); got != tt.want {
			t.Errorf("FallbackSummary(%d) = %q, want %q", tt.rows, got, tt.want)
		}
	}
}
