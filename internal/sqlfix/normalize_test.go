// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlfix

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "fenced markdown",
			raw:  "Here is the SQL you need:\n```sql\nSELECT NAME FROM HR_OPERATING_UNITS\n```",
			want: "SELECT NAME FROM HR_OPERATING_UNITS;",
		},
		{
			name: "prose before and after",
			raw:  "Sure! Here's your query:\n\nSELECT NAME FROM HR_OPERATING_UNITS;\n\nThis query lists every operating unit.",
			want: "SELECT NAME FROM HR_OPERATING_UNITS;",
		},
		{
			name: "no statement found returns input unchanged",
			raw:  "I cannot answer that question.",
			want: "I cannot answer that question.",
		},
		{
			name: "already clean",
			raw:  "SELECT NAME FROM HR_OPERATING_UNITS;",
			want: "SELECT NAME FROM HR_OPERATING_UNITS;",
		},
		{
			name: "multiple statements truncated at first semicolon",
			raw:  "SELECT 1 FROM DUAL; SELECT 2 FROM DUAL;",
			want: "SELECT 1 FROM DUAL;",
		},
		{
			name: "semicolon inside string literal preserved",
			raw:  "SELECT NAME FROM T WHERE NAME = 'a;b'; ignore the rest",
			want: "SELECT NAME FROM T WHERE NAME = 'a;b';",
		},
		{
			name: "comment lines stripped and lines joined",
			raw:  "SELECT SEGMENT1\n-- item code\nFROM MTL_SYSTEM_ITEMS_B",
			want: "SELECT SEGMENT1 FROM MTL_SYSTEM_ITEMS_B;",
		},
		{
			name: "group by appended for aggregate projection",
			raw:  "SELECT STATUS, COUNT(*) FROM GL_JE_HEADERS",
			want: "SELECT STATUS, COUNT(*) FROM GL_JE_HEADERS GROUP BY STATUS;",
		},
		{
			name: "missing group by column appended",
			raw:  "SELECT PERIOD_NAME, STATUS, COUNT(*) FROM GL_JE_HEADERS GROUP BY PERIOD_NAME",
			want: "SELECT PERIOD_NAME, STATUS, COUNT(*) FROM GL_JE_HEADERS GROUP BY PERIOD_NAME, STATUS;",
		},
		{
			name: "compound join predicate completed",
			raw:  "SELECT MSI.SEGMENT1, CIC.ITEM_COST FROM MTL_SYSTEM_ITEMS_B MSI JOIN CST_ITEM_COSTS CIC ON MSI.INVENTORY_ITEM_ID = CIC.INVENTORY_ITEM_ID",
			want: "SELECT MSI.SEGMENT1, CIC.ITEM_COST FROM MTL_SYSTEM_ITEMS_B MSI JOIN CST_ITEM_COSTS CIC ON MSI.INVENTORY_ITEM_ID = CIC.INVENTORY_ITEM_ID AND MSI.ORGANIZATION_ID = CIC.ORGANIZATION_ID;",
		},
		{
			name: "item cost remapped with injected join",
			raw:  "SELECT MSI.SEGMENT1, MSI.ITEM_COST FROM MTL_SYSTEM_ITEMS_B MSI WHERE MSI.ORGANIZATION_ID = 204",
			want: "SELECT MSI.SEGMENT1, CIC.ITEM_COST FROM MTL_SYSTEM_ITEMS_B MSI JOIN CST_ITEM_COSTS CIC ON MSI.INVENTORY_ITEM_ID = CIC.INVENTORY_ITEM_ID AND MSI.ORGANIZATION_ID = CIC.ORGANIZATION_ID WHERE MSI.ORGANIZATION_ID = 204;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeHistoricalIntent(t *testing.T) {
	raw := "SELECT SUM(OL.ORDERED_QUANTITY) AS TOTAL_QTY FROM OE_ORDER_LINES_ALL OL WHERE TRUNC(OL.CREATION_DATE, 'MM') = TRUNC(SYSDATE, 'MM')"

	n := Normalizer{HistoricalIntent: true}
	got := n.Normalize(raw)
	want := "SELECT SUM(OL.ORDERED_QUANTITY) AS TOTAL_QTY FROM OE_ORDER_LINES_ALL OL WHERE OL.CREATION_DATE >= ADD_MONTHS(TRUNC(SYSDATE), -12);"
	if got != want {
		t.Errorf("historical Normalize = %q, want %q", got, want)
	}

	// Without historical intent the current-month filter stays.
	plain := Normalize(raw)
	if !strings.Contains(plain, "TRUNC(SYSDATE, 'MM')") {
		t.Errorf("non-historical Normalize dropped the date filter: %q", plain)
	}
}

func TestPrepare(t *testing.T) {
	n := Normalizer{}

	gen := n.Prepare("```sql\nSELECT NAME FROM HR_OPERATING_UNITS\n```", SourceAPI)
	if !gen.Valid {
		t.Fatalf("Prepare marked valid SQL invalid: %q", gen.Cleaned)
	}
	if gen.Source != SourceAPI {
		t.Errorf("Source = %q, want %q", gen.Source, SourceAPI)
	}
	if gen.Cleaned != "SELECT NAME FROM HR_OPERATING_UNITS;" {
		t.Errorf("Cleaned = %q", gen.Cleaned)
	}

	bad := n.Prepare("DROP TABLE HR_OPERATING_UNITS", SourceLocal)
	if bad.Valid {
		t.Errorf("Prepare marked DML valid: %q", bad.Cleaned)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	samples := []string{
		"SELECT NAME FROM HR_OPERATING_UNITS",
		"Here is the SQL:\n```sql\nSELECT COUNT(*) FROM MTL_ONHAND_QUANTITIES;\n```\nExplanation: counts rows.",
		"SELECT STATUS, COUNT(*) FROM GL_JE_HEADERS ORDER BY 2 DESC",
		"SELECT MSI.SEGMENT1, MSI.ITEM_COST FROM MTL_SYSTEM_ITEMS_B MSI",
		"no sql in here at all",
		"SELECT 'a; b",
		"",
	}
	for _, raw := range samples {
		once := Normalize(raw)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", raw, once, twice)
		}
	}

	properties := gopter.NewProperties(nil)
	properties.Property("normalize is idempotent", prop.ForAll(
		func(raw string) bool {
			once := Normalize(raw)
			return Normalize(once) == once
		},
		gen.AnyString(),
	))
	properties.Property("output ends with one semicolon when a statement is found", prop.ForAll(
		func(body string) bool {
			out := Normalize("SELECT " + body)
			return strings.HasSuffix(out, ";") && !strings.HasSuffix(out, ";;")
		},
		gen.AlphaString(),
	))
	properties.TestingRun(t)
}
