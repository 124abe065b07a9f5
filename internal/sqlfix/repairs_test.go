// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlfix

import (
	"reflect"
	"testing"
)

func TestRepairGroupBy(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "no aggregate untouched",
			sql:  "SELECT PERIOD_NAME, STATUS FROM GL_JE_HEADERS",
			want: "SELECT PERIOD_NAME, STATUS FROM GL_JE_HEADERS",
		},
		{
			name: "aggregate only untouched",
			sql:  "SELECT COUNT(*) FROM GL_JE_HEADERS",
			want: "SELECT COUNT(*) FROM GL_JE_HEADERS",
		},
		{
			name: "clause appended at end",
			sql:  "SELECT STATUS, COUNT(*) FROM GL_JE_HEADERS",
			want: "SELECT STATUS, COUNT(*) FROM GL_JE_HEADERS GROUP BY STATUS",
		},
		{
			name: "clause inserted before order by",
			sql:  "SELECT STATUS, COUNT(*) FROM GL_JE_HEADERS ORDER BY STATUS",
			want: "SELECT STATUS, COUNT(*) FROM GL_JE_HEADERS GROUP BY STATUS ORDER BY STATUS",
		},
		{
			name: "missing column appended to existing clause",
			sql:  "SELECT PERIOD_NAME, STATUS, COUNT(*) FROM GL_JE_HEADERS GROUP BY PERIOD_NAME",
			want: "SELECT PERIOD_NAME, STATUS, COUNT(*) FROM GL_JE_HEADERS GROUP BY PERIOD_NAME, STATUS",
		},
		{
			name: "complete clause untouched",
			sql:  "SELECT STATUS, COUNT(*) FROM GL_JE_HEADERS GROUP BY STATUS",
			want: "SELECT STATUS, COUNT(*) FROM GL_JE_HEADERS GROUP BY STATUS",
		},
		{
			name: "alias stripped from projection",
			sql:  "SELECT PERIOD_NAME AS PERIOD, COUNT(*) FROM GL_JE_HEADERS",
			want: "SELECT PERIOD_NAME, COUNT(*) FROM GL_JE_HEADERS GROUP BY PERIOD_NAME",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repairGroupBy(tt.sql); got != tt.want {
				t.Errorf("repairGroupBy(%q) = %q, want %q", tt.sql, got, tt.want)
			}
		})
	}
}

func TestRepairJoinPredicates(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "organization half added",
			sql:  "SELECT 1 FROM MTL_SYSTEM_ITEMS_B MSI JOIN CST_ITEM_COSTS CIC ON MSI.INVENTORY_ITEM_ID = CIC.INVENTORY_ITEM_ID",
			want: "SELECT 1 FROM MTL_SYSTEM_ITEMS_B MSI JOIN CST_ITEM_COSTS CIC ON MSI.INVENTORY_ITEM_ID = CIC.INVENTORY_ITEM_ID AND MSI.ORGANIZATION_ID = CIC.ORGANIZATION_ID",
		},
		{
			name: "item half added",
			sql:  "SELECT 1 FROM MTL_SYSTEM_ITEMS_B MSI JOIN CST_ITEM_COSTS CIC ON MSI.ORGANIZATION_ID = CIC.ORGANIZATION_ID",
			want: "SELECT 1 FROM MTL_SYSTEM_ITEMS_B MSI JOIN CST_ITEM_COSTS CIC ON MSI.ORGANIZATION_ID = CIC.ORGANIZATION_ID AND MSI.INVENTORY_ITEM_ID = CIC.INVENTORY_ITEM_ID",
		},
		{
			name: "complete predicate untouched",
			sql:  "SELECT 1 FROM MTL_SYSTEM_ITEMS_B MSI JOIN CST_ITEM_COSTS CIC ON MSI.INVENTORY_ITEM_ID = CIC.INVENTORY_ITEM_ID AND MSI.ORGANIZATION_ID = CIC.ORGANIZATION_ID",
			want: "SELECT 1 FROM MTL_SYSTEM_ITEMS_B MSI JOIN CST_ITEM_COSTS CIC ON MSI.INVENTORY_ITEM_ID = CIC.INVENTORY_ITEM_ID AND MSI.ORGANIZATION_ID = CIC.ORGANIZATION_ID",
		},
		{
			name: "unrelated tables untouched",
			sql:  "SELECT 1 FROM GL_JE_HEADERS H JOIN AP_INVOICES_ALL I ON H.JE_HEADER_ID = I.INVOICE_ID",
			want: "SELECT 1 FROM GL_JE_HEADERS H JOIN AP_INVOICES_ALL I ON H.JE_HEADER_ID = I.INVOICE_ID",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repairJoinPredicates(tt.sql); got != tt.want {
				t.Errorf("repairJoinPredicates(%q) = %q, want %q", tt.sql, got, tt.want)
			}
		})
	}
}

func TestRepairCostColumn(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "remap with existing cost join",
			sql:  "SELECT MSI.SEGMENT1, MSI.ITEM_COST FROM MTL_SYSTEM_ITEMS_B MSI JOIN CST_ITEM_COSTS CIC ON MSI.INVENTORY_ITEM_ID = CIC.INVENTORY_ITEM_ID",
			want: "SELECT MSI.SEGMENT1, CIC.ITEM_COST FROM MTL_SYSTEM_ITEMS_B MSI JOIN CST_ITEM_COSTS CIC ON MSI.INVENTORY_ITEM_ID = CIC.INVENTORY_ITEM_ID",
		},
		{
			name: "join injected before where",
			sql:  "SELECT MSI.ITEM_COST FROM MTL_SYSTEM_ITEMS_B MSI WHERE MSI.ORGANIZATION_ID = 204",
			want: "SELECT CIC.ITEM_COST FROM MTL_SYSTEM_ITEMS_B MSI JOIN CST_ITEM_COSTS CIC ON MSI.INVENTORY_ITEM_ID = CIC.INVENTORY_ITEM_ID AND MSI.ORGANIZATION_ID = CIC.ORGANIZATION_ID WHERE MSI.ORGANIZATION_ID = 204",
		},
		{
			name: "no item master untouched",
			sql:  "SELECT CIC.ITEM_COST FROM CST_ITEM_COSTS CIC",
			want: "SELECT CIC.ITEM_COST FROM CST_ITEM_COSTS CIC",
		},
		{
			name: "correct reference untouched",
			sql:  "SELECT MSI.SEGMENT1 FROM MTL_SYSTEM_ITEMS_B MSI",
			want: "SELECT MSI.SEGMENT1 FROM MTL_SYSTEM_ITEMS_B MSI",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repairCostColumn(tt.sql); got != tt.want {
				t.Errorf("repairCostColumn(%q) = %q, want %q", tt.sql, got, tt.want)
			}
		})
	}
}

func TestBroadenRestrictiveDates(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "trunc month anchor",
			sql:  "SELECT 1 FROM T WHERE TRUNC(CREATION_DATE, 'MM') = TRUNC(SYSDATE, 'MM')",
			want: "SELECT 1 FROM T WHERE CREATION_DATE >= ADD_MONTHS(TRUNC(SYSDATE), -12)",
		},
		{
			name: "to_char month anchor",
			sql:  "SELECT 1 FROM T WHERE TO_CHAR(ORDERED_DATE, 'YYYY-MM') = TO_CHAR(SYSDATE, 'YYYY-MM')",
			want: "SELECT 1 FROM T WHERE ORDERED_DATE >= ADD_MONTHS(TRUNC(SYSDATE), -12)",
		},
		{
			name: "month start lower bound",
			sql:  "SELECT 1 FROM T WHERE ORDERED_DATE >= TRUNC(SYSDATE, 'MM')",
			want: "SELECT 1 FROM T WHERE ORDERED_DATE >= ADD_MONTHS(TRUNC(SYSDATE), -12)",
		},
		{
			name: "unanchored date untouched",
			sql:  "SELECT 1 FROM T WHERE ORDERED_DATE >= DATE '2026-01-01'",
			want: "SELECT 1 FROM T WHERE ORDERED_DATE >= DATE '2026-01-01'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := broadenRestrictiveDates(tt.sql); got != tt.want {
				t.Errorf("broadenRestrictiveDates(%q) = %q, want %q", tt.sql, got, tt.want)
			}
		})
	}
}

func TestCleanupCosmetics(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT A, FROM T", "SELECT A FROM T"},
		{"SELECT A FROM T WHERE AND A = 1", "SELECT A FROM T WHERE A = 1"},
		{"SELECT A FROM T WHERE A = 1 AND AND B = 2", "SELECT A FROM T WHERE A = 1 AND B = 2"},
		{"SELECT A FROM T WHERE A = 1 AND ORDER BY A", "SELECT A FROM T WHERE A = 1 ORDER BY A"},
		{"SELECT A FROM T WHERE", "SELECT A FROM T"},
		{"SELECT A FROM T WHERE ORDER BY A", "SELECT A FROM T ORDER BY A"},
		{"SELECT A FROM T", "SELECT A FROM T"},
	}
	for _, tt := range tests {
		if got := cleanupCosmetics(tt.sql); got != tt.want {
			t.Errorf("cleanupCosmetics(%q) = %q, want %q", tt.sql, got, tt.want)
		}
	}
}

func TestTableAlias(t *testing.T) {
	tests := []struct {
		sql   string
		table string
		want  string
	}{
		{"SELECT 1 FROM MTL_SYSTEM_ITEMS_B MSI", "MTL_SYSTEM_ITEMS_B", "MSI"},
		{"SELECT 1 FROM MTL_SYSTEM_ITEMS_B AS MSI", "MTL_SYSTEM_ITEMS_B", "MSI"},
		{"SELECT 1 FROM MTL_SYSTEM_ITEMS_B WHERE 1 = 1", "MTL_SYSTEM_ITEMS_B", "MTL_SYSTEM_ITEMS_B"},
		{"SELECT 1 FROM MTL_SYSTEM_ITEMS_B", "MTL_SYSTEM_ITEMS_B", "MTL_SYSTEM_ITEMS_B"},
		{"SELECT 1 FROM GL_JE_HEADERS", "MTL_SYSTEM_ITEMS_B", ""},
		{"SELECT 1 FROM MTL_SYSTEM_ITEMS_B JOIN CST_ITEM_COSTS CIC ON 1 = 1", "MTL_SYSTEM_ITEMS_B", "MTL_SYSTEM_ITEMS_B"},
	}
	for _, tt := range tests {
		if got := tableAlias(tt.sql, tt.table); got != tt.want {
			t.Errorf("tableAlias(%q, %q) = %q, want %q", tt.sql, tt.table, got, tt.want)
		}
	}
}

func TestStripAlias(t *testing.T) {
	tests := []struct {
		item string
		want string
	}{
		{"PERIOD_NAME AS PERIOD", "PERIOD_NAME"},
		{"PERIOD_NAME PERIOD", "PERIOD_NAME"},
		{"PERIOD_NAME", "PERIOD_NAME"},
		{"UPPER(NAME)", "UPPER(NAME)"},
	}
	for _, tt := range tests {
		if got := stripAlias(tt.item); got != tt.want {
			t.Errorf("stripAlias(%q) = %q, want %q", tt.item, got, tt.want)
		}
	}
}

func TestSplitTopLevel(t *testing.T) {
	got := splitTopLevel("A, COUNT(B, C), 'x,y', D", ',')
	want := []string{"A", " COUNT(B, C)", " 'x,y'", " D"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitTopLevel = %#v, want %#v", got, want)
	}
}

func TestTopLevelIndex(t *testing.T) {
	sql := "SELECT (SELECT 1 FROM DUAL) FROM T WHERE NAME = 'FROM'"
	idx := topLevelIndex(sql, "FROM")
	if want := 28; idx != want {
		t.Errorf("topLevelIndex = %d, want %d", idx, want)
	}
	if idx := topLevelIndex("SELECT 1", "FROM"); idx != -1 {
		t.Errorf("topLevelIndex on absent keyword = %d, want -1", idx)
	}
}
