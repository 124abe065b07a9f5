// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package routing

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRuleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write rule file: %v", err)
	}
}

func TestRuleSetMatch(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "rules.yaml", `
rules:
  - name: warehouse
    condition: 'Lower contains "warehouse"'
    module: ERP_R12
    database: erp_r12
    priority: 10
  - name: budget
    keywords: ["budget", "forecast"]
    module: FINANCE
    database: default
    priority: 5
`)

	rs, err := LoadRules(dir)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}

	tests := []struct {
		text       string
		wantModule string
		wantOK     bool
	}{
		{"Warehouse stock levels", ModuleERP, true},
		{"budget report for Q3", ModuleFinance, true},
		{"nothing matches here", "", false},
	}
	for _, tt := range tests {
		d, ok := rs.Match(tt.text)
		if ok != tt.wantOK {
			t.Errorf("Match(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			continue
		}
		if ok && d.Module != tt.wantModule {
			t.Errorf("Match(%q) module = %q, want %q", tt.text, d.Module, tt.wantModule)
		}
	}
}

func TestRuleSetPriority(t *testing.T) {
	dir := t.TempDir()
	// Both rules match "warehouse budget"; the higher priority must win.
	writeRuleFile(t, dir, "a.yaml", `
rules:
  - name: low
    keywords: ["warehouse"]
    module: FINANCE
    database: default
    priority: 1
`)
	writeRuleFile(t, dir, "b.yaml", `
rules:
  - name: high
    keywords: ["warehouse"]
    module: ERP_R12
    database: erp_r12
    priority: 100
`)

	rs, err := LoadRules(dir)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	d, ok := rs.Match("warehouse report")
	if !ok || d.Module != ModuleERP {
		t.Errorf("Match = %+v ok=%v, want high-priority ERP rule", d, ok)
	}
}

func TestRuleSetInvalidConditionSkipped(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "rules.yaml", `
rules:
  - name: broken
    condition: 'Lower contains'
    module: ERP_R12
    database: erp_r12
  - name: working
    keywords: ["stock"]
    module: ERP_R12
    database: erp_r12
`)

	rs, err := LoadRules(dir)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if _, ok := rs.Match("stock levels"); !ok {
		t.Errorf("working rule should still match after the broken one is skipped")
	}
}

func TestRuleSetReload(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "rules.yaml", `
rules:
  - name: first
    keywords: ["alpha"]
    module: ERP_R12
    database: erp_r12
`)

	rs, err := LoadRules(dir)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if _, ok := rs.Match("alpha"); !ok {
		t.Fatalf("expected initial rule to match")
	}

	writeRuleFile(t, dir, "rules.yaml", `
rules:
  - name: second
    keywords: ["beta"]
    module: FINANCE
    database: default
`)
	if err := rs.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, ok := rs.Match("alpha"); ok {
		t.Errorf("old rule still matches after reload")
	}
	if _, ok := rs.Match("beta"); !ok {
		t.Errorf("new rule does not match after reload")
	}
}

func TestRouterUsesRuleSet(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "rules.yaml", `
rules:
  - name: shipping
    condition: 'Lower contains "shipment" and Length < 10'
    module: ERP_R12
    database: erp_r12
`)
	rs, err := LoadRules(dir)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}

	r := New(stubClassifier{err: os.ErrClosed}, rs, "", "")
	d := r.Route("late shipment status", "", "")
	if d.Tier != TierPattern || d.Module != ModuleERP || d.Confidence != 0.85 {
		t.Errorf("Route = %+v, want rule-backed pattern tier", d)
	}
}
