// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlfix

import (
	"regexp"
	"strings"
)

// fragileConditions are WHERE predicates that frequently over-restrict
// generated statements against real data. Broaden removes them, leading AND
// included, in the order listed. The list is fixed; it is not configuration.
var fragileConditions = []*regexp.Regexp{
	// Current-month date anchors.
	regexp.MustCompile(`(?i)\s+AND\s+TRUNC\s*\([^)]*\)\s*=\s*TRUNC\s*\(\s*SYSDATE[^)]*\)`),
	regexp.MustCompile(`(?i)\s+AND\s+TO_CHAR\s*\([^)]*\)\s*=\s*TO_CHAR\s*\(\s*SYSDATE[^)]*\)`),
	// Hard-coded organization and cost-type pins.
	regexp.MustCompile(`(?i)\s+AND\s+(?:[A-Z_][A-Z0-9_]*\.)?ORGANIZATION_ID\s*=\s*\d+`),
	regexp.MustCompile(`(?i)\s+AND\s+(?:[A-Z_][A-Z0-9_]*\.)?COST_TYPE_ID\s*=\s*\d+`),
	// Status pins that hide historical rows.
	regexp.MustCompile(`(?i)\s+AND\s+(?:[A-Z_][A-Z0-9_]*\.)?FLOW_STATUS_CODE\s*=\s*'[^']*'`),
	regexp.MustCompile(`(?i)\s+AND\s+(?:[A-Z_][A-Z0-9_]*\.)?ENABLED_FLAG\s*=\s*'[^']*'`),
}

// Broaden relaxes over-restrictive filters so a zero-row result can be
// retried with a wider net: current-month date anchors are widened to a
// trailing twelve-month window and the known fragile conditions are removed.
// Returns the broadened statement and whether anything changed.
func Broaden(sql string) (string, bool) {
	original := sql
	terminated := strings.HasSuffix(strings.TrimSpace(sql), ";")
	sql = strings.TrimSuffix(strings.TrimSpace(sql), ";")
	sql = broadenRestrictiveDates(sql)
	sql = StripFragileConditions(sql)
	sql = cleanupCosmetics(sql)
	if terminated {
		sql += ";"
	}
	return sql, sql != original
}

// StripFragileConditions removes the fixed set of known-fragile WHERE
// conditions. Used both by Broaden and by the engine's compatibility chain.
func StripFragileConditions(sql string) string {
	for _, re := range fragileConditions {
		sql = re.ReplaceAllString(sql, "")
	}
	return cleanupCosmetics(sql)
}
