// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package generator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/traylinx/sqlbridge/internal/schema"
)

// Local is the deterministic rule-based generator. It matches a small set of
// question shapes (count, list, filter) against the schema catalog and emits
// plain SELECT statements. It backs the local_fallback and local_general
// processing modes and never performs I/O.
type Local struct {
	provider *schema.Provider
}

// NewLocal creates a local generator over the schema provider.
func NewLocal(provider *schema.Provider) *Local {
	return &Local{provider: provider}
}

var (
	countRe  = regexp.MustCompile(`(?i)\b(how many|count|number of)\b`)
	listRe   = regexp.MustCompile(`(?i)\b(list|show|display|get|give me|what are)\b`)
	filterRe = regexp.MustCompile(`(?i)\b(?:for|where|with|named|called)\s+['"]?([\w %-]+?)['"]?\s*$`)
)

// GenerateSQL builds a statement for the question, or reports failure when no
// pattern and no catalog table match. The context parameter keeps the
// signature interchangeable with the API client; it is never used.
func (l *Local) GenerateSQL(_ context.Context, userQuery, _ string) Response {
	table, ok := l.matchTable(userQuery)
	if !ok {
		return Response{Error: fmt.Sprintf("could not match query to a known table: %s", userQuery)}
	}

	var sql string
	switch {
	case countRe.MatchString(userQuery):
		sql = fmt.Sprintf("SELECT COUNT(*) AS TOTAL FROM %s", table.Name)
	case listRe.MatchString(userQuery):
		sql = fmt.Sprintf("SELECT %s FROM %s", columnList(table), table.Name)
	default:
		sql = fmt.Sprintf("SELECT %s FROM %s", columnList(table), table.Name)
	}

	if m := filterRe.FindStringSubmatch(userQuery); m != nil && !countRe.MatchString(userQuery) {
		if col, ok := textColumn(table); ok {
			sql += fmt.Sprintf(" WHERE UPPER(%s) LIKE UPPER('%%%s%%')", col, escapeLiteral(strings.TrimSpace(m[1])))
		}
	}

	return Response{Success: true, Content: sql + ";"}
}

// matchTable scores catalog tables of every database against the question and
// returns the best keyword match.
func (l *Local) matchTable(userQuery string) (schema.Table, bool) {
	lower := strings.ToLower(userQuery)
	var best schema.Table
	bestScore := 0
	for _, dbID := range []string{"erp_r12", "default"} {
		cat := l.provider.Catalog(dbID)
		if cat == nil {
			continue
		}
		for _, t := range cat.Tables {
			score := 0
			for _, kw := range t.Keywords {
				if strings.Contains(lower, strings.ToLower(kw)) {
					score += 2
				}
			}
			if strings.Contains(lower, strings.ToLower(t.Name)) {
				score += 5
			}
			if score > bestScore {
				best = t
				bestScore = score
			}
		}
	}
	return best, bestScore > 0
}

// columnList picks up to four leading columns for list-style projections.
func columnList(t schema.Table) string {
	limit := len(t.Columns)
	if limit > 4 {
		limit = 4
	}
	names := make([]string, 0, limit)
	for _, col := range t.Columns[:limit] {
		names = append(names, col.Name)
	}
	if len(names) == 0 {
		return "*"
	}
	return strings.Join(names, ", ")
}

// textColumn returns the first VARCHAR2 column, preferred for LIKE filters.
func textColumn(t schema.Table) (string, bool) {
	for _, col := range t.Columns {
		if strings.HasPrefix(strings.ToUpper(col.Type), "VARCHAR") {
			return col.Name, true
		}
	}
	return "", false
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
