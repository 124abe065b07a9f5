// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlfix

import (
	"fmt"
	"regexp"
	"strings"
)

var aggregateRe = regexp.MustCompile(`(?i)\b(SUM|COUNT|AVG|MIN|MAX)\s*\(`)

// repairGroupBy ensures every non-aggregate projected expression appears in
// GROUP BY when the projection carries an aggregate. Oracle raises ORA-00979
// otherwise; generators drop columns from GROUP BY constantly.
func repairGroupBy(sql string) string {
	upper := strings.ToUpper(sql)
	selectIdx := strings.Index(upper, "SELECT")
	fromIdx := topLevelIndex(sql, "FROM")
	if selectIdx != 0 || fromIdx < 0 {
		return sql
	}
	projection := sql[selectIdx+len("SELECT") : fromIdx]
	if !aggregateRe.MatchString(projection) {
		return sql
	}

	var plain []string
	for _, item := range splitTopLevel(projection, ',') {
		item = strings.TrimSpace(item)
		if item == "" || item == "*" || aggregateRe.MatchString(item) {
			continue
		}
		plain = append(plain, stripAlias(item))
	}
	if len(plain) == 0 {
		return sql
	}

	groupIdx := topLevelIndex(sql, "GROUP BY")
	if groupIdx < 0 {
		clause := " GROUP BY " + strings.Join(plain, ", ")
		insertAt := len(sql)
		for _, kw := range []string{"HAVING", "ORDER BY"} {
			if idx := topLevelIndex(sql, kw); idx >= 0 && idx < insertAt {
				insertAt = idx
			}
		}
		if insertAt == len(sql) {
			return sql + clause
		}
		return strings.TrimRight(sql[:insertAt], " ") + clause + " " + sql[insertAt:]
	}

	clauseEnd := len(sql)
	for _, kw := range []string{"HAVING", "ORDER BY"} {
		if idx := topLevelIndex(sql, kw); idx > groupIdx && idx < clauseEnd {
			clauseEnd = idx
		}
	}
	clause := sql[groupIdx+len("GROUP BY") : clauseEnd]
	existing := make(map[string]bool)
	for _, item := range splitTopLevel(clause, ',') {
		existing[strings.ToUpper(strings.TrimSpace(item))] = true
	}
	var missing []string
	for _, col := range plain {
		if !existing[strings.ToUpper(col)] {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return sql
	}
	appended := strings.TrimRight(sql[:clauseEnd], " ") + ", " + strings.Join(missing, ", ")
	if clauseEnd < len(sql) {
		appended += " " + sql[clauseEnd:]
	}
	return appended
}

// compoundKeyPairs are table pairs joined on the item/organization compound
// natural key. Generators routinely emit only the item half of the predicate,
// which silently fans out rows across organizations.
var compoundKeyPairs = [][2]string{
	{"MTL_SYSTEM_ITEMS_B", "CST_ITEM_COSTS"},
	{"MTL_SYSTEM_ITEMS_B", "MTL_ONHAND_QUANTITIES"},
}

// repairJoinPredicates synthesizes the missing half of a compound-key join
// predicate between known table pairs.
func repairJoinPredicates(sql string) string {
	for _, pair := range compoundKeyPairs {
		leftAlias := tableAlias(sql, pair[0])
		rightAlias := tableAlias(sql, pair[1])
		if leftAlias == "" || rightAlias == "" {
			continue
		}
		itemHalf := predicateRe(leftAlias, rightAlias, "INVENTORY_ITEM_ID")
		orgHalf := predicateRe(leftAlias, rightAlias, "ORGANIZATION_ID")

		itemLoc := itemHalf.FindStringIndex(sql)
		orgLoc := orgHalf.FindStringIndex(sql)
		switch {
		case itemLoc != nil && orgLoc == nil:
			insert := fmt.Sprintf(" AND %s.ORGANIZATION_ID = %s.ORGANIZATION_ID", leftAlias, rightAlias)
			sql = sql[:itemLoc[1]] + insert + sql[itemLoc[1]:]
		case orgLoc != nil && itemLoc == nil:
			insert := fmt.Sprintf(" AND %s.INVENTORY_ITEM_ID = %s.INVENTORY_ITEM_ID", leftAlias, rightAlias)
			sql = sql[:orgLoc[1]] + insert + sql[orgLoc[1]:]
		}
	}
	return sql
}

// repairCostColumn rewrites ITEM_COST referenced on the item master to
// CST_ITEM_COSTS, injecting the cost join once if it is absent. ITEM_COST
// only exists on CST_ITEM_COSTS; generators hang it off MTL_SYSTEM_ITEMS_B.
func repairCostColumn(sql string) string {
	msiAlias := tableAlias(sql, "MTL_SYSTEM_ITEMS_B")
	if msiAlias == "" {
		return sql
	}
	wrongRef := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(msiAlias) + `\.ITEM_COST\b`)
	if !wrongRef.MatchString(sql) {
		return sql
	}

	costAlias := tableAlias(sql, "CST_ITEM_COSTS")
	if costAlias == "" {
		costAlias = "CIC"
		join := fmt.Sprintf(" JOIN CST_ITEM_COSTS %s ON %s.INVENTORY_ITEM_ID = %s.INVENTORY_ITEM_ID AND %s.ORGANIZATION_ID = %s.ORGANIZATION_ID",
			costAlias, msiAlias, costAlias, msiAlias, costAlias)
		insertAt := len(sql)
		for _, kw := range []string{"WHERE", "GROUP BY", "HAVING", "ORDER BY"} {
			if idx := topLevelIndex(sql, kw); idx >= 0 && idx < insertAt {
				insertAt = idx
			}
		}
		if insertAt == len(sql) {
			sql = sql + join
		} else {
			sql = strings.TrimRight(sql[:insertAt], " ") + join + " " + sql[insertAt:]
		}
	}
	return wrongRef.ReplaceAllString(sql, costAlias+".ITEM_COST")
}

// thisMonthFilters match date predicates anchored to the current month. Each
// must match including a leading AND/WHERE so removal leaves a valid clause
// for cleanupCosmetics to tidy.
var thisMonthFilters = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bTRUNC\s*\(\s*([A-Z_][A-Z0-9_.]*)\s*,\s*'MM'\s*\)\s*=\s*TRUNC\s*\(\s*SYSDATE\s*,\s*'MM'\s*\)`),
	regexp.MustCompile(`(?i)\bTO_CHAR\s*\(\s*([A-Z_][A-Z0-9_.]*)\s*,\s*'YYYY-?MM'\s*\)\s*=\s*TO_CHAR\s*\(\s*SYSDATE\s*,\s*'YYYY-?MM'\s*\)`),
	regexp.MustCompile(`(?i)\b([A-Z_][A-Z0-9_.]*)\s*>=\s*TRUNC\s*\(\s*SYSDATE\s*,\s*'MM'\s*\)`),
}

// broadenRestrictiveDates widens "this month" date filters to a trailing
// twelve-month window. Only runs when the question's intent is historical or
// sales analysis; a current-month filter there almost always yields zero rows.
func broadenRestrictiveDates(sql string) string {
	for _, re := range thisMonthFilters {
		sql = re.ReplaceAllString(sql, "$1 >= ADD_MONTHS(TRUNC(SYSDATE), -12)")
	}
	return sql
}

var (
	trailingCommaRe = regexp.MustCompile(`(?i),\s*(FROM|WHERE|GROUP BY|HAVING|ORDER BY)\b`)
	duplicateAndRe  = regexp.MustCompile(`(?i)\bAND(\s+AND)+\b`)
	whereAndRe      = regexp.MustCompile(`(?i)\bWHERE\s+AND\b`)
	danglingWhereRe = regexp.MustCompile(`(?i)\bWHERE\s*(GROUP BY|HAVING|ORDER BY|$)`)
	trailingAndRe   = regexp.MustCompile(`(?i)\b(AND|OR)\s*(GROUP BY|HAVING|ORDER BY|$)`)
)

// cleanupCosmetics repairs artifacts the other passes (or the generator) can
// leave behind: trailing commas, duplicated AND, empty WHERE clauses.
func cleanupCosmetics(sql string) string {
	sql = trailingCommaRe.ReplaceAllString(sql, " $1")
	sql = duplicateAndRe.ReplaceAllString(sql, "AND")
	sql = whereAndRe.ReplaceAllString(sql, "WHERE")
	sql = trailingAndRe.ReplaceAllString(sql, "$2")
	sql = danglingWhereRe.ReplaceAllString(sql, "$1")
	return collapseWhitespace(sql)
}

// tableAlias finds the alias a table is given in FROM/JOIN position, or the
// table name itself when unaliased. Empty when the table is absent.
func tableAlias(sql, table string) string {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(table) + `\b(?:\s+(?:AS\s+)?([A-Za-z][A-Za-z0-9_]*))?`)
	m := re.FindStringSubmatch(sql)
	if m == nil {
		return ""
	}
	alias := m[1]
	switch strings.ToUpper(alias) {
	case "", "ON", "WHERE", "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "GROUP", "ORDER", "HAVING", "SET", "UNION":
		return table
	}
	return alias
}

func predicateRe(left, right, column string) *regexp.Regexp {
	l := regexp.QuoteMeta(left)
	r := regexp.QuoteMeta(right)
	c := regexp.QuoteMeta(column)
	return regexp.MustCompile(fmt.Sprintf(`(?i)\b(?:%s\.%s\s*=\s*%s\.%s|%s\.%s\s*=\s*%s\.%s)\b`, l, c, r, c, r, c, l, c))
}

// stripAlias removes a trailing "AS alias" or bare alias from a projection item.
func stripAlias(item string) string {
	upper := strings.ToUpper(item)
	if idx := strings.LastIndex(upper, " AS "); idx >= 0 {
		return strings.TrimSpace(item[:idx])
	}
	fields := strings.Fields(item)
	if len(fields) == 2 && !strings.ContainsAny(fields[0], "(") {
		return fields[0]
	}
	return item
}

// splitTopLevel splits s on sep, ignoring separators inside parentheses and
// string literals.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inString := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			inString = !inString
		case '(':
			if !inString {
				depth++
			}
		case ')':
			if !inString {
				depth--
			}
		case sep:
			if !inString && depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// topLevelIndex finds the first occurrence of keyword outside parentheses and
// string literals, matched case-insensitively on word boundaries.
func topLevelIndex(sql, keyword string) int {
	upper := strings.ToUpper(sql)
	keyword = strings.ToUpper(keyword)
	depth := 0
	inString := false
	for i := 0; i+len(keyword) <= len(upper); i++ {
		switch upper[i] {
		case '\'':
			inString = !inString
			continue
		case '(':
			if !inString {
				depth++
			}
			continue
		case ')':
			if !inString {
				depth--
			}
			continue
		}
		if inString || depth != 0 {
			continue
		}
		if upper[i:i+len(keyword)] != keyword {
			continue
		}
		if i > 0 && isWordChar(upper[i-1]) {
			continue
		}
		end := i + len(keyword)
		if end < len(upper) && isWordChar(upper[end]) {
			continue
		}
		return i
	}
	return -1
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
