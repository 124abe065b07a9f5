// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlfix

import (
	"regexp"
	"strings"
)

// dmlKeywords are rejected as standalone tokens anywhere in a statement. The
// pipeline is strictly read-only.
var dmlKeywords = []string{"DROP", "DELETE", "UPDATE", "INSERT", "CREATE", "ALTER", "TRUNCATE"}

// danglingKeywords reject a statement whose final token indicates truncated
// generation.
var danglingKeywords = map[string]bool{
	"WHERE": true, "AND": true, "OR": true, "JOIN": true, "ON": true,
	"FROM": true, "SELECT": true, "BY": true, "GROUP": true, "ORDER": true,
	"HAVING": true, "IN": true, "NOT": true, "LIKE": true, "BETWEEN": true,
	"UNION": true, "SET": true, ",": true, "=": true,
}

var dmlRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(dmlKeywords))
	for _, kw := range dmlKeywords {
		res = append(res, regexp.MustCompile(`(?i)\b`+kw+`\b`))
	}
	return res
}()

// Validate performs the structural safety and shape check. Checks run in a
// fixed order and the first failure rejects the statement. Purely textual; a
// statement that passes can still fail at execution time.
func Validate(sql string) bool {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql), ";"))
	if trimmed == "" {
		return false
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return false
	}

	if strings.HasPrefix(upper, "SELECT") && !strings.Contains(upper, "FROM") && !strings.Contains(upper, "VALUES") {
		return false
	}

	if !balancedParens(trimmed) {
		return false
	}

	// A literal ellipsis means the generator truncated its own output.
	if strings.Contains(trimmed, "...") {
		return false
	}

	masked := maskStrings(trimmed)
	for _, re := range dmlRes {
		if re.MatchString(masked) {
			return false
		}
	}

	tokens := strings.Fields(upper)
	if len(tokens) > 0 && danglingKeywords[tokens[len(tokens)-1]] {
		return false
	}

	return true
}

// balancedParens walks the statement counting parentheses outside string
// literals.
func balancedParens(sql string) bool {
	depth := 0
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			inString = !inString
		case '(':
			if !inString {
				depth++
			}
		case ')':
			if !inString {
				depth--
				if depth < 0 {
					return false
				}
			}
		}
	}
	return depth == 0 && !inString
}

// maskStrings blanks string literal contents so keyword checks cannot be
// fooled by values like 'please do not DROP this'.
func maskStrings(sql string) string {
	out := []byte(sql)
	inString := false
	for i := 0; i < len(out); i++ {
		if out[i] == '\'' {
			inString = !inString
			continue
		}
		if inString {
			out[i] = '_'
		}
	}
	return string(out)
}
