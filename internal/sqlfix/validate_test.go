// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlfix

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t", false},
		{"plain select", "SELECT * FROM T", true},
		{"lowercase select", "select name from t;", true},
		{"with clause", "WITH X AS (SELECT 1 FROM DUAL) SELECT * FROM X", true},
		{"select without from", "SELECT 1", false},
		{"update rejected", "UPDATE T SET A = 1", false},
		{"drop after semicolon", "SELECT * FROM T; DROP TABLE T", false},
		{"insert anywhere", "SELECT * FROM T WHERE ID IN (INSERT INTO X VALUES (1))", false},
		{"dml inside literal allowed", "SELECT * FROM T WHERE NOTE = 'do not DROP this'", true},
		{"unbalanced parens", "SELECT * FROM T WHERE A IN (1, 2", false},
		{"unterminated literal", "SELECT * FROM T WHERE NAME = 'abc", false},
		{"literal ellipsis", "SELECT A, B, ... FROM T", false},
		{"dangling where", "SELECT A FROM T WHERE", false},
		{"dangling order by", "SELECT A FROM T ORDER BY", false},
		{"dangling and", "SELECT A FROM T WHERE A = 1 AND", false},
		{"trailing semicolon ok", "SELECT A FROM T;", true},
		{"not a statement", "hello world", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.sql); got != tt.want {
				t.Errorf("Validate(%q) = %v, want %v", tt.sql, got, tt.want)
			}
		})
	}
}

func TestMaskStrings(t *testing.T) {
	got := maskStrings("SELECT 'DROP' FROM T")
	if got != "SELECT '____' FROM T" {
		t.Errorf("maskStrings = %q", got)
	}
}

func TestBalancedParens(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT COUNT(*) FROM T", true},
		{"SELECT (1 FROM T", false},
		{"SELECT 1) FROM T", false},
		{"SELECT ')' FROM T", true},
	}
	for _, tt := range tests {
		if got := balancedParens(tt.sql); got != tt.want {
			t.Errorf("balancedParens(%q) = %v, want %v", tt.sql, got, tt.want)
		}
	}
}
