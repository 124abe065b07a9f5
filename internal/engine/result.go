// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"database/sql"
	"fmt"
	"math"
	"time"
)

// Result is the outcome of running a statement: formatted rows plus
// pagination metadata. RowCount always equals len(Rows); TotalPages is
// ceil(TotalRows / PageSize).
type Result struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	RowCount  int        `json:"row_count"`
	Page      int        `json:"current_page"`
	PageSize  int        `json:"page_size"`
	TotalPages int       `json:"total_pages"`
	TotalRows int        `json:"total_rows_available"`
	Truncated bool       `json:"truncated"`
	// Broadened reports that the zero-row broadening heuristic substituted a
	// relaxed statement for this page.
	Broadened bool `json:"broadened,omitempty"`
	// ExecutedSQL is the statement variant that actually ran.
	ExecutedSQL string `json:"executed_sql,omitempty"`
}

// TotalPagesFor computes ceil(totalRows/pageSize) with a floor of 1 page for
// non-empty row counts and 0 for empty.
func TotalPagesFor(totalRows, pageSize int) int {
	if pageSize <= 0 || totalRows <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalRows) / float64(pageSize)))
}

// dateFormat is the fixed display format for date and timestamp values.
const dateFormat = "2006-01-02 15:04:05"

// formatValue renders one driver value for display. Dates become fixed-format
// strings, integral floats become integers, NULL becomes the empty string,
// and LOB byte slices are read into memory as text.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(dateFormat)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case float32:
		return formatValue(float64(val))
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// scanRow materializes the current row of rows into formatted strings.
func scanRow(rows *sql.Rows, columnCount int) ([]string, error) {
	raw := make([]interface{}, columnCount)
	ptrs := make([]interface{}, columnCount)
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	formatted := make([]string, columnCount)
	for i, v := range raw {
		formatted[i] = formatValue(v)
	}
	return formatted, nil
}
