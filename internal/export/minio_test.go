// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package export

import (
	"testing"

	"github.com/traylinx/sqlbridge/internal/config"
)

func TestRenderCSV(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    [][]string
		want    string
	}{
		{
			name:    "header and rows",
			columns: []string{"NAME", "TOTAL"},
			rows:    [][]string{{"HQ", "3"}, {"EU", "5"}},
			want:    "NAME,TOTAL\nHQ,3\nEU,5\n",
		},
		{
			name:    "values with commas and quotes are escaped",
			columns: []string{"NAME"},
			rows:    [][]string{{`Acme, "Inc"`}},
			want:    "NAME\n\"Acme, \"\"Inc\"\"\"\n",
		},
		{
			name:    "empty result keeps the header",
			columns: []string{"NAME"},
			rows:    nil,
			want:    "NAME\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderCSV(tt.columns, tt.rows)
			if err != nil {
				t.Fatalf("renderCSV: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("renderCSV = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	if _, err := New(config.ExportConfig{Endpoint: "http://bad endpoint"}); err == nil {
		t.Errorf("New with a malformed endpoint should fail")
	}
}
