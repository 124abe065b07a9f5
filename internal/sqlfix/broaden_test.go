// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlfix

import "testing"

func TestBroaden(t *testing.T) {
	tests := []struct {
		name        string
		sql         string
		want        string
		wantChanged bool
	}{
		{
			name:        "organization pin removed",
			sql:         "SELECT NAME FROM HR_OPERATING_UNITS WHERE DATE_FROM IS NOT NULL AND ORGANIZATION_ID = 204;",
			want:        "SELECT NAME FROM HR_OPERATING_UNITS WHERE DATE_FROM IS NOT NULL;",
			wantChanged: true,
		},
		{
			name:        "qualified organization pin removed",
			sql:         "SELECT MSI.SEGMENT1 FROM MTL_SYSTEM_ITEMS_B MSI WHERE MSI.SEGMENT1 IS NOT NULL AND MSI.ORGANIZATION_ID = 204;",
			want:        "SELECT MSI.SEGMENT1 FROM MTL_SYSTEM_ITEMS_B MSI WHERE MSI.SEGMENT1 IS NOT NULL;",
			wantChanged: true,
		},
		{
			name:        "status pin removed",
			sql:         "SELECT * FROM OE_ORDER_HEADERS_ALL WHERE ORDERED_DATE IS NOT NULL AND FLOW_STATUS_CODE = 'BOOKED';",
			want:        "SELECT * FROM OE_ORDER_HEADERS_ALL WHERE ORDERED_DATE IS NOT NULL;",
			wantChanged: true,
		},
		{
			name:        "current month anchor widened",
			sql:         "SELECT COUNT(*) FROM OE_ORDER_HEADERS_ALL WHERE TO_CHAR(ORDERED_DATE, 'YYYY-MM') = TO_CHAR(SYSDATE, 'YYYY-MM');",
			want:        "SELECT COUNT(*) FROM OE_ORDER_HEADERS_ALL WHERE ORDERED_DATE >= ADD_MONTHS(TRUNC(SYSDATE), -12);",
			wantChanged: true,
		},
		{
			name:        "sole where condition untouched",
			sql:         "SELECT COUNT(*) FROM MTL_ONHAND_QUANTITIES WHERE ORGANIZATION_ID = 204;",
			want:        "SELECT COUNT(*) FROM MTL_ONHAND_QUANTITIES WHERE ORGANIZATION_ID = 204;",
			wantChanged: false,
		},
		{
			name:        "nothing fragile",
			sql:         "SELECT NAME FROM HR_OPERATING_UNITS;",
			want:        "SELECT NAME FROM HR_OPERATING_UNITS;",
			wantChanged: false,
		},
		{
			name:        "unterminated statement stays unterminated",
			sql:         "SELECT NAME FROM HR_OPERATING_UNITS WHERE 1 = 1 AND ENABLED_FLAG = 'Y'",
			want:        "SELECT NAME FROM HR_OPERATING_UNITS WHERE 1 = 1",
			wantChanged: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Broaden(tt.sql)
			if got != tt.want {
				t.Errorf("Broaden(%q) = %q, want %q", tt.sql, got, tt.want)
			}
			if changed != tt.wantChanged {
				t.Errorf("Broaden(%q) changed = %v, want %v", tt.sql, changed, tt.wantChanged)
			}
		})
	}
}

func TestStripFragileConditions(t *testing.T) {
	// Conditions are only removed together with a leading AND; a condition
	// anchoring the WHERE clause stays.
	sql := "SELECT 1 FROM T WHERE ENABLED_FLAG = 'Y' AND COST_TYPE_ID = 1 AND ORGANIZATION_ID = 204"
	got := StripFragileConditions(sql)
	want := "SELECT 1 FROM T WHERE ENABLED_FLAG = 'Y'"
	if got != want {
		t.Errorf("StripFragileConditions(%q) = %q, want %q", sql, got, want)
	}
}

func TestBroadenIdempotent(t *testing.T) {
	sql := "SELECT NAME FROM HR_OPERATING_UNITS WHERE DATE_FROM IS NOT NULL AND ORGANIZATION_ID = 204;"
	once, changed := Broaden(sql)
	if !changed {
		t.Fatalf("Broaden reported no change for %q", sql)
	}
	twice, changed := Broaden(once)
	if changed || twice != once {
		t.Errorf("Broaden not idempotent: %q -> %q", once, twice)
	}
}
