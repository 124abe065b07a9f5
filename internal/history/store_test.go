// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package history

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T, path string, retentionDays int) *Store {
	t.Helper()
	s, err := Open(path, retentionDays)
	if err != nil {
		t.Fatalf("Open(%q): %v", path, err)
	}
	return s
}

// waitForRecords polls until the async writer has flushed n records.
func waitForRecords(t *testing.T, s *Store, n int) []Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		recs, err := s.Recent(context.Background(), 100)
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		if len(recs) >= n {
			return recs
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d records", n)
	return nil
}

func TestStoreRecordAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s := openStore(t, path, 90)

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	s.Record(Record{
		Timestamp:      base,
		Query:          "list operating units",
		SQL:            "SELECT NAME FROM HR_OPERATING_UNITS;",
		ProcessingMode: "api",
		ModelUsed:      "gpt-test",
		Module:         "ERP_R12",
		Database:       "erp_r12",
		RowCount:       3,
		Confidence:     0.95,
		ElapsedMs:      10,
		Metadata:       map[string]string{"optimized": "true"},
	})
	s.Record(Record{
		Timestamp:      base.Add(time.Minute),
		Query:          "invoice aging",
		ProcessingMode: "local_fallback",
		ElapsedMs:      20,
	})

	recs := waitForRecords(t, s, 2)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(recs) != 2 {
		t.Fatalf("Recent returned %d records, want 2", len(recs))
	}
	// Newest first.
	if recs[0].Query != "invoice aging" || recs[1].Query != "list operating units" {
		t.Errorf("order = [%q, %q], want newest first", recs[0].Query, recs[1].Query)
	}
	first := recs[1]
	if first.SQL != "SELECT NAME FROM HR_OPERATING_UNITS;" || first.ProcessingMode != "api" ||
		first.ModelUsed != "gpt-test" || first.Module != "ERP_R12" || first.Database != "erp_r12" ||
		first.RowCount != 3 || first.ElapsedMs != 10 {
		t.Errorf("record = %+v", first)
	}
	if math.Abs(first.Confidence-0.95) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.95", first.Confidence)
	}
	if first.Metadata["optimized"] != "true" {
		t.Errorf("Metadata = %v, want optimized=true round-tripped", first.Metadata)
	}
	if !first.Timestamp.Equal(base) {
		t.Errorf("Timestamp = %v, want %v", first.Timestamp, base)
	}
}

func TestStoreCloseDrainsPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s := openStore(t, path, 0)

	for i := 0; i < 20; i++ {
		s.Record(Record{Query: "q", ProcessingMode: "api"})
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen and verify nothing queued before Close was lost.
	s = openStore(t, path, 0)
	defer s.Close()
	recs, err := s.Recent(context.Background(), 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 20 {
		t.Errorf("records after reopen = %d, want 20", len(recs))
	}
}

func TestStoreAggregate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s := openStore(t, path, 90)
	defer s.Close()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	s.Record(Record{Timestamp: base, Query: "a", ProcessingMode: "api", ElapsedMs: 10})
	s.Record(Record{Timestamp: base.Add(time.Minute), Query: "b", ProcessingMode: "api", ElapsedMs: 20})
	s.Record(Record{Timestamp: base.Add(2 * time.Minute), Query: "c", ProcessingMode: "error", ElapsedMs: 30, Error: "boom"})
	waitForRecords(t, s, 3)

	stats, err := s.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if stats.TotalQueries != 3 {
		t.Errorf("TotalQueries = %d, want 3", stats.TotalQueries)
	}
	if stats.ByMode["api"] != 2 || stats.ByMode["error"] != 1 {
		t.Errorf("ByMode = %v", stats.ByMode)
	}
	if math.Abs(stats.AvgElapsedMs-20.0) > 1e-9 {
		t.Errorf("AvgElapsedMs = %v, want 20.0", stats.AvgElapsedMs)
	}
	if stats.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", stats.ErrorCount)
	}
}

func TestStoreCleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s := openStore(t, path, 90)
	defer s.Close()

	s.Record(Record{Timestamp: time.Now().AddDate(0, 0, -100), Query: "old", ProcessingMode: "api"})
	s.Record(Record{Timestamp: time.Now(), Query: "fresh", ProcessingMode: "api"})
	waitForRecords(t, s, 2)

	deleted, err := s.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	recs, err := s.Recent(context.Background(), 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 1 || recs[0].Query != "fresh" {
		t.Errorf("remaining = %+v, want only the fresh record", recs)
	}
}

func TestStoreCleanupDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s := openStore(t, path, 0)
	defer s.Close()

	s.Record(Record{Timestamp: time.Now().AddDate(0, 0, -365), Query: "ancient", ProcessingMode: "api"})
	waitForRecords(t, s, 1)

	deleted, err := s.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0 with retention disabled", deleted)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open("", 90); err == nil {
		t.Errorf("Open(\"\") should fail")
	}
}
