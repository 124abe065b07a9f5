// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hybrid

import "sync/atomic"

// Stats tracks processing counters. Instance-scoped and atomic; exposed via
// the stats endpoint.
type Stats struct {
	totalQueries  atomic.Int64
	apiProcessed  atomic.Int64
	localFallback atomic.Int64
	localGeneral  atomic.Int64
	errors        atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	TotalQueries  int64 `json:"total_queries"`
	APIProcessed  int64 `json:"api_processed"`
	LocalFallback int64 `json:"local_fallback"`
	LocalGeneral  int64 `json:"local_general"`
	Errors        int64 `json:"errors"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		TotalQueries:  s.totalQueries.Load(),
		APIProcessed:  s.apiProcessed.Load(),
		LocalFallback: s.localFallback.Load(),
		LocalGeneral:  s.localGeneral.Load(),
		Errors:        s.errors.Load(),
	}
}

func (s *Stats) record(mode Mode) {
	s.totalQueries.Add(1)
	switch mode {
	case ModeAPI:
		s.apiProcessed.Add(1)
	case ModeLocalFallback:
		s.localFallback.Add(1)
	case ModeLocalGeneral:
		s.localGeneral.Add(1)
	case ModeError:
		s.errors.Add(1)
	}
}
