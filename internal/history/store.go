// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package history records every terminal processing result to a local SQLite
// database for the /v1/history and /v1/stats endpoints. Writes are
// asynchronous; the pipeline never blocks on history.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"
)

// Record is one terminal processing result.
type Record struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Query          string    `json:"query"`
	SQL            string    `json:"sql"`
	ProcessingMode string    `json:"processing_mode"`
	ModelUsed      string    `json:"model_used,omitempty"`
	Module         string    `json:"module"`
	Database       string    `json:"database"`
	RowCount       int       `json:"row_count"`
	Confidence     float64   `json:"confidence"`
	ElapsedMs      int64     `json:"elapsed_ms"`
	Error          string    `json:"error,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Stats aggregates history for the stats endpoint.
type Stats struct {
	TotalQueries  int64            `json:"total_queries"`
	ByMode        map[string]int64 `json:"by_mode"`
	AvgElapsedMs  float64          `json:"avg_elapsed_ms"`
	ErrorCount    int64            `json:"error_count"`
	OldestRecord  *time.Time       `json:"oldest_record,omitempty"`
}

// Store is the SQLite-backed history sink.
type Store struct {
	db            *sql.DB
	retentionDays int

	mu      sync.Mutex
	pending chan Record
	done    chan struct{}
	wg      sync.WaitGroup
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS query_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	query TEXT NOT NULL,
	sql_text TEXT,
	processing_mode TEXT NOT NULL,
	model_used TEXT,
	module TEXT,
	database_id TEXT,
	row_count INTEGER,
	confidence REAL,
	elapsed_ms INTEGER,
	error TEXT,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_history_timestamp ON query_history(timestamp);
CREATE INDEX IF NOT EXISTS idx_history_mode ON query_history(processing_mode);
`

// Open creates (or opens) the history database and starts the async writer.
func Open(path string, retentionDays int) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history: database path cannot be empty")
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: failed to open database: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: failed to create schema: %w", err)
	}

	s := &Store{
		db:            db,
		retentionDays: retentionDays,
		pending:       make(chan Record, 256),
		done:          make(chan struct{}),
	}
	s.wg.Add(1)
	go s.writer()
	return s, nil
}

// Record queues a record for asynchronous insertion. Drops the record with a
// warning when the queue is full; history must never backpressure queries.
func (s *Store) Record(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	select {
	case s.pending <- rec:
	default:
		log.Warn("history: write queue full, dropping record")
	}
}

func (s *Store) writer() {
	defer s.wg.Done()
	for {
		select {
		case rec := <-s.pending:
			if err := s.insert(rec); err != nil {
				log.WithFields(log.Fields{"error": err}).Warn("history: insert failed")
			}
		case <-s.done:
			// Drain whatever is queued before shutting down.
			for {
				select {
				case rec := <-s.pending:
					if err := s.insert(rec); err != nil {
						log.WithFields(log.Fields{"error": err}).Warn("history: insert failed")
					}
				default:
					return
				}
			}
		}
	}
}

func (s *Store) insert(rec Record) error {
	var metadata []byte
	if len(rec.Metadata) > 0 {
		metadata, _ = json.Marshal(rec.Metadata)
	}
	_, err := s.db.Exec(
		`INSERT INTO query_history
		 (timestamp, query, sql_text, processing_mode, model_used, module, database_id, row_count, confidence, elapsed_ms, error, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp, rec.Query, rec.SQL, rec.ProcessingMode, rec.ModelUsed, rec.Module,
		rec.Database, rec.RowCount, rec.Confidence, rec.ElapsedMs, rec.Error, string(metadata),
	)
	return err
}

// Recent returns the most recent records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, query, sql_text, processing_mode, model_used, module, database_id,
		        row_count, confidence, elapsed_ms, error, metadata
		 FROM query_history ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query failed: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var sqlText, modelUsed, module, database, errMsg, metadata sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Query, &sqlText, &rec.ProcessingMode,
			&modelUsed, &module, &database, &rec.RowCount, &rec.Confidence, &rec.ElapsedMs,
			&errMsg, &metadata); err != nil {
			return nil, fmt.Errorf("history: scan failed: %w", err)
		}
		rec.SQL = sqlText.String
		rec.ModelUsed = modelUsed.String
		rec.Module = module.String
		rec.Database = database.String
		rec.Error = errMsg.String
		if metadata.String != "" {
			_ = json.Unmarshal([]byte(metadata.String), &rec.Metadata)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Aggregate computes summary statistics over the whole history.
func (s *Store) Aggregate(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByMode: make(map[string]int64)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT processing_mode, COUNT(*), AVG(elapsed_ms) FROM query_history GROUP BY processing_mode`)
	if err != nil {
		return nil, fmt.Errorf("history: stats query failed: %w", err)
	}
	defer rows.Close()

	var weightedSum float64
	for rows.Next() {
		var mode string
		var count int64
		var avg sql.NullFloat64
		if err := rows.Scan(&mode, &count, &avg); err != nil {
			return nil, fmt.Errorf("history: stats scan failed: %w", err)
		}
		stats.ByMode[mode] = count
		stats.TotalQueries += count
		weightedSum += avg.Float64 * float64(count)
		if mode == "error" {
			stats.ErrorCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if stats.TotalQueries > 0 {
		stats.AvgElapsedMs = weightedSum / float64(stats.TotalQueries)
	}

	var oldest sql.NullTime
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(timestamp) FROM query_history`).Scan(&oldest); err == nil && oldest.Valid {
		stats.OldestRecord = &oldest.Time
	}
	return stats, nil
}

// Cleanup removes records older than the retention window.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM query_history WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: cleanup failed: %w", err)
	}
	deleted, _ := res.RowsAffected()
	if deleted > 0 {
		log.WithFields(log.Fields{"deleted": deleted, "cutoff": cutoff.Format(time.RFC3339)}).Info("history: retention cleanup")
	}
	return deleted, nil
}

// Close stops the async writer and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.mu.Unlock()
	s.wg.Wait()
	return s.db.Close()
}
