// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package engine executes validated SQL with bounded retries, an ordered
// Oracle-compatibility fallback chain, pagination, and cooperative
// cancellation checkpoints.
//
// Cancellation is advisory: the engine stops issuing new driver calls and
// fails at the next checkpoint, but an already-dispatched driver call cannot
// be interrupted and is allowed to complete in the background; its result is
// discarded.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/sqlbridge/internal/config"
	"github.com/traylinx/sqlbridge/internal/sqlfix"
)

// ErrCancelled is returned when the caller's cancellation token fires at a
// checkpoint. It is never retried.
var ErrCancelled = errors.New("engine: query cancelled")

// Token is the cooperative cancellation predicate. It is owned by the caller
// and read-only to the engine; a nil Token never cancels.
type Token func() bool

// never is the no-op token used when the caller passes nil.
func never() bool { return false }

// Engine runs statements against a database handle.
type Engine struct {
	maxAttempts  int
	pageSize     int
	maxPageSize  int
	queryTimeout time.Duration
	countProbe   bool

	// sleep is injectable for tests; defaults to time.Sleep.
	sleep func(time.Duration)
}

// New creates an engine from configuration.
func New(cfg config.EngineConfig) *Engine {
	return &Engine{
		maxAttempts:  cfg.MaxAttempts,
		pageSize:     cfg.PageSize,
		maxPageSize:  cfg.MaxPageSize,
		queryTimeout: cfg.QueryTimeout,
		countProbe:   cfg.CountProbe,
		sleep:        time.Sleep,
	}
}

// Execute runs a statement with retries and pagination. page is 1-based;
// pageSize 0 uses the configured default. On persistent failure the last
// attempt's error propagates; cancellation propagates immediately.
func (e *Engine) Execute(ctx context.Context, db *sql.DB, stmt string, page, pageSize int, cancelled Token) (*Result, error) {
	if cancelled == nil {
		cancelled = never
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = e.pageSize
	}
	if pageSize > e.maxPageSize {
		pageSize = e.maxPageSize
	}

	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		result, err := e.executeOnce(ctx, db, stmt, page, pageSize, cancelled)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrCancelled) {
			return nil, err
		}
		lastErr = err

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.WithFields(log.Fields{"attempt": attempt + 1, "backoff": backoff, "error": err}).Warn("engine: attempt failed")
		e.sleep(backoff)
	}
	return nil, fmt.Errorf("engine: query failed after %d attempts: %w", e.maxAttempts, lastErr)
}

// executeOnce is a single attempt: compatibility chain, count probe,
// paginated fetch, zero-row broadening, formatting.
func (e *Engine) executeOnce(ctx context.Context, db *sql.DB, stmt string, page, pageSize int, cancelled Token) (*Result, error) {
	// Checkpoint: before execution.
	if cancelled() {
		return nil, ErrCancelled
	}

	qctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	executedSQL, columns, err := runChain(qctx, db, stmt, cancelled)
	if err != nil {
		return nil, err
	}

	totalRows := e.estimateTotal(qctx, db, executedSQL, pageSize)

	// Checkpoint: before the paginated sub-query.
	if cancelled() {
		return nil, ErrCancelled
	}

	rows, err := e.fetchPage(qctx, db, executedSQL, page, pageSize, columns, cancelled)
	if err != nil {
		return nil, err
	}

	broadened := false
	if len(rows) == 0 && page == 1 {
		// Zero-row page: try the shared broadening heuristic once and keep
		// the broadened rows only when they are non-empty.
		if wider, changed := sqlfix.Broaden(executedSQL); changed {
			if cancelled() {
				return nil, ErrCancelled
			}
			widerSQL, widerCols, werr := runChain(qctx, db, wider, cancelled)
			if werr == nil {
				widerRows, werr := e.fetchPage(qctx, db, widerSQL, page, pageSize, widerCols, cancelled)
				if werr == nil && len(widerRows) > 0 {
					log.WithFields(log.Fields{"rows": len(widerRows)}).Info("engine: broadened statement recovered rows")
					executedSQL = widerSQL
					columns = widerCols
					rows = widerRows
					broadened = true
					totalRows = e.estimateTotal(qctx, db, executedSQL, pageSize)
				}
			}
		}
	}

	if totalRows < len(rows) {
		totalRows = (page-1)*pageSize + len(rows)
	}

	return &Result{
		Columns:     columns,
		Rows:        rows,
		RowCount:    len(rows),
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  TotalPagesFor(totalRows, pageSize),
		TotalRows:   totalRows,
		Truncated:   totalRows > page*pageSize,
		Broadened:   broadened,
		ExecutedSQL: executedSQL,
	}, nil
}

// estimateTotal wraps the statement in COUNT(*). Best-effort: on failure it
// samples up to sampleCap rows and reports that count.
func (e *Engine) estimateTotal(ctx context.Context, db *sql.DB, stmt string, pageSize int) int {
	bare := strings.TrimSuffix(strings.TrimSpace(stmt), ";")
	if e.countProbe {
		var total int
		countSQL := fmt.Sprintf("SELECT COUNT(*) FROM (%s)", bare)
		if err := db.QueryRowContext(ctx, countSQL).Scan(&total); err == nil {
			return total
		} else {
			log.WithFields(log.Fields{"error": err}).Debug("engine: count probe failed, sampling instead")
		}
	}

	sampleCap := pageSize * 4
	if sampleCap < 100 {
		sampleCap = 100
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf("%s OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", bare, sampleCap))
	if err != nil {
		return 0
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	return count
}

// fetchPage re-issues the statement with OFFSET/FETCH NEXT and materializes
// the page. Cancellation is checked before the driver call and every
// materialized batch of rows.
func (e *Engine) fetchPage(ctx context.Context, db *sql.DB, stmt string, page, pageSize int, columns []string, cancelled Token) ([][]string, error) {
	// Checkpoint: during pagination.
	if cancelled() {
		return nil, ErrCancelled
	}

	bare := strings.TrimSuffix(strings.TrimSpace(stmt), ";")
	offset := (page - 1) * pageSize
	pagedSQL := fmt.Sprintf("%s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", bare, offset, pageSize)

	rows, err := db.QueryContext(ctx, pagedSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([][]string, 0, pageSize)
	for rows.Next() {
		// Checkpoint: during row materialization.
		if len(out)%100 == 0 && cancelled() {
			return nil, ErrCancelled
		}
		row, err := scanRow(rows, len(columns))
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
