// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dbconn manages the named database/sql handles queries execute
// against. Oracle is the production driver; pgx and sqlite3 back dev and
// staging DSNs with the same handle semantics.
package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	_ "github.com/sijms/go-ora/v2"     // Oracle driver
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/sqlbridge/internal/config"
)

// ErrUnknownDatabase is returned when a database id has no configured handle.
var ErrUnknownDatabase = fmt.Errorf("dbconn: unknown database id")

// Manager owns the pool of named handles.
type Manager struct {
	mu      sync.RWMutex
	handles map[string]*sql.DB
}

// Open creates handles for every configured database. Connections are pooled
// by database/sql; opening does not dial until first use.
func Open(cfgs map[string]config.DatabaseConfig) (*Manager, error) {
	m := &Manager{handles: make(map[string]*sql.DB)}
	for id, cfg := range cfgs {
		db, err := sql.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("dbconn: failed to open %q: %w", id, err)
		}
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
		m.handles[id] = db
		log.WithFields(log.Fields{"database": id, "driver": cfg.Driver}).Info("dbconn: handle registered")
	}
	return m, nil
}

// NewWithHandles wraps pre-opened handles. Used by tests and embedders that
// manage their own connections.
func NewWithHandles(handles map[string]*sql.DB) *Manager {
	m := &Manager{handles: make(map[string]*sql.DB, len(handles))}
	for id, db := range handles {
		m.handles[id] = db
	}
	return m
}

// Handle returns the handle for a database id.
func (m *Manager) Handle(id string) (*sql.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	db, ok := m.handles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDatabase, id)
	}
	return db, nil
}

// IDs returns the configured database ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Ping verifies connectivity of one handle.
func (m *Manager) Ping(ctx context.Context, id string) error {
	db, err := m.Handle(id)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases every handle. Safe to call on a partially-opened manager.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, db := range m.handles {
		if err := db.Close(); err != nil {
			log.WithFields(log.Fields{"database": id, "error": err}).Warn("dbconn: close failed")
		}
	}
	m.handles = make(map[string]*sql.DB)
}
