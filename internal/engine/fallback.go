// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/sqlbridge/internal/sqlfix"
)

// reservedAliasRe matches column aliases that collide with Oracle reserved
// words. These execute fine on dev databases and then fail on Oracle with
// ORA-00923.
var reservedAliasRe = regexp.MustCompile(`(?i)\s+AS\s+(COUNT|SIZE|DATE|NUMBER|LEVEL|DESC|ORDER)\b`)

// dialectErrorPatterns identify errors the compatibility chain can resolve by
// trying another statement variant. Driver errors are matched by message
// content only; go-ora does not expose structured codes for all of them.
var dialectErrorPatterns = []string{
	"ora-00933", // SQL command not properly ended
	"ora-00923", // FROM keyword not found where expected
	"ora-00936", // missing expression
	"ora-00904", // invalid identifier
	"ora-00972", // identifier is too long
	"ora-01747", // invalid column specification
	"ora-00907", // missing right parenthesis
	"syntax error",
	"near \";\"",
}

// isDialectError reports whether an error looks like a dialect/shape problem
// the fallback chain may resolve, as opposed to a transient failure worth a
// full retry.
func isDialectError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range dialectErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// variant is one entry of the compatibility chain.
type variant struct {
	name string
	sql  string
}

// compatibilityVariants builds the ordered chain of statement rewrites for
// one execution attempt. The final SELECT 1 probe is appended by the caller
// because it is diagnostic only and never changes the outcome.
func compatibilityVariants(stmt string) []variant {
	base := strings.TrimSpace(stmt)
	bare := strings.TrimSuffix(base, ";")

	variants := []variant{
		{name: "as-is", sql: base},
		{name: "terminated", sql: bare + ";"},
	}
	if base == bare+";" {
		variants[1].sql = bare
		variants[1].name = "unterminated"
	}
	if reservedAliasRe.MatchString(bare) {
		variants = append(variants,
			variant{name: "alias-removed", sql: reservedAliasRe.ReplaceAllString(bare, "")},
			variant{name: "alias-quoted", sql: reservedAliasRe.ReplaceAllString(bare, ` AS "$1"`)},
		)
	}
	if stripped := sqlfix.StripFragileConditions(bare); stripped != bare {
		variants = append(variants, variant{name: "conditions-stripped", sql: stripped})
	}
	return variants
}

// runChain executes the compatibility chain: each variant in order, first
// success wins. Every variant failure is classified; a non-dialect failure
// stops the chain immediately. When all variants fail, the FIRST error is
// returned and a SELECT 1 probe runs purely for diagnostics.
func runChain(ctx context.Context, db *sql.DB, stmt string, cancelled Token) (string, []string, error) {
	var firstErr error
	for _, v := range compatibilityVariants(stmt) {
		if cancelled() {
			return "", nil, ErrCancelled
		}
		columns, err := probeColumns(ctx, db, v.sql)
		if err == nil {
			if v.name != "as-is" {
				log.WithFields(log.Fields{"variant": v.name}).Debug("engine: compatibility variant succeeded")
			}
			return v.sql, columns, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if !isDialectError(err) {
			break
		}
		log.WithFields(log.Fields{"variant": v.name, "error": err}).Debug("engine: compatibility variant failed")
	}

	// Sanity probe: distinguishes a broken statement from a broken
	// connection in the logs. The original error is returned regardless.
	if !cancelled() {
		if _, err := probeColumns(ctx, db, "SELECT 1 FROM DUAL"); err != nil {
			log.WithFields(log.Fields{"error": err}).Warn("engine: connection sanity probe failed")
		}
	}
	return "", nil, firstErr
}

// probeColumns executes a statement and returns its column names without
// materializing rows.
func probeColumns(ctx context.Context, db *sql.DB, stmt string) ([]string, error) {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	return columns, rows.Err()
}
