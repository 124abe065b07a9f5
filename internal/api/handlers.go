// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/traylinx/sqlbridge/internal/engine"
	"github.com/traylinx/sqlbridge/internal/hybrid"
)

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query    string `json:"query" binding:"required"`
	Mode     string `json:"mode"`
	Database string `json:"database"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	result := s.orchestrator.Process(ctx, hybrid.Request{
		RequestID:    c.GetString("request_id"),
		Query:        req.Query,
		ExplicitMode: req.Mode,
		ExplicitDB:   req.Database,
		Page:         req.Page,
		PageSize:     req.PageSize,
		Cancelled:    contextToken(ctx),
	})

	status := http.StatusOK
	if result.Mode == hybrid.ModeError {
		status = http.StatusInternalServerError
		if result.Cancelled {
			// Client went away; 499 in the access log, nobody reads the body.
			status = 499
		}
	}
	c.JSON(status, result)
}

// contextToken adapts a context to the engine's cooperative token.
func contextToken(ctx interface{ Done() <-chan struct{} }) engine.Token {
	return func() bool {
		select {
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}
}

func (s *Server) handleStats(c *gin.Context) {
	payload := gin.H{"processing": s.orchestrator.Stats().Snapshot()}
	if s.historyStore != nil {
		if agg, err := s.historyStore.Aggregate(c.Request.Context()); err == nil {
			payload["history"] = agg
		}
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.historyStore == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "history is disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := s.historyStore.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// ExportRequest is the body of POST /v1/export: a query processed like
// /v1/query whose result set is uploaded as CSV.
type ExportRequest struct {
	Query    string `json:"query" binding:"required"`
	Mode     string `json:"mode"`
	Database string `json:"database"`
	PageSize int    `json:"page_size"`
}

func (s *Server) handleExport(c *gin.Context) {
	if s.exporter == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "export is disabled"})
		return
	}
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	result := s.orchestrator.Process(ctx, hybrid.Request{
		RequestID:    c.GetString("request_id"),
		Query:        req.Query,
		ExplicitMode: req.Mode,
		ExplicitDB:   req.Database,
		PageSize:     req.PageSize,
		Cancelled:    contextToken(ctx),
	})
	if result.Mode == hybrid.ModeError || result.Result == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": result.Error, "processing_mode": result.Mode})
		return
	}

	object, err := s.exporter.ExportCSV(ctx, result.Result.Columns, result.Result.Rows)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"object":          object,
		"row_count":       result.Result.RowCount,
		"processing_mode": result.Mode,
	})
}
