// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api provides the HTTP boundary of sqlbridge: the query endpoint,
// health/stats/history, CSV export, and the websocket streaming variant.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/sqlbridge/internal/buildinfo"
	"github.com/traylinx/sqlbridge/internal/config"
	"github.com/traylinx/sqlbridge/internal/dbconn"
	"github.com/traylinx/sqlbridge/internal/export"
	"github.com/traylinx/sqlbridge/internal/history"
	"github.com/traylinx/sqlbridge/internal/hybrid"
)

// Server wires the handlers to their collaborators.
type Server struct {
	cfg          *config.Config
	orchestrator *hybrid.Orchestrator
	databases    *dbconn.Manager
	historyStore *history.Store
	exporter     *export.Exporter
}

// NewServer creates the API server. historyStore and exporter may be nil;
// their endpoints then report the feature as disabled.
func NewServer(cfg *config.Config, orchestrator *hybrid.Orchestrator, databases *dbconn.Manager,
	historyStore *history.Store, exporter *export.Exporter) *Server {
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		databases:    databases,
		historyStore: historyStore,
		exporter:     exporter,
	}
}

// Handler builds the gin engine with all routes and middleware.
func (s *Server) Handler() http.Handler {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestIDMiddleware(), s.loggingMiddleware(), s.compressionMiddleware())

	v1 := engine.Group("/v1")
	v1.GET("/health", s.handleHealth)

	authed := v1.Group("", s.authMiddleware())
	authed.POST("/query", s.handleQuery)
	authed.GET("/query/stream", s.handleQueryStream)
	authed.GET("/stats", s.handleStats)
	authed.GET("/history", s.handleHistory)
	authed.POST("/export", s.handleExport)

	return engine
}

// requestIDMiddleware assigns every request a short id carried through logs
// and responses.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()[:8]
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(log.Fields{
			"request_id": c.GetString("request_id"),
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}).Info("request completed")
	}
}

// authMiddleware enforces Bearer-key auth when keys are configured.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.AuthRequired() {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		key := strings.TrimPrefix(header, "Bearer ")
		if key == header {
			key = c.Query("key")
		}
		if !s.cfg.CheckAPIKey(key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	databases := gin.H{}
	for _, id := range s.databases.IDs() {
		if err := s.databases.Ping(c.Request.Context(), id); err != nil {
			databases[id] = "unreachable"
		} else {
			databases[id] = "ok"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   buildinfo.Version,
		"commit":    buildinfo.Commit,
		"databases": databases,
	})
}
