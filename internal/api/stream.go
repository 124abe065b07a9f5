// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/sqlbridge/internal/hybrid"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamEvent is one websocket frame of the streaming query endpoint.
type streamEvent struct {
	Stage  string                   `json:"stage"`
	Detail string                   `json:"detail,omitempty"`
	Result *hybrid.ProcessingResult `json:"result,omitempty"`
}

// handleQueryStream runs a query over a websocket: an accepted event, then a
// processing heartbeat while the pipeline runs, then the terminal result.
// Closing the socket cancels the query at the engine's next checkpoint.
func (s *Server) handleQueryStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var req QueryRequest
	if err := conn.ReadJSON(&req); err != nil || req.Query == "" {
		_ = writeEvent(conn, streamEvent{Stage: "error", Detail: "first frame must be a query request"})
		return
	}

	var cancelled atomic.Bool
	// Reader goroutine: any read error means the peer went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancelled.Store(true)
				return
			}
		}
	}()

	_ = writeEvent(conn, streamEvent{Stage: "accepted", Detail: req.Query})

	done := make(chan *hybrid.ProcessingResult, 1)
	go func() {
		done <- s.orchestrator.Process(c.Request.Context(), hybrid.Request{
			RequestID:    c.GetString("request_id"),
			Query:        req.Query,
			ExplicitMode: req.Mode,
			ExplicitDB:   req.Database,
			Page:         req.Page,
			PageSize:     req.PageSize,
			Cancelled:    cancelled.Load,
		})
	}()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case result := <-done:
			if err := writeEvent(conn, streamEvent{Stage: "done", Result: result}); err != nil {
				log.WithFields(log.Fields{"error": err}).Debug("api: failed to deliver stream result")
			}
			return
		case <-ticker.C:
			if cancelled.Load() {
				// The pipeline will observe the token shortly; keep waiting
				// for its terminal result so counters stay accurate.
				continue
			}
			_ = writeEvent(conn, streamEvent{Stage: "processing"})
		}
	}
}

func writeEvent(conn *websocket.Conn, ev streamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}
