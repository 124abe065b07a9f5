// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
)

// compressionMiddleware negotiates brotli or gzip response encoding for the
// JSON endpoints. Result sets are the only large payloads this service emits;
// websocket upgrades are passed through untouched.
func (s *Server) compressionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Upgrade") != "" {
			c.Next()
			return
		}
		accept := c.GetHeader("Accept-Encoding")
		switch {
		case strings.Contains(accept, "br"):
			w := brotli.NewWriterLevel(c.Writer, brotli.DefaultCompression)
			defer w.Close()
			c.Header("Content-Encoding", "br")
			c.Header("Vary", "Accept-Encoding")
			c.Writer = &compressWriter{ResponseWriter: c.Writer, compressor: w}
		case strings.Contains(accept, "gzip"):
			w := gzip.NewWriter(c.Writer)
			defer w.Close()
			c.Header("Content-Encoding", "gzip")
			c.Header("Vary", "Accept-Encoding")
			c.Writer = &compressWriter{ResponseWriter: c.Writer, compressor: w}
		}
		c.Next()
	}
}

// compressWriter routes the response body through a compressor while headers
// and status pass straight to the underlying writer.
type compressWriter struct {
	gin.ResponseWriter
	compressor io.Writer
}

func (w *compressWriter) Write(data []byte) (int, error) {
	w.Header().Del("Content-Length")
	return w.compressor.Write(data)
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}
