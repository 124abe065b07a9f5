// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package export uploads result sets as CSV objects to S3-compatible object
// storage.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/sqlbridge/internal/config"
)

// Exporter uploads CSV exports to a bucket.
type Exporter struct {
	client *minio.Client
	bucket string
}

// New creates an exporter from configuration.
func New(cfg config.ExportConfig) (*Exporter, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("export: failed to create client: %w", err)
	}
	return &Exporter{client: client, bucket: cfg.Bucket}, nil
}

// ExportCSV renders columns/rows to CSV and uploads it. Returns the object
// name.
func (e *Exporter) ExportCSV(ctx context.Context, columns []string, rows [][]string) (string, error) {
	payload, err := renderCSV(columns, rows)
	if err != nil {
		return "", err
	}

	object := fmt.Sprintf("results/%s/%s.csv", time.Now().UTC().Format("2006-01-02"), uuid.NewString())
	_, err = e.client.PutObject(ctx, e.bucket, object, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return "", fmt.Errorf("export: upload failed: %w", err)
	}
	log.WithFields(log.Fields{"object": object, "rows": len(rows)}).Info("export: result set uploaded")
	return object, nil
}

// renderCSV writes a header line followed by the rows.
func renderCSV(columns []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("export: failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("export: failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
