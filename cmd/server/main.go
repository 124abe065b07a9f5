// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the sqlbridge server, the
// natural-language to Oracle SQL query service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"golang.org/x/net/netutil"

	"github.com/traylinx/sqlbridge/internal/api"
	"github.com/traylinx/sqlbridge/internal/buildinfo"
	"github.com/traylinx/sqlbridge/internal/classify"
	"github.com/traylinx/sqlbridge/internal/config"
	"github.com/traylinx/sqlbridge/internal/dbconn"
	"github.com/traylinx/sqlbridge/internal/engine"
	"github.com/traylinx/sqlbridge/internal/export"
	"github.com/traylinx/sqlbridge/internal/generator"
	"github.com/traylinx/sqlbridge/internal/history"
	"github.com/traylinx/sqlbridge/internal/hybrid"
	"github.com/traylinx/sqlbridge/internal/logging"
	"github.com/traylinx/sqlbridge/internal/plugin"
	"github.com/traylinx/sqlbridge/internal/routing"
	"github.com/traylinx/sqlbridge/internal/schema"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	logging.Setup()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	openBrowser := flag.Bool("open", false, "open the service URL in the default browser")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sqlbridge %s (%s, built %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	// Local development keeps credentials in .env; missing file is fine.
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded environment from .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if err := logging.ConfigureOutput(cfg.Logging.ToFile, cfg.Logging.Dir, cfg.Logging.MaxSizeMB); err != nil {
		log.Fatalf("failed to configure logging: %v", err)
	}

	if err := run(cfg, *openBrowser || cfg.Server.OpenBrowser); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func run(cfg *config.Config, openBrowser bool) error {
	databases, err := dbconn.Open(cfg.Databases)
	if err != nil {
		return err
	}
	defer databases.Close()

	provider := schema.NewProvider()
	classifier := classify.New()

	var rules *routing.RuleSet
	if cfg.Routing.RulesDir != "" {
		rules, err = routing.LoadRules(cfg.Routing.RulesDir)
		if err != nil {
			return err
		}
		if err := rules.Watch(); err != nil {
			log.WithFields(log.Fields{"error": err}).Warn("routing rules hot-reload unavailable")
		}
		defer rules.Close()
	}
	router := routing.New(
		routing.NewSchemaClassifier(classifier, provider),
		rules,
		cfg.Routing.DefaultModule,
		cfg.Routing.DefaultDatabase,
	)

	opts := hybrid.Options{ModelName: cfg.Generator.Model}

	if cfg.Generator.BaseURL != "" {
		client, err := generator.NewClient(cfg.Generator)
		if err != nil {
			return err
		}
		opts.APIGenerator = client
		opts.Summarizer = client
	} else {
		log.Warn("no generator base-url configured; all queries take the local path")
	}

	var historyStore *history.Store
	if cfg.History.Enabled {
		historyStore, err = history.Open(cfg.History.Path, cfg.History.RetentionDays)
		if err != nil {
			return err
		}
		defer historyStore.Close()
		opts.Sink = historyStore
		go retentionLoop(historyStore)
	}

	if cfg.Plugin.Enabled {
		rewriter, err := plugin.NewLuaEngine(true, cfg.Plugin.Dir)
		if err != nil {
			return err
		}
		opts.Rewriter = rewriter
	}

	var exporter *export.Exporter
	if cfg.Export.Enabled {
		exporter, err = export.New(cfg.Export)
		if err != nil {
			return err
		}
	}

	orchestrator := hybrid.New(router, classifier, provider,
		generator.NewLocal(provider), engine.New(cfg.Engine), databases, opts)

	server := api.NewServer(cfg, orchestrator, databases, historyStore, exporter)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if cfg.Server.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.Server.MaxConnections)
	}

	httpServer := &http.Server{Handler: server.Handler()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()
	log.WithFields(log.Fields{"addr": addr, "version": buildinfo.Version}).Info("sqlbridge listening")

	if openBrowser {
		url := fmt.Sprintf("http://%s/v1/health", listenAddr(cfg))
		if err := open.Run(url); err != nil {
			log.WithFields(log.Fields{"error": err}).Debug("failed to open browser")
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		log.WithFields(log.Fields{"signal": sig}).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

func listenAddr(cfg *config.Config) string {
	host := cfg.Server.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s:%d", host, cfg.Server.Port)
}

// retentionLoop prunes old history records once a day.
func retentionLoop(store *history.Store) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if _, err := store.Cleanup(ctx); err != nil {
			log.WithFields(log.Fields{"error": err}).Warn("history retention cleanup failed")
		}
		cancel()
	}
}
