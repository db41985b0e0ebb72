// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/riskfile/store"
	"github.com/AleutianAI/riskfile/store/badgerindex"
	"github.com/AleutianAI/riskfile/telemetry"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the records directory and keep the secondary index fresh",
	Long: `Watch the records directory for out-of-band edits: records saved or
deleted by another tool, a sync job, or a human with a text editor.

Each observed change is logged and mirrored into the secondary index,
so searches stay accurate without a manual rebuild. With the
prometheus metrics exporter configured, a /metrics endpoint reports
the observed change count.

Runs until interrupted (Ctrl+C).

Examples:
  riskfile watch

  # With metrics
  RISKFILE_TELEMETRY_METRICS=prometheus riskfile watch

Exit Codes:
  0 - Stopped by signal
  2 - Watcher or metrics endpoint failed`,
	Run: runWatchCommand,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runWatchCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		appLogger.Info("shutting down watch")
		cancel()
	}()

	shutdown, err := telemetry.Init(ctx, watchTelemetryConfig())
	if err != nil {
		OutputError(useJSON(), "Failed to initialize telemetry", err)
		os.Exit(CLIExitError)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := shutdown(shutdownCtx); err != nil {
			appLogger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	records, err := store.NewFileRecordStore(cfg.Storage.RecordsDir,
		store.WithLogger(appLogger.Slog()))
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	var index *badgerindex.Index
	if cfg.Storage.IndexEnabled {
		index, err = badgerindex.Open(badgerindex.DefaultConfig(cfg.Storage.IndexDir))
		if err != nil {
			appLogger.Warn("secondary index unavailable, watching without it",
				"dir", cfg.Storage.IndexDir, "error", err)
			index = nil
		} else {
			defer index.Close()
		}
	}

	meter := otel.Meter("riskfile/watch")
	changeCounter, err := meter.Int64Counter("riskfile.watch.changes",
		metric.WithDescription("Record file changes observed on disk"))
	if err != nil {
		OutputError(useJSON(), "Failed to register metrics", err)
		os.Exit(CLIExitError)
	}

	handler := func(changes []store.RecordChange) {
		changeCounter.Add(ctx, int64(len(changes)))
		for _, change := range changes {
			appLogger.Info("record changed on disk",
				"id", change.ID, "op", change.Op.String())
			if index == nil {
				continue
			}
			applyChangeToIndex(ctx, records, index, change)
		}
	}

	opts := store.DefaultWatcherOptions()
	opts.DebounceWindow = cfg.Storage.WatchDebounce()
	opts.Logger = appLogger.Slog()
	watcher, err := store.NewWatcher(cfg.Storage.RecordsDir, handler, &opts)
	if err != nil {
		OutputError(useJSON(), "Failed to create the watcher", err)
		os.Exit(CLIExitError)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := watcher.Start(gctx); err != nil {
			return fmt.Errorf("watcher start: %w", err)
		}
		appLogger.Info("watching records directory", "dir", cfg.Storage.RecordsDir)
		<-gctx.Done()
		watcher.Stop()
		return nil
	})

	if cfg.Telemetry.Metrics == "prometheus" && cfg.Telemetry.PrometheusListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.MetricsHandler())
		srv := &http.Server{Addr: cfg.Telemetry.PrometheusListen, Handler: mux}

		g.Go(func() error {
			appLogger.Info("serving metrics", "addr", cfg.Telemetry.PrometheusListen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics endpoint: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		OutputError(useJSON(), "Watch failed", err)
		os.Exit(CLIExitError)
	}
}

// applyChangeToIndex mirrors one on-disk change into the secondary index.
func applyChangeToIndex(ctx context.Context, records *store.FileRecordStore, index *badgerindex.Index, change store.RecordChange) {
	switch change.Op {
	case store.ChangeOpDelete:
		if err := index.RemoveIndexEntry(ctx, change.ID); err != nil {
			appLogger.Warn("failed to drop the index entry",
				"id", change.ID, "error", err)
		}
	default:
		rec, err := records.Load(ctx, change.ID)
		if err != nil {
			appLogger.Warn("changed record is unreadable, leaving the index entry",
				"id", change.ID, "error", err)
			return
		}
		if err := index.UpdateIndexEntry(ctx, rec); err != nil {
			appLogger.Warn("failed to update the index entry",
				"id", change.ID, "error", err)
		}
	}
}

// watchTelemetryConfig maps the app config onto the telemetry package.
func watchTelemetryConfig() telemetry.Config {
	tcfg := telemetry.DefaultConfig()
	tcfg.TraceExporter = cfg.Telemetry.Traces
	tcfg.MetricExporter = cfg.Telemetry.Metrics
	tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	return tcfg
}
