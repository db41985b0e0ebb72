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
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/riskfile/assess"
	"github.com/AleutianAI/riskfile/config"
	"github.com/AleutianAI/riskfile/engine"
	"github.com/AleutianAI/riskfile/pkg/logging"
	"github.com/AleutianAI/riskfile/store"
	"github.com/AleutianAI/riskfile/store/badgerindex"
)

// --- Global Command Variables ---
var (
	cfgFile        string
	jsonOutput     bool
	quietOutput    bool
	verboseOutput  bool
	timeoutSeconds int

	// cfg and appLogger are populated by the root PersistentPreRun before
	// any run function executes.
	cfg       *config.Config
	appLogger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "riskfile",
		Short: "A cli to manage a plain-file register of device risk records",
		Long: `Riskfile keeps every risk record as one human-readable text file
and assesses each record with a configurable strategy (standard,
weighted, or safety-margin). Records, backups, and the secondary
index all live under the configured data directory.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initApp()
		},
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Path to the config file (default ~/.riskfile/riskfile.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output as JSON (automatic when stdout is not a terminal)")
	rootCmd.PersistentFlags().BoolVarP(&quietOutput, "quiet", "q", false,
		"Suppress log output on stderr")
	rootCmd.PersistentFlags().BoolVarP(&verboseOutput, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 30,
		"Command timeout in seconds")
}

// initApp loads the configuration and wires the logger. Called from the
// root PersistentPreRun so every run function can rely on cfg/appLogger.
func initApp() {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		OutputError(useJSON(), "Failed to load configuration", err)
		os.Exit(CLIExitError)
	}
	cfg = loaded

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		// Validate() already rejected unknown levels; keep a fallback
		// for configs loaded before that check existed.
		level = logging.LevelInfo
	}
	if verboseOutput {
		level = logging.LevelDebug
	}
	appLogger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "riskfile",
		JSON:    cfg.Logging.JSON,
		Quiet:   quietOutput,
	})
}

// commandContext returns the bounded context every run function uses.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(),
		time.Duration(timeoutSeconds)*time.Second)
}

// configuredStrategy resolves the startup strategy name. A device class in
// the config mandates its strategy and wins over the plain strategy name.
func configuredStrategy() string {
	if cfg.Assessment.DeviceClass != "" {
		class := assess.ParseDeviceClass(cfg.Assessment.DeviceClass)
		return assess.ForDeviceClass(class).Name()
	}
	return cfg.Assessment.Strategy
}

// openEngine builds the risk engine over the configured record directory.
// The returned cleanup releases the secondary index handle and must be
// called before the process exits.
func openEngine() (*engine.Engine, func(), error) {
	records, err := store.NewFileRecordStore(cfg.Storage.RecordsDir,
		store.WithLogger(appLogger.Slog()))
	if err != nil {
		return nil, nil, err
	}

	opts := []engine.Option{
		engine.WithLogger(appLogger.Slog()),
		engine.WithStrategy(configuredStrategy()),
	}

	var index *badgerindex.Index
	if cfg.Storage.IndexEnabled {
		index, err = badgerindex.Open(badgerindex.DefaultConfig(cfg.Storage.IndexDir))
		if err != nil {
			// The index is derived data; a locked or damaged index
			// must not block record operations.
			appLogger.Warn("secondary index unavailable, continuing without it",
				"dir", cfg.Storage.IndexDir, "error", err)
			index = nil
		} else {
			opts = append(opts, engine.WithIndexer(index))
		}
	}

	cleanup := func() {
		if index != nil {
			if err := index.Close(); err != nil {
				appLogger.Warn("failed to close the secondary index", "error", err)
			}
		}
	}
	return engine.New(records, opts...), cleanup, nil
}
