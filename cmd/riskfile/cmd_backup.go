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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/riskfile/store"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var pruneKeep int

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, restore, list, and prune register backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [path]",
	Short: "Write a verified snapshot of the register",
	Long: `Write a verified snapshot of every record to a backup directory.

Without a path the snapshot goes to the configured backup directory
under a timestamped name.

Examples:
  riskfile backup create
  riskfile backup create /mnt/audit/riskfile-release-1.4

Exit Codes:
  0 - Backup written and verified
  2 - Backup failed`,
	Args: cobra.MaximumNArgs(1),
	Run:  runBackupCreateCommand,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [path]",
	Short: "Replace the register with a backup snapshot",
	Long: `Replace the live register with the contents of a backup snapshot.

The snapshot is verified first; a corrupt or incomplete backup is
refused and the live register stays untouched.

Examples:
  riskfile backup restore ~/.riskfile/backups/riskfile-20250114T090000Z

Exit Codes:
  0 - Register restored
  2 - Backup invalid or restore failed`,
	Args: cobra.ExactArgs(1),
	Run:  runBackupRestoreCommand,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the snapshots in the backup directory",
	Run:   runBackupListCommand,
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old snapshots, keeping the most recent ones",
	Long: `Delete old snapshots from the backup directory, keeping the most
recent ones.

Examples:
  riskfile backup prune
  riskfile backup prune --keep 3

Exit Codes:
  0 - Prune completed
  2 - Prune failed`,
	Run: runBackupPruneCommand,
}

func init() {
	backupPruneCmd.Flags().IntVar(&pruneKeep, "keep", 0,
		"Snapshots to keep (default from config)")
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupPruneCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runBackupCreateCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	target := defaultBackupPath(time.Now())
	if len(args) > 0 {
		target = args[0]
	}

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	err = eng.CreateBackup(ctx, target)
	cleanup()
	if err != nil {
		OutputError(useJSON(), "Backup failed", err)
		os.Exit(CLIExitError)
	}

	if useJSON() {
		OutputJSON(map[string]interface{}{"path": target, "success": true}, false)
		return
	}
	fmt.Printf("Backup written to %s\n", target)
}

func runBackupRestoreCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	err = eng.RestoreFromBackup(ctx, args[0])
	cleanup()
	if err != nil {
		OutputError(useJSON(), "Restore failed", err)
		os.Exit(CLIExitError)
	}

	if useJSON() {
		OutputJSON(map[string]interface{}{"restored_from": args[0], "success": true}, false)
		return
	}
	fmt.Printf("Register restored from %s\n", args[0])
}

func runBackupListCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	backups, err := eng.ListBackups(ctx, cfg.Backup.Dir)
	cleanup()
	if err != nil {
		OutputError(useJSON(), "Failed to list backups", err)
		os.Exit(CLIExitError)
	}

	if useJSON() {
		result := BackupListResult{Backups: backups, Count: len(backups)}
		if err := OutputJSON(result, false); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
		return
	}
	outputBackupListText(backups)
}

func runBackupPruneCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	keep := pruneKeep
	if keep <= 0 {
		keep = cfg.Backup.Keep
	}

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	removed, err := eng.PruneBackups(ctx, cfg.Backup.Dir, keep)
	cleanup()
	if err != nil {
		OutputError(useJSON(), "Prune failed", err)
		os.Exit(CLIExitError)
	}

	if useJSON() {
		OutputJSON(map[string]interface{}{"removed": removed, "kept": keep}, false)
		return
	}
	fmt.Printf("Pruned %d snapshots (keeping the %d most recent)\n", removed, keep)
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

// BackupListResult holds backup list output.
type BackupListResult struct {
	Backups []store.BackupInfo `json:"backups"`
	Count   int                `json:"count"`
}

// defaultBackupPath names a snapshot in the configured backup directory.
func defaultBackupPath(now time.Time) string {
	name := "riskfile-" + now.UTC().Format("20060102T150405Z")
	return filepath.Join(cfg.Backup.Dir, name)
}

func outputBackupListText(backups []store.BackupInfo) {
	if len(backups) == 0 {
		fmt.Println("No backups.")
		return
	}
	fmt.Printf("%-20s %8s %10s  %s\n", "CREATED", "RECORDS", "SIZE", "PATH")
	for _, b := range backups {
		fmt.Printf("%-20s %8d %9dB  %s\n",
			b.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			b.RecordCount,
			b.SizeBytes,
			b.Path)
	}
}
