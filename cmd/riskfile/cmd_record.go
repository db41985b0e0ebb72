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
	"sort"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one risk record",
	Long: `Show one risk record with its factors, assessment, and timestamps.

Examples:
  riskfile show RISK-2025-0042
  riskfile show RISK-2025-0042 --json

Exit Codes:
  0 - Record found
  2 - Record missing or unreadable`,
	Args: cobra.ExactArgs(1),
	Run:  runShowCommand,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every risk record in the register",
	Long: `List every risk record in the register, sorted by id.

Corrupt record files are skipped and logged rather than failing the
whole listing.

Examples:
  riskfile list
  riskfile list --json | jq '.records[].id'

Exit Codes:
  0 - Listing succeeded
  2 - Register unreadable`,
	Run: runListCommand,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a risk record",
	Long: `Delete a risk record and its secondary index entry.

Examples:
  riskfile delete RISK-2025-0042

Exit Codes:
  0 - Record deleted
  2 - Record missing or deletion failed`,
	Args: cobra.ExactArgs(1),
	Run:  runDeleteCommand,
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runShowCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	rec, err := eng.Get(ctx, args[0])
	cleanup()
	if err != nil {
		OutputError(useJSON(), "Failed to load the risk record", err)
		os.Exit(CLIExitError)
	}

	if useJSON() {
		outputRecordJSON(rec)
		return
	}
	printRecordDetail(rec)
}

func runListCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	recs, err := eng.List(ctx)
	cleanup()
	if err != nil {
		OutputError(useJSON(), "Failed to list the risk records", err)
		os.Exit(CLIExitError)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })

	if useJSON() {
		result := RecordListResult{Records: recs, Count: len(recs)}
		if err := OutputJSON(result, false); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
		return
	}
	printRecordTable(recs)
}

func runDeleteCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	err = eng.Delete(ctx, args[0])
	cleanup()
	if err != nil {
		OutputError(useJSON(), "Failed to delete the risk record", err)
		os.Exit(CLIExitError)
	}

	if useJSON() {
		OutputJSON(map[string]interface{}{"deleted": args[0], "success": true}, false)
		return
	}
	fmt.Printf("Deleted %s\n", args[0])
}
