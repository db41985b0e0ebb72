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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/riskfile/assess"
	"github.com/AleutianAI/riskfile/engine"
	"github.com/AleutianAI/riskfile/risk"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	createID            string
	createSeverity      int
	createOccurrence    int
	createDetectability int
	createMitigation    string
	createStatus        string
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var createCmd = &cobra.Command{
	Use:   "create [description]",
	Short: "Create a risk record and assess it with the active strategy",
	Long: `Create a risk record and assess it with the active strategy.

The three ordinal factors each range from 1 (best case) to 5 (worst
case) and are never clamped: an out-of-range factor fails validation.
A record that fails validation is not written to disk.

Examples:
  # Create with the factors spelled out
  riskfile create "Pump over-delivers insulin on sensor glitch" \
      --severity 4 --occurrence 4 --detectability 2

  # Carry an identifier from the device risk file
  riskfile create "Battery vents under fast charge" -s 5 -o 2 -d 3 \
      --id RISK-2025-0042 --mitigation "Thermal cutoff added"

Exit Codes:
  0 - Record created
  2 - Validation or storage error`,
	Args: cobra.ExactArgs(1),
	Run:  runCreateCommand,
}

func init() {
	createCmd.Flags().IntVarP(&createSeverity, "severity", "s", 0,
		"Severity of the harm (1-5, required)")
	createCmd.Flags().IntVarP(&createOccurrence, "occurrence", "o", 0,
		"Likelihood of occurrence (1-5, required)")
	createCmd.Flags().IntVarP(&createDetectability, "detectability", "d", 0,
		"Difficulty of detection (1-5, required; 5 = hardest to detect)")
	createCmd.Flags().StringVar(&createID, "id", "",
		"Record identifier (generated when omitted)")
	createCmd.Flags().StringVar(&createMitigation, "mitigation", "",
		"Planned or implemented mitigation")
	createCmd.Flags().StringVar(&createStatus, "status", "",
		"Lifecycle status: open, mitigated, accepted, closed (default open)")
	rootCmd.AddCommand(createCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runCreateCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	req := engine.CreateRequest{
		ID:            createID,
		Description:   args[0],
		Severity:      risk.Severity(createSeverity),
		Occurrence:    risk.Occurrence(createOccurrence),
		Detectability: risk.Detectability(createDetectability),
		Mitigation:    createMitigation,
	}
	if createStatus != "" {
		req.Status = risk.ParseStatus(createStatus)
	}

	rec, result, err := eng.Create(ctx, req)
	cleanup()
	if err != nil {
		OutputError(useJSON(), "Failed to create the risk record", err)
		os.Exit(CLIExitError)
	}

	if useJSON() {
		outputRecordJSON(rec)
		return
	}
	outputCreateText(rec, result)
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputRecordJSON(rec *risk.Record) {
	if err := OutputJSON(rec, false); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(CLIExitError)
	}
}

func outputCreateText(rec *risk.Record, result *assess.Result) {
	fmt.Printf("Created %s (strategy: %s)\n", rec.ID, result.Strategy)
	fmt.Println()
	printRecordDetail(rec)
}
