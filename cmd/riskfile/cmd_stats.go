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

	"github.com/AleutianAI/riskfile/engine"
	"github.com/AleutianAI/riskfile/risk"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the register: counts, mean RPN, high-priority load",
	Long: `Summarize the register in one pass over the records.

Examples:
  riskfile stats
  riskfile stats --json | jq .mean_rpn

Exit Codes:
  0 - Statistics computed
  2 - Register unreadable`,
	Run: runStatsCommand,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runStatsCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	stats, err := eng.Statistics(ctx)
	cleanup()
	if err != nil {
		OutputError(useJSON(), "Failed to compute statistics", err)
		os.Exit(CLIExitError)
	}

	if useJSON() {
		if err := OutputJSON(stats, false); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
		return
	}
	outputStatsText(stats)
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputStatsText(stats *engine.Stats) {
	fmt.Println("Risk Register Statistics")
	fmt.Println()
	fmt.Printf("Total records:  %d\n", stats.Total)
	fmt.Printf("Mean RPN:       %.1f\n", stats.MeanRPN)
	fmt.Printf("High priority:  %d\n", stats.HighPriority)

	if stats.Total == 0 {
		return
	}

	fmt.Println()
	fmt.Println("By level:")
	for _, level := range []risk.Level{
		risk.LevelUnacceptable, risk.LevelALARP, risk.LevelAcceptable,
	} {
		if n := stats.ByLevel[level]; n > 0 {
			fmt.Printf("  %-13s %3d %s\n", level, n, getLevelIndicator(level))
		}
	}

	fmt.Println()
	fmt.Println("By status:")
	for _, status := range risk.Statuses() {
		if n := stats.ByStatus[status]; n > 0 {
			fmt.Printf("  %-10s %3d\n", status, n)
		}
	}

	fmt.Println()
	fmt.Println("By severity:")
	for s := risk.FactorMax; s >= risk.FactorMin; s-- {
		sev := risk.Severity(s)
		if n := stats.BySeverity[sev]; n > 0 {
			fmt.Printf("  %d (%s) %3d\n", int(sev), sev, n)
		}
	}
}
