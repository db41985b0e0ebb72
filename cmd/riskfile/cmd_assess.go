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

	"github.com/AleutianAI/riskfile/assess"
	"github.com/AleutianAI/riskfile/engine"
	"github.com/AleutianAI/riskfile/risk"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var batchAll bool

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var reassessCmd = &cobra.Command{
	Use:   "reassess [id]",
	Short: "Re-run the assessment for one record with the active strategy",
	Long: `Re-run the assessment for one record with the active strategy.

The stored factors stay as they are; only the derived RPN, risk level,
and updated timestamp change. A strategy that rejects the record's
factor combination leaves the record untouched.

Examples:
  riskfile reassess RISK-2025-0042

  # Reassess under a different strategy for this invocation only
  RISKFILE_ASSESSMENT_STRATEGY=safety-margin riskfile reassess RISK-2025-0042

Exit Codes:
  0 - Record reassessed
  2 - Record missing, rejected by the strategy, or unwritable`,
	Args: cobra.ExactArgs(1),
	Run:  runReassessCommand,
}

var batchAssessCmd = &cobra.Command{
	Use:   "batch-assess [id...]",
	Short: "Reassess a set of records, reporting a per-record outcome",
	Long: `Reassess a set of records with the active strategy.

Records are processed in the order given; one failure does not stop
the batch, and earlier successes are not rolled back.

Examples:
  riskfile batch-assess RISK-2025-0041 RISK-2025-0042
  riskfile batch-assess --all

Exit Codes:
  0 - Every record assessed
  1 - Some records failed
  2 - Error before the batch started`,
	Args: cobra.ArbitraryArgs,
	Run:  runBatchAssessCommand,
}

func init() {
	batchAssessCmd.Flags().BoolVar(&batchAll, "all", false,
		"Reassess every record in the register")
	rootCmd.AddCommand(reassessCmd)
	rootCmd.AddCommand(batchAssessCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runReassessCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	rec, result, err := eng.Reassess(ctx, args[0])
	cleanup()
	if err != nil {
		OutputError(useJSON(), "Failed to reassess the risk record", err)
		os.Exit(CLIExitError)
	}

	if useJSON() {
		outputRecordJSON(rec)
		return
	}
	outputReassessText(rec, result)
}

func runBatchAssessCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	if len(args) == 0 && !batchAll {
		OutputError(useJSON(), "Nothing to assess",
			fmt.Errorf("give record ids or --all"))
		os.Exit(CLIExitError)
	}

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	ids := args
	if batchAll {
		recs, err := eng.List(ctx)
		if err != nil {
			cleanup()
			OutputError(useJSON(), "Failed to list the risk records", err)
			os.Exit(CLIExitError)
		}
		ids = make([]string, 0, len(recs))
		for _, rec := range recs {
			ids = append(ids, rec.ID)
		}
		sort.Strings(ids)
	}

	outcomes := eng.BatchAssess(ctx, ids)
	cleanup()

	result := buildBatchResult(eng.StrategyName(), outcomes)
	if useJSON() {
		if err := OutputJSON(result, false); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
	} else {
		outputBatchText(result)
	}

	if result.Failed > 0 {
		os.Exit(CLIExitFindings)
	}
	os.Exit(CLIExitSuccess)
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

// BatchAssessResult holds batch-assess output.
type BatchAssessResult struct {
	Strategy  string             `json:"strategy"`
	Outcomes  []BatchOutcomeView `json:"outcomes"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}

// BatchOutcomeView is the serializable view of one batch outcome.
type BatchOutcomeView struct {
	ID     string         `json:"id"`
	Result *assess.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func buildBatchResult(strategy string, outcomes []engine.BatchOutcome) BatchAssessResult {
	result := BatchAssessResult{
		Strategy: strategy,
		Outcomes: make([]BatchOutcomeView, 0, len(outcomes)),
	}
	for _, out := range outcomes {
		view := BatchOutcomeView{ID: out.ID, Result: out.Result}
		if out.Err != nil {
			view.Error = out.Err.Error()
			result.Failed++
		} else {
			result.Succeeded++
		}
		result.Outcomes = append(result.Outcomes, view)
	}
	return result
}

func outputReassessText(rec *risk.Record, result *assess.Result) {
	fmt.Printf("Reassessed %s (strategy: %s)\n", rec.ID, result.Strategy)
	fmt.Println()
	printRecordDetail(rec)
}

func outputBatchText(result BatchAssessResult) {
	for _, out := range result.Outcomes {
		if out.Error != "" {
			fmt.Printf("  !! %s: %s\n", out.ID, out.Error)
			continue
		}
		fmt.Printf("  ok %s: RPN %d (%s)\n", out.ID, out.Result.RPN, out.Result.Level)
	}
	fmt.Println()
	fmt.Printf("Assessed %d of %d records (strategy: %s)\n",
		result.Succeeded, len(result.Outcomes), result.Strategy)
}
