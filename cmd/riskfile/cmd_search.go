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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/riskfile/risk"
	"github.com/AleutianAI/riskfile/store"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	searchSeverity      int
	searchStatus        string
	searchContains      string
	searchCreatedAfter  string
	searchCreatedBefore string
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search records by severity, status, text, or creation time",
	Long: `Search records; every given predicate must match.

Dates accept YYYY-MM-DD or full RFC 3339 timestamps.

Examples:
  riskfile search --severity 5
  riskfile search --status open --contains insulin
  riskfile search --created-after 2025-01-01 --created-before 2025-07-01

Exit Codes:
  0 - Search completed
  2 - Bad predicate or register unreadable`,
	Run: runSearchCommand,
}

var highPriorityCmd = &cobra.Command{
	Use:   "high-priority",
	Short: "List records whose RPN demands attention first",
	Long: `List records whose RPN is at or above the attention threshold,
highest RPN first.

Intended as a review gate: the exit code reports whether any record
matched, so CI and release scripts can block on it. Use --quiet for
the exit code alone.

Examples:
  riskfile high-priority
  riskfile high-priority --quiet && echo "register is clean"

Exit Codes:
  0 - No high-priority records
  1 - High-priority records found
  2 - Error occurred`,
	Run: runHighPriorityCommand,
}

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List open records still sitting at a high-priority RPN",
	Long: `List records that are still open and score at or above the
high-priority RPN threshold: risks flagged for attention that nobody
has mitigated, accepted, or closed yet.

Examples:
  riskfile overdue
  riskfile overdue --quiet || echo "open risks remain"

Exit Codes:
  0 - No overdue records
  1 - Overdue records found
  2 - Error occurred`,
	Run: runOverdueCommand,
}

func init() {
	searchCmd.Flags().IntVar(&searchSeverity, "severity", 0,
		"Match records with this severity (1-5)")
	searchCmd.Flags().StringVar(&searchStatus, "status", "",
		"Match records with this status (open, mitigated, accepted, closed)")
	searchCmd.Flags().StringVar(&searchContains, "contains", "",
		"Match descriptions containing this text (case-insensitive)")
	searchCmd.Flags().StringVar(&searchCreatedAfter, "created-after", "",
		"Match records created after this date")
	searchCmd.Flags().StringVar(&searchCreatedBefore, "created-before", "",
		"Match records created before this date")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(highPriorityCmd)
	rootCmd.AddCommand(overdueCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runSearchCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	criteria, err := buildSearchCriteria()
	if err != nil {
		OutputError(useJSON(), "Bad search predicate", err)
		os.Exit(CLIExitError)
	}

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	recs, err := eng.Search(ctx, criteria)
	cleanup()
	if err != nil {
		OutputError(useJSON(), "Search failed", err)
		os.Exit(CLIExitError)
	}

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

func runHighPriorityCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	start := time.Now()
	outCfg := OutputConfig{JSON: useJSON(), Quiet: quietOutput}

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(outCfg.JSON, "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	recs, err := eng.HighPriority(ctx)
	cleanup()

	if err == nil && !outCfg.JSON && !outCfg.Quiet {
		printRecordTable(recs)
	}
	data := RecordListResult{Records: recs, Count: len(recs)}
	os.Exit(OutputResult(outCfg, "high-priority", start, data, len(recs) > 0, err))
}

func runOverdueCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext()
	defer cancel()

	start := time.Now()
	outCfg := OutputConfig{JSON: useJSON(), Quiet: quietOutput}

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(outCfg.JSON, "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	recs, err := eng.FindOverdue(ctx)
	cleanup()

	if err == nil && !outCfg.JSON && !outCfg.Quiet {
		printRecordTable(recs)
	}
	data := RecordListResult{Records: recs, Count: len(recs)}
	os.Exit(OutputResult(outCfg, "overdue", start, data, len(recs) > 0, err))
}

// buildSearchCriteria constructs store predicates from flags.
func buildSearchCriteria() (store.Criteria, error) {
	criteria := store.Criteria{Contains: searchContains}

	if searchSeverity != 0 {
		sev := risk.Severity(searchSeverity)
		if !sev.Valid() {
			return criteria, fmt.Errorf("severity %d not in [1,5]", searchSeverity)
		}
		criteria.Severity = &sev
	}
	if searchStatus != "" {
		status := risk.ParseStatus(searchStatus)
		criteria.Status = &status
	}
	if searchCreatedAfter != "" {
		t, err := parseDateFlag(searchCreatedAfter)
		if err != nil {
			return criteria, err
		}
		criteria.CreatedAfter = &t
	}
	if searchCreatedBefore != "" {
		t, err := parseDateFlag(searchCreatedBefore)
		if err != nil {
			return criteria, err
		}
		criteria.CreatedBefore = &t
	}
	return criteria, nil
}

// parseDateFlag accepts YYYY-MM-DD or RFC 3339.
func parseDateFlag(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse %q as YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
