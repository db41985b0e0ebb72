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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/riskfile/risk"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed successfully
	CLIExitFindings = 1 // Operation completed with findings (records matched)
	CLIExitError    = 2 // Operation failed
)

// OutputConfig controls output behavior.
type OutputConfig struct {
	JSON    bool // Output as JSON
	Compact bool // No indentation
	Quiet   bool // No output, exit code only
}

// CommandResult wraps command output with metadata.
type CommandResult struct {
	APIVersion string      `json:"api_version"`
	Command    string      `json:"command"`
	Timestamp  time.Time   `json:"timestamp"`
	DurationMs int64       `json:"duration_ms"`
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// useJSON reports whether command output should be machine-readable.
// Piped stdout (scripts, CI) gets JSON without needing the flag.
func useJSON() bool {
	if jsonOutput {
		return true
	}
	return !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// OutputJSON writes structured data as JSON to stdout.
//
// # Inputs
//
//   - data: The data to encode. Must be JSON-serializable.
//   - compact: If true, output without indentation.
//
// # Outputs
//
//   - error: Non-nil if encoding fails.
func OutputJSON(data interface{}, compact bool) error {
	encoder := json.NewEncoder(os.Stdout)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// OutputError writes an error in the appropriate format.
//
// # Inputs
//
//   - jsonMode: If true, output as JSON to stdout.
//   - msg: Human-readable error message.
//   - err: The underlying error.
func OutputError(jsonMode bool, msg string, err error) {
	if jsonMode {
		result := CommandResult{
			APIVersion: "1.0",
			Timestamp:  time.Now(),
			Success:    false,
			Error:      fmt.Sprintf("%s: %v", msg, err),
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(result)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	}
}

// OutputResult handles all output scenarios with proper formatting.
//
// # Inputs
//
//   - cfg: Output configuration.
//   - cmd: Command name for metadata.
//   - start: Start time for duration calculation.
//   - data: The data to output.
//   - hasFindings: Whether the operation matched records (for exit code).
//   - err: Any error that occurred.
//
// # Outputs
//
//   - int: The exit code to use.
func OutputResult(cfg OutputConfig, cmd string, start time.Time, data interface{}, hasFindings bool, err error) int {
	if cfg.Quiet {
		if err != nil {
			return CLIExitError
		}
		if hasFindings {
			return CLIExitFindings
		}
		return CLIExitSuccess
	}

	if err != nil {
		OutputError(cfg.JSON, "Command failed", err)
		return CLIExitError
	}

	if cfg.JSON {
		result := CommandResult{
			APIVersion: "1.0",
			Command:    cmd,
			Timestamp:  time.Now(),
			DurationMs: time.Since(start).Milliseconds(),
			Success:    true,
			Data:       data,
		}
		if encErr := OutputJSON(result, cfg.Compact); encErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", encErr)
			return CLIExitError
		}
	}

	if hasFindings {
		return CLIExitFindings
	}
	return CLIExitSuccess
}

// RecordListResult holds record list output.
type RecordListResult struct {
	Records []*risk.Record `json:"records"`
	Count   int            `json:"count"`
}

// getLevelIndicator returns the text marker for an acceptability level.
func getLevelIndicator(level risk.Level) string {
	switch level {
	case risk.LevelUnacceptable:
		return "[!!!]"
	case risk.LevelALARP:
		return "[!]"
	default:
		return "[ok]"
	}
}

// formatFactors renders the three ordinal factors compactly, e.g. "S4 O4 D2".
func formatFactors(rec *risk.Record) string {
	return fmt.Sprintf("S%d O%d D%d",
		int(rec.Severity), int(rec.Occurrence), int(rec.Detectability))
}

// truncate shortens s to max runes, appending "..." when it had to cut.
func truncate(s string, max int) string {
	if max <= 3 {
		max = 3
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// printRecordDetail writes the full text view of one record.
func printRecordDetail(rec *risk.Record) {
	fmt.Printf("ID:            %s\n", rec.ID)
	fmt.Printf("Description:   %s\n", rec.Description)
	fmt.Printf("Factors:       severity %d (%s), occurrence %d (%s), detectability %d (%s)\n",
		int(rec.Severity), rec.Severity,
		int(rec.Occurrence), rec.Occurrence,
		int(rec.Detectability), rec.Detectability)
	fmt.Printf("RPN:           %d\n", rec.RPN)
	fmt.Printf("Risk Level:    %s %s\n", rec.Level, getLevelIndicator(rec.Level))
	fmt.Printf("Status:        %s\n", rec.Status)
	if rec.Mitigation != "" {
		fmt.Printf("Mitigation:    %s\n", rec.Mitigation)
	}
	fmt.Printf("Created:       %s\n", rec.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated:       %s\n", rec.UpdatedAt.Format(time.RFC3339))
}

// printRecordTable writes one line per record plus a header.
func printRecordTable(recs []*risk.Record) {
	if len(recs) == 0 {
		fmt.Println("No records.")
		return
	}
	fmt.Printf("%-18s %-10s %4s  %-13s %-10s %s\n",
		"ID", "FACTORS", "RPN", "LEVEL", "STATUS", "DESCRIPTION")
	for _, rec := range recs {
		fmt.Printf("%-18s %-10s %4d  %-13s %-10s %s\n",
			truncate(rec.ID, 18),
			formatFactors(rec),
			rec.RPN,
			rec.Level,
			rec.Status,
			truncate(rec.Description, 60))
	}
}
