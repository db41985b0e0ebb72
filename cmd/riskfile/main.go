// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command riskfile manages a plain-file register of device risk records.
//
// Every record is one human-readable text file; assessments (RPN and
// acceptability level) are computed by a configurable strategy and stored
// alongside the input factors.
//
// Usage:
//
//	riskfile create "Pump over-delivers insulin" -s 4 -o 4 -d 2
//	riskfile show RISK-2025-0001
//	riskfile list
//	riskfile reassess RISK-2025-0001
//	riskfile high-priority
//	riskfile stats
//
// Strategy selection:
//
//	riskfile strategy set weighted
//	riskfile strategy set --device-class III
//
// Backups:
//
//	riskfile backup create
//	riskfile backup restore ~/.riskfile/backups/riskfile-20250114T090000Z
//
// Configuration lives in ~/.riskfile/riskfile.yaml (created on first run)
// and every setting can be overridden with a RISKFILE_* environment
// variable, e.g. RISKFILE_ASSESSMENT_STRATEGY=safety-margin.
package main

import (
	"os"
)

func main() {
	// Execute the root command. Cobra handles parsing the arguments;
	// run functions exit with their own codes on failure.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(CLIExitError)
	}
}
