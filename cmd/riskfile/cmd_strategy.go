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
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/riskfile/assess"
	"github.com/AleutianAI/riskfile/config"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var strategyDeviceClass string

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Show or change the active assessment strategy",
}

var strategyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active assessment strategy",
	Run:   runStrategyShowCommand,
}

var strategySetCmd = &cobra.Command{
	Use:   "set [name]",
	Short: "Change the assessment strategy and persist it to the config",
	Long: `Change the assessment strategy by name, or by regulatory device
class with --device-class. The choice is written back to the config
file, so it applies to every later invocation.

Stored records keep their existing assessment; only subsequent
assessments use the new strategy. Unknown names fall back to the
standard strategy.

Examples:
  riskfile strategy set weighted
  riskfile strategy set --device-class III

Exit Codes:
  0 - Strategy changed and persisted
  2 - Nothing to set or the config could not be written`,
	Args: cobra.MaximumNArgs(1),
	Run:  runStrategySetCommand,
}

func init() {
	strategySetCmd.Flags().StringVar(&strategyDeviceClass, "device-class", "",
		"Select the strategy mandated for a device class (I, II, or III)")
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyShowCmd)
	strategyCmd.AddCommand(strategySetCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runStrategyShowCommand(cmd *cobra.Command, args []string) {
	result := StrategyResult{
		Active:      configuredStrategy(),
		DeviceClass: cfg.Assessment.DeviceClass,
		Known:       assess.Names(),
	}

	if useJSON() {
		if err := OutputJSON(result, false); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
		return
	}
	outputStrategyText(result)
}

func runStrategySetCommand(cmd *cobra.Command, args []string) {
	if len(args) == 0 && strategyDeviceClass == "" {
		OutputError(useJSON(), "Nothing to set",
			fmt.Errorf("give a strategy name or --device-class"))
		os.Exit(CLIExitError)
	}

	eng, cleanup, err := openEngine()
	if err != nil {
		OutputError(useJSON(), "Failed to open the record store", err)
		os.Exit(CLIExitError)
	}

	var effective string
	if strategyDeviceClass != "" {
		effective = eng.ChangeStrategyForDeviceClass(strategyDeviceClass)
		cfg.Assessment.DeviceClass = string(assess.ParseDeviceClass(strategyDeviceClass))
	} else {
		effective = eng.ChangeStrategy(args[0])
		// An explicit name overrides any device-class mandate; clear
		// it so the name actually takes effect on the next run.
		cfg.Assessment.DeviceClass = ""
	}
	cfg.Assessment.Strategy = effective
	cleanup()

	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.Save(path, cfg); err != nil {
		OutputError(useJSON(), "Failed to persist the strategy", err)
		os.Exit(CLIExitError)
	}

	result := StrategyResult{
		Active:      effective,
		DeviceClass: cfg.Assessment.DeviceClass,
		Known:       assess.Names(),
	}
	if useJSON() {
		if err := OutputJSON(result, false); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
		return
	}
	fmt.Printf("Assessment strategy is now %q (persisted to %s)\n", effective, path)
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

// StrategyResult holds strategy command output.
type StrategyResult struct {
	Active      string   `json:"active"`
	DeviceClass string   `json:"device_class,omitempty"`
	Known       []string `json:"known"`
}

func outputStrategyText(result StrategyResult) {
	fmt.Printf("Active strategy: %s\n", result.Active)
	if result.DeviceClass != "" {
		fmt.Printf("Mandated by device class %s\n", result.DeviceClass)
	}
	fmt.Printf("Known strategies: %s\n", strings.Join(result.Known, ", "))
}
