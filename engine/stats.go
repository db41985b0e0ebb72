// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"

	"github.com/AleutianAI/riskfile/risk"
)

// Stats summarizes the register: totals, distribution across risk levels,
// severities, and lifecycle statuses, the mean RPN, and how many records
// sit at or above the high-priority threshold.
type Stats struct {
	Total        int                   `json:"total"`
	ByLevel      map[risk.Level]int    `json:"by_level"`
	BySeverity   map[risk.Severity]int `json:"by_severity"`
	ByStatus     map[risk.Status]int   `json:"by_status"`
	MeanRPN      float64               `json:"mean_rpn"`
	HighPriority int                   `json:"high_priority"`
}

// Statistics computes register-wide statistics in one pass over the
// records. An empty register yields zero counts and a zero mean.
func (e *Engine) Statistics(ctx context.Context) (*Stats, error) {
	records, err := e.records.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ByLevel:    make(map[risk.Level]int),
		BySeverity: make(map[risk.Severity]int),
		ByStatus:   make(map[risk.Status]int),
	}
	rpnSum := 0
	for _, rec := range records {
		stats.Total++
		stats.ByLevel[rec.Level]++
		stats.BySeverity[rec.Severity]++
		stats.ByStatus[rec.Status]++
		rpnSum += rec.RPN
		if rec.RPN >= risk.HighPriorityRPN {
			stats.HighPriority++
		}
	}
	if stats.Total > 0 {
		stats.MeanRPN = float64(rpnSum) / float64(stats.Total)
	}
	return stats, nil
}
