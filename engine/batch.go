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

	"github.com/AleutianAI/riskfile/assess"
)

// BatchOutcome reports the result of reassessing one record in a batch.
type BatchOutcome struct {
	ID     string         `json:"id"`
	Result *assess.Result `json:"result,omitempty"`
	Err    error          `json:"-"`
}

// BatchAssess rescores the given ids sequentially under the active
// strategy, returning one outcome per id in input order. One record's
// failure never stops the rest; context cancellation fails the remaining
// ids individually.
func (e *Engine) BatchAssess(ctx context.Context, ids []string) []BatchOutcome {
	recordBatchMetrics(ctx, len(ids))

	outcomes := make([]BatchOutcome, 0, len(ids))
	succeeded := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, BatchOutcome{ID: id, Err: err})
			continue
		}
		_, result, err := e.Reassess(ctx, id)
		if err == nil {
			succeeded++
		}
		outcomes = append(outcomes, BatchOutcome{ID: id, Result: result, Err: err})
	}

	e.logger.Info("batch assessment finished",
		"requested", len(ids), "succeeded", succeeded, "failed", len(ids)-succeeded,
		"strategy", e.assessor.StrategyName())
	return outcomes
}
