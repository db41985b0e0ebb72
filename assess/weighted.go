// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assess

import (
	"fmt"
	"math"

	"github.com/AleutianAI/riskfile/risk"
)

// Factor weights for the Weighted-Conservative formula. Severity dominates:
// a severe harm with modest likelihood must outrank a mild harm with high
// likelihood.
const (
	WeightSeverity      = 2.0
	WeightOccurrence    = 1.5
	WeightDetectability = 1.0
)

// Classification bands for Weighted-Conservative. The weighted formula
// inflates the scale (maximum round(10 x 7.5 x 5) = 375), so the cut points
// sit lower relative to that range than the default bands do.
const (
	WeightedUnacceptableMin = 75
	WeightedALARPMin        = 20
)

// Weighted is the Weighted-Conservative strategy: each factor is scaled by
// a fixed weight before multiplying, and the result is rounded to the
// nearest integer. Its admission rules refuse the severity/occurrence
// combinations that belong in an escalation workflow rather than behind a
// bare score.
type Weighted struct{}

// NewWeighted returns the Weighted-Conservative strategy.
func NewWeighted() *Weighted {
	return &Weighted{}
}

// Name returns the stable identifier "weighted".
func (w *Weighted) Name() string {
	return StrategyWeighted
}

// Validate checks factor range, then refuses the combination
// severity >= Critical AND occurrence >= Probable. A hazard both that
// severe and that likely needs an escalation decision, not a number.
func (w *Weighted) Validate(sev risk.Severity, occ risk.Occurrence, det risk.Detectability) error {
	if err := risk.CheckFactors(sev, occ, det); err != nil {
		return err
	}
	if sev >= risk.SeverityCritical && occ >= risk.OccurrenceProbable {
		return fmt.Errorf("%w: severity %s with occurrence %s requires escalation, not scoring",
			ErrRejected, sev, occ)
	}
	return nil
}

// CalculateRPN returns round(2.0*s x 1.5*o x 1.0*d).
func (w *Weighted) CalculateRPN(sev risk.Severity, occ risk.Occurrence, det risk.Detectability) int {
	weighted := (WeightSeverity * float64(sev)) *
		(WeightOccurrence * float64(occ)) *
		(WeightDetectability * float64(det))
	return int(math.Round(weighted))
}

// Classify applies the Weighted-Conservative bands: Unacceptable at
// rpn >= 75, ALARP at rpn >= 20, Acceptable below.
func (w *Weighted) Classify(rpn int) risk.Level {
	switch {
	case rpn >= WeightedUnacceptableMin:
		return risk.LevelUnacceptable
	case rpn >= WeightedALARPMin:
		return risk.LevelALARP
	default:
		return risk.LevelAcceptable
	}
}

var _ Strategy = (*Weighted)(nil)
