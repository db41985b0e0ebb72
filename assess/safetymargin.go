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

// SafetyMarginFactor scales the plain product upward before rounding.
const SafetyMarginFactor = 1.25

// Classification bands for Safety-Margin, the tightest of the three
// strategies (maximum round(125 x 1.25) = 156).
const (
	SafetyMarginUnacceptableMin = 50
	SafetyMarginALARPMin        = 15
)

// SafetyMargin is the margin-of-safety strategy: the plain product scaled
// by a fixed factor and rounded, classified against deliberately tight
// bands. Its admission rule refuses hazards the monitoring in place cannot
// reliably catch: scoring those would lend false precision.
type SafetyMargin struct {
	calc Calculator
}

// NewSafetyMargin returns the Safety-Margin strategy.
func NewSafetyMargin() *SafetyMargin {
	return &SafetyMargin{}
}

// Name returns the stable identifier "safety-margin".
func (m *SafetyMargin) Name() string {
	return StrategySafetyMargin
}

// Validate checks factor range, then refuses detectability of Low or
// VeryLow outright: enhanced detection controls are required before a
// score can be computed at all.
func (m *SafetyMargin) Validate(sev risk.Severity, occ risk.Occurrence, det risk.Detectability) error {
	if err := risk.CheckFactors(sev, occ, det); err != nil {
		return err
	}
	if det >= risk.DetectabilityLow {
		return fmt.Errorf("%w: detectability %s requires enhanced controls before scoring",
			ErrRejected, det)
	}
	return nil
}

// CalculateRPN returns round(s x o x d x 1.25).
func (m *SafetyMargin) CalculateRPN(sev risk.Severity, occ risk.Occurrence, det risk.Detectability) int {
	product := float64(m.calc.RPN(sev, occ, det))
	return int(math.Round(product * SafetyMarginFactor))
}

// Classify applies the Safety-Margin bands: Unacceptable at rpn >= 50,
// ALARP at rpn >= 15, Acceptable below.
func (m *SafetyMargin) Classify(rpn int) risk.Level {
	switch {
	case rpn >= SafetyMarginUnacceptableMin:
		return risk.LevelUnacceptable
	case rpn >= SafetyMarginALARPMin:
		return risk.LevelALARP
	default:
		return risk.LevelAcceptable
	}
}

var _ Strategy = (*SafetyMargin)(nil)
