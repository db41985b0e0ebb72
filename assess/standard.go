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

import "github.com/AleutianAI/riskfile/risk"

// Standard is the baseline strategy: plain product formula, default bands,
// and no admission rules beyond factor range. It is the fallback every
// resolution path defaults to, so it must never reject a combination that
// is in range.
type Standard struct {
	calc Calculator
}

// NewStandard returns the baseline strategy.
func NewStandard() *Standard {
	return &Standard{}
}

// Name returns the stable identifier "standard".
func (s *Standard) Name() string {
	return StrategyStandard
}

// Validate checks factor range only.
func (s *Standard) Validate(sev risk.Severity, occ risk.Occurrence, det risk.Detectability) error {
	return risk.CheckFactors(sev, occ, det)
}

// CalculateRPN returns the plain product severity x occurrence x
// detectability.
func (s *Standard) CalculateRPN(sev risk.Severity, occ risk.Occurrence, det risk.Detectability) int {
	return s.calc.RPN(sev, occ, det)
}

// Classify applies the default bands (100/25 on the [1,125] scale).
func (s *Standard) Classify(rpn int) risk.Level {
	return s.calc.Classify(rpn)
}

var _ Strategy = (*Standard)(nil)
