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

// Stable strategy identifiers. These are persisted in audit logs alongside
// assessment results, so historical scores stay interpretable after the
// active strategy changes. Never reuse or rename a published identifier.
const (
	StrategyStandard     = "standard"
	StrategyWeighted     = "weighted"
	StrategySafetyMargin = "safety-margin"
)

// Strategy is an interchangeable scoring algorithm.
//
// # Contract
//
//   - Validate runs first and gates admission: factor range plus any
//     strategy-specific rules. A rejection means no score is computed.
//   - CalculateRPN assumes validated inputs and is pure: same factors,
//     same RPN, no side effects.
//   - Classify maps an RPN produced by THIS strategy's formula onto the
//     acceptability bands owned by this strategy. Feeding it another
//     strategy's RPN is a caller bug the interface cannot catch.
//   - Name returns the stable identifier for audit trails.
type Strategy interface {
	CalculateRPN(s risk.Severity, o risk.Occurrence, d risk.Detectability) int
	Classify(rpn int) risk.Level
	Validate(s risk.Severity, o risk.Occurrence, d risk.Detectability) error
	Name() string
}
