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

// Default classification bands for the plain-product formula, on the
// [1,125] scale.
const (
	DefaultUnacceptableMin = 100
	DefaultALARPMin        = 25
)

// Calculator implements the default two-step scoring contract: the plain
// product formula and the default classification bands. It is the formula
// the Standard strategy exposes; other strategies replace one or both
// steps but keep the same shape.
//
// Pure and stateless: no error path exists for in-range inputs, and range
// checking is the caller's job (strategies validate before calculating).
type Calculator struct{}

// RPN returns severity x occurrence x detectability. For factors in
// [1,5] the result is in [1,125].
func (Calculator) RPN(s risk.Severity, o risk.Occurrence, d risk.Detectability) int {
	return int(s) * int(o) * int(d)
}

// Classify maps an RPN on the [1,125] scale onto the default bands:
// Unacceptable in [100,125], ALARP in [25,99], Acceptable in [1,24].
func (Calculator) Classify(rpn int) risk.Level {
	switch {
	case rpn >= DefaultUnacceptableMin:
		return risk.LevelUnacceptable
	case rpn >= DefaultALARPMin:
		return risk.LevelALARP
	default:
		return risk.LevelAcceptable
	}
}
