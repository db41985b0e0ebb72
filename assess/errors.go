// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assess computes Risk Priority Numbers and acceptability
// classifications under pluggable scoring strategies.
//
// Three strategies ship with the package: Standard (plain product),
// Weighted-Conservative (severity-weighted, tighter bands), and
// Safety-Margin (scaled product, tightest bands). Each strategy owns its
// RPN formula, its classification bands, and its admission rules; bands are
// deliberately not shared because differently scaled formulas need
// differently scaled cut points.
//
// A Context holds the active strategy and runs the fixed
// validate -> calculate -> classify pipeline. Strategies are resolved by
// name or by device classification tier through ForName and ForDeviceClass,
// which fall back to Standard rather than failing so assessment stays
// available.
//
// # Thread Safety
//
// Strategies are stateless and safe for concurrent use. Context serializes
// strategy swaps internally; see Context for details.
package assess

import (
	"fmt"

	"github.com/AleutianAI/riskfile/risk"
)

// ErrRejected is returned by a strategy's Validate when the factor
// combination is admissible by range but refused by the strategy's own
// admission rules. It wraps risk.ErrValidation, so callers classifying
// failures broadly can keep testing against that single sentinel.
var ErrRejected = fmt.Errorf("%w: rejected by strategy", risk.ErrValidation)
