// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package risk defines the domain model for risk records: the three ordinal
// assessment factors (severity, occurrence, detectability), the derived
// acceptability level, record lifecycle status, and the RiskRecord itself.
//
// The package is dependency-free and side-effect-free. Scoring lives in
// package assess; persistence lives in package store. Both build on the
// types defined here.
//
// # Validation
//
// Factor values outside [1,5] are rejected, never clamped. All validation
// failures unwrap to ErrValidation so callers can classify them with a
// single errors.Is check.
package risk

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain validation.
var (
	// ErrValidation is the base error for every domain validation failure.
	// More specific sentinels below wrap it, so
	// errors.Is(err, ErrValidation) matches any of them.
	ErrValidation = errors.New("validation failed")

	// ErrFactorRange is returned when severity, occurrence, or
	// detectability falls outside [FactorMin, FactorMax].
	ErrFactorRange = fmt.Errorf("%w: factor out of range", ErrValidation)

	// ErrEmptyDescription is returned when a record's description is empty
	// or whitespace-only.
	ErrEmptyDescription = fmt.Errorf("%w: description must not be empty", ErrValidation)

	// ErrEmptyID is returned when a record reaches persistence without an
	// assigned identifier.
	ErrEmptyID = fmt.Errorf("%w: record id must not be empty", ErrValidation)

	// ErrTimestampOrder is returned when a record's updated_at precedes
	// its created_at.
	ErrTimestampOrder = fmt.Errorf("%w: updated_at precedes created_at", ErrValidation)

	// ErrUnknownStatus is returned when a record carries a status outside
	// the known lifecycle set.
	ErrUnknownStatus = fmt.Errorf("%w: unknown record status", ErrValidation)
)
