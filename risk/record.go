// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package risk

import (
	"fmt"
	"strings"
	"time"
)

// Record is the persisted unit of the risk register.
//
// # Fields
//
//   - ID: opaque unique identifier, assigned at creation, immutable.
//   - Description: free text describing the hazard. Never empty.
//   - Severity, Occurrence, Detectability: ordinal factors in [1,5].
//   - RPN: derived. Always equals the active strategy's function of the
//     three factors at last assessment; never trusted from input.
//   - Level: derived acceptability classification, recomputed with RPN.
//   - Mitigation: optional free text, independent of scoring.
//   - Status: lifecycle state, independent of scoring. Defaults to open.
//   - CreatedAt, UpdatedAt: UpdatedAt >= CreatedAt holds on every save.
//
// # Thread Safety
//
// Record is a plain value holder with no internal synchronization. Callers
// sharing a record across goroutines must coordinate themselves.
type Record struct {
	ID            string        `json:"id"`
	Description   string        `json:"description"`
	Severity      Severity      `json:"severity"`
	Occurrence    Occurrence    `json:"occurrence"`
	Detectability Detectability `json:"detectability"`
	RPN           int           `json:"rpn"`
	Level         Level         `json:"risk_level"`
	Mitigation    string        `json:"mitigation,omitempty"`
	Status        Status        `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CheckFactors validates the three ordinal factors against
// [FactorMin, FactorMax]. Out-of-range values are rejected, never clamped.
func CheckFactors(s Severity, o Occurrence, d Detectability) error {
	if !s.Valid() {
		return fmt.Errorf("%w: severity %d not in [%d,%d]",
			ErrFactorRange, int(s), FactorMin, FactorMax)
	}
	if !o.Valid() {
		return fmt.Errorf("%w: occurrence %d not in [%d,%d]",
			ErrFactorRange, int(o), FactorMin, FactorMax)
	}
	if !d.Valid() {
		return fmt.Errorf("%w: detectability %d not in [%d,%d]",
			ErrFactorRange, int(d), FactorMin, FactorMax)
	}
	return nil
}

// Validate checks the record's domain invariants: non-empty id and
// description, factors in range, known status, and timestamp ordering.
// It does not recompute RPN or Level; derived-field consistency is the
// engine's responsibility.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	if err := CheckFactors(r.Severity, r.Occurrence, r.Detectability); err != nil {
		return err
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, string(r.Status))
	}
	if r.UpdatedAt.Before(r.CreatedAt) {
		return fmt.Errorf("%w: updated %s < created %s", ErrTimestampOrder,
			r.UpdatedAt.Format(time.RFC3339), r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// Touch bumps UpdatedAt to now, keeping the timestamp invariant. Now values
// earlier than CreatedAt are lifted to CreatedAt rather than violating it.
func (r *Record) Touch(now time.Time) {
	if now.Before(r.CreatedAt) {
		now = r.CreatedAt
	}
	r.UpdatedAt = now
}

// Clone returns a deep copy of the record. All fields are value types, so a
// shallow copy suffices today; Clone keeps call sites stable if that changes.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}
