// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"strings"
	"time"

	"github.com/AleutianAI/riskfile/risk"
)

// Criteria is a conjunction of optional record predicates. Nil (or empty,
// for Contains) predicates are absent; a zero Criteria matches every
// record.
//
//   - Severity: record severity equals.
//   - Status: record status equals.
//   - CreatedAfter / CreatedBefore: strict comparison on CreatedAt.
//   - Contains: case-insensitive substring match on the description.
type Criteria struct {
	Severity      *risk.Severity `json:"severity,omitempty"`
	Status        *risk.Status   `json:"status,omitempty"`
	CreatedAfter  *time.Time     `json:"created_after,omitempty"`
	CreatedBefore *time.Time     `json:"created_before,omitempty"`
	Contains      string         `json:"contains,omitempty"`
}

// Matches reports whether the record satisfies every present predicate.
func (c Criteria) Matches(rec *risk.Record) bool {
	if rec == nil {
		return false
	}
	if c.Severity != nil && rec.Severity != *c.Severity {
		return false
	}
	if c.Status != nil && rec.Status != *c.Status {
		return false
	}
	if c.CreatedAfter != nil && !rec.CreatedAt.After(*c.CreatedAfter) {
		return false
	}
	if c.CreatedBefore != nil && !rec.CreatedAt.Before(*c.CreatedBefore) {
		return false
	}
	if c.Contains != "" &&
		!strings.Contains(strings.ToLower(rec.Description), strings.ToLower(c.Contains)) {
		return false
	}
	return true
}

// IsZero reports whether no predicate is present.
func (c Criteria) IsZero() bool {
	return c.Severity == nil && c.Status == nil &&
		c.CreatedAfter == nil && c.CreatedBefore == nil && c.Contains == ""
}
