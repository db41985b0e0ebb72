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
)

// Bounds for the three ordinal assessment factors.
const (
	FactorMin = 1
	FactorMax = 5
)

// RPN bounds under the plain-product formula.
const (
	RPNMin = 1   // 1 x 1 x 1
	RPNMax = 125 // 5 x 5 x 5
)

// HighPriorityRPN is the fixed RPN threshold for the high-priority derived
// view and for the overdue-review proxy. It is a review trigger, not a
// classification band.
const HighPriorityRPN = 50

// Severity rates the harm a hazard causes when it occurs.
type Severity int

const (
	SeverityNegligible   Severity = 1
	SeverityMinor        Severity = 2
	SeveritySerious      Severity = 3
	SeverityCritical     Severity = 4
	SeverityCatastrophic Severity = 5
)

// Valid reports whether the severity is within [FactorMin, FactorMax].
func (s Severity) Valid() bool {
	return int(s) >= FactorMin && int(s) <= FactorMax
}

// String returns the scale name for the severity, or "Unknown(n)" when out
// of range.
func (s Severity) String() string {
	switch s {
	case SeverityNegligible:
		return "Negligible"
	case SeverityMinor:
		return "Minor"
	case SeveritySerious:
		return "Serious"
	case SeverityCritical:
		return "Critical"
	case SeverityCatastrophic:
		return "Catastrophic"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Occurrence rates how often the hazard is expected to occur.
type Occurrence int

const (
	OccurrenceImprobable Occurrence = 1
	OccurrenceRemote     Occurrence = 2
	OccurrenceOccasional Occurrence = 3
	OccurrenceProbable   Occurrence = 4
	OccurrenceFrequent   Occurrence = 5
)

// Valid reports whether the occurrence is within [FactorMin, FactorMax].
func (o Occurrence) Valid() bool {
	return int(o) >= FactorMin && int(o) <= FactorMax
}

// String returns the scale name for the occurrence, or "Unknown(n)" when
// out of range.
func (o Occurrence) String() string {
	switch o {
	case OccurrenceImprobable:
		return "Improbable"
	case OccurrenceRemote:
		return "Remote"
	case OccurrenceOccasional:
		return "Occasional"
	case OccurrenceProbable:
		return "Probable"
	case OccurrenceFrequent:
		return "Frequent"
	default:
		return fmt.Sprintf("Unknown(%d)", int(o))
	}
}

// Detectability rates how hard the hazard is to detect before it causes
// harm. Higher values mean harder to detect.
type Detectability int

const (
	DetectabilityVeryHigh Detectability = 1
	DetectabilityHigh     Detectability = 2
	DetectabilityModerate Detectability = 3
	DetectabilityLow      Detectability = 4
	DetectabilityVeryLow  Detectability = 5
)

// Valid reports whether the detectability is within [FactorMin, FactorMax].
func (d Detectability) Valid() bool {
	return int(d) >= FactorMin && int(d) <= FactorMax
}

// String returns the scale name for the detectability, or "Unknown(n)" when
// out of range.
func (d Detectability) String() string {
	switch d {
	case DetectabilityVeryHigh:
		return "VeryHigh"
	case DetectabilityHigh:
		return "High"
	case DetectabilityModerate:
		return "Moderate"
	case DetectabilityLow:
		return "Low"
	case DetectabilityVeryLow:
		return "VeryLow"
	default:
		return fmt.Sprintf("Unknown(%d)", int(d))
	}
}

// Level represents the acceptability classification of an assessed risk.
type Level string

const (
	LevelAcceptable   Level = "ACCEPTABLE"
	LevelALARP        Level = "ALARP" // as low as reasonably practicable
	LevelUnacceptable Level = "UNACCEPTABLE"
)

// ParseLevel parses a string to Level. Unknown input parses to
// LevelUnacceptable so that a damaged stored value is never read as more
// acceptable than it was.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "acceptable":
		return LevelAcceptable
	case "alarp":
		return LevelALARP
	case "unacceptable":
		return LevelUnacceptable
	default:
		return LevelUnacceptable
	}
}

// Order returns the numeric order of this level, from LevelAcceptable (0)
// to LevelUnacceptable (2).
func (l Level) Order() int {
	levels := map[Level]int{
		LevelAcceptable:   0,
		LevelALARP:        1,
		LevelUnacceptable: 2,
	}
	return levels[l]
}

// Exceeds returns true if this level is strictly worse than the threshold.
func (l Level) Exceeds(threshold Level) bool {
	return l.Order() > threshold.Order()
}

// Status is the lifecycle state of a risk record. It is independent of
// scoring: changing status never touches RPN or Level.
type Status string

const (
	StatusOpen      Status = "open"
	StatusMitigated Status = "mitigated"
	StatusAccepted  Status = "accepted"
	StatusClosed    Status = "closed"
)

// ParseStatus parses a string to Status. Unknown or empty input parses to
// StatusOpen, which is also the default for record files written before the
// field existed.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mitigated":
		return StatusMitigated
	case "accepted":
		return StatusAccepted
	case "closed":
		return StatusClosed
	default:
		return StatusOpen
	}
}

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusMitigated, StatusAccepted, StatusClosed:
		return true
	default:
		return false
	}
}

// Statuses returns the known lifecycle states in display order.
func Statuses() []Status {
	return []Status{StatusOpen, StatusMitigated, StatusAccepted, StatusClosed}
}
