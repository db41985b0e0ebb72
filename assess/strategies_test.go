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
	"errors"
	"fmt"
	"testing"

	"github.com/AleutianAI/riskfile/risk"
)

// TestStrategies_CriticalProbableLow pins the reference scenario: a
// Critical(4) / Probable(4) / Low(4) hazard scored by each formula.
func TestStrategies_CriticalProbableLow(t *testing.T) {
	const (
		sev = risk.SeverityCritical
		occ = risk.OccurrenceProbable
		det = risk.DetectabilityLow
	)

	// Weighted: round(8 x 6 x 4) = 192. Safety-Margin: round(64 x 1.25) = 80.
	tests := []struct {
		strategy  Strategy
		wantRPN   int
		wantLevel risk.Level
	}{
		{NewStandard(), 64, risk.LevelALARP},
		{NewWeighted(), 192, risk.LevelUnacceptable},
		{NewSafetyMargin(), 80, risk.LevelUnacceptable},
	}

	for _, tt := range tests {
		t.Run(tt.strategy.Name(), func(t *testing.T) {
			rpn := tt.strategy.CalculateRPN(sev, occ, det)
			if rpn != tt.wantRPN {
				t.Errorf("CalculateRPN(4,4,4) = %d, want %d", rpn, tt.wantRPN)
			}
			if level := tt.strategy.Classify(rpn); level != tt.wantLevel {
				t.Errorf("Classify(%d) = %s, want %s", rpn, level, tt.wantLevel)
			}
		})
	}
}

// TestStandard_MatchesCalculator tests that the Standard strategy is the
// default formula over the whole domain.
func TestStandard_MatchesCalculator(t *testing.T) {
	strategy := NewStandard()
	var calc Calculator
	for s := risk.FactorMin; s <= risk.FactorMax; s++ {
		for o := risk.FactorMin; o <= risk.FactorMax; o++ {
			for d := risk.FactorMin; d <= risk.FactorMax; d++ {
				sev, occ, det := risk.Severity(s), risk.Occurrence(o), risk.Detectability(d)
				if err := strategy.Validate(sev, occ, det); err != nil {
					t.Fatalf("Standard.Validate(%d,%d,%d) = %v, want nil", s, o, d, err)
				}
				if got, want := strategy.CalculateRPN(sev, occ, det), calc.RPN(sev, occ, det); got != want {
					t.Fatalf("Standard.CalculateRPN(%d,%d,%d) = %d, want %d", s, o, d, got, want)
				}
			}
		}
	}
}

// TestWeighted_Rounding tests the weighted formula on hand-computed values.
func TestWeighted_Rounding(t *testing.T) {
	strategy := NewWeighted()
	tests := []struct {
		s, o, d int
		want    int
	}{
		{1, 1, 1, 3},   // 2 x 1.5 x 1
		{2, 2, 2, 24},  // 4 x 3 x 2
		{3, 3, 3, 81},  // 6 x 4.5 x 3
		{5, 5, 5, 375}, // 10 x 7.5 x 5
		{1, 3, 2, 18},  // 2 x 4.5 x 2
	}

	for _, tt := range tests {
		got := strategy.CalculateRPN(risk.Severity(tt.s), risk.Occurrence(tt.o), risk.Detectability(tt.d))
		if got != tt.want {
			t.Errorf("Weighted.CalculateRPN(%d,%d,%d) = %d, want %d",
				tt.s, tt.o, tt.d, got, tt.want)
		}
	}
}

// TestWeighted_Validate tests the escalation admission rule: refused only
// when severity >= Critical AND occurrence >= Probable.
func TestWeighted_Validate(t *testing.T) {
	strategy := NewWeighted()
	tests := []struct {
		name       string
		s          risk.Severity
		o          risk.Occurrence
		wantReject bool
	}{
		{"critical_probable", risk.SeverityCritical, risk.OccurrenceProbable, true},
		{"catastrophic_frequent", risk.SeverityCatastrophic, risk.OccurrenceFrequent, true},
		{"critical_occasional", risk.SeverityCritical, risk.OccurrenceOccasional, false},
		{"serious_frequent", risk.SeveritySerious, risk.OccurrenceFrequent, false},
		{"minor_remote", risk.SeverityMinor, risk.OccurrenceRemote, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := strategy.Validate(tt.s, tt.o, risk.DetectabilityModerate)
			if tt.wantReject {
				if !errors.Is(err, ErrRejected) {
					t.Errorf("Validate(%s,%s) = %v, want ErrRejected", tt.s, tt.o, err)
				}
				if !errors.Is(err, risk.ErrValidation) {
					t.Errorf("Validate(%s,%s) = %v, want errors.Is(ErrValidation)", tt.s, tt.o, err)
				}
			} else if err != nil {
				t.Errorf("Validate(%s,%s) = %v, want nil", tt.s, tt.o, err)
			}
		})
	}

	// Range failures surface as range errors, not strategy rejections.
	if err := strategy.Validate(0, risk.OccurrenceRemote, risk.DetectabilityHigh); !errors.Is(err, risk.ErrFactorRange) {
		t.Errorf("Validate(0,2,2) = %v, want ErrFactorRange", err)
	}
}

// TestSafetyMargin_Rounding tests the scaled product on half-way cases
// (math.Round rounds half away from zero).
func TestSafetyMargin_Rounding(t *testing.T) {
	strategy := NewSafetyMargin()
	tests := []struct {
		s, o, d int
		want    int
	}{
		{1, 1, 1, 1},   // 1.25 -> 1
		{1, 1, 2, 3},   // 2.5 -> 3
		{1, 1, 3, 4},   // 3.75 -> 4
		{1, 2, 3, 8},   // 7.5 -> 8
		{4, 4, 4, 80},  // 80 exactly
		{5, 5, 5, 156}, // 156.25 -> 156
	}

	for _, tt := range tests {
		got := strategy.CalculateRPN(risk.Severity(tt.s), risk.Occurrence(tt.o), risk.Detectability(tt.d))
		if got != tt.want {
			t.Errorf("SafetyMargin.CalculateRPN(%d,%d,%d) = %d, want %d",
				tt.s, tt.o, tt.d, got, tt.want)
		}
	}
}

// TestSafetyMargin_Validate tests the detection admission rule: Low and
// VeryLow detectability are refused outright.
func TestSafetyMargin_Validate(t *testing.T) {
	strategy := NewSafetyMargin()
	for det := risk.FactorMin; det <= risk.FactorMax; det++ {
		d := risk.Detectability(det)
		err := strategy.Validate(risk.SeverityMinor, risk.OccurrenceRemote, d)
		if d >= risk.DetectabilityLow {
			if !errors.Is(err, ErrRejected) {
				t.Errorf("Validate(det=%s) = %v, want ErrRejected", d, err)
			}
		} else if err != nil {
			t.Errorf("Validate(det=%s) = %v, want nil", d, err)
		}
	}
}

// TestStrategies_ClassifyPartition tests each strategy's bands: monotone
// in rpn, all levels reachable, and exact behavior at the cut points.
func TestStrategies_ClassifyPartition(t *testing.T) {
	tests := []struct {
		strategy        Strategy
		maxRPN          int
		alarpMin        int
		unacceptableMin int
	}{
		{NewStandard(), risk.RPNMax, DefaultALARPMin, DefaultUnacceptableMin},
		{NewWeighted(), 375, WeightedALARPMin, WeightedUnacceptableMin},
		{NewSafetyMargin(), 156, SafetyMarginALARPMin, SafetyMarginUnacceptableMin},
	}

	for _, tt := range tests {
		t.Run(tt.strategy.Name(), func(t *testing.T) {
			prevOrder := -1
			seen := map[risk.Level]bool{}
			for rpn := 1; rpn <= tt.maxRPN; rpn++ {
				level := tt.strategy.Classify(rpn)
				seen[level] = true
				if order := level.Order(); order < prevOrder {
					t.Fatalf("Classify(%d) = %s breaks band monotonicity", rpn, level)
				} else {
					prevOrder = order
				}
			}
			if len(seen) != 3 {
				t.Errorf("bands reach %d levels, want 3", len(seen))
			}

			boundaries := []struct {
				rpn  int
				want risk.Level
			}{
				{tt.alarpMin - 1, risk.LevelAcceptable},
				{tt.alarpMin, risk.LevelALARP},
				{tt.unacceptableMin - 1, risk.LevelALARP},
				{tt.unacceptableMin, risk.LevelUnacceptable},
			}
			for _, b := range boundaries {
				if got := tt.strategy.Classify(b.rpn); got != b.want {
					t.Errorf("Classify(%d) = %s, want %s", b.rpn, got, b.want)
				}
			}
		})
	}
}

// TestStrategies_Names pins the stable identifiers.
func TestStrategies_Names(t *testing.T) {
	tests := []struct {
		strategy Strategy
		want     string
	}{
		{NewStandard(), "standard"},
		{NewWeighted(), "weighted"},
		{NewSafetyMargin(), "safety-margin"},
	}

	for _, tt := range tests {
		if got := tt.strategy.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}

// TestStrategies_CalculateIsPure tests that repeated calculation with the
// same factors yields the same rpn for every strategy.
func TestStrategies_CalculateIsPure(t *testing.T) {
	for _, strategy := range []Strategy{NewStandard(), NewWeighted(), NewSafetyMargin()} {
		t.Run(strategy.Name(), func(t *testing.T) {
			for i := 0; i < 3; i++ {
				first := strategy.CalculateRPN(3, 2, 2)
				second := strategy.CalculateRPN(3, 2, 2)
				if first != second {
					t.Fatalf("iteration %d: CalculateRPN changed %d -> %d", i, first, second)
				}
			}
		})
	}
}

// ExampleStrategy documents the compute -> classify contract.
func ExampleStrategy() {
	strategy := NewStandard()
	rpn := strategy.CalculateRPN(risk.SeverityCritical, risk.OccurrenceProbable, risk.DetectabilityLow)
	fmt.Println(rpn, strategy.Classify(rpn))
	// Output: 64 ALARP
}
